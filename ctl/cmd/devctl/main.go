package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/thinkparq/devctl/ctl/internal/cmd"
)

func main() {
	if os.Geteuid() == 0 {
		// A setgid binary runs in "secure mode" which suppresses stack traces. Root can see them.
		debug.SetTraceback("single")
	} else if os.Getegid() != os.Getgid() || os.Geteuid() != os.Getuid() {
		defer func() {
			// Only catches panics of the main goroutine.
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "panic: %s (stack traces may be suppressed since the effective user is not root)\n", r)
			}
		}()
	}
	os.Exit(cmd.Execute())
}
