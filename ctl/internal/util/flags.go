package util

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/thinkparq/devctl/common/ioctl"
)

// SizeVar defines a flag for the payload size of a command word. It accepts human-readable sizes
// (e.g., "4", "1KiB") and rejects anything larger than ioctl.SizeMask.
func SizeVar(flags *pflag.FlagSet, p *uint32, name string, shorthand string, defaultValue string, usage string) {
	f := &sizeFlag{p: p}
	if err := f.Set(defaultValue); err != nil {
		panic(fmt.Sprintf("error setting default value (this is a bug): %s", err.Error()))
	}
	f.defaultValue = defaultValue
	flags.VarP(f, name, shorthand, usage)
}

type sizeFlag struct {
	p            *uint32
	defaultValue string
}

func (f *sizeFlag) String() string {
	return f.defaultValue
}

func (f *sizeFlag) Type() string {
	return "<size><unit>"
}

func (f *sizeFlag) Set(value string) error {
	size, err := ParseIntFromStr(value)
	if err != nil {
		return err
	}
	if size > ioctl.SizeMask {
		return fmt.Errorf("parsed size (%d bytes) is out of bounds (must be between 0 and %d bytes)", size, ioctl.SizeMask)
	}
	*f.p = uint32(size)
	return nil
}

// ValidatedStringFlag defines a flag that only accepts one of the allowed strings. Intended to be
// used with typed constants that satisfy the stringer interface. Allowed strings should be all
// lowercase, the user provided string is converted to lowercase before it is checked.
func ValidatedStringFlag(allowed []fmt.Stringer, defaultValue fmt.Stringer) *validatedStringFlag {
	return &validatedStringFlag{
		value:   defaultValue,
		allowed: allowed,
	}
}

type validatedStringFlag struct {
	value   fmt.Stringer
	allowed []fmt.Stringer
}

func (f *validatedStringFlag) String() string {
	return f.value.String()
}

// Value returns the selected constant.
func (f *validatedStringFlag) Value() fmt.Stringer {
	return f.value
}

func (f *validatedStringFlag) Set(val string) error {
	val = strings.ToLower(val)
	for _, allowed := range f.allowed {
		if val == allowed.String() {
			f.value = allowed
			return nil
		}
	}
	return fmt.Errorf("invalid value: %q (allowed: %v)", val, f.allowed)
}

func (f *validatedStringFlag) Type() string {
	return "string"
}

// DirOptions are the allowed values of a direction flag.
var DirOptions = []fmt.Stringer{ioctl.DirNone, ioctl.DirIn, ioctl.DirOut, ioctl.DirInOut}
