package ioctl

// Well known requests. The names and values match the ones used by existing device servers, so they
// must not be changed.
var (
	// FIONREAD returns the number of bytes that can be read without blocking (int).
	FIONREAD = IOR('f', 127, 4)
	// TIOCGPTN returns the number of a pseudo terminal (unsigned int).
	TIOCGPTN = IOR('T', 0x30, 4)
	// TIOCSPTLCK locks (non-zero) or unlocks (zero) a pseudo terminal (int).
	TIOCSPTLCK = IOW('T', 0x31, 4)
)

// KnownRequest describes a well known request.
type KnownRequest struct {
	Name        string
	Cmd         Cmd
	Description string
}

// Known lists the well known requests.
var Known = []KnownRequest{
	{Name: "FIONREAD", Cmd: FIONREAD, Description: "number of bytes available for reading"},
	{Name: "TIOCGPTN", Cmd: TIOCGPTN, Description: "get pseudo terminal number"},
	{Name: "TIOCSPTLCK", Cmd: TIOCSPTLCK, Description: "lock or unlock pseudo terminal"},
}

// NameOf returns the name of a well known request.
func NameOf(c Cmd) (string, bool) {
	for _, k := range Known {
		if k.Cmd == c {
			return k.Name, true
		}
	}
	return "", false
}

// Lookup returns the well known request with the given name.
func Lookup(name string) (Cmd, bool) {
	for _, k := range Known {
		if k.Name == name {
			return k.Cmd, true
		}
	}
	return 0, false
}
