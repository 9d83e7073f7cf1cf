package ioctl

// The command word codec. The layout follows the BSD style encoding used by the device servers:
//
//	 31 30 29 28             16 15        8 7          0
//	+-----+--+-----------------+-----------+------------+
//	| dir |  |      size       |   group   |   number   |
//	+-----+--+-----------------+-----------+------------+
//
// Bit 29 is not used and ignored when decoding.

import (
	"fmt"
)

// Dir is the direction tag of a command word. It is described from the point of view of the device
// server: "in" data flows from the caller to the server, "out" data flows back to the caller.
type Dir uint8

const (
	// DirNone means no data is transferred through a buffer. If the size is non-zero the argument is
	// passed by value.
	DirNone Dir = 0
	// DirOut means the server writes size bytes back into the caller's buffer.
	DirOut Dir = 1
	// DirIn means the server reads size bytes from the caller's buffer.
	DirIn Dir = 2
	// DirInOut combines DirIn and DirOut on the same buffer.
	DirInOut Dir = DirIn | DirOut
)

// HasIn reports whether the direction carries input for the server.
func (d Dir) HasIn() bool {
	return d&DirIn != 0
}

// HasOut reports whether the direction carries output for the caller.
func (d Dir) HasOut() bool {
	return d&DirOut != 0
}

func (d Dir) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirOut:
		return "out"
	case DirIn:
		return "in"
	case DirInOut:
		return "inout"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(d))
	}
}

const (
	numBits   = 8
	groupBits = 8
	sizeBits  = 13
	dirBits   = 2

	numShift   = 0
	groupShift = numShift + numBits
	sizeShift  = groupShift + groupBits
	// One unused bit between size and direction.
	dirShift = sizeShift + sizeBits + 1

	numMask   = 1<<numBits - 1
	groupMask = 1<<groupBits - 1
	dirMask   = 1<<dirBits - 1

	// SizeMask is the largest size a command word can encode.
	SizeMask = 1<<sizeBits - 1
)

// Cmd is a 32 bit ioctl command word.
type Cmd uint32

// Fields are the decoded parts of a command word.
type Fields struct {
	Dir   Dir
	Group uint8
	Num   uint8
	Size  uint32
}

// Encode packs the direction, group, number and size into a command word. It fails with
// ErrSizeTooLarge if the size does not fit into the size field and with ErrInvalidDir for unknown
// directions. Values are never silently truncated.
func Encode(dir Dir, group, num uint8, size uint32) (Cmd, error) {
	if size > SizeMask {
		return 0, fmt.Errorf("%w: %d > %d", ErrSizeTooLarge, size, SizeMask)
	}
	if dir > DirInOut {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDir, dir)
	}

	return Cmd(uint32(dir)<<dirShift | size<<sizeShift | uint32(group)<<groupShift | uint32(num)<<numShift), nil
}

// Decode splits a command word into its fields. It is the exact inverse of Encode for every word
// Encode can produce. Bit 29 is ignored.
func Decode(c Cmd) Fields {
	return Fields{
		Dir:   c.Dir(),
		Group: c.Group(),
		Num:   c.Num(),
		Size:  c.Size(),
	}
}

func (c Cmd) Dir() Dir {
	return Dir(uint32(c) >> dirShift & dirMask)
}

func (c Cmd) Group() uint8 {
	return uint8(uint32(c) >> groupShift & groupMask)
}

func (c Cmd) Num() uint8 {
	return uint8(uint32(c) >> numShift & numMask)
}

func (c Cmd) Size() uint32 {
	return uint32(c) >> sizeShift & SizeMask
}

// Base returns the command word with the size field cleared. Servers may use it to match a request
// regardless of the argument size the caller was compiled with.
func (c Cmd) Base() Cmd {
	return c &^ (SizeMask << sizeShift)
}

func (c Cmd) String() string {
	if name, ok := NameOf(c); ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(c))
}

// Helpers mirroring the _IO* macros. They are meant for package level request tables and panic when
// the size does not fit, like regexp.MustCompile.

func mustEncode(dir Dir, group, num uint8, size uint32) Cmd {
	c, err := Encode(dir, group, num, size)
	if err != nil {
		panic(fmt.Sprintf("ioctl: %s", err))
	}
	return c
}

// IO returns a command without an argument.
func IO(group, num uint8) Cmd {
	return mustEncode(DirNone, group, num, 0)
}

// IOV returns a command whose argument of the given size is passed by value.
func IOV(group, num uint8, size uint32) Cmd {
	return mustEncode(DirNone, group, num, size)
}

// IOR returns a command where the server writes size bytes back to the caller.
func IOR(group, num uint8, size uint32) Cmd {
	return mustEncode(DirOut, group, num, size)
}

// IOW returns a command where the server reads size bytes from the caller.
func IOW(group, num uint8, size uint32) Cmd {
	return mustEncode(DirIn, group, num, size)
}

// IOWR returns a command transferring size bytes in both directions.
func IOWR(group, num uint8, size uint32) Cmd {
	return mustEncode(DirInOut, group, num, size)
}
