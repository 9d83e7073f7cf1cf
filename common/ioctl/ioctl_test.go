package ioctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, dir := range []Dir{DirNone, DirOut, DirIn, DirInOut} {
		for _, group := range []uint8{0, 1, 'T', 'f', 0xff} {
			for _, num := range []uint8{0, 1, 0x30, 127, 0xff} {
				for _, size := range []uint32{0, 1, 4, 52, 56, 57, 4096, SizeMask} {
					cmd, err := Encode(dir, group, num, size)
					require.NoError(t, err)

					f := Decode(cmd)
					assert.Equal(t, Fields{Dir: dir, Group: group, Num: num, Size: size}, f)
				}
			}
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(DirIn, 'x', 1, SizeMask+1)
	assert.ErrorIs(t, err, ErrSizeTooLarge)

	_, err = Encode(DirIn, 'x', 1, 1<<20)
	assert.ErrorIs(t, err, ErrSizeTooLarge)

	_, err = Encode(Dir(4), 'x', 1, 4)
	assert.ErrorIs(t, err, ErrInvalidDir)

	assert.Panics(t, func() { IOW('x', 1, SizeMask+1) })
}

func TestWellKnownRequests(t *testing.T) {
	cmd, err := Encode(DirOut, 'f', 127, 4)
	require.NoError(t, err)
	assert.Equal(t, FIONREAD, cmd)
	assert.EqualValues(t, 0x4004667f, FIONREAD)
	assert.Equal(t, Fields{Dir: DirOut, Group: 'f', Num: 127, Size: 4}, Decode(FIONREAD))

	assert.EqualValues(t, 0x40045430, TIOCGPTN)
	assert.EqualValues(t, 0x80045431, TIOCSPTLCK)
	assert.Equal(t, DirIn, TIOCSPTLCK.Dir())

	assert.Equal(t, "FIONREAD", FIONREAD.String())
	cmd, ok := Lookup("TIOCGPTN")
	assert.True(t, ok)
	assert.Equal(t, TIOCGPTN, cmd)
	_, ok = Lookup("TIOCNOPE")
	assert.False(t, ok)
}

func TestDecodeIgnoresUnusedBit(t *testing.T) {
	f := Decode(FIONREAD | 1<<29)
	assert.Equal(t, Decode(FIONREAD), f)
}

func TestCmdHelpers(t *testing.T) {
	assert.Equal(t, Fields{Dir: DirNone, Group: 'x', Num: 2}, Decode(IO('x', 2)))
	assert.Equal(t, Fields{Dir: DirNone, Group: 'x', Num: 3, Size: 4}, Decode(IOV('x', 3, 4)))
	assert.Equal(t, Fields{Dir: DirInOut, Group: 'x', Num: 4, Size: 100}, Decode(IOWR('x', 4, 100)))
	assert.Equal(t, IOR('f', 127, 0), FIONREAD.Base())
	assert.Equal(t, "0x00007802", IO('x', 2).String())

	assert.True(t, DirInOut.HasIn())
	assert.True(t, DirInOut.HasOut())
	assert.False(t, DirOut.HasIn())
	assert.False(t, DirIn.HasOut())
	assert.Equal(t, "inout", DirInOut.String())
}
