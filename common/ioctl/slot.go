package ioctl

// Slot is the writable response region of a request. It is lent to the handler for the duration of
// one call: once the response has been built the slot is released and Bytes returns nil.
type Slot struct {
	buf      []byte
	inline   bool
	released bool
}

// Bytes returns the writable region, exactly the size of the command word. Returns nil after the
// response has been built.
func (s *Slot) Bytes() []byte {
	if s == nil || s.released {
		return nil
	}
	return s.buf
}

// Len returns the size of the region.
func (s *Slot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.buf)
}

// Inline reports whether the region is part of the inline response area (as opposed to the buffer
// lent by the caller).
func (s *Slot) Inline() bool {
	return s != nil && s.inline
}

func (s *Slot) release() {
	if s != nil {
		s.released = true
		s.buf = nil
	}
}
