package packed

import (
	"github.com/hengadev/structio/internal/codecerr"
)

// Cursor is a read position over a byte buffer. Every successful read moves it
// forward by exactly the number of bytes the value occupies.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a cursor at the start of buf. The buffer is not copied.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.off
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// take consumes the next n bytes.
func (c *Cursor) take(n int, what string) ([]byte, error) {
	if n > c.Len() {
		return nil, codecerr.NewInsufficientDataError(what, n, c.Len())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}
