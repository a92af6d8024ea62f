package nss

// Buffer is a fixed-capacity scratch region with a write cursor.
//
// It models the (buffer, buflen) pair handed to a name-service lookup:
// variable-length output is written at the cursor, each string followed by a
// NUL terminator, and a write that does not fit is refused with ErrTryAgain so
// the caller can retry with a larger buffer. Strings handed back by Put are
// owned copies and never alias the backing array.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer returns a buffer with the given capacity in bytes.
func NewBuffer(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	return &Buffer{data: make([]byte, size)}
}

// Cap returns the total capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Len returns the number of bytes consumed so far.
func (b *Buffer) Len() int {
	return b.off
}

// Remaining returns the number of bytes still available.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.off
}

// Fits reports whether n more bytes can be written.
func (b *Buffer) Fits(n int) bool {
	return n >= 0 && n <= b.Remaining()
}

// Put copies s and its terminator into the buffer and advances the cursor by len(s)+1.
// The cursor is left untouched when the value does not fit.
func (b *Buffer) Put(s string) (string, error) {
	n := len(s) + 1
	if !b.Fits(n) {
		return "", NewError("buffer", StatusTryAgain, "insufficient buffer capacity", nil)
	}

	copy(b.data[b.off:], s)
	b.data[b.off+len(s)] = 0
	b.off += n

	return s, nil
}

// Bytes returns the consumed region of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.off]
}

// Reset rewinds the cursor to the start of the buffer.
func (b *Buffer) Reset() {
	b.off = 0
}
