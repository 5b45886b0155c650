package kfmt

import "io"

// ringBufSize describes the size of the ring buffer that buffers early
// Printf output before an output sink is registered.
const ringBufSize = 2048

// ringBuffer models a ring buffer of ringBufSize bytes. Writes that exceed
// the buffer capacity overwrite the oldest buffered data.
type ringBuffer struct {
	buffer               [ringBufSize]byte
	rIndex, wIndex       int
	unreadBytes, written int
}

// Write implements io.Writer.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) % ringBufSize

		if rb.unreadBytes == ringBufSize {
			rb.rIndex = (rb.rIndex + 1) % ringBufSize
		} else {
			rb.unreadBytes++
		}
	}

	rb.written += len(p)
	return len(p), nil
}

// Read implements io.Reader. Once the buffered data has been drained it
// returns io.EOF so copies out of the buffer terminate.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.unreadBytes == 0 {
		return 0, io.EOF
	}

	var read int
	for ; read < len(p) && rb.unreadBytes > 0; read++ {
		p[read] = rb.buffer[rb.rIndex]
		rb.rIndex = (rb.rIndex + 1) % ringBufSize
		rb.unreadBytes--
	}

	return read, nil
}
