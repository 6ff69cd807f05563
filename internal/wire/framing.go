package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameLen bounds a single frame so a corrupt or hostile length prefix
// cannot make the supervisor try to allocate an unbounded buffer.
const maxFrameLen = 64 << 20 // 64 MiB

// Framer reads and writes the control protocol's on-wire framing: a 4-byte
// big-endian length prefix followed by that many bytes of UTF-8 JSON.
// It has no notion of Request/Response; ReadFrame/WriteFrame operate on
// raw payload bytes so the same framing serves both directions of a
// connection.
type Framer struct {
	rw io.ReadWriter
}

// NewFramer wraps rw (typically a net.Conn from the control socket) with
// length-prefixed framing.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{rw: rw}
}

// ReadFrame blocks until one full frame is available and returns its
// payload. It returns io.EOF only when the peer closed the connection
// before any bytes of a new frame arrived.
func (f *Framer) ReadFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(f.rw, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("%w: frame length %d exceeds maximum %d", ErrMalformed, n, maxFrameLen)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(f.rw, payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return payload, nil
}

// WriteFrame writes payload as one length-prefixed frame.
func (f *Framer) WriteFrame(payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := f.rw.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.rw.Write(payload)
	return err
}
