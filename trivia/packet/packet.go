// Package packet implements the wire framing shared with the trivia server:
// a one byte opcode, a four byte little-endian payload length, then exactly
// that many payload bytes. The byte order is a fixed wire contract inherited
// from the server implementation.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the fixed size of the opcode plus length prefix.
	HeaderLen = 5

	// DefaultMaxPayload bounds a single frame. The server never sends frames
	// anywhere near this size; the bound only guards against unbounded
	// allocation when the stream is corrupted.
	DefaultMaxPayload = 1 << 20
)

var (
	ErrShortRead = errors.New("stream closed mid frame")
	ErrTooLarge  = errors.New("frame payload exceeds bound")
)

type Frame struct {
	Code    byte
	Payload []byte
}

// New encodes one frame ready to be written to the stream. A nil payload
// produces a header-only frame with length zero.
func New(code byte, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	buf[0] = code
	binary.LittleEndian.PutUint32(buf[1:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf
}

// Read performs the two-phase blocking read: first the five header bytes,
// then exactly the announced number of payload bytes. A stream that ends
// during either phase yields ErrShortRead. maxPayload of zero selects
// DefaultMaxPayload.
func Read(r io.Reader, maxPayload uint32) (*Frame, error) {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayload
	}
	header := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, shortRead(err)
	}
	length := binary.LittleEndian.Uint32(header[1:])
	if length > maxPayload {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, length, maxPayload)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, shortRead(err)
	}
	return &Frame{Code: header[0], Payload: payload}, nil
}

func shortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return err
}
