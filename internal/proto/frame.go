package proto

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// HeaderSize is the length of the big-endian payload size prefix.
	HeaderSize = 4
	// DefaultMaxFrameSize bounds a payload when the caller does not configure one.
	DefaultMaxFrameSize = 64 * 1024

	readChunk = 1024
)

// ErrNeedMoreData reports that the buffer holds only part of a frame.
var ErrNeedMoreData = errors.New("need more data")

// ProtocolError describes a malformed frame. It is fatal for the connection.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "protocol error: " + e.Reason + ": " + e.Err.Error()
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is or wraps a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// AppendFrame appends the length prefix and payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// SplitFrame extracts the first complete frame payload from buf.
// It returns the payload and the number of bytes consumed.
func SplitFrame(buf []byte, maxSize int) ([]byte, int, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	if len(buf) < HeaderSize {
		return nil, 0, ErrNeedMoreData
	}
	size := binary.BigEndian.Uint32(buf[:HeaderSize])
	if size == 0 {
		return nil, 0, &ProtocolError{Reason: "empty frame"}
	}
	if uint64(size) > uint64(maxSize) {
		return nil, 0, &ProtocolError{Reason: fmt.Sprintf("frame of %d bytes exceeds limit %d", size, maxSize)}
	}
	end := HeaderSize + int(size)
	if len(buf) < end {
		return nil, 0, ErrNeedMoreData
	}
	return buf[HeaderSize:end], end, nil
}

// EncodeRequest frames a request for the wire.
func EncodeRequest(req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), payload), nil
}

// DecodeRequest decodes the first request frame in buf.
// A partial frame yields ErrNeedMoreData and consumes nothing.
func DecodeRequest(buf []byte, maxSize int) (Request, int, error) {
	payload, n, err := SplitFrame(buf, maxSize)
	if err != nil {
		return Request{}, 0, err
	}
	req, err := parseRequest(payload)
	if err != nil {
		return Request{}, 0, err
	}
	return req, n, nil
}

func parseRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, &ProtocolError{Reason: "invalid request body", Err: err}
	}
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.ClientName == "" {
		return Request{}, &ProtocolError{Reason: "clientname is required"}
	}
	if req.Command == "" {
		return Request{}, &ProtocolError{Reason: "command is required"}
	}
	return req, nil
}

// EncodeReply frames reply text for the wire.
func EncodeReply(text string) []byte {
	return AppendFrame(make([]byte, 0, HeaderSize+len(text)), []byte(text))
}

// Decoder reads frames from a stream, keeping unconsumed bytes between reads.
type Decoder struct {
	r       io.Reader
	maxSize int
	buf     []byte
	chunk   []byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, maxSize int) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &Decoder{
		r:       r,
		maxSize: maxSize,
		chunk:   make([]byte, readChunk),
	}
}

// NextRequest blocks until a full request frame arrives.
// It returns io.EOF when the peer closes between frames.
func (d *Decoder) NextRequest() (Request, error) {
	payload, err := d.next()
	if err != nil {
		return Request{}, err
	}
	return parseRequest(payload)
}

// NextReply blocks until a full reply frame arrives.
func (d *Decoder) NextReply() (string, error) {
	payload, err := d.next()
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (d *Decoder) next() ([]byte, error) {
	for {
		payload, n, err := SplitFrame(d.buf, d.maxSize)
		if err == nil {
			out := make([]byte, len(payload))
			copy(out, payload)
			d.buf = d.buf[n:]
			return out, nil
		}
		if !errors.Is(err, ErrNeedMoreData) {
			return nil, err
		}

		read, readErr := d.r.Read(d.chunk)
		if read > 0 {
			d.buf = append(d.buf, d.chunk[:read]...)
			continue
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) && len(d.buf) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, readErr
		}
	}
}

// WriteRequest frames req and writes it to w.
func WriteRequest(w io.Writer, req Request) error {
	frame, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// WriteReply frames text and writes it to w.
func WriteReply(w io.Writer, text string) error {
	_, err := w.Write(EncodeReply(text))
	return err
}
