package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize is the largest frame payload accepted (16MB).
	MaxPayloadSize = 16 << 20
)

// FrameType identifies what a frame's payload holds.
type FrameType uint8

const (
	FrameEvent   FrameType = 0x01 // an event reported against a rendered node
	FramePatches FrameType = 0x02 // a sequenced patch batch
)

func (ft FrameType) String() string {
	switch ft {
	case FrameEvent:
		return "Event"
	case FramePatches:
		return "Patches"
	default:
		return "Unknown"
	}
}

// FrameFlags qualify a frame's payload.
type FrameFlags uint8

const (
	// FlagSnapshot marks a patches frame that replaces the whole tree. A
	// mirror that has lost sync can resume from any snapshot frame.
	FlagSnapshot FrameFlags = 0x01
)

// Has reports whether all bits of flag are set.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag == flag
}

var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a typed, length-prefixed payload.
//
//	[Type: 1 byte][Flags: 1 byte][Length: 4 bytes, big-endian][Payload]
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with no flags.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the header followed by the payload.
func (f *Frame) Encode() []byte {
	buf := make([]byte, FrameHeaderSize, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	binary.BigEndian.PutUint32(buf[2:], uint32(len(f.Payload)))
	return append(buf, f.Payload...)
}

// ReadFrame reads one frame. A clean end of stream before the header
// returns io.EOF; a frame cut short returns io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	f := &Frame{Type: FrameType(header[0]), Flags: FrameFlags(header[1])}
	if f.Type != FrameEvent && f.Type != FramePatches {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidFrameType, header[0])
	}
	length := binary.BigEndian.Uint32(header[2:])
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}

	f.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return f, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// WritePatchesFrame writes pf as a patches frame, flagged as a snapshot when
// snapshot is set.
func WritePatchesFrame(w io.Writer, pf *PatchesFrame, snapshot bool) error {
	f := NewFrame(FramePatches, EncodePatches(pf))
	if snapshot {
		f.Flags |= FlagSnapshot
	}
	return WriteFrame(w, f)
}

// ReadPatchesFrame reads the next frame from r and decodes it as a patches
// frame. It reports whether the frame was flagged as a snapshot.
func ReadPatchesFrame(r io.Reader) (*PatchesFrame, bool, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return nil, false, err
	}
	if f.Type != FramePatches {
		return nil, false, fmt.Errorf("%w: got %s frame, want Patches", ErrInvalidFrameType, f.Type)
	}
	pf, err := DecodePatches(f.Payload)
	if err != nil {
		return nil, false, err
	}
	return pf, f.Flags.Has(FlagSnapshot), nil
}
