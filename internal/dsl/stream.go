package dsl

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// maxWireString bounds decoded string lengths to keep a corrupt or
// hostile stream from forcing a huge allocation.
const maxWireString = 1 << 20

var ErrCorruptStream = errors.New("corrupt query stream")

// StreamOutput writes the compact binary wire form used to ship builder
// trees between processes.
type StreamOutput struct {
	w   io.Writer
	buf [binary.MaxVarintLen64]byte
}

// NewStreamOutput creates a StreamOutput over w.
func NewStreamOutput(w io.Writer) *StreamOutput {
	return &StreamOutput{w: w}
}

func (out *StreamOutput) WriteUvarint(v uint64) error {
	n := binary.PutUvarint(out.buf[:], v)
	_, err := out.w.Write(out.buf[:n])
	return err
}

func (out *StreamOutput) WriteString(s string) error {
	if err := out.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(out.w, s)
	return err
}

func (out *StreamOutput) WriteBool(b bool) error {
	out.buf[0] = 0
	if b {
		out.buf[0] = 1
	}
	_, err := out.w.Write(out.buf[:1])
	return err
}

func (out *StreamOutput) WriteFloat32(f float32) error {
	binary.BigEndian.PutUint32(out.buf[:4], math.Float32bits(f))
	_, err := out.w.Write(out.buf[:4])
	return err
}

// WriteOptionalString writes a presence flag followed by the string when set.
func (out *StreamOutput) WriteOptionalString(s string) error {
	if err := out.WriteBool(s != ""); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	return out.WriteString(s)
}

// WriteQuery encodes a builder: shared base metadata first (clause name,
// boost, optional query name), then the variant payload via WriteTo.
// Every variant uses this one convention; none duplicates it.
func (out *StreamOutput) WriteQuery(b QueryBuilder) error {
	if err := out.WriteString(b.WriteableName()); err != nil {
		return err
	}
	if err := out.WriteFloat32(b.Boost()); err != nil {
		return err
	}
	if err := out.WriteOptionalString(b.QueryName()); err != nil {
		return err
	}
	return b.WriteTo(out)
}

// StreamInput reads the binary wire form. It carries the registry used
// to decode nested clauses by name.
type StreamInput struct {
	r   *bufio.Reader
	reg *Registry
}

// NewStreamInput creates a StreamInput over r using the given registry.
func NewStreamInput(r io.Reader, reg *Registry) *StreamInput {
	return &StreamInput{r: bufio.NewReader(r), reg: reg}
}

func (in *StreamInput) ReadUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(in.r)
	if err != nil {
		return 0, streamErr(err)
	}
	return v, nil
}

func (in *StreamInput) ReadString() (string, error) {
	n, err := in.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > maxWireString {
		return "", fmt.Errorf("%w: string length %d exceeds limit", ErrCorruptStream, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(in.r, buf); err != nil {
		return "", streamErr(err)
	}
	return string(buf), nil
}

func (in *StreamInput) ReadBool() (bool, error) {
	c, err := in.r.ReadByte()
	if err != nil {
		return false, streamErr(err)
	}
	switch c {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid boolean byte 0x%02x", ErrCorruptStream, c)
	}
}

func (in *StreamInput) ReadFloat32() (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(in.r, buf[:]); err != nil {
		return 0, streamErr(err)
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadOptionalString is the inverse of WriteOptionalString.
func (in *StreamInput) ReadOptionalString() (string, error) {
	present, err := in.ReadBool()
	if err != nil || !present {
		return "", err
	}
	return in.ReadString()
}

// ReadQuery is the exact inverse of WriteQuery: decoding a builder's own
// encoding reconstructs a builder structurally equal to the original.
func (in *StreamInput) ReadQuery() (QueryBuilder, error) {
	name, err := in.ReadString()
	if err != nil {
		return nil, err
	}
	boost, err := in.ReadFloat32()
	if err != nil {
		return nil, err
	}
	queryName, err := in.ReadOptionalString()
	if err != nil {
		return nil, err
	}

	read := in.reg.reader(name)
	if read == nil {
		return nil, fmt.Errorf("%w: unknown query [%s]", ErrCorruptStream, name)
	}
	b, err := read(in)
	if err != nil {
		return nil, err
	}
	b.SetBoost(boost)
	b.SetQueryName(queryName)
	return b, nil
}

func streamErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated input", ErrCorruptStream)
	}
	return err
}
