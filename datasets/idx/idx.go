// Package idx reads and writes the IDX array container used by MNIST style datasets.
//
// A file starts with two zero bytes, a type code, and the number of
// dimensions, followed by one big-endian uint32 per dimension and the
// big-endian payload. Files may be gzip compressed.
package idx

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Type codes of the element types this package understands.
const (
	Ubyte   byte = 0x08
	Int32   byte = 0x0C
	Float32 byte = 0x0D
)

// ErrFormat is returned for input which is not an IDX array.
var ErrFormat = errors.New("idx: bad format")

// Array is a decoded IDX array. Exactly one of Bytes, Ints, Floats is set
// according to Type.
type Array struct {
	Type   byte
	Dims   []int
	Bytes  []byte
	Ints   []int32
	Floats []float32
}

// Len returns the number of elements implied by Dims.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// ReadFile decodes the file at path, gunzipping it when needed.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return a, nil
}

// Read decodes an IDX array, gunzipping the stream when it starts with the gzip magic.
func Read(r io.Reader) (*Array, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, errors.Wrap(ErrFormat, "short header")
	}
	var src io.Reader = br
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "gunzip")
		}
		defer gz.Close()
		src = gz
	}
	return decode(src)
}

func decode(r io.Reader) (*Array, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(ErrFormat, "short header")
	}
	if hdr[0] != 0 || hdr[1] != 0 {
		return nil, errors.Wrapf(ErrFormat, "magic %x", hdr[:2])
	}
	var a = &Array{Type: hdr[2], Dims: make([]int, hdr[3])}
	var size = 1
	for i := range a.Dims {
		var d uint32
		if err := binary.Read(r, binary.BigEndian, &d); err != nil {
			return nil, errors.Wrap(ErrFormat, "short dimensions")
		}
		a.Dims[i] = int(d)
		size *= int(d)
		if size > math.MaxInt32 {
			return nil, errors.Wrap(ErrFormat, "dimensions too large")
		}
	}

	var width int
	switch a.Type {
	case Ubyte:
		width = 1
	case Int32, Float32:
		width = 4
	default:
		return nil, errors.Wrapf(ErrFormat, "unsupported type 0x%02x", a.Type)
	}
	var payload bytes.Buffer
	n, err := io.CopyN(&payload, r, int64(size*width))
	if err != nil || n != int64(size*width) {
		return nil, errors.Wrapf(ErrFormat, "payload has %d of %d bytes", n, size*width)
	}
	raw := payload.Bytes()

	switch a.Type {
	case Ubyte:
		a.Bytes = raw
	case Int32:
		a.Ints = make([]int32, size)
		for i := range a.Ints {
			a.Ints[i] = int32(binary.BigEndian.Uint32(raw[4*i:]))
		}
	case Float32:
		a.Floats = make([]float32, size)
		for i := range a.Floats {
			a.Floats[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:]))
		}
	}
	return a, nil
}

// Write encodes a, uncompressed.
func Write(w io.Writer, a *Array) error {
	if len(a.Dims) > 255 {
		return errors.Wrap(ErrFormat, "too many dimensions")
	}
	bw := bufio.NewWriter(w)
	bw.Write([]byte{0, 0, a.Type, byte(len(a.Dims))})
	for _, d := range a.Dims {
		binary.Write(bw, binary.BigEndian, uint32(d))
	}
	var buf [4]byte
	switch a.Type {
	case Ubyte:
		if len(a.Bytes) != a.Len() {
			return errors.Wrapf(ErrFormat, "%d bytes for dimensions %v", len(a.Bytes), a.Dims)
		}
		bw.Write(a.Bytes)
	case Int32:
		if len(a.Ints) != a.Len() {
			return errors.Wrapf(ErrFormat, "%d ints for dimensions %v", len(a.Ints), a.Dims)
		}
		for _, v := range a.Ints {
			binary.BigEndian.PutUint32(buf[:], uint32(v))
			bw.Write(buf[:])
		}
	case Float32:
		if len(a.Floats) != a.Len() {
			return errors.Wrapf(ErrFormat, "%d floats for dimensions %v", len(a.Floats), a.Dims)
		}
		for _, v := range a.Floats {
			binary.BigEndian.PutUint32(buf[:], math.Float32bits(v))
			bw.Write(buf[:])
		}
	default:
		return errors.Wrapf(ErrFormat, "unsupported type 0x%02x", a.Type)
	}
	return bw.Flush()
}

// WriteFile encodes a to path, gzip compressed when path ends in ".gz".
func WriteFile(path string, a *Array) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var w io.Writer = f
	var gz *gzip.Writer
	if len(path) > 3 && path[len(path)-3:] == ".gz" {
		gz = gzip.NewWriter(f)
		w = gz
	}
	err = Write(w, a)
	if gz != nil {
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
