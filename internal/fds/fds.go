// Package fds models an FDS input file as namelist records and implements the
// transforms fdspp applies to it.
package fds

import (
	"bytes"
	"errors"
	"io"
	"math/bits"
	"strconv"

	"github.com/samber/lo"

	"github.com/phobologic/fdspp/internal/namelist"
)

// Schema names the groups and parameters the transforms work with.
type Schema struct {
	MeshGroup string // group that defines a mesh
	SizeParam string // 3-integer cell count triple on a mesh
	TagParam  string // process index written back onto a mesh
}

// DefaultSchema matches FDS itself.
var DefaultSchema = Schema{
	MeshGroup: "MESH",
	SizeParam: "IJK",
	TagParam:  "MPI_PROCESS",
}

// withDefaults fills empty fields from DefaultSchema.
func (s Schema) withDefaults() Schema {
	if s.MeshGroup == "" {
		s.MeshGroup = DefaultSchema.MeshGroup
	}
	if s.SizeParam == "" {
		s.SizeParam = DefaultSchema.SizeParam
	}
	if s.TagParam == "" {
		s.TagParam = DefaultSchema.TagParam
	}
	return s
}

// File is an FDS input file as an ordered list of records.
type File struct {
	Records []namelist.Record
	Schema  Schema
}

// Parse reads an FDS file from src.
func Parse(src []byte, schema Schema) (*File, error) {
	records, err := namelist.Parse(src)
	if err != nil {
		return nil, err
	}
	return &File{Records: records, Schema: schema.withDefaults()}, nil
}

// ReadFile reads the whole of r and parses it.
func ReadFile(r io.Reader, schema Schema) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, &namelist.Error{Kind: namelist.KindResource, Err: err}
	}
	return Parse(src, schema)
}

// WriteTo writes the file's current text to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := namelist.Serialize(cw, f.Records)
	return cw.n, err
}

// Bytes returns the file's current text.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}

// Meshes returns the indices of mesh records, ascending.
func (f *File) Meshes() []int {
	return lo.FilterMap(f.Records, func(r namelist.Record, i int) (int, bool) {
		return i, r.IsGroup(f.Schema.MeshGroup)
	})
}

// CellCount returns the number of cells over all meshes.
func (f *File) CellCount() (uint64, error) {
	var total uint64
	for _, i := range f.Meshes() {
		n, err := CellCount(&f.Records[i], f.Schema)
		if err != nil {
			return 0, err
		}
		var carry uint64
		total, carry = bits.Add64(total, n, 0)
		if carry != 0 {
			span := f.Records[i].Span()
			return 0, namelist.Errorf(namelist.KindSemantic, &span, "total cell count overflows")
		}
	}
	return total, nil
}

// CellCount returns the product of a mesh record's size triple.
func CellCount(rec *namelist.Record, schema Schema) (uint64, error) {
	schema = schema.withDefaults()
	view, err := rec.View()
	if err != nil {
		return 0, err
	}
	span := rec.Span()
	p, ok := view.Get(schema.SizeParam)
	if !ok {
		return 0, namelist.Errorf(namelist.KindSemantic, &span, "no %s parameter for mesh", schema.SizeParam)
	}
	dims := make([]uint64, 0, 3)
	for _, v := range p.Values {
		if v.Kind != namelist.Number {
			vs := v.Span
			return 0, namelist.Errorf(namelist.KindSemantic, &vs, "invalid token for %s: %q", schema.SizeParam, v.Text)
		}
		n, err := strconv.ParseUint(v.Text, 10, 64)
		if err != nil {
			vs := v.Span
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				err = numErr.Err
			}
			return 0, namelist.Errorf(namelist.KindSemantic, &vs, "invalid %s value %q: %w", schema.SizeParam, v.Text, err)
		}
		dims = append(dims, n)
	}
	if len(dims) != 3 {
		return 0, namelist.Errorf(namelist.KindSemantic, &span, "incorrect number of %s parameters: want 3, got %d", schema.SizeParam, len(dims))
	}
	cells := uint64(1)
	for _, d := range dims {
		hi, lo := bits.Mul64(cells, d)
		if hi != 0 {
			return 0, namelist.Errorf(namelist.KindSemantic, &span, "%s cell count overflows", schema.SizeParam)
		}
		cells = lo
	}
	return cells, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
