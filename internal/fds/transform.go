package fds

import (
	"io"

	"github.com/phobologic/fdspp/internal/model"
	"github.com/phobologic/fdspp/internal/namelist"
)

// Transforms selects what Transform does to a file.
type Transforms struct {
	// NMPI, when set, reallocates meshes over that many MPI processes.
	NMPI       *int
	CountCells bool
	Schema     Schema
}

// Outcome reports what the transforms found or did.
type Outcome struct {
	MeshAllocation *model.Allocation `json:"mesh_allocation,omitempty"`
	Cells          *uint64           `json:"cells,omitempty"`
}

// Transform parses input, applies t and returns the resulting text. Nothing is
// returned on error.
func Transform(input []byte, t Transforms) ([]byte, Outcome, error) {
	f, err := Parse(input, t.Schema)
	if err != nil {
		return nil, Outcome{}, err
	}
	out, err := f.apply(t)
	if err != nil {
		return nil, Outcome{}, err
	}
	return f.Bytes(), out, nil
}

// ApplyTransforms reads r fully, applies t and writes the result to w. w is
// not written to unless every transform succeeded.
func ApplyTransforms(t Transforms, r io.Reader, w io.Writer) (Outcome, error) {
	f, err := ReadFile(r, t.Schema)
	if err != nil {
		return Outcome{}, err
	}
	out, err := f.apply(t)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return Outcome{}, &namelist.Error{Kind: namelist.KindResource, Err: err}
	}
	return out, nil
}

func (f *File) apply(t Transforms) (Outcome, error) {
	var out Outcome
	if t.CountCells {
		n, err := f.CellCount()
		if err != nil {
			return Outcome{}, err
		}
		out.Cells = &n
	}
	if t.NMPI != nil {
		alloc, err := f.AllocateProcesses(*t.NMPI)
		if err != nil {
			return Outcome{}, err
		}
		out.MeshAllocation = &alloc
	}
	return out, nil
}
