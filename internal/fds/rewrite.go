package fds

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/phobologic/fdspp/internal/allocate"
	"github.com/phobologic/fdspp/internal/model"
	"github.com/phobologic/fdspp/internal/namelist"
)

// AllocateProcesses spreads the meshes over n MPI processes so that every
// process gets a similar number of cells, tags each mesh with its process and
// groups the meshes by process. The file is left untouched on error.
func (f *File) AllocateProcesses(n int) (model.Allocation, error) {
	if n < 1 {
		return model.Allocation{}, &namelist.Error{
			Kind: namelist.KindConfig,
			Err:  fmt.Errorf("%w (got %d)", allocate.ErrInvalidBucketCount, n),
		}
	}

	meshes := f.Meshes()
	items := make([]allocate.Item, 0, len(meshes))
	for _, i := range meshes {
		cells, err := CellCount(&f.Records[i], f.Schema)
		if err != nil {
			return model.Allocation{}, err
		}
		items = append(items, allocate.Item{Index: i, Weight: cells})
	}

	res, err := allocate.LPT(items, n)
	if err != nil {
		return model.Allocation{}, &namelist.Error{Kind: namelist.KindConfig, Err: err}
	}
	f.Apply(meshes, res.Assignment)
	return res.Allocation, nil
}

// Apply writes assignment back into the file. meshes lists the positions of
// the mesh records in ascending order and assignment maps each of them to a
// process. Every mesh loses any existing process tag and gets a new one; the
// meshes are then permuted among their own positions so that they appear in
// process order, keeping their relative order within a process. Records that
// are not meshes do not move.
//
// A mesh missing from assignment is a caller bug and panics.
func (f *File) Apply(meshes []int, assignment map[int]int) {
	tag := f.Schema.withDefaults().TagParam
	for _, i := range meshes {
		proc, ok := assignment[i]
		if !ok {
			panic(fmt.Sprintf("fds: mesh record %d has no process assignment", i))
		}
		rec := &f.Records[i]
		for rec.RemoveParameter(tag) {
		}
		rec.AppendParameter(tag, namelist.Token{Kind: namelist.Number, Text: strconv.Itoa(proc)})
	}

	ordered := slices.Clone(meshes)
	slices.SortStableFunc(ordered, func(a, b int) int {
		return cmp.Compare(assignment[a], assignment[b])
	})
	moved := make([]namelist.Record, len(ordered))
	for k, i := range ordered {
		moved[k] = f.Records[i]
	}
	for k, pos := range meshes {
		f.Records[pos] = moved[k]
	}
}
