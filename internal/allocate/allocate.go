// Package allocate distributes weighted items over a fixed number of buckets.
package allocate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/phobologic/fdspp/internal/model"
)

// ErrInvalidBucketCount is returned when fewer than one bucket is requested.
var ErrInvalidBucketCount = errors.New("number of MPI processes must be at least 1")

// Item is something to place, identified by its position in the caller's list.
type Item struct {
	Index  int
	Weight uint64
}

// Result maps each item index to its bucket and summarises every bucket.
type Result struct {
	Assignment map[int]int
	Allocation model.Allocation
}

// LPT assigns items greedily, heaviest first, each to the bucket with the
// smallest running total. Equal weights are taken in ascending index order and
// equal totals resolve to the lowest bucket, so the result depends only on the
// input. The largest bucket is within 4/3 - 1/(3*buckets) of optimal.
func LPT(items []Item, buckets int) (Result, error) {
	if buckets <= 0 {
		return Result{}, fmt.Errorf("%w (got %d)", ErrInvalidBucketCount, buckets)
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	totals := make([]uint64, buckets)
	members := make([][]uint64, buckets)
	assignment := make(map[int]int, len(items))
	for _, it := range sorted {
		b := lightest(totals)
		totals[b] += it.Weight
		members[b] = append(members[b], it.Weight)
		assignment[it.Index] = b
	}

	alloc := model.Allocation{Processes: make([]model.Process, buckets)}
	for b := range members {
		alloc.Processes[b] = model.NewProcess(members[b])
	}
	return Result{Assignment: assignment, Allocation: alloc}, nil
}

// lightest returns the index of the smallest total, preferring lower indices.
func lightest(totals []uint64) int {
	best := 0
	for i := 1; i < len(totals); i++ {
		if totals[i] < totals[best] {
			best = i
		}
	}
	return best
}
