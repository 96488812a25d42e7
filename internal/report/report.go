// Package report renders mesh allocations for people and programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/phobologic/fdspp/internal/model"
	"github.com/phobologic/fdspp/internal/toon"
)

// Format selects a rendering.
type Format string

const (
	Human Format = "human"
	JSON  Format = "json"
	TOON  Format = "toon"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Human, JSON, TOON:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want human, json or toon)", s)
}

// Variation is the spread of process totals as a percentage of their
// midpoint: ((max-min)/2) / ((max+min)/2) * 100. It is 0 when every total is 0
// or there are no processes.
func Variation(a model.Allocation) float64 {
	totals := a.Totals()
	least, most := float64(lo.Min(totals)), float64(lo.Max(totals))
	if least+most == 0 {
		return 0
	}
	return ((most - least) / 2) / ((most + least) / 2) * 100
}

// Write renders a in format f.
func Write(w io.Writer, f Format, a model.Allocation) error {
	switch f {
	case JSON:
		return writeJSON(w, a)
	case TOON:
		_, err := fmt.Fprintln(w, toon.Encode(a, Variation(a)))
		return err
	default:
		return writeHuman(w, a)
	}
}

func writeJSON(w io.Writer, a model.Allocation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

func writeHuman(w io.Writer, a model.Allocation) error {
	var b strings.Builder
	b.WriteString("MPI Mesh Allocation\n")
	for i, p := range a.Processes {
		meshes := lo.Map(p.Meshes, func(n uint64, _ int) string { return fmt.Sprint(n) })
		fmt.Fprintf(&b, "  MPI_PROCESS %d: TOTAL: %d [%s]\n", i, p.Total, strings.Join(meshes, ", "))
	}
	fmt.Fprintf(&b, "MPI Cell Count Variation: +/- %.2f\n", Variation(a))
	_, err := io.WriteString(w, b.String())
	return err
}
