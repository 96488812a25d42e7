package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/fdspp/internal/model"
)

var example = model.Allocation{Processes: []model.Process{
	model.NewProcess([]uint64{8000}),
	model.NewProcess([]uint64{1000, 125}),
}}

func TestVariation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    model.Allocation
		want float64
	}{
		{"example", example, 6875.0 / 9125.0 * 100},
		{"balanced", model.Allocation{Processes: []model.Process{
			model.NewProcess([]uint64{5}), model.NewProcess([]uint64{2, 3}),
		}}, 0},
		{"all empty", model.Allocation{Processes: []model.Process{
			model.NewProcess(nil), model.NewProcess(nil),
		}}, 0},
		{"one empty", model.Allocation{Processes: []model.Process{
			model.NewProcess([]uint64{10}), model.NewProcess(nil),
		}}, 100},
		{"no processes", model.Allocation{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Variation(tt.a); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Variation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteHuman(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, Human, example); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "MPI Mesh Allocation\n" +
		"  MPI_PROCESS 0: TOTAL: 8000 [8000]\n" +
		"  MPI_PROCESS 1: TOTAL: 1125 [1000, 125]\n" +
		"MPI Cell Count Variation: +/- 75.34\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteHumanEmptyProcess(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := model.Allocation{Processes: []model.Process{model.NewProcess([]uint64{7}), model.NewProcess(nil)}}
	if err := Write(&buf, Human, a); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "  MPI_PROCESS 1: TOTAL: 0 []\n") {
		t.Errorf("empty process not shown:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, JSON, example); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got model.Allocation
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding %q: %v", buf.String(), err)
	}
	if diff := cmp.Diff(example, got); diff != "" {
		t.Errorf("decoded allocation mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), `"meshes": [`) {
		t.Errorf("expected indented output, got %s", buf.String())
	}
}

func TestWriteTOON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, TOON, example); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "processes[2]{process,total,meshes}:\n" +
		"  0,8000,8000\n" +
		"  1,1125,1000 125\n" +
		"variation: 75.34\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"human": Human, "JSON": JSON, "Toon": TOON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml): expected error")
	}
}
