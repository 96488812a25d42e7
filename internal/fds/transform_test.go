package fds

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/fdspp/internal/allocate"
	"github.com/phobologic/fdspp/internal/model"
	"github.com/phobologic/fdspp/internal/namelist"
)

const threeMeshes = `&HEAD CHID='demo' /
&MESH IJK=10,10,10, XB=0,1,0,1,0,1 /
   ! small
&MESH IJK=5,5,5, XB=1,2,0,1,0,1 /
&MESH IJK=20,20,20, XB=2,3,0,1,0,1 /
&TAIL /
`

func intp(n int) *int { return &n }

func TestTransformAllocate(t *testing.T) {
	t.Parallel()

	out, outcome, err := Transform([]byte(threeMeshes), Transforms{NMPI: intp(2)})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	want := `&HEAD CHID='demo' /
&MESH IJK=20,20,20, XB=2,3,0,1,0,1 MPI_PROCESS=0 /
   ! small
&MESH IJK=10,10,10, XB=0,1,0,1,0,1 MPI_PROCESS=1 /
&MESH IJK=5,5,5, XB=1,2,0,1,0,1 MPI_PROCESS=1 /
&TAIL /
`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	wantAlloc := &model.Allocation{Processes: []model.Process{
		{Total: 8000, Meshes: []uint64{8000}},
		{Total: 1125, Meshes: []uint64{1000, 125}},
	}}
	if diff := cmp.Diff(wantAlloc, outcome.MeshAllocation); diff != "" {
		t.Errorf("allocation mismatch (-want +got):\n%s", diff)
	}
	if outcome.Cells != nil {
		t.Errorf("Cells = %d, want unset", *outcome.Cells)
	}
}

func TestTransformIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		threeMeshes,
		"&MESH IJK=4,4,4, MPI_PROCESS=5, /\n&MESH IJK=8,8,8 ! big\n /\n&MESH IJK=2,2,2/\n",
		"&MESH IJK=3,3,3\n      MPI_PROCESS=0 /\n&MESH IJK=3,3,3 /\n",
	}
	for _, n := range []int{1, 2, 3, 5} {
		for _, in := range inputs {
			first, _, err := Transform([]byte(in), Transforms{NMPI: intp(n)})
			if err != nil {
				t.Fatalf("first run: %v", err)
			}
			second, _, err := Transform(first, Transforms{NMPI: intp(n)})
			if err != nil {
				t.Fatalf("second run: %v", err)
			}
			if diff := cmp.Diff(string(first), string(second)); diff != "" {
				t.Errorf("n=%d: second run changed the output (-first +second):\n%s", n, diff)
			}
			if got, want := strings.Count(string(second), "MPI_PROCESS"), strings.Count(in, "&MESH"); got != want {
				t.Errorf("n=%d: %d MPI_PROCESS tags, want %d", n, got, want)
			}
		}
	}
}

func TestTransformPreservesOtherRecords(t *testing.T) {
	t.Parallel()

	in := "&HEAD CHID='x', TITLE='a / b' /\n&OBST XB=0,1,0,1,0,1, MPI_PROCESS=9 /\n" +
		"&MESH IJK=1,1,1 /\n&VENT MB='XMIN' /\n&MESH IJK=9,9,9 /\nfree text &\n"
	out, _, err := Transform([]byte(in), Transforms{NMPI: intp(2)})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for _, keep := range []string{
		"&HEAD CHID='x', TITLE='a / b' /\n&OBST XB=0,1,0,1,0,1, MPI_PROCESS=9 /\n",
		"\n&VENT MB='XMIN' /\n",
		"\nfree text &\n",
	} {
		if !strings.Contains(string(out), keep) {
			t.Errorf("output lost %q:\n%s", keep, out)
		}
	}
	if !strings.HasPrefix(string(out), "&HEAD") {
		t.Errorf("HEAD moved:\n%s", out)
	}
}

func TestTransformSingleProcessKeepsOrder(t *testing.T) {
	t.Parallel()

	out, outcome, err := Transform([]byte(threeMeshes), Transforms{NMPI: intp(1)})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := strings.NewReplacer(
		"XB=0,1,0,1,0,1 /", "XB=0,1,0,1,0,1 MPI_PROCESS=0 /",
		"XB=1,2,0,1,0,1 /", "XB=1,2,0,1,0,1 MPI_PROCESS=0 /",
		"XB=2,3,0,1,0,1 /", "XB=2,3,0,1,0,1 MPI_PROCESS=0 /",
	).Replace(threeMeshes)
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if got := outcome.MeshAllocation.Totals(); len(got) != 1 || got[0] != 9125 {
		t.Errorf("totals = %v, want [9125]", got)
	}
}

func TestTransformInvalidBucketCount(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -3} {
		out, _, err := Transform([]byte(threeMeshes), Transforms{NMPI: intp(n)})
		if err == nil {
			t.Fatalf("n=%d: expected error", n)
		}
		if out != nil {
			t.Errorf("n=%d: got output on error", n)
		}
		if namelist.KindOf(err) != namelist.KindConfig {
			t.Errorf("n=%d: kind = %v, want config", n, namelist.KindOf(err))
		}
		if !errors.Is(err, allocate.ErrInvalidBucketCount) {
			t.Errorf("n=%d: error %v does not wrap ErrInvalidBucketCount", n, err)
		}
	}

	// The bucket count is checked before any mesh is looked at.
	_, _, err := Transform([]byte("&MESH XB=0,1,0,1,0,1 /"), Transforms{NMPI: intp(0)})
	if namelist.KindOf(err) != namelist.KindConfig {
		t.Errorf("kind = %v, want config", namelist.KindOf(err))
	}
}

func TestTransformMissingSize(t *testing.T) {
	t.Parallel()

	in := "&HEAD CHID='x' /\n&MESH IJK=2,2,2 /\n&MESH XB=0,1,0,1,0,1 /\n"
	out, _, err := Transform([]byte(in), Transforms{NMPI: intp(2)})
	if err == nil {
		t.Fatal("expected error")
	}
	if out != nil {
		t.Errorf("got %d output bytes on error", len(out))
	}
	if namelist.KindOf(err) != namelist.KindSemantic {
		t.Errorf("kind = %v, want semantic", namelist.KindOf(err))
	}
	span, ok := namelist.SpanOf(err)
	if !ok {
		t.Fatal("error has no span")
	}
	if span.Line != 2 || span.Column != 0 || span.Length != len("&MESH XB=0,1,0,1,0,1 /") {
		t.Errorf("span = %+v, want the second mesh record", span)
	}
}

func TestTransformTokenizeError(t *testing.T) {
	t.Parallel()

	_, _, err := Transform([]byte("&HEAD TITLE='open\n/"), Transforms{NMPI: intp(1)})
	if namelist.KindOf(err) != namelist.KindTokenize {
		t.Errorf("kind = %v, want tokenize (err %v)", namelist.KindOf(err), err)
	}
}

func TestTransformNoMeshes(t *testing.T) {
	t.Parallel()

	in := "&HEAD CHID='x' /\n&TAIL /\n"
	out, outcome, err := Transform([]byte(in), Transforms{NMPI: intp(3)})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if string(out) != in {
		t.Errorf("output changed: %q", out)
	}
	if got := outcome.MeshAllocation.Totals(); !cmp.Equal(got, []uint64{0, 0, 0}) {
		t.Errorf("totals = %v, want three empty processes", got)
	}
}

func TestTransformNothing(t *testing.T) {
	t.Parallel()

	out, outcome, err := Transform([]byte(threeMeshes), Transforms{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if string(out) != threeMeshes {
		t.Errorf("output changed without transforms")
	}
	if outcome.MeshAllocation != nil || outcome.Cells != nil {
		t.Errorf("outcome = %+v, want empty", outcome)
	}
}

func TestTransformCountCells(t *testing.T) {
	t.Parallel()

	out, outcome, err := Transform([]byte(threeMeshes), Transforms{CountCells: true, NMPI: intp(2)})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if outcome.Cells == nil || *outcome.Cells != 9125 {
		t.Errorf("Cells = %v, want 9125", outcome.Cells)
	}
	if !bytes.Contains(out, []byte("MPI_PROCESS=0")) {
		t.Error("allocation did not run alongside the cell count")
	}
}

func TestTransformCustomSchema(t *testing.T) {
	t.Parallel()

	schema := Schema{MeshGroup: "GRID", SizeParam: "N", TagParam: "RANK"}
	in := "&GRID N=1,1,1 /\n&MESH IJK=5,5,5 /\n&GRID N=4,4,4 RANK=7 /\n"
	out, _, err := Transform([]byte(in), Transforms{NMPI: intp(2), Schema: schema})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := "&GRID N=4,4,4 RANK=0 /\n&MESH IJK=5,5,5 /\n&GRID N=1,1,1 RANK=1 /\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTransforms(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	outcome, err := ApplyTransforms(Transforms{NMPI: intp(2)}, strings.NewReader(threeMeshes), &buf)
	if err != nil {
		t.Fatalf("ApplyTransforms: %v", err)
	}
	direct, _, err := Transform([]byte(threeMeshes), Transforms{NMPI: intp(2)})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if buf.String() != string(direct) {
		t.Errorf("ApplyTransforms and Transform disagree:\n%s\n---\n%s", buf.String(), direct)
	}
	if outcome.MeshAllocation == nil {
		t.Error("no allocation reported")
	}

	buf.Reset()
	_, err = ApplyTransforms(Transforms{NMPI: intp(2)}, strings.NewReader("&MESH IJK=1,1 /"), &buf)
	if err == nil {
		t.Fatal("expected error")
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q despite the error", buf.String())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestApplyTransformsReadError(t *testing.T) {
	t.Parallel()

	_, err := ApplyTransforms(Transforms{}, failingReader{}, &bytes.Buffer{})
	if namelist.KindOf(err) != namelist.KindResource {
		t.Errorf("kind = %v, want resource", namelist.KindOf(err))
	}
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("error = %v, want the read failure", err)
	}
}

func TestApplyPanicsOnMissingAssignment(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(threeMeshes), Schema{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("Apply did not panic")
		}
	}()
	f.Apply(f.Meshes(), map[int]int{})
}
