package stitch

import (
	"testing"

	"github.com/strand-bio/squall/internal/decode"
)

// call builds a ChunkCall at start with one base per move entry.
func call(start, stride int, bases string, moves ...int32) decode.ChunkCall {
	quals := make([]byte, len(bases))
	for i := range quals {
		quals[i] = '!' + byte(20+i%10)
	}
	return decode.ChunkCall{
		Bases:  []byte(bases),
		Quals:  quals,
		Moves:  moves,
		Start:  start,
		Stride: stride,
	}
}

func TestStitchSingleChunkIdentity(t *testing.T) {
	c := call(0, 5, "ACGTACGT", 0, 2, 5, 9, 14, 20, 27, 35)
	got := Stitch([]decode.ChunkCall{c}, 150)
	if string(got.Seq) != "ACGTACGT" {
		t.Errorf("seq = %q, expected unmodified %q", got.Seq, "ACGTACGT")
	}
	if string(got.Qual) != string(c.Quals) {
		t.Errorf("quals modified by single-chunk stitch")
	}
}

func TestStitchEmpty(t *testing.T) {
	got := Stitch(nil, 150)
	if len(got.Seq) != 0 || len(got.Qual) != 0 {
		t.Error("expected empty result for no calls")
	}
}

func TestStitchTwoChunks(t *testing.T) {
	// Chunks [0,100) and [80,200) with overlap 20, stride 1.
	// Cut sample = 80 + 20/2 = 90.
	//
	// Left emits bases at samples 10, 50, 85, 95: keeps 10, 50, 85.
	// Right emits bases at samples 82, 88, 95, 150: keeps 95, 150.
	left := call(0, 1, "ACGT", 10, 50, 85, 95)
	right := call(80, 1, "TGCA", 2, 8, 15, 70)

	got := Stitch([]decode.ChunkCall{left, right}, 20)
	want := "ACG" + "CA"
	if string(got.Seq) != want {
		t.Errorf("seq = %q, expected %q", got.Seq, want)
	}
	// Qualities follow their originating bases.
	wantQual := string(left.Quals[:3]) + string(right.Quals[2:])
	if string(got.Qual) != wantQual {
		t.Errorf("qual = %q, expected %q", got.Qual, wantQual)
	}
}

func TestStitchUnambiguousOverlap(t *testing.T) {
	// Both chunks call the same shared subsequence inside the overlap;
	// the stitched read must not duplicate it. Overlap [800,1000), cut 900.
	// Underlying truth around the boundary: ...AC | GT...
	left := call(0, 5, "AAAACG", 20, 60, 100, 140, 165, 185)
	// left sample positions: 100, 300, 500, 700, 825, 925
	right := call(800, 5, "CGTTTT", 5, 25, 45, 80, 120, 160)
	// right sample positions: 825, 925, 1025, 1200, 1400, 1600

	got := Stitch([]decode.ChunkCall{left, right}, 200)
	// Left keeps positions < 900: A A A A C (825). Right keeps >= 900:
	// G(925) T T T T.
	want := "AAAAC" + "GTTTT"
	if string(got.Seq) != want {
		t.Errorf("seq = %q, expected %q", got.Seq, want)
	}
}

func TestStitchEmptyMiddleChunk(t *testing.T) {
	// A chunk that emitted nothing contributes nothing and does not break
	// stitching.
	left := call(0, 1, "AC", 10, 20)
	middle := call(80, 1, "")
	right := call(160, 1, "GT", 60, 70) // samples 220, 230

	got := Stitch([]decode.ChunkCall{left, middle, right}, 20)
	if string(got.Seq) != "ACGT" {
		t.Errorf("seq = %q, expected %q", got.Seq, "ACGT")
	}
}

func TestStitchEndsNeverTrimmed(t *testing.T) {
	// First chunk's leading base sits at sample 0 and the last chunk's
	// trailing base at the end; both must survive.
	left := call(0, 1, "AAC", 0, 40, 90)
	right := call(80, 1, "CTT", 15, 40, 119) // samples 95, 120, 199

	got := Stitch([]decode.ChunkCall{left, right}, 20)
	if got.Seq[0] != 'A' {
		t.Error("leading base of first chunk was trimmed")
	}
	if got.Seq[len(got.Seq)-1] != 'T' {
		t.Error("trailing base of last chunk was trimmed")
	}
}

func TestCutPointDeterministic(t *testing.T) {
	left := call(0, 1, "ACGT", 10, 50, 85, 95)
	right := call(80, 1, "TGCA", 2, 8, 15, 70)
	e1, s1 := CutPoint(&left, &right, 20)
	e2, s2 := CutPoint(&left, &right, 20)
	if e1 != e2 || s1 != s2 {
		t.Error("CutPoint is not deterministic")
	}
	if e1 != 3 || s1 != 2 {
		t.Errorf("CutPoint = (%d, %d), expected (3, 2)", e1, s1)
	}
}

func TestCutPointAllBasesBeforeCut(t *testing.T) {
	// Left bases all before the cut, right bases all after: nothing is
	// dropped on either side.
	left := call(0, 1, "AC", 10, 20)
	right := call(80, 1, "GT", 30, 40) // samples 110, 120
	leftEnd, rightStart := CutPoint(&left, &right, 20)
	if leftEnd != 2 {
		t.Errorf("leftEnd = %d, expected 2", leftEnd)
	}
	if rightStart != 0 {
		t.Errorf("rightStart = %d, expected 0", rightStart)
	}
}
