package signal

import "testing"

func makeSignal(n int) []float32 {
	sig := make([]float32, n)
	for i := range sig {
		sig[i] = float32(i)
	}
	return sig
}

func TestChunksCoverAndOverlap(t *testing.T) {
	cases := []struct {
		length, size, overlap int
	}{
		{16000, 8000, 150},
		{100, 10, 3},
		{10, 10, 0},
		{7, 10, 3},
		{1, 10, 0},
		{25000, 8000, 150},
		{99, 10, 9},
	}

	for _, c := range cases {
		chunks := CollectChunks(makeSignal(c.length), c.size, c.overlap)
		if len(chunks) == 0 {
			t.Errorf("L=%d C=%d O=%d: no chunks", c.length, c.size, c.overlap)
			continue
		}

		// Coverage: first at 0, last ends at L, no gaps.
		if chunks[0].Start != 0 {
			t.Errorf("L=%d: first chunk starts at %d", c.length, chunks[0].Start)
		}
		last := chunks[len(chunks)-1]
		if last.End() != c.length {
			t.Errorf("L=%d: last chunk ends at %d", c.length, last.End())
		}
		for i := 1; i < len(chunks); i++ {
			if chunks[i].Start >= chunks[i-1].End() {
				t.Errorf("L=%d: gap between chunks %d and %d", c.length, i-1, i)
			}
			if chunks[i].Start <= chunks[i-1].Start {
				t.Errorf("L=%d: chunk starts not strictly increasing at %d", c.length, i)
			}
			// Consecutive chunks overlap by exactly O samples.
			if got := chunks[i-1].End() - chunks[i].Start; got != c.overlap {
				t.Errorf("L=%d: overlap between %d and %d = %d, expected %d",
					c.length, i-1, i, got, c.overlap)
			}
		}

		// Interior chunks have length exactly C.
		for i := 0; i < len(chunks)-1; i++ {
			if len(chunks[i].Samples) != c.size {
				t.Errorf("L=%d: interior chunk %d has length %d, expected %d",
					c.length, i, len(chunks[i].Samples), c.size)
			}
		}

		// Chunk samples are views of the source at their offsets.
		for i, ch := range chunks {
			if ch.Samples[0] != float32(ch.Start) {
				t.Errorf("L=%d: chunk %d samples do not match offset %d", c.length, i, ch.Start)
			}
		}
	}
}

func TestChunksSixteenThousand(t *testing.T) {
	// 16000 samples at chunk size 8000, overlap 150 produce exactly two
	// chunks: [0,8000) and [7850,16000).
	chunks := CollectChunks(makeSignal(16000), 8000, 150)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, expected 2", len(chunks))
	}
	if chunks[0].Start != 0 || len(chunks[0].Samples) != 8000 {
		t.Errorf("chunk 0 = [%d, %d), expected [0, 8000)", chunks[0].Start, chunks[0].End())
	}
	if chunks[1].Start != 7850 || chunks[1].End() != 16000 {
		t.Errorf("chunk 1 = [%d, %d), expected [7850, 16000)", chunks[1].Start, chunks[1].End())
	}
}

func TestChunksEmptySignal(t *testing.T) {
	if got := CollectChunks(nil, 8000, 150); len(got) != 0 {
		t.Errorf("got %d chunks for empty signal, expected 0", len(got))
	}
}

func TestChunksRestartable(t *testing.T) {
	seq := Chunks(makeSignal(100), 10, 3)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first == 0 || first != second {
		t.Errorf("sequence not restartable: %d vs %d", first, second)
	}
}

func TestValidateChunking(t *testing.T) {
	cases := []struct {
		size, overlap int
		ok            bool
	}{
		{8000, 150, true},
		{10, 0, true},
		{0, 0, false},
		{-1, 0, false},
		{10, 10, false},
		{10, 11, false},
		{10, -1, false},
	}
	for _, c := range cases {
		err := ValidateChunking(c.size, c.overlap)
		if (err == nil) != c.ok {
			t.Errorf("ValidateChunking(%d, %d) error = %v, expected ok=%v",
				c.size, c.overlap, err, c.ok)
		}
	}
}
