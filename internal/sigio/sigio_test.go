package sigio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sbinet/npyio/npz"
)

func TestSigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.sig")

	type rec struct {
		id      string
		samples []float32
	}
	recs := []rec{
		{uuid.MustParse("11111111-2222-3333-4444-555555555555").String(), []float32{1.5, -2.25, 3.75}},
		{"read-two", make([]float32, 10000)},
		{"empty-read", nil},
	}
	for i := range recs[1].samples {
		recs[1].samples[i] = float32(i%100) * 0.5
	}

	w, err := CreateSig(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, r := range recs {
		if err := w.WriteRead(r.id, r.samples); err != nil {
			t.Fatalf("write %s: %v", r.id, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := OpenSig(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	for _, want := range recs {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("next %s: %v", want.id, err)
		}
		if got.ID != want.id {
			t.Errorf("id = %q, expected %q", got.ID, want.id)
		}
		if len(got.Samples) != len(want.samples) {
			t.Fatalf("%s: %d samples, expected %d", want.id, len(got.Samples), len(want.samples))
		}
		for i := range want.samples {
			if got.Samples[i] != want.samples[i] {
				t.Fatalf("%s: sample %d = %f, expected %f", want.id, i, got.Samples[i], want.samples[i])
			}
		}
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("after last record: err = %v, expected io.EOF", err)
	}
}

func TestSigRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.sig")
	if err := os.WriteFile(path, make([]byte, 32), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSig(path); err == nil {
		t.Fatal("expected error for zeroed file")
	}
}

func TestSigDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.sig")
	w, err := CreateSig(path)
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]float32, 2000)
	for i := range samples {
		samples[i] = float32(i)
	}
	if err := w.WriteRead("victim", samples); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// Flip a byte inside the snappy payload, past the raw header.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)/2] ^= 0xff
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := OpenSig(path)
	if err != nil {
		// Snappy's own framing checksum may reject the file outright.
		return
	}
	defer r.Close()
	if _, err := r.Next(); err == nil {
		t.Fatal("expected checksum error for corrupted record")
	}
}

func TestNpzRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.npz")

	f32 := []float32{42.5, -1.25, 0, 3}
	i16 := []int16{100, -200, 300}
	f64 := []float64{1.5, 2.5}

	w, err := npz.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Member names carry numpy's .npy suffix; read ids must not.
	for _, m := range []struct {
		key string
		val any
	}{
		{"read-b.npy", f32},
		{"read-a.npy", i16},
		{"read-c.npy", f64},
	} {
		if err := w.Write(m.key, m.val); err != nil {
			t.Fatalf("write %s: %v", m.key, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	// Keys come back in sorted order regardless of write order, with the
	// integer and float64 arrays widened to float32.
	want := []struct {
		id      string
		samples []float32
	}{
		{"read-a", []float32{100, -200, 300}},
		{"read-b", []float32{42.5, -1.25, 0, 3}},
		{"read-c", []float32{1.5, 2.5}},
	}
	for _, exp := range want {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("next %s: %v", exp.id, err)
		}
		if got.ID != exp.id {
			t.Errorf("id = %q, expected %q", got.ID, exp.id)
		}
		if len(got.Samples) != len(exp.samples) {
			t.Fatalf("%s: %d samples, expected %d", exp.id, len(got.Samples), len(exp.samples))
		}
		for i := range exp.samples {
			if got.Samples[i] != exp.samples[i] {
				t.Fatalf("%s: sample %d = %f, expected %f", exp.id, i, got.Samples[i], exp.samples[i])
			}
		}
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("after last array: err = %v, expected io.EOF", err)
	}
}

func TestOpenDispatch(t *testing.T) {
	if _, err := Open("reads.blow5"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
