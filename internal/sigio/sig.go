package sigio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"
	"github.com/snksoft/crc"

	"github.com/strand-bio/squall/internal/signal"
)

// .sig layout: an 8-byte raw header (magic "SQIG", version), then a snappy
// stream of records. Each record is id length (u16), id bytes, sample count
// (u32), f32 samples, and a CRC-32 of the id and sample bytes.
const (
	sigMagic   uint32 = 0x47495153 // "SQIG" little-endian
	sigVersion uint32 = 1

	// maxRecordSamples bounds a single read so a corrupt length field
	// cannot drive a huge allocation.
	maxRecordSamples = 1 << 28
)

var sigByteOrder = binary.LittleEndian

// SigReader reads a .sig file.
type SigReader struct {
	f *os.File
	r io.Reader
	n int // records handed out, for error context
}

// OpenSig opens a .sig file and checks its header.
func OpenSig(path string) (*SigReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signal file: %w", err)
	}

	var hdr [8]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	if sigByteOrder.Uint32(hdr[0:]) != sigMagic {
		f.Close()
		return nil, fmt.Errorf("%s: not a .sig file", path)
	}
	if v := sigByteOrder.Uint32(hdr[4:]); v != sigVersion {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported .sig version %d", path, v)
	}

	return &SigReader{f: f, r: snappy.NewReader(f)}, nil
}

// Next returns the next read, or io.EOF at end of stream.
func (s *SigReader) Next() (*signal.Read, error) {
	var idLen uint16
	if err := binary.Read(s.r, sigByteOrder, &idLen); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("record %d: %w", s.n, err)
	}

	payload := make([]byte, int(idLen)+4)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return nil, fmt.Errorf("record %d: truncated id: %w", s.n, err)
	}
	id := string(payload[:idLen])
	count := sigByteOrder.Uint32(payload[idLen:])
	if count > maxRecordSamples {
		return nil, fmt.Errorf("record %d (%s): implausible sample count %d", s.n, id, count)
	}

	raw := make([]byte, 4*int(count))
	if _, err := io.ReadFull(s.r, raw); err != nil {
		return nil, fmt.Errorf("record %d (%s): truncated samples: %w", s.n, id, err)
	}

	var stored uint32
	if err := binary.Read(s.r, sigByteOrder, &stored); err != nil {
		return nil, fmt.Errorf("record %d (%s): missing checksum: %w", s.n, id, err)
	}
	sum := crc.CalculateCRC(crc.CRC32, append(payload[:idLen:idLen], raw...))
	if uint32(sum) != stored {
		return nil, fmt.Errorf("record %d (%s): checksum mismatch", s.n, id)
	}

	samples := make([]float32, count)
	for i := range samples {
		samples[i] = math.Float32frombits(sigByteOrder.Uint32(raw[4*i:]))
	}

	s.n++
	return &signal.Read{ID: id, Samples: samples}, nil
}

// Close closes the underlying file.
func (s *SigReader) Close() error { return s.f.Close() }

// SigWriter writes a .sig file.
type SigWriter struct {
	f *os.File
	w *snappy.Writer
}

// CreateSig creates a .sig file and writes its header.
func CreateSig(path string) (*SigWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create signal file: %w", err)
	}
	var hdr [8]byte
	sigByteOrder.PutUint32(hdr[0:], sigMagic)
	sigByteOrder.PutUint32(hdr[4:], sigVersion)
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &SigWriter{f: f, w: snappy.NewBufferedWriter(f)}, nil
}

// WriteRead appends one record.
func (s *SigWriter) WriteRead(id string, samples []float32) error {
	if len(id) > math.MaxUint16 {
		return fmt.Errorf("read id too long: %d bytes", len(id))
	}

	raw := make([]byte, 4*len(samples))
	for i, v := range samples {
		sigByteOrder.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	sum := crc.CalculateCRC(crc.CRC32, append([]byte(id), raw...))

	var scratch [4]byte
	sigByteOrder.PutUint16(scratch[:2], uint16(len(id)))
	if _, err := s.w.Write(scratch[:2]); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte(id)); err != nil {
		return err
	}
	sigByteOrder.PutUint32(scratch[:], uint32(len(samples)))
	if _, err := s.w.Write(scratch[:]); err != nil {
		return err
	}
	if _, err := s.w.Write(raw); err != nil {
		return err
	}
	sigByteOrder.PutUint32(scratch[:], uint32(sum))
	if _, err := s.w.Write(scratch[:]); err != nil {
		return err
	}
	return nil
}

// Close flushes the snappy stream and closes the file.
func (s *SigWriter) Close() error {
	if err := s.w.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
