// ABOUTME: Tests for the QOA decoder
// ABOUTME: Hand-assembled frames, header rejection and seeking
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildQOA assembles a one-channel QOA file from slices of residual
// indices. Each slice covers 20 samples; missing residuals are zero.
func buildQOA(totalSamples, sampleRate int, slices ...uint64) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(qoaMagic))
	binary.Write(&b, binary.BigEndian, uint32(totalSamples))

	// frame header: channels, 24-bit sample rate, frame samples, size
	fsize := qoaFrameHeaderSize + 16 + 8*len(slices)
	b.WriteByte(1)
	b.WriteByte(byte(sampleRate >> 16))
	b.WriteByte(byte(sampleRate >> 8))
	b.WriteByte(byte(sampleRate))
	binary.Write(&b, binary.BigEndian, uint16(totalSamples))
	binary.Write(&b, binary.BigEndian, uint16(fsize))

	// zeroed LMS history and weights
	b.Write(make([]byte, 16))

	for _, s := range slices {
		binary.Write(&b, binary.BigEndian, s)
	}
	return b.Bytes()
}

func TestQOARejectsZeroTotalSamples(t *testing.T) {
	data := buildQOA(0, 44100, 0)
	var s QOAStream
	if err := s.Open(data); !errors.Is(err, ErrInvalidQOA) {
		t.Errorf("error = %v, want ErrInvalidQOA", err)
	}
}

func TestQOARejectsBadMagic(t *testing.T) {
	data := buildQOA(20, 44100, 0)
	data[0] = 'x'
	var s QOAStream
	if err := s.Open(data); !errors.Is(err, ErrNotQOA) {
		t.Errorf("error = %v, want ErrNotQOA", err)
	}
}

func TestQOADecodesZeroSlice(t *testing.T) {
	// a zero slice has scalefactor 0 and residual index 0 everywhere;
	// with zeroed LMS state every sample dequantizes to +1
	data := buildQOA(20, 44100, 0)

	var s QOAStream
	if err := s.Open(data); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	f := s.Format()
	if f.Channels != 1 || f.SampleRate != 44100 || f.BitsPerSample != 16 {
		t.Fatalf("format = %+v", f)
	}

	out := make([]byte, 40)
	n, end, err := s.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 40 {
		t.Fatalf("decoded %d bytes, want 40", n)
	}
	if !end {
		t.Error("expected end of stream")
	}
	for i := 0; i < 20; i++ {
		v := int16(binary.LittleEndian.Uint16(out[i*2:]))
		if v != 1 {
			t.Fatalf("sample %d = %d, want 1", i, v)
		}
	}
}

func TestQOASeekDiscardsWithinFrame(t *testing.T) {
	data := buildQOA(20, 44100, 0)

	var s QOAStream
	if err := s.Open(data); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Seek(15); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 64)
	n, end, err := s.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("decoded %d bytes after seek, want 10", n)
	}
	if !end {
		t.Error("expected end after final samples")
	}

	// rewinding replays from the start
	if err := s.Seek(0); err != nil {
		t.Fatal(err)
	}
	n, _, err = s.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 40 {
		t.Errorf("decoded %d bytes after rewind, want 40", n)
	}
}

func TestQOALargerResiduals(t *testing.T) {
	// scalefactor 2, first residual index 2: dequant table says +53 for
	// the first sample, then prediction takes over
	slice := uint64(2)<<60 | uint64(2)<<57
	data := buildQOA(20, 48000, slice)

	var s QOAStream
	if err := s.Open(data); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	out := make([]byte, 40)
	if _, _, err := s.Decode(out); err != nil {
		t.Fatal(err)
	}
	first := int16(binary.LittleEndian.Uint16(out))
	if first != 53 {
		t.Errorf("first sample = %d, want 53", first)
	}
}

func TestDecodeAllQOA(t *testing.T) {
	data := buildQOA(20, 44100, 0)
	f, pcm, err := DecodeAllQOA(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.SampleRate != 44100 || f.Channels != 1 {
		t.Errorf("format = %+v", f)
	}
	if len(pcm) != 40 {
		t.Errorf("pcm = %d bytes, want 40", len(pcm))
	}
}
