// ABOUTME: Tests for the software mix voice
// ABOUTME: Sample decoding per wire format and played-frame accounting
package engine

import (
	"encoding/binary"
	"math"
	"testing"
)

func newTestSource(p StreamParams) *mixVoice {
	return &mixVoice{kind: sourceNode, params: p, volume: 1, ratio: 1, started: true}
}

func TestSampleAsFloat(t *testing.T) {
	f32 := func(v float32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		return b
	}
	i16 := func(v int16) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	}
	i32 := func(v int32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}

	tests := []struct {
		name string
		p    StreamParams
		data []byte
		want float32
	}{
		{"float32 half", StreamParams{BitsPerSample: 32, Float: true}, f32(0.5), 0.5},
		{"float32 negative", StreamParams{BitsPerSample: 32, Float: true}, f32(-0.25), -0.25},
		{"int16 max", StreamParams{BitsPerSample: 16}, i16(16384), 0.5},
		{"int16 min", StreamParams{BitsPerSample: 16}, i16(-32768), -1},
		{"uint8 silence", StreamParams{BitsPerSample: 8}, []byte{128}, 0},
		{"uint8 max", StreamParams{BitsPerSample: 8}, []byte{255}, 127.0 / 128},
		{"int24 half", StreamParams{BitsPerSample: 24}, []byte{0x00, 0x00, 0x40}, 0.5},
		{"int24 negative full", StreamParams{BitsPerSample: 24}, []byte{0x00, 0x00, 0x80}, -1},
		{"int32 half", StreamParams{BitsPerSample: 32}, i32(1 << 30), 0.5},
	}
	for _, tt := range tests {
		if got := sampleAsFloat(tt.data, tt.p); math.Abs(float64(got-tt.want)) > 1e-4 {
			t.Errorf("%s: sampleAsFloat = %f, want %f", tt.name, got, tt.want)
		}
	}
}

func TestRenderIntoHonorsFloatFormat(t *testing.T) {
	p := StreamParams{Channels: 1, SampleRate: 48000, BitsPerSample: 32, Float: true}
	v := newTestSource(p)

	buf := make([]byte, 4*4)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(0.5))
	}
	if err := v.SubmitBuffer(buf); err != nil {
		t.Fatal(err)
	}

	accum := make([]float32, 4)
	v.renderInto(accum, 4, 1, 48000)

	for i, got := range accum {
		if math.Abs(float64(got-0.5)) > 1e-4 {
			t.Fatalf("frame %d = %f, want 0.5 (float samples decoded as raw int garbage)", i, got)
		}
	}
}

func TestRenderIntoHonors16BitFormat(t *testing.T) {
	p := StreamParams{Channels: 2, SampleRate: 48000, BitsPerSample: 16}
	v := newTestSource(p)

	// two stereo frames: L=0.5, R=-0.5
	buf := make([]byte, 2*4)
	left, right := int16(16384), int16(-16384)
	for f := 0; f < 2; f++ {
		binary.LittleEndian.PutUint16(buf[f*4:], uint16(left))
		binary.LittleEndian.PutUint16(buf[f*4+2:], uint16(right))
	}
	if err := v.SubmitBuffer(buf); err != nil {
		t.Fatal(err)
	}

	accum := make([]float32, 4)
	v.renderInto(accum, 2, 2, 48000)

	want := []float32{0.5, -0.5, 0.5, -0.5}
	for i := range want {
		if math.Abs(float64(accum[i]-want[i])) > 1e-4 {
			t.Errorf("accum[%d] = %f, want %f", i, accum[i], want[i])
		}
	}
}

func TestSamplesPlayedCountsSourceFrames(t *testing.T) {
	p := StreamParams{Channels: 1, SampleRate: 48000, BitsPerSample: 16}
	v := newTestSource(p)
	v.ratio = 2 // one octave up: two source frames per output frame

	if err := v.SubmitBuffer(make([]byte, 20*2)); err != nil {
		t.Fatal(err)
	}

	accum := make([]float32, 5)
	v.renderInto(accum, 5, 1, 48000)

	if got := v.State().SamplesPlayed; got != 10 {
		t.Errorf("samples played = %d, want 10 source frames for 5 output frames at ratio 2", got)
	}
}

func TestCheckSampleLayout(t *testing.T) {
	tests := []struct {
		p  StreamParams
		ok bool
	}{
		{StreamParams{BitsPerSample: 16}, true},
		{StreamParams{BitsPerSample: 8}, true},
		{StreamParams{BitsPerSample: 24}, true},
		{StreamParams{BitsPerSample: 32}, true},
		{StreamParams{BitsPerSample: 32, Float: true}, true},
		{StreamParams{BitsPerSample: 16, Float: true}, false},
		{StreamParams{BitsPerSample: 12}, false},
	}
	for _, tt := range tests {
		err := checkSampleLayout(tt.p)
		if tt.ok && err != nil {
			t.Errorf("layout %+v rejected: %v", tt.p, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("layout %+v accepted, want error", tt.p)
		}
	}
}
