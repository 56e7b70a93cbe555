// ABOUTME: Tests for PCM format descriptors
// ABOUTME: Derived-field math, frame conversions and validation
package audio

import "testing"

func TestFormatDerivedFields(t *testing.T) {
	tests := []struct {
		name       string
		format     Format
		blockAlign int
		avgBytes   int
	}{
		{
			name:       "stereo 16-bit 44100",
			format:     Format{Tag: FormatTagPCM, Channels: 2, SampleRate: 44100, BitsPerSample: 16},
			blockAlign: 4,
			avgBytes:   176400,
		},
		{
			name:       "mono 16-bit 22050",
			format:     Format{Tag: FormatTagPCM, Channels: 1, SampleRate: 22050, BitsPerSample: 16},
			blockAlign: 2,
			avgBytes:   44100,
		},
		{
			name:       "stereo float 48000",
			format:     Format{Tag: FormatTagIEEEFloat, Channels: 2, SampleRate: 48000, BitsPerSample: 32},
			blockAlign: 8,
			avgBytes:   384000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BlockAlign(); got != tt.blockAlign {
				t.Errorf("BlockAlign() = %d, want %d", got, tt.blockAlign)
			}
			if got := tt.format.AvgBytesPerSec(); got != tt.avgBytes {
				t.Errorf("AvgBytesPerSec() = %d, want %d", got, tt.avgBytes)
			}
		})
	}
}

func TestFormatFrameConversion(t *testing.T) {
	f := Format{Tag: FormatTagPCM, Channels: 2, SampleRate: 44100, BitsPerSample: 16}

	// half a second of stereo 16-bit at 44100 is 88200 bytes
	if got := f.FramesToBytes(22050); got != 88200 {
		t.Errorf("FramesToBytes(22050) = %d, want 88200", got)
	}
	if got := f.BytesToFrames(88200); got != 22050 {
		t.Errorf("BytesToFrames(88200) = %d, want 22050", got)
	}

	for _, frames := range []int{0, 1, 4096, 22050} {
		if got := f.BytesToFrames(f.FramesToBytes(frames)); got != frames {
			t.Errorf("round trip of %d frames = %d", frames, got)
		}
	}
}

func TestFormatValid(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   bool
	}{
		{"stereo pcm", Format{Tag: FormatTagPCM, Channels: 2, SampleRate: 44100, BitsPerSample: 16}, true},
		{"zero value", Format{}, false},
		{"no channels", Format{Tag: FormatTagPCM, SampleRate: 44100, BitsPerSample: 16}, false},
		{"no rate", Format{Tag: FormatTagPCM, Channels: 2, BitsPerSample: 16}, false},
		{"odd bit depth", Format{Tag: FormatTagPCM, Channels: 2, SampleRate: 44100, BitsPerSample: 12}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSampleConversionClamps(t *testing.T) {
	if got := SampleFromFloat32(1.5); got != 32767 {
		t.Errorf("SampleFromFloat32(1.5) = %d, want 32767", got)
	}
	if got := SampleFromFloat32(-1.5); got != -32768 {
		t.Errorf("SampleFromFloat32(-1.5) = %d, want -32768", got)
	}
	if got := SampleFromFloat32(0); got != 0 {
		t.Errorf("SampleFromFloat32(0) = %d, want 0", got)
	}
	if got := SampleToFloat32(0); got != 0 {
		t.Errorf("SampleToFloat32(0) = %f, want 0", got)
	}
}
