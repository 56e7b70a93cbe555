// ABOUTME: Tests for the engine boundary types
// ABOUTME: StreamParams conversion round-trips
package engine

import (
	"testing"

	"github.com/chime-audio/chime-go/pkg/audio"
)

func TestStreamParamsRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format audio.Format
	}{
		{"stereo pcm 44100", audio.Format{Tag: audio.FormatTagPCM, Channels: 2, SampleRate: 44100, BitsPerSample: 16}},
		{"mono pcm 22050", audio.Format{Tag: audio.FormatTagPCM, Channels: 1, SampleRate: 22050, BitsPerSample: 16}},
		{"stereo float 48000", audio.Format{Tag: audio.FormatTagIEEEFloat, Channels: 2, SampleRate: 48000, BitsPerSample: 32}},
		{"surround pcm", audio.Format{Tag: audio.FormatTagPCM, Channels: 6, SampleRate: 48000, BitsPerSample: 24}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParamsFor(tt.format).Format()
			if got != tt.format {
				t.Errorf("round trip = %+v, want %+v", got, tt.format)
			}
		})
	}
}
