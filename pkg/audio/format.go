// ABOUTME: Audio format value type
// ABOUTME: Describes PCM layout with derived block-align and byte-rate fields
package audio

import "fmt"

// FormatTag identifies the sample encoding, mirroring the RIFF wave
// format tags.
type FormatTag uint16

const (
	FormatTagPCM       FormatTag = 1
	FormatTagIEEEFloat FormatTag = 3
)

// Format describes a PCM stream layout. It has value semantics and is
// compared structurally, so it can key pool buckets directly.
type Format struct {
	Tag           FormatTag
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// BlockAlign returns the byte size of one frame (one sample per channel).
func (f Format) BlockAlign() int {
	return (f.BitsPerSample / 8) * f.Channels
}

// AvgBytesPerSec returns the byte rate of the stream.
func (f Format) AvgBytesPerSec() int {
	return f.BlockAlign() * f.SampleRate
}

// BytesToFrames converts a byte count to a whole frame count.
func (f Format) BytesToFrames(n int) int {
	ba := f.BlockAlign()
	if ba == 0 {
		return 0
	}
	return n / ba
}

// FramesToBytes converts a frame count to a byte count.
func (f Format) FramesToBytes(frames int) int {
	return frames * f.BlockAlign()
}

// Valid reports whether the format describes a playable layout.
func (f Format) Valid() bool {
	if f.Tag != FormatTagPCM && f.Tag != FormatTagIEEEFloat {
		return false
	}
	if f.Channels < 1 || f.SampleRate < 1 {
		return false
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
		return true
	}
	return false
}

func (f Format) String() string {
	tag := "pcm"
	if f.Tag == FormatTagIEEEFloat {
		tag = "float"
	}
	return fmt.Sprintf("%s %dch %dHz %dbit", tag, f.Channels, f.SampleRate, f.BitsPerSample)
}
