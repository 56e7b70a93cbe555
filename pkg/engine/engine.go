// ABOUTME: Native mixing-engine boundary
// ABOUTME: Defines the opaque voice-graph API the core programs against
package engine

import (
	"errors"

	"github.com/chime-audio/chime-go/pkg/audio"
)

var (
	ErrNoDevices      = errors.New("engine: no playback devices found")
	ErrVoiceDestroyed = errors.New("engine: voice destroyed")
)

// DeviceInfo describes one enumerable playback device.
type DeviceInfo struct {
	Index     int
	Name      string
	IsDefault bool
}

// StreamParams is the engine wire format a voice is created with. It is
// the native rendition of audio.Format; the two convert losslessly.
type StreamParams struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	Float         bool
}

// ParamsFor converts a Format to the native wire format.
func ParamsFor(f audio.Format) StreamParams {
	return StreamParams{
		Channels:      f.Channels,
		SampleRate:    f.SampleRate,
		BitsPerSample: f.BitsPerSample,
		Float:         f.Tag == audio.FormatTagIEEEFloat,
	}
}

// Format converts the wire format back to a Format value.
func (p StreamParams) Format() audio.Format {
	tag := audio.FormatTagPCM
	if p.Float {
		tag = audio.FormatTagIEEEFloat
	}
	return audio.Format{
		Tag:           tag,
		Channels:      p.Channels,
		SampleRate:    p.SampleRate,
		BitsPerSample: p.BitsPerSample,
	}
}

// FilterType selects the per-voice filter curve. Filter parameters are
// passed through to the backend; backends that do no filtering retain
// them without rendering.
type FilterType uint8

const (
	FilterNone FilterType = iota
	FilterLowPass
	FilterHighPass
	FilterBandPass
)

// FilterParams carries pass-through filter state for one voice.
type FilterParams struct {
	Type      FilterType
	Frequency float32
	Q         float32
}

// VoiceState is a snapshot of a voice's native playback progress.
type VoiceState struct {
	BuffersQueued int
	SamplesPlayed uint64
}

// Voice is one node in the native mixing graph: a source, a submix, or
// the mastering voice. Handles stay valid until Destroy.
type Voice interface {
	// SubmitBuffer queues interleaved PCM for playback. Only source
	// voices accept buffers.
	SubmitBuffer(data []byte) error

	// Start begins consuming queued buffers.
	Start() error

	// Stop halts consumption; flush discards all queued buffers.
	Stop(flush bool) error

	SetVolume(v float32)
	SetFrequencyRatio(r float32)

	// SetOutputMatrix sets per-channel send levels toward this voice's
	// output. gains is laid out source-major: gains[src*dstChannels+dst].
	SetOutputMatrix(srcChannels, dstChannels int, gains []float32) error

	SetFilter(p FilterParams)
	SetReverbSend(wet float32)

	// SetOutputs re-points this voice at new destination voices. An
	// empty slice routes to the mastering voice.
	SetOutputs(targets []Voice) error

	State() VoiceState
	Destroy()
}

// Engine is the opaque low-level mixing API. One Engine owns one output
// device at a time.
type Engine interface {
	// Devices enumerates playback devices.
	Devices() ([]DeviceInfo, error)

	// CreateMasteringVoice opens the device at deviceIndex and returns
	// the final mixing destination. channels/sampleRate of 0 select the
	// engine defaults.
	CreateMasteringVoice(deviceIndex, channels, sampleRate int) (Voice, error)

	CreateSourceVoice(p StreamParams) (Voice, error)
	CreateSubmixVoice(channels, sampleRate int) (Voice, error)

	// Close releases the device and the engine. All voices must have
	// been destroyed first.
	Close() error
}
