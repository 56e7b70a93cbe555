// ABOUTME: malgo-backed engine implementation
// ABOUTME: Device enumeration, playback device lifecycle, and the pull callback
package engine

import (
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
)

const (
	defaultChannels   = 2
	defaultSampleRate = 48000
)

// MalgoEngine implements Engine on top of miniaudio via malgo. The
// mixing pass it performs is deliberately thin: per-voice gain, output
// matrix and frequency-ratio resampling only. Filter and reverb
// parameters are retained but not rendered.
type MalgoEngine struct {
	ctx *malgo.AllocatedContext

	mu       sync.Mutex
	device   *malgo.Device
	master   *mixVoice
	sources  []*mixVoice
	channels int
	rate     int
	scratch  []float32
}

// NewMalgo initializes the miniaudio context. No device is opened until
// CreateMasteringVoice.
func NewMalgo() (*MalgoEngine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &MalgoEngine{ctx: ctx}, nil
}

// Devices enumerates playback devices in backend order.
func (e *MalgoEngine) Devices() ([]DeviceInfo, error) {
	infos, err := e.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("device enumeration failed: %w", err)
	}
	out := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		out[i] = DeviceInfo{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		}
	}
	return out, nil
}

// CreateMasteringVoice opens the playback device at deviceIndex and
// starts the pull callback. There is at most one mastering voice per
// engine.
func (e *MalgoEngine) CreateMasteringVoice(deviceIndex, channels, sampleRate int) (Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device != nil {
		return nil, fmt.Errorf("mastering voice already exists")
	}
	if channels == 0 {
		channels = defaultChannels
	}
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(channels)
	cfg.SampleRate = uint32(sampleRate)
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.Alsa.NoMMap = 1

	infos, err := e.ctx.Devices(malgo.Playback)
	if err == nil && deviceIndex >= 0 && deviceIndex < len(infos) {
		cfg.Playback.DeviceID = infos[deviceIndex].ID.Pointer()
	}

	master := &mixVoice{eng: e, kind: masterNode, volume: 1, ratio: 1}
	master.params = StreamParams{Channels: channels, SampleRate: sampleRate, BitsPerSample: 16}

	device, err := malgo.InitDevice(e.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			e.render(output, int(frameCount))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	e.device = device
	e.master = master
	e.channels = channels
	e.rate = sampleRate

	log.Printf("Playback device started: %dHz, %d channels", sampleRate, channels)
	return master, nil
}

// CreateSourceVoice creates a buffer-consuming voice routed at the
// mastering voice by default.
func (e *MalgoEngine) CreateSourceVoice(p StreamParams) (Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.Channels < 1 || p.SampleRate < 1 {
		return nil, fmt.Errorf("invalid stream params: %dch %dHz", p.Channels, p.SampleRate)
	}
	if err := checkSampleLayout(p); err != nil {
		return nil, err
	}
	v := &mixVoice{eng: e, kind: sourceNode, params: p, volume: 1, ratio: 1}
	if e.master != nil {
		v.outputs = []*mixVoice{e.master}
	}
	e.sources = append(e.sources, v)
	return v, nil
}

// CreateSubmixVoice creates an intermediate mixing node.
func (e *MalgoEngine) CreateSubmixVoice(channels, sampleRate int) (Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := &mixVoice{
		eng:    e,
		kind:   submixNode,
		params: StreamParams{Channels: channels, SampleRate: sampleRate, BitsPerSample: 16},
		volume: 1,
		ratio:  1,
	}
	if e.master != nil {
		v.outputs = []*mixVoice{e.master}
	}
	return v, nil
}

// Close stops the device and releases the context.
func (e *MalgoEngine) Close() error {
	e.mu.Lock()
	if e.device != nil {
		e.device.Stop()
		e.device.Uninit()
		e.device = nil
	}
	e.mu.Unlock()

	e.ctx.Uninit()
	e.ctx.Free()
	return nil
}

func (e *MalgoEngine) removeSource(v *mixVoice) {
	for i, s := range e.sources {
		if s == v {
			e.sources[i] = e.sources[len(e.sources)-1]
			e.sources = e.sources[:len(e.sources)-1]
			return
		}
	}
}
