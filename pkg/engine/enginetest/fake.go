// ABOUTME: Fake mixing engine for tests
// ABOUTME: Records every native call and lets tests script queue depths
package enginetest

import (
	"fmt"
	"sync"

	"github.com/chime-audio/chime-go/pkg/engine"
)

// Fake implements engine.Engine entirely in memory. It records an
// ordered operation log so tests can assert call sequencing (notably
// teardown ordering), and exposes per-voice state for scripting.
type Fake struct {
	mu sync.Mutex

	DeviceList  []engine.DeviceInfo
	FailDevices bool
	FailMaster  bool

	ops    []string
	voices []*FakeVoice
	master *FakeVoice
	closed bool
}

// New returns a Fake with a single default playback device.
func New() *Fake {
	return &Fake{
		DeviceList: []engine.DeviceInfo{
			{Index: 0, Name: "fake output", IsDefault: true},
		},
	}
}

func (f *Fake) record(op string) {
	f.ops = append(f.ops, op)
}

// Ops returns a copy of the ordered operation log.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// Voices returns every voice ever created, in creation order.
func (f *Fake) Voices() []*FakeVoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeVoice(nil), f.voices...)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Devices() ([]engine.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDevices {
		return nil, engine.ErrNoDevices
	}
	return append([]engine.DeviceInfo(nil), f.DeviceList...), nil
}

func (f *Fake) CreateMasteringVoice(deviceIndex, channels, sampleRate int) (engine.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailMaster {
		return nil, fmt.Errorf("mastering voice creation failed")
	}
	if channels == 0 {
		channels = 2
	}
	if sampleRate == 0 {
		sampleRate = 48000
	}
	v := f.newVoice("master", engine.StreamParams{Channels: channels, SampleRate: sampleRate, BitsPerSample: 16})
	f.master = v
	f.record(fmt.Sprintf("create master dev=%d", deviceIndex))
	return v, nil
}

func (f *Fake) CreateSourceVoice(p engine.StreamParams) (engine.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.newVoice("source", p)
	f.record(fmt.Sprintf("create source %dch %dHz", p.Channels, p.SampleRate))
	return v, nil
}

func (f *Fake) CreateSubmixVoice(channels, sampleRate int) (engine.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.newVoice("submix", engine.StreamParams{Channels: channels, SampleRate: sampleRate, BitsPerSample: 16})
	f.record("create submix")
	return v, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.record("close engine")
	return nil
}

func (f *Fake) newVoice(kind string, p engine.StreamParams) *FakeVoice {
	v := &FakeVoice{fake: f, Kind: kind, Params: p, Volume: 1, Ratio: 1}
	f.voices = append(f.voices, v)
	return v
}

// FakeVoice implements engine.Voice with fully observable state.
type FakeVoice struct {
	fake *Fake

	Kind   string
	Params engine.StreamParams

	Volume    float32
	Ratio     float32
	Matrix    []float32
	MatrixSrc int
	MatrixDst int
	Filter    engine.FilterParams
	ReverbWet float32
	Outputs   []engine.Voice

	Submitted [][]byte
	Queued    int
	Played    uint64
	Started   bool
	Destroyed bool
}

func (v *FakeVoice) SubmitBuffer(data []byte) error {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	if v.Destroyed {
		return engine.ErrVoiceDestroyed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	v.Submitted = append(v.Submitted, buf)
	v.Queued++
	return nil
}

func (v *FakeVoice) Start() error {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	v.Started = true
	v.fake.record(v.Kind + " start")
	return nil
}

func (v *FakeVoice) Stop(flush bool) error {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	v.Started = false
	if flush {
		v.Queued = 0
	}
	v.fake.record(fmt.Sprintf("%s stop flush=%v", v.Kind, flush))
	return nil
}

func (v *FakeVoice) SetVolume(vol float32) {
	v.fake.mu.Lock()
	v.Volume = vol
	v.fake.mu.Unlock()
}

func (v *FakeVoice) SetFrequencyRatio(r float32) {
	v.fake.mu.Lock()
	v.Ratio = r
	v.fake.mu.Unlock()
}

func (v *FakeVoice) SetOutputMatrix(srcChannels, dstChannels int, gains []float32) error {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	if len(gains) != srcChannels*dstChannels {
		return fmt.Errorf("matrix size %d does not match %dx%d", len(gains), srcChannels, dstChannels)
	}
	v.Matrix = append([]float32(nil), gains...)
	v.MatrixSrc = srcChannels
	v.MatrixDst = dstChannels
	return nil
}

func (v *FakeVoice) SetFilter(p engine.FilterParams) {
	v.fake.mu.Lock()
	v.Filter = p
	v.fake.mu.Unlock()
}

func (v *FakeVoice) SetReverbSend(wet float32) {
	v.fake.mu.Lock()
	v.ReverbWet = wet
	v.fake.mu.Unlock()
}

func (v *FakeVoice) SetOutputs(targets []engine.Voice) error {
	v.fake.mu.Lock()
	v.Outputs = append([]engine.Voice(nil), targets...)
	v.fake.mu.Unlock()
	return nil
}

func (v *FakeVoice) State() engine.VoiceState {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	return engine.VoiceState{BuffersQueued: v.Queued, SamplesPlayed: v.Played}
}

func (v *FakeVoice) Destroy() {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	if v.Destroyed {
		return
	}
	v.Destroyed = true
	v.fake.record("destroy " + v.Kind)
}

// ConsumeBuffers simulates native playback draining n queued buffers.
func (v *FakeVoice) ConsumeBuffers(n int) {
	v.fake.mu.Lock()
	defer v.fake.mu.Unlock()
	if n > v.Queued {
		n = v.Queued
	}
	v.Queued -= n
	for i := 0; i < n && len(v.Submitted) > 0; i++ {
		v.Played += uint64(v.Params.Format().BytesToFrames(len(v.Submitted[0])))
		v.Submitted = v.Submitted[1:]
	}
}
