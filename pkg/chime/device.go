// ABOUTME: AudioDevice orchestration core
// ABOUTME: Device lifecycle, background tick loop, voice pooling and teardown ordering
package chime

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chime-audio/chime-go/pkg/audio"
	"github.com/chime-audio/chime-go/pkg/engine"
)

// DefaultTickRate is the background service frequency in Hz.
const DefaultTickRate = 200

// Config holds device construction options. The zero value picks the
// malgo backend, the default playback device and engine defaults.
type Config struct {
	// Engine overrides the native backend; nil selects malgo.
	Engine engine.Engine

	// DeviceIndex forces a playback device; negative selects the
	// system default (falling back to index 0).
	DeviceIndex int

	// Channels and SampleRate of the mastering voice; 0 means engine
	// defaults.
	Channels   int
	SampleRate int

	// TickRate in Hz for the background loop; 0 means DefaultTickRate.
	TickRate int

	// SpeedOfSound for 3D calculations; 0 means DefaultSpeedOfSound.
	SpeedOfSound float32
}

// serviceable is any voice that needs periodic servicing from the
// background loop (queue refills, completion detection).
type serviceable interface {
	service() error
}

// AudioDevice owns the native engine handle, the mastering graph, the
// voice pool, the tween manager and the background service loop.
//
// Construction never fails hard: audio is a best-effort subsystem, so
// probe failures leave the device inert (Failed reports true) and the
// application runs on without sound.
type AudioDevice struct {
	mu  sync.Mutex
	eng engine.Engine

	failed bool
	closed bool

	master     engine.Voice
	fauxMaster *SubmixVoice
	channels   int
	sampleRate int
	spatial    spatializer

	pool    *SourceVoicePool
	tweens  *AudioTweenManager
	pending []pooledVoice

	resources    []regEntry
	serviceables map[*Voice]serviceable
	syncGroups   map[string][]*SourceVoice

	tickInterval time.Duration
	lastTick     time.Time
	wake         chan struct{}
	quit         chan struct{}
	done         chan struct{}
}

// New constructs an AudioDevice and starts its background loop. On any
// probe failure the error is logged and the returned device is inert.
func New(cfg Config) *AudioDevice {
	return newDevice(cfg, true)
}

func newDevice(cfg Config, startLoop bool) *AudioDevice {
	d := &AudioDevice{
		serviceables: make(map[*Voice]serviceable),
		syncGroups:   make(map[string][]*SourceVoice),
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	tickRate := cfg.TickRate
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	d.tickInterval = time.Second / time.Duration(tickRate)

	sos := cfg.SpeedOfSound
	if sos <= 0 {
		sos = DefaultSpeedOfSound
	}

	eng := cfg.Engine
	if eng == nil {
		m, err := engine.NewMalgo()
		if err != nil {
			log.Printf("audio disabled: %v", err)
			d.failed = true
			close(d.done)
			return d
		}
		eng = m
	}
	d.eng = eng

	devices, err := eng.Devices()
	if err != nil || len(devices) == 0 {
		log.Printf("audio disabled: no playback devices (%v)", err)
		return d.failProbe()
	}

	index := cfg.DeviceIndex
	if index < 0 || index >= len(devices) {
		index = 0
		for _, info := range devices {
			if info.IsDefault {
				index = info.Index
				break
			}
		}
	}
	log.Printf("Using playback device %d: %s", index, devices[index].Name)

	master, err := eng.CreateMasteringVoice(index, cfg.Channels, cfg.SampleRate)
	if err != nil {
		log.Printf("audio disabled: %v", err)
		return d.failProbe()
	}
	d.master = master
	d.channels = cfg.Channels
	if d.channels == 0 {
		d.channels = 2
	}
	d.sampleRate = cfg.SampleRate
	if d.sampleRate == 0 {
		d.sampleRate = 48000
	}

	d.spatial = spatializer{speedOfSound: sos, channels: d.channels}
	d.pool = newSourceVoicePool(d)
	d.tweens = newAudioTweenManager()

	// the faux mastering submix lets every panning/reverb code path
	// treat "mastering" uniformly as a submix target
	faux, err := d.createSubmixLocked(resSubmix)
	if err != nil {
		log.Printf("audio disabled: %v", err)
		return d.failProbe()
	}
	d.fauxMaster = faux
	faux.pushOutputs()

	d.lastTick = time.Now()
	if startLoop {
		go d.run()
	} else {
		close(d.done)
	}
	return d
}

// failProbe marks the device inert after a construction failure,
// releasing whatever native state was already created.
func (d *AudioDevice) failProbe() *AudioDevice {
	d.failed = true
	if d.master != nil {
		d.master.Destroy()
		d.master = nil
	}
	if d.eng != nil {
		if err := d.eng.Close(); err != nil {
			log.Printf("engine close failed: %v", err)
		}
		d.eng = nil
	}
	close(d.done)
	return d
}

// Failed reports whether construction left the device inert.
func (d *AudioDevice) Failed() bool { return d.failed }

// MasteringVoice returns the submix acting as the mastering target, so
// callers can fade or pan the whole mix.
func (d *AudioDevice) MasteringVoice() *SubmixVoice { return d.fauxMaster }

// Channels returns the mastering channel count.
func (d *AudioDevice) Channels() int { return d.channels }

// SampleRate returns the mastering sample rate.
func (d *AudioDevice) SampleRate() int { return d.sampleRate }

// run is the background service loop. It sleeps until the next tick
// interval or an early wake, then performs one locked tick.
func (d *AudioDevice) run() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case <-d.wake:
		case <-time.After(d.tickInterval):
		}
		d.runTick()
	}
}

// runTick performs one atomic pass of audio bookkeeping: tween
// advancement, voice servicing, then pool returns, in that order, so
// tween-driven values are visible to refills and a voice finishing
// this tick is serviced before it is recycled. Failures are logged and
// swallowed; one misbehaving voice must not kill the loop.
func (d *AudioDevice) runTick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("audio tick panic: %v", r)
		}
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	dt := now.Sub(d.lastTick).Seconds()
	d.lastTick = now

	d.tweens.advance(dt)

	for _, s := range d.serviceables {
		if err := s.service(); err != nil {
			log.Printf("voice update failed: %v", err)
		}
	}

	d.drainPendingLocked()
}

// wakeLoop nudges the background loop to tick early after a
// state-changing call, trimming worst-case latency.
func (d *AudioDevice) wakeLoop() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *AudioDevice) drainPendingLocked() {
	for _, v := range d.pending {
		d.pool.put(v)
	}
	d.pending = d.pending[:0]
}

// queueReturnLocked defers a pool return to the pending drain of the
// current (or next) tick.
func (d *AudioDevice) queueReturnLocked(v pooledVoice) {
	d.pending = append(d.pending, v)
}

// ObtainTransient hands out a pooled one-shot voice for the format.
func (d *AudioDevice) ObtainTransient(f audio.Format) (*TransientVoice, error) {
	v, err := d.obtain(KindTransient, f)
	if err != nil {
		return nil, err
	}
	return v.(*TransientVoice), nil
}

// ObtainPersistent hands out a pooled long-lived voice for the format.
func (d *AudioDevice) ObtainPersistent(f audio.Format) (*PersistentVoice, error) {
	v, err := d.obtain(KindPersistent, f)
	if err != nil {
		return nil, err
	}
	return v.(*PersistentVoice), nil
}

// ObtainStreaming hands out a pooled streaming voice for the format.
func (d *AudioDevice) ObtainStreaming(f audio.Format) (*StreamingVoice, error) {
	v, err := d.obtain(KindStreaming, f)
	if err != nil {
		return nil, err
	}
	return v.(*StreamingVoice), nil
}

func (d *AudioDevice) obtain(kind VoiceKind, f audio.Format) (pooledVoice, error) {
	if d.failed {
		return nil, fmt.Errorf("audio device unavailable")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("audio device closed")
	}
	return d.pool.obtain(kind, f)
}

// Return queues a voice for recycling. The return is processed at the
// next tick's drain rather than synchronously, so it happens off the
// thread driving native playback state.
func (d *AudioDevice) Return(v pooledVoice) {
	if d.failed || v == nil {
		return
	}
	d.mu.Lock()
	d.queueReturnLocked(v)
	d.mu.Unlock()
}

// CreateTween schedules a property animation on a voice. fn nil means
// linear; a zero duration assigns immediately.
func (d *AudioDevice) CreateTween(v *Voice, prop TweenProperty, target float32, delay, duration time.Duration, fn Easing) {
	if d.failed {
		return
	}
	d.mu.Lock()
	d.tweens.create(v, prop, target, delay.Seconds(), duration.Seconds(), fn)
	d.mu.Unlock()
	d.wakeLoop()
}

// ClearTweens drops all animations targeting the voice.
func (d *AudioDevice) ClearTweens(v *Voice) {
	if d.failed {
		return
	}
	d.mu.Lock()
	d.tweens.clearVoice(v)
	d.mu.Unlock()
}

// AddToSyncGroup registers a voice to be started together with its
// group.
func (d *AudioDevice) AddToSyncGroup(name string, v *SourceVoice) {
	if d.failed {
		return
	}
	d.mu.Lock()
	d.syncGroups[name] = append(d.syncGroups[name], v)
	d.mu.Unlock()
}

// TriggerSyncGroup starts every voice in the group under a single lock
// acquisition, so their queues begin draining on the same mix pass.
func (d *AudioDevice) TriggerSyncGroup(name string) {
	if d.failed {
		return
	}
	d.mu.Lock()
	for _, v := range d.syncGroups[name] {
		if err := v.playLocked(); err != nil {
			log.Printf("sync group %q: voice start failed: %v", name, err)
		}
	}
	delete(d.syncGroups, name)
	d.mu.Unlock()
	d.wakeLoop()
}

// CreateSubmix creates an intermediate mixing node routed at the
// mastering submix.
func (d *AudioDevice) CreateSubmix() (*SubmixVoice, error) {
	if d.failed {
		return nil, fmt.Errorf("audio device unavailable")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createSubmixLocked(resSubmix)
}

// CreateReverb creates a reverb send target. Effect parameters are
// passed through to the engine.
func (d *AudioDevice) CreateReverb() (*ReverbEffect, error) {
	if d.failed {
		return nil, fmt.Errorf("audio device unavailable")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	h, err := d.eng.CreateSubmixVoice(d.channels, d.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("reverb voice creation failed: %w", err)
	}
	r := &ReverbEffect{}
	r.initVoice(h, d.channels, d.channels)
	r.resourceBase.dev = d
	r.pushOutputs()
	d.registerLocked(r, &r.resourceBase, resReverb, nil, func() { r.disposeLocked() })
	return r, nil
}

func (d *AudioDevice) createSubmixLocked(kind resKind) (*SubmixVoice, error) {
	h, err := d.eng.CreateSubmixVoice(d.channels, d.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("submix creation failed: %w", err)
	}
	s := &SubmixVoice{}
	s.initVoice(h, d.channels, d.channels)
	s.resourceBase.dev = d
	s.pushOutputs()
	d.registerLocked(s, &s.resourceBase, kind, nil, func() { s.disposeLocked() })
	return s, nil
}

// dropVoiceLocked detaches a voice from all device-side tracking:
// serviceables, tweens and sync groups.
func (d *AudioDevice) dropVoiceLocked(v *Voice) {
	delete(d.serviceables, v)
	d.tweens.clearVoice(v)
	for name, group := range d.syncGroups {
		for i := 0; i < len(group); i++ {
			if &group[i].Voice == v {
				group[i] = group[len(group)-1]
				group = group[:len(group)-1]
				i--
			}
		}
		d.syncGroups[name] = group
	}
}

// Close tears the device down in strict dependency order: background
// loop first, then source voices (stop all, then dispose all), then
// submixes, then the mastering submix, the true mastering voice, and
// finally the engine. Reversing any of these is undefined behavior in
// the underlying engine.
func (d *AudioDevice) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.quit)
	<-d.done

	if d.failed {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if n := len(d.resources); n > 0 {
		log.Printf("disposing %d live audio resources at device teardown", n)
	}

	snapshot := append([]regEntry(nil), d.resources...)

	for _, e := range snapshot {
		if e.kind == resSource && e.stop != nil {
			e.stop()
		}
	}
	for _, e := range snapshot {
		if e.kind == resSource {
			e.dispose()
		}
	}
	for _, e := range snapshot {
		if (e.kind == resSubmix || e.kind == resReverb) && e.res != AudioResource(d.fauxMaster) {
			e.dispose()
		}
	}
	for _, e := range snapshot {
		if e.kind == resBuffer {
			e.dispose()
		}
	}

	d.fauxMaster.disposeLocked()
	d.master.Destroy()
	if err := d.eng.Close(); err != nil {
		log.Printf("engine close failed: %v", err)
	}
}
