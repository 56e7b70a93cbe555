// ABOUTME: SourceVoice playback state machine
// ABOUTME: Play/Pause/Stop over the native buffer queue, plus pooled voice kinds
package chime

import (
	"log"

	"github.com/chime-audio/chime-go/pkg/audio"
)

// PlayState is the playback state of a SourceVoice.
type PlayState uint8

const (
	StateStopped PlayState = iota
	StatePlaying
	StatePaused
)

func (s PlayState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "stopped"
}

// VoiceKind selects a pooled source-voice variant.
type VoiceKind uint8

const (
	// KindTransient voices return themselves to the pool when their
	// queue drains: fire-and-forget one-shots.
	KindTransient VoiceKind = iota
	// KindPersistent voices stay with the caller until explicitly
	// returned.
	KindPersistent
	// KindStreaming voices pull PCM from a decode.Stream.
	KindStreaming
)

func (k VoiceKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPersistent:
		return "persistent"
	case KindStreaming:
		return "streaming"
	}
	return "unknown"
}

// SourceVoice is a Voice that emits buffers into the mixing graph.
type SourceVoice struct {
	Voice
	format audio.Format
	kind   VoiceKind
	state  PlayState
}

func (v *SourceVoice) Format() audio.Format { return v.format }
func (v *SourceVoice) Kind() VoiceKind      { return v.kind }

// State returns the playback state under the device lock.
func (v *SourceVoice) State() PlayState {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.state
}

// Play starts (or resumes) consumption of queued buffers.
func (v *SourceVoice) Play() error {
	v.dev.mu.Lock()
	err := v.playLocked()
	v.dev.mu.Unlock()
	v.dev.wakeLoop()
	return err
}

func (v *SourceVoice) playLocked() error {
	if v.disposed {
		return nil
	}
	if err := v.handle.Start(); err != nil {
		return err
	}
	v.state = StatePlaying
	return nil
}

// Pause halts playback, keeping the queue intact.
func (v *SourceVoice) Pause() error {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	if v.state != StatePlaying {
		return nil
	}
	if err := v.handle.Stop(false); err != nil {
		return err
	}
	v.state = StatePaused
	return nil
}

// Stop halts playback and flushes all queued buffers.
func (v *SourceVoice) Stop() error {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.stopLocked()
}

func (v *SourceVoice) stopLocked() error {
	if err := v.handle.Stop(true); err != nil {
		return err
	}
	v.state = StateStopped
	return nil
}

// SubmitBuffer queues a buffer for playback. A buffer whose format does
// not match the voice's established format is skipped with a warning;
// degraded playback beats crashing a running game.
func (v *SourceVoice) SubmitBuffer(b *AudioBuffer) error {
	if b.Format() != v.format {
		log.Printf("skipping buffer submit: format %s does not match voice format %s", b.Format(), v.format)
		return nil
	}
	return v.handle.SubmitBuffer(b.Data())
}

// BuffersQueued reports the native queue depth.
func (v *SourceVoice) BuffersQueued() int {
	return v.handle.State().BuffersQueued
}

// SamplesPlayed reports total frames consumed by the native engine.
func (v *SourceVoice) SamplesPlayed() uint64 {
	return v.handle.State().SamplesPlayed
}

// pooledVoice is the closed set of voice variants the pool recycles.
type pooledVoice interface {
	AudioResource
	source() *SourceVoice
}

func (v *SourceVoice) source() *SourceVoice { return v }

// TransientVoice plays one-shots and hands itself back to the pool once
// its queue drains.
type TransientVoice struct {
	SourceVoice
}

// service runs once per device tick while the voice is tracked.
func (v *TransientVoice) service() error {
	if v.state == StatePlaying && v.handle.State().BuffersQueued == 0 {
		v.state = StateStopped
		v.dev.queueReturnLocked(v)
	}
	return nil
}

// PersistentVoice stays with its owner for repeated submissions until
// explicitly returned or disposed.
type PersistentVoice struct {
	SourceVoice
}
