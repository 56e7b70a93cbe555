// ABOUTME: SourceVoicePool recycling by kind and format
// ABOUTME: Bucketed free lists with constructor-registry dispatch
package chime

import (
	"fmt"

	"github.com/chime-audio/chime-go/pkg/audio"
	"github.com/chime-audio/chime-go/pkg/engine"
)

// poolKey buckets free voices. Reuse is only valid for an exact format
// match, since the native voice's channel layout is fixed at creation.
type poolKey struct {
	kind   VoiceKind
	format audio.Format
}

// SourceVoicePool recycles voice objects, because native voice
// creation is expensive and one-shot playback happens at high
// frequency. Buckets are created lazily and never shrink; the pool
// grows to its high-water mark and stays there.
//
// All methods require the device lock.
type SourceVoicePool struct {
	dev  *AudioDevice
	free map[poolKey][]pooledVoice
}

func newSourceVoicePool(dev *AudioDevice) *SourceVoicePool {
	return &SourceVoicePool{
		dev:  dev,
		free: make(map[poolKey][]pooledVoice),
	}
}

// voiceConstructors maps a voice kind to its constructor. An explicit
// registry rather than generic dispatch keeps the variant set closed
// and inspectable.
var voiceConstructors = map[VoiceKind]func(*AudioDevice, audio.Format) (pooledVoice, error){
	KindTransient: func(d *AudioDevice, f audio.Format) (pooledVoice, error) {
		v := &TransientVoice{}
		if err := d.initSourceVoiceLocked(&v.SourceVoice, v, KindTransient, f); err != nil {
			return nil, err
		}
		d.serviceables[&v.Voice] = v
		return v, nil
	},
	KindPersistent: func(d *AudioDevice, f audio.Format) (pooledVoice, error) {
		v := &PersistentVoice{}
		if err := d.initSourceVoiceLocked(&v.SourceVoice, v, KindPersistent, f); err != nil {
			return nil, err
		}
		return v, nil
	},
	KindStreaming: func(d *AudioDevice, f audio.Format) (pooledVoice, error) {
		v := &StreamingVoice{}
		if err := d.initSourceVoiceLocked(&v.SourceVoice, v, KindStreaming, f); err != nil {
			return nil, err
		}
		d.serviceables[&v.Voice] = v
		return v, nil
	},
}

// obtain pops a free voice for (kind, format) or constructs one.
func (p *SourceVoicePool) obtain(kind VoiceKind, f audio.Format) (pooledVoice, error) {
	key := poolKey{kind: kind, format: f}
	bucket := p.free[key]
	if n := len(bucket); n > 0 {
		v := bucket[n-1]
		p.free[key] = bucket[:n-1]
		p.reactivate(v)
		return v, nil
	}

	ctor, ok := voiceConstructors[kind]
	if !ok {
		return nil, fmt.Errorf("no constructor for voice kind %s", kind)
	}
	return ctor(p.dev, f)
}

// reactivate re-tracks a recycled voice for per-tick servicing.
func (p *SourceVoicePool) reactivate(v pooledVoice) {
	switch sv := v.(type) {
	case *TransientVoice:
		p.dev.serviceables[&sv.Voice] = sv
	case *StreamingVoice:
		p.dev.serviceables[&sv.Voice] = sv
	}
}

// put resets the voice's DSP state to documented defaults and returns
// it to its bucket, so the next obtain never observes a previous
// owner's parameters.
func (p *SourceVoicePool) put(v pooledVoice) {
	src := v.source()
	src.stopLocked()
	if sv, ok := v.(*StreamingVoice); ok {
		sv.stream = nil
		sv.ended = false
		sv.loop = false
	}
	// drop in-flight animations before resetting, or they would keep
	// mutating the voice while it sits in the free list
	p.dev.tweens.clearVoice(&src.Voice)
	src.resetDefaults()
	delete(p.dev.serviceables, &src.Voice)

	key := poolKey{kind: src.kind, format: src.format}
	p.free[key] = append(p.free[key], v)
}

// initSourceVoiceLocked creates the native voice for f, routes it at
// the mastering submix and registers the wrapper resource.
func (d *AudioDevice) initSourceVoiceLocked(sv *SourceVoice, self pooledVoice, kind VoiceKind, f audio.Format) error {
	if !f.Valid() {
		return fmt.Errorf("invalid voice format %s", f)
	}
	h, err := d.eng.CreateSourceVoice(engine.ParamsFor(f))
	if err != nil {
		return fmt.Errorf("native voice creation failed: %w", err)
	}
	sv.initVoice(h, f.Channels, d.channels)
	sv.format = f
	sv.kind = kind
	sv.resourceBase.dev = d
	sv.pushOutputs()
	d.registerLocked(self, &sv.resourceBase, resSource,
		func() { sv.stopLocked() },
		func() { sv.disposeLocked() },
	)
	return nil
}
