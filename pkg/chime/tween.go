// ABOUTME: AudioTween animation scheduler
// ABOUTME: Per-tick interpolation of voice properties with delay, easing and eviction
package chime

import (
	"github.com/fogleman/ease"
)

// TweenProperty selects which voice parameter a tween drives.
type TweenProperty uint8

const (
	PropVolume TweenProperty = iota
	PropPan
	PropPitch
	PropFilterFrequency
	PropReverb
)

func (p TweenProperty) String() string {
	switch p {
	case PropVolume:
		return "volume"
	case PropPan:
		return "pan"
	case PropPitch:
		return "pitch"
	case PropFilterFrequency:
		return "filter-frequency"
	case PropReverb:
		return "reverb"
	}
	return "unknown"
}

// AudioTween interpolates one scalar property of one voice. Tweens are
// owned by the manager while active and recycled through a free list
// when finished or evicted.
type AudioTween struct {
	target *Voice
	prop   TweenProperty
	fn     Easing

	startValue float32
	endValue   float32
	elapsed    float64
	delay      float64
	duration   float64
	fresh      bool
}

type tweenKey struct {
	target *Voice
	prop   TweenProperty
}

// AudioTweenManager advances all active tweens once per device tick.
// At most one tween exists per (voice, property) pair; creating a new
// one evicts the prior unconditionally: last writer wins.
//
// All methods require the device lock.
type AudioTweenManager struct {
	active  map[tweenKey]*AudioTween
	delayed []*AudioTween
	free    []*AudioTween
}

func newAudioTweenManager() *AudioTweenManager {
	return &AudioTweenManager{
		active: make(map[tweenKey]*AudioTween),
	}
}

func (m *AudioTweenManager) alloc() *AudioTween {
	if n := len(m.free); n > 0 {
		t := m.free[n-1]
		m.free = m.free[:n-1]
		*t = AudioTween{}
		return t
	}
	return &AudioTween{}
}

func (m *AudioTweenManager) release(t *AudioTween) {
	t.target = nil
	t.fn = nil
	m.free = append(m.free, t)
}

// create schedules a tween. Durations are in seconds. A non-positive
// duration assigns the end value immediately.
func (m *AudioTweenManager) create(target *Voice, prop TweenProperty, end float32, delay, duration float64, fn Easing) {
	if fn == nil {
		fn = ease.Linear
	}
	if delay <= 0 && duration <= 0 {
		m.evict(tweenKey{target: target, prop: prop})
		setProp(target, prop, end)
		return
	}

	t := m.alloc()
	t.target = target
	t.prop = prop
	t.fn = fn
	t.endValue = end
	t.delay = delay
	t.duration = duration

	if delay > 0 {
		// start value is captured when the delay elapses, not now: if
		// the property moves during the delay window, the tween starts
		// from wherever it ended up
		m.delayed = append(m.delayed, t)
		return
	}
	t.startValue = getProp(target, prop)
	m.activate(t)
}

func (m *AudioTweenManager) activate(t *AudioTween) {
	key := tweenKey{target: t.target, prop: t.prop}
	m.evict(key)
	m.active[key] = t
}

func (m *AudioTweenManager) evict(key tweenKey) {
	if prev, ok := m.active[key]; ok {
		delete(m.active, key)
		m.release(prev)
	}
	for i := 0; i < len(m.delayed); i++ {
		t := m.delayed[i]
		if t.target == key.target && t.prop == key.prop {
			m.delayed[i] = m.delayed[len(m.delayed)-1]
			m.delayed = m.delayed[:len(m.delayed)-1]
			m.release(t)
			i--
		}
	}
}

// advance moves all tweens forward by dt seconds.
func (m *AudioTweenManager) advance(dt float64) {
	// delayed list first: a tween whose delay elapses this tick
	// captures the live value of its property and goes active
	for i := 0; i < len(m.delayed); i++ {
		t := m.delayed[i]
		t.elapsed += dt
		if t.elapsed < t.delay {
			continue
		}
		m.delayed[i] = m.delayed[len(m.delayed)-1]
		m.delayed = m.delayed[:len(m.delayed)-1]
		i--

		t.elapsed -= t.delay
		t.startValue = getProp(t.target, t.prop)
		t.fresh = true
		m.activate(t)
	}

	for key, t := range m.active {
		if t.fresh {
			// activated this tick; its elapsed already carries the
			// delay overshoot
			t.fresh = false
		} else {
			t.elapsed += dt
		}

		if t.elapsed >= t.duration {
			// exact final value regardless of float accumulation
			setProp(t.target, t.prop, t.endValue)
			delete(m.active, key)
			m.release(t)
			continue
		}

		k := float32(t.fn(t.elapsed / t.duration))
		setProp(t.target, t.prop, t.startValue+(t.endValue-t.startValue)*k)
	}
}

// clearVoice drops every tween targeting v, active or delayed.
func (m *AudioTweenManager) clearVoice(v *Voice) {
	for key, t := range m.active {
		if key.target == v {
			delete(m.active, key)
			m.release(t)
		}
	}
	for i := 0; i < len(m.delayed); i++ {
		if m.delayed[i].target == v {
			t := m.delayed[i]
			m.delayed[i] = m.delayed[len(m.delayed)-1]
			m.delayed = m.delayed[:len(m.delayed)-1]
			m.release(t)
			i--
		}
	}
}

func (m *AudioTweenManager) activeCount() int {
	return len(m.active)
}

// getProp and setProp go through the voice's normal accessors so
// property side effects (matrix pushes, native updates) still fire.
func getProp(v *Voice, prop TweenProperty) float32 {
	switch prop {
	case PropVolume:
		return v.Volume()
	case PropPan:
		return v.Pan()
	case PropPitch:
		return v.Pitch()
	case PropFilterFrequency:
		return v.FilterFrequency()
	case PropReverb:
		return v.Reverb()
	}
	return 0
}

func setProp(v *Voice, prop TweenProperty, val float32) {
	switch prop {
	case PropVolume:
		v.SetVolume(val)
	case PropPan:
		v.SetPan(val)
	case PropPitch:
		v.SetPitch(val)
	case PropFilterFrequency:
		v.SetFilterFrequency(val)
	case PropReverb:
		v.SetReverb(val)
	}
}
