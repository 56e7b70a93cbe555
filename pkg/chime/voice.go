// ABOUTME: Voice DSP-parameter layer
// ABOUTME: Volume, pitch, pan, filter and reverb-send state over a native voice handle
package chime

import (
	"log"
	"math"
	"time"

	"github.com/chime-audio/chime-go/pkg/engine"
)

// Easing maps normalized elapsed time [0,1] to an interpolation factor.
// The fogleman/ease functions satisfy it directly.
type Easing = func(float64) float64

// Voice is the parameter layer shared by every node in the mixing
// graph. It is a thin state-synchronization layer over a native voice
// handle: every setter updates local state and pushes it down
// immediately.
//
// Setters are intended to be called either from the application thread
// or from inside a device tick (for tween-driven changes), never both
// concurrently; the device lock is the de facto voice-state lock.
type Voice struct {
	resourceBase
	handle      engine.Voice
	srcChannels int
	dstChannels int
	matrix      []float32

	output *SubmixVoice
	reverb *ReverbEffect

	volume    float32
	pitch     float32
	pan       float32
	filter    engine.FilterParams
	reverbWet float32
	doppler   float32
}

// Handle exposes the native voice, mainly for the engine boundary's
// sake in advanced routing scenarios.
func (v *Voice) Handle() engine.Voice { return v.handle }

func (v *Voice) initVoice(h engine.Voice, srcChannels, dstChannels int) {
	v.handle = h
	v.srcChannels = srcChannels
	v.dstChannels = dstChannels
	v.matrix = make([]float32, srcChannels*dstChannels)
	v.volume = 1
	v.doppler = 1
}

func (v *Voice) Volume() float32 { return v.volume }

func (v *Voice) SetVolume(vol float32) {
	v.volume = vol
	v.handle.SetVolume(vol)
}

// Pitch is a semitone-like exponent in [-1, 1]; the native frequency
// ratio applied is 2^pitch.
func (v *Voice) Pitch() float32 { return v.pitch }

func (v *Voice) SetPitch(p float32) {
	v.pitch = clamp(p, -1, 1)
	v.handle.SetFrequencyRatio(pitchRatio(v.pitch))
}

func (v *Voice) Pan() float32 { return v.pan }

// SetPan repositions the voice in the stereo field, -1 full left to +1
// full right, by recomputing and pushing the output matrix.
func (v *Voice) SetPan(p float32) {
	v.pan = clamp(p, -1, 1)
	v.pushMatrix()
}

func (v *Voice) Filter() engine.FilterParams { return v.filter }

func (v *Voice) SetFilter(t engine.FilterType, frequency, q float32) {
	v.filter = engine.FilterParams{Type: t, Frequency: frequency, Q: q}
	v.handle.SetFilter(v.filter)
}

func (v *Voice) FilterFrequency() float32 { return v.filter.Frequency }

// SetFilterFrequency updates only the cutoff, keeping type and Q. This
// is the setter tweens drive.
func (v *Voice) SetFilterFrequency(f float32) {
	v.filter.Frequency = f
	v.handle.SetFilter(v.filter)
}

func (v *Voice) Reverb() float32 { return v.reverbWet }

// SetReverb sets the wet level sent to the attached reverb effect.
func (v *Voice) SetReverb(wet float32) {
	v.reverbWet = wet
	v.handle.SetReverbSend(wet)
}

// SetReverbEffect attaches (or detaches, with nil) an additional send
// toward a reverb node alongside the main output.
func (v *Voice) SetReverbEffect(r *ReverbEffect) {
	v.reverb = r
	v.pushOutputs()
}

func (v *Voice) DopplerFactor() float32 { return v.doppler }

// SetDopplerFactor scales doppler pitch shift computed by Apply3D; it
// has no effect on its own.
func (v *Voice) SetDopplerFactor(f float32) {
	v.doppler = f
}

// SetOutputVoice re-points the voice's main output at a submix. nil
// routes back to the device's mastering submix.
func (v *Voice) SetOutputVoice(s *SubmixVoice) {
	v.output = s
	v.pushOutputs()
}

func (v *Voice) pushOutputs() {
	var targets []engine.Voice
	out := v.output
	if out == nil && v.dev != nil {
		out = v.dev.fauxMaster
	}
	if out != nil {
		if &out.Voice == v {
			// the mastering submix itself routes straight to the true master
			targets = append(targets, v.dev.master)
		} else {
			targets = append(targets, out.handle)
		}
	}
	if v.reverb != nil {
		targets = append(targets, v.reverb.handle)
	}
	if err := v.handle.SetOutputs(targets); err != nil {
		log.Printf("failed to re-point voice outputs: %v", err)
	}
	v.pushMatrix()
}

// pushMatrix recomputes the constant-power pan matrix and hands it to
// the native voice.
func (v *Voice) pushMatrix() {
	panMatrix(v.matrix, v.srcChannels, v.dstChannels, v.pan)
	if err := v.handle.SetOutputMatrix(v.srcChannels, v.dstChannels, v.matrix); err != nil {
		log.Printf("failed to push output matrix: %v", err)
	}
}

// Animate schedules a tween of one property toward target. A zero
// duration applies the value immediately. fn nil means linear.
func (v *Voice) Animate(prop TweenProperty, target float32, delay, duration time.Duration, fn Easing) {
	if v.dev == nil {
		return
	}
	v.dev.CreateTween(v, prop, target, delay, duration, fn)
}

func (v *Voice) AnimateVolume(target float32, duration time.Duration, fn Easing) {
	v.Animate(PropVolume, target, 0, duration, fn)
}

func (v *Voice) AnimateVolumeAfter(target float32, delay, duration time.Duration, fn Easing) {
	v.Animate(PropVolume, target, delay, duration, fn)
}

func (v *Voice) AnimatePan(target float32, duration time.Duration, fn Easing) {
	v.Animate(PropPan, target, 0, duration, fn)
}

func (v *Voice) AnimatePanAfter(target float32, delay, duration time.Duration, fn Easing) {
	v.Animate(PropPan, target, delay, duration, fn)
}

func (v *Voice) AnimatePitch(target float32, duration time.Duration, fn Easing) {
	v.Animate(PropPitch, target, 0, duration, fn)
}

func (v *Voice) AnimatePitchAfter(target float32, delay, duration time.Duration, fn Easing) {
	v.Animate(PropPitch, target, delay, duration, fn)
}

func (v *Voice) AnimateFilterFrequency(target float32, duration time.Duration, fn Easing) {
	v.Animate(PropFilterFrequency, target, 0, duration, fn)
}

func (v *Voice) AnimateFilterFrequencyAfter(target float32, delay, duration time.Duration, fn Easing) {
	v.Animate(PropFilterFrequency, target, delay, duration, fn)
}

func (v *Voice) AnimateReverb(target float32, duration time.Duration, fn Easing) {
	v.Animate(PropReverb, target, 0, duration, fn)
}

func (v *Voice) AnimateReverbAfter(target float32, delay, duration time.Duration, fn Easing) {
	v.Animate(PropReverb, target, delay, duration, fn)
}

// resetDefaults restores the documented pool-return state: volume 1,
// pan 0, pitch 0, no filter, no reverb chain, output re-pointed at the
// mastering submix.
func (v *Voice) resetDefaults() {
	v.SetVolume(1)
	v.SetPitch(0)
	v.pan = 0
	v.SetFilter(engine.FilterNone, 0, 0)
	v.reverbWet = 0
	v.handle.SetReverbSend(0)
	v.doppler = 1
	v.reverb = nil
	v.output = nil
	v.pushOutputs()
}

// Dispose releases the native voice handle and deregisters the
// resource. Idempotent.
func (v *Voice) Dispose() {
	d := v.dev
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v.disposeLocked()
}

func (v *Voice) disposeLocked() {
	if v.disposed {
		return
	}
	v.disposed = true
	v.handle.Stop(true)
	v.handle.Destroy()
	v.dev.dropVoiceLocked(v)
	v.dev.deregisterLocked(&v.resourceBase)
}

// SubmixVoice is an intermediate mixing node voices can route through
// for shared processing.
type SubmixVoice struct {
	Voice
}

// ReverbEffect is a submix node designated as a reverb send target.
// Reverb parameters are passed through to the engine, not computed
// here.
type ReverbEffect struct {
	SubmixVoice
}

func pitchRatio(pitch float32) float32 {
	return float32(math.Pow(2, float64(pitch)))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// panMatrix fills gains with a constant-power pan law. Mono sources fan
// across the destination pair; matched layouts get a balance curve;
// anything else falls back to identity routing.
func panMatrix(gains []float32, src, dst int, pan float32) {
	for i := range gains {
		gains[i] = 0
	}
	theta := float64(pan+1) * math.Pi / 4
	left := float32(math.Cos(theta))
	right := float32(math.Sin(theta))

	switch {
	case src == 1 && dst >= 2:
		gains[0] = left
		gains[1] = right
	case src == 1 && dst == 1:
		gains[0] = 1
	case src == dst && src >= 2:
		// balance: attenuate the side being panned away from
		lg := float32(1)
		rg := float32(1)
		if pan > 0 {
			lg = 1 - pan
		} else if pan < 0 {
			rg = 1 + pan
		}
		for c := 0; c < src; c++ {
			g := float32(1)
			if c == 0 {
				g = lg
			} else if c == 1 {
				g = rg
			}
			gains[c*dst+c] = g
		}
	default:
		for c := 0; c < src && c < dst; c++ {
			gains[c*dst+c] = 1
		}
	}
}
