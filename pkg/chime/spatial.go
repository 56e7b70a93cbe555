// ABOUTME: 3D audio calculation context
// ABOUTME: Distance attenuation, azimuth pan and doppler from listener/emitter pairs
package chime

import "math"

// Vec3 is the minimal vector type the spatializer consumes. Scene math
// libraries produce these as plain triples.
type Vec3 struct {
	X, Y, Z float32
}

func (a Vec3) sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a Vec3) dot(b Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vec3) length() float32 {
	return float32(math.Sqrt(float64(a.dot(a))))
}

// Listener is the receiving end of 3D audio, owned by scene code.
type Listener struct {
	Position Vec3
	Velocity Vec3
}

// Emitter is a positioned sound source, owned by scene code.
type Emitter struct {
	Position Vec3
	Velocity Vec3
}

// DefaultSpeedOfSound is meters per second at roughly room temperature.
const DefaultSpeedOfSound = 343.5

// spatializer computes per-voice gain, pan and doppler ratio from a
// listener/emitter pair.
type spatializer struct {
	speedOfSound float32
	channels     int
}

// calculate returns (attenuation, pan, dopplerRatio).
func (s *spatializer) calculate(l Listener, e Emitter) (float32, float32, float32) {
	rel := e.Position.sub(l.Position)
	dist := rel.length()

	atten := float32(1)
	if dist > 1 {
		atten = 1 / dist
	}

	pan := float32(0)
	if dist > 1e-6 {
		pan = clamp(rel.X/dist, -1, 1)
	}

	doppler := float32(1)
	if dist > 1e-6 && s.speedOfSound > 0 {
		dir := Vec3{rel.X / dist, rel.Y / dist, rel.Z / dist}
		// radial closing speed: positive when emitter approaches
		closing := l.Velocity.sub(e.Velocity).dot(dir)
		doppler = clamp(s.speedOfSound/(s.speedOfSound-closing), 0.5, 2)
	}

	return atten, pan, doppler
}

// Apply3D positions a source voice relative to a listener: volume is
// scaled by distance attenuation, pan follows azimuth, and the native
// frequency ratio combines the voice's pitch with doppler shift scaled
// by its doppler factor.
func (d *AudioDevice) Apply3D(v *SourceVoice, l Listener, e Emitter) {
	if d.failed {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	atten, pan, doppler := d.spatial.calculate(l, e)
	v.SetVolume(atten)
	v.SetPan(pan)
	shift := 1 + (doppler-1)*v.doppler
	v.handle.SetFrequencyRatio(pitchRatio(v.pitch) * shift)
}
