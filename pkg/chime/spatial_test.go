// ABOUTME: Tests for 3D audio calculations
// ABOUTME: Distance attenuation, azimuth pan and doppler clamping
package chime

import "testing"

func TestSpatializerAttenuation(t *testing.T) {
	s := spatializer{speedOfSound: DefaultSpeedOfSound, channels: 2}

	tests := []struct {
		name string
		pos  Vec3
		want float32
	}{
		{"inside unit distance", Vec3{X: 0.5}, 1},
		{"at unit distance", Vec3{X: 1}, 1},
		{"double distance halves", Vec3{X: 2}, 0.5},
		{"quadruple distance quarters", Vec3{Z: 4}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atten, _, _ := s.calculate(Listener{}, Emitter{Position: tt.pos})
			if !almostEqual(atten, tt.want) {
				t.Errorf("attenuation = %f, want %f", atten, tt.want)
			}
		})
	}
}

func TestSpatializerPanFollowsAzimuth(t *testing.T) {
	s := spatializer{speedOfSound: DefaultSpeedOfSound, channels: 2}

	_, pan, _ := s.calculate(Listener{}, Emitter{Position: Vec3{X: 3}})
	if !almostEqual(pan, 1) {
		t.Errorf("pan right = %f, want 1", pan)
	}

	_, pan, _ = s.calculate(Listener{}, Emitter{Position: Vec3{X: -3}})
	if !almostEqual(pan, -1) {
		t.Errorf("pan left = %f, want -1", pan)
	}

	_, pan, _ = s.calculate(Listener{}, Emitter{Position: Vec3{Z: 5}})
	if !almostEqual(pan, 0) {
		t.Errorf("pan ahead = %f, want 0", pan)
	}
}

func TestSpatializerDoppler(t *testing.T) {
	s := spatializer{speedOfSound: DefaultSpeedOfSound, channels: 2}

	// static scene: no shift
	_, _, doppler := s.calculate(Listener{}, Emitter{Position: Vec3{X: 10}})
	if doppler != 1 {
		t.Errorf("static doppler = %f, want 1", doppler)
	}

	// emitter closing on the listener raises pitch
	_, _, doppler = s.calculate(Listener{}, Emitter{
		Position: Vec3{X: 10},
		Velocity: Vec3{X: -30},
	})
	if doppler <= 1 {
		t.Errorf("approaching doppler = %f, want > 1", doppler)
	}

	// receding lowers it
	_, _, doppler = s.calculate(Listener{}, Emitter{
		Position: Vec3{X: 10},
		Velocity: Vec3{X: 30},
	})
	if doppler >= 1 {
		t.Errorf("receding doppler = %f, want < 1", doppler)
	}

	// absurd closing speeds clamp instead of exploding
	_, _, doppler = s.calculate(Listener{}, Emitter{
		Position: Vec3{X: 10},
		Velocity: Vec3{X: -340},
	})
	if doppler != 2 {
		t.Errorf("clamped doppler = %f, want 2", doppler)
	}
}

func TestApply3DDrivesVoiceParameters(t *testing.T) {
	d, fk := newTestDevice(t)
	defer d.Close()

	v, err := d.ObtainPersistent(testFormat)
	if err != nil {
		t.Fatal(err)
	}

	d.Apply3D(&v.SourceVoice, Listener{}, Emitter{Position: Vec3{X: 2}})

	if got := v.Volume(); !almostEqual(got, 0.5) {
		t.Errorf("volume = %f, want 0.5 at distance 2", got)
	}
	if got := v.Pan(); !almostEqual(got, 1) {
		t.Errorf("pan = %f, want 1 for emitter to the right", got)
	}

	fv := sourceVoiceOf(t, fk, 0)
	if !almostEqual(fv.Ratio, 1) {
		t.Errorf("native ratio = %f, want 1 for static scene", fv.Ratio)
	}
}

func TestApply3DRespectsDopplerFactor(t *testing.T) {
	d, fk := newTestDevice(t)
	defer d.Close()

	v, err := d.ObtainPersistent(testFormat)
	if err != nil {
		t.Fatal(err)
	}
	v.SetDopplerFactor(0)

	d.Apply3D(&v.SourceVoice, Listener{}, Emitter{
		Position: Vec3{X: 10},
		Velocity: Vec3{X: -30},
	})

	// factor 0 disables the shift entirely
	fv := sourceVoiceOf(t, fk, 0)
	if !almostEqual(fv.Ratio, 1) {
		t.Errorf("native ratio = %f, want 1 with doppler factor 0", fv.Ratio)
	}
}
