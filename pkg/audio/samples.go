// ABOUTME: Sample conversion helpers
// ABOUTME: Converts between int16 PCM and float32 mixing samples
package audio

// SampleToFloat32 converts an int16 sample to the [-1, 1) float range
// used during mixing.
func SampleToFloat32(s int16) float32 {
	return float32(s) / 32768.0
}

// SampleFromFloat32 converts a float mixing sample back to int16,
// clamping instead of wrapping on overflow.
func SampleFromFloat32(v float32) int16 {
	scaled := v * 32768.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
