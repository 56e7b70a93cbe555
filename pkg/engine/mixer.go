// ABOUTME: Software mix voice for the malgo backend
// ABOUTME: Gain, output matrix and frequency-ratio resampling into the device callback
package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/chime-audio/chime-go/pkg/audio"
)

type nodeKind uint8

const (
	sourceNode nodeKind = iota
	submixNode
	masterNode
)

type pendingBuffer struct {
	data []byte
}

// mixVoice is one node in the software graph. All fields are guarded by
// the owning engine's mutex; the render callback takes the same lock.
type mixVoice struct {
	eng    *MalgoEngine
	kind   nodeKind
	params StreamParams

	mu        sync.Mutex
	volume    float32
	ratio     float32
	matrix    []float32
	matrixSrc int
	matrixDst int
	filter    FilterParams
	reverbWet float32
	outputs   []*mixVoice

	started       bool
	queue         []pendingBuffer
	cursor        float64 // fractional frame position inside queue[0]
	playedFrac    float64 // fractional remainder of consumed source frames
	samplesPlayed uint64
	destroyed     bool
}

func (v *mixVoice) SubmitBuffer(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrVoiceDestroyed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	v.queue = append(v.queue, pendingBuffer{data: buf})
	return nil
}

func (v *mixVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrVoiceDestroyed
	}
	v.started = true
	return nil
}

func (v *mixVoice) Stop(flush bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.started = false
	if flush {
		v.queue = nil
		v.cursor = 0
	}
	return nil
}

func (v *mixVoice) SetVolume(vol float32) {
	v.mu.Lock()
	v.volume = vol
	v.mu.Unlock()
}

func (v *mixVoice) SetFrequencyRatio(r float32) {
	v.mu.Lock()
	v.ratio = r
	v.mu.Unlock()
}

func (v *mixVoice) SetOutputMatrix(srcChannels, dstChannels int, gains []float32) error {
	if len(gains) != srcChannels*dstChannels {
		return fmt.Errorf("output matrix size %d does not match %dx%d", len(gains), srcChannels, dstChannels)
	}
	v.mu.Lock()
	v.matrix = append(v.matrix[:0], gains...)
	v.matrixSrc = srcChannels
	v.matrixDst = dstChannels
	v.mu.Unlock()
	return nil
}

// SetFilter retains the parameters; the software backend does not
// render filters.
func (v *mixVoice) SetFilter(p FilterParams) {
	v.mu.Lock()
	v.filter = p
	v.mu.Unlock()
}

// SetReverbSend retains the wet level; the software backend does not
// render reverb.
func (v *mixVoice) SetReverbSend(wet float32) {
	v.mu.Lock()
	v.reverbWet = wet
	v.mu.Unlock()
}

func (v *mixVoice) SetOutputs(targets []Voice) error {
	outs := make([]*mixVoice, 0, len(targets))
	for _, t := range targets {
		mv, ok := t.(*mixVoice)
		if !ok {
			continue
		}
		outs = append(outs, mv)
	}
	v.mu.Lock()
	if len(outs) == 0 && v.eng != nil && v.eng.master != nil {
		outs = []*mixVoice{v.eng.master}
	}
	v.outputs = outs
	v.mu.Unlock()
	return nil
}

func (v *mixVoice) State() VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VoiceState{BuffersQueued: len(v.queue), SamplesPlayed: v.samplesPlayed}
}

func (v *mixVoice) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	v.started = false
	v.queue = nil
	v.mu.Unlock()

	if v.kind == sourceNode && v.eng != nil {
		v.eng.mu.Lock()
		v.eng.removeSource(v)
		v.eng.mu.Unlock()
	}
}

// channelGain returns the send level from source channel c to output
// channel d, using the voice matrix when set and a sensible default
// otherwise (identity for matched layouts, fan-out for mono).
func (v *mixVoice) channelGain(c, d, outChannels int) float32 {
	if v.matrix != nil && v.matrixSrc == v.params.Channels && v.matrixDst == outChannels {
		return v.matrix[c*outChannels+d]
	}
	if v.params.Channels == 1 {
		return 1
	}
	if c == d {
		return 1
	}
	return 0
}

// render mixes all started sources into the device output buffer.
// Called from the miniaudio thread.
func (e *MalgoEngine) render(out []byte, frames int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	need := frames * e.channels
	if cap(e.scratch) < need {
		e.scratch = make([]float32, need)
	}
	accum := e.scratch[:need]
	for i := range accum {
		accum[i] = 0
	}

	for _, src := range e.sources {
		src.renderInto(accum, frames, e.channels, e.rate)
	}

	for i := 0; i < need; i++ {
		s := audio.SampleFromFloat32(accum[i])
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
}

// renderInto pulls frames from the voice's queue, resamples by the
// frequency ratio and sums into the accumulator.
func (v *mixVoice) renderInto(accum []float32, frames, outChannels, outRate int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.started || len(v.queue) == 0 {
		return
	}

	srcCh := v.params.Channels
	bytesPerSample := v.params.BitsPerSample / 8
	blockAlign := srcCh * bytesPerSample
	if blockAlign == 0 {
		return
	}
	step := float64(v.ratio) * float64(v.params.SampleRate) / float64(outRate)
	gain := v.volume * v.pathGainUnlocked()

	for f := 0; f < frames; f++ {
		if len(v.queue) == 0 {
			return
		}
		head := v.queue[0].data
		headFrames := len(head) / blockAlign
		idx := int(v.cursor)
		if idx >= headFrames {
			v.queue = v.queue[1:]
			v.cursor -= float64(headFrames)
			f--
			continue
		}

		base := idx * blockAlign
		for d := 0; d < outChannels; d++ {
			var sum float32
			for c := 0; c < srcCh; c++ {
				g := v.channelGain(c, d, outChannels)
				if g == 0 {
					continue
				}
				sum += sampleAsFloat(head[base+c*bytesPerSample:], v.params) * g
			}
			accum[f*outChannels+d] += sum * gain
		}

		// count consumed source frames, not output frames, so the
		// played counter stays honest under resampling
		v.cursor += step
		v.playedFrac += step
		if v.playedFrac >= 1 {
			n := uint64(v.playedFrac)
			v.samplesPlayed += n
			v.playedFrac -= float64(n)
		}
	}
}

// checkSampleLayout rejects wire formats the render path cannot decode,
// so an unsupported file fails at voice creation instead of rendering
// noise.
func checkSampleLayout(p StreamParams) error {
	if p.Float {
		if p.BitsPerSample != 32 {
			return fmt.Errorf("unsupported stream params: %d-bit float", p.BitsPerSample)
		}
		return nil
	}
	switch p.BitsPerSample {
	case 8, 16, 24, 32:
		return nil
	}
	return fmt.Errorf("unsupported stream params: %d-bit pcm", p.BitsPerSample)
}

// sampleAsFloat decodes one sample at the start of data per the voice's
// wire format.
func sampleAsFloat(data []byte, p StreamParams) float32 {
	switch {
	case p.Float:
		return math.Float32frombits(binary.LittleEndian.Uint32(data))
	case p.BitsPerSample == 8:
		return (float32(data[0]) - 128) / 128
	case p.BitsPerSample == 16:
		return audio.SampleToFloat32(int16(binary.LittleEndian.Uint16(data)))
	case p.BitsPerSample == 24:
		u := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
		return float32(int32(u<<8)>>8) / 8388608
	default:
		return float32(int32(binary.LittleEndian.Uint32(data))) / 2147483648
	}
}

// pathGainUnlocked walks the output chain toward the master,
// multiplying node volumes. Submix matrices are pass-through in the
// software backend. Callers hold v.mu.
func (v *mixVoice) pathGainUnlocked() float32 {
	g := float32(1)
	node := v
	for depth := 0; depth < 8; depth++ {
		if len(node.outputs) == 0 {
			break
		}
		node = node.outputs[0]
		node.mu.Lock()
		g *= node.volume
		node.mu.Unlock()
		if node.kind == masterNode {
			break
		}
	}
	return g
}
