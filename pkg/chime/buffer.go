// ABOUTME: AudioBuffer resource and file loaders
// ABOUTME: Owned PCM memory, non-owning slices, WAV/OGG/QOA buffer creation
package chime

import (
	"fmt"

	"github.com/chime-audio/chime-go/pkg/audio"
	"github.com/chime-audio/chime-go/pkg/audio/decode"
)

// AudioBuffer holds a block of PCM plus its format. When OwnsData is
// set the buffer releases the memory on disposal; a Slice never owns
// data and stays valid only as long as its parent is alive.
type AudioBuffer struct {
	resourceBase
	format   audio.Format
	data     []byte
	ownsData bool
	parent   *AudioBuffer

	// Loop points in sample frames, from a WAV smpl chunk.
	hasLoop   bool
	loopStart int
	loopEnd   int
}

func (b *AudioBuffer) Format() audio.Format { return b.format }
func (b *AudioBuffer) Data() []byte         { return b.data }
func (b *AudioBuffer) Len() int             { return len(b.data) }
func (b *AudioBuffer) OwnsData() bool       { return b.ownsData }

// LoopPoints returns the loop region in sample frames, if the source
// file declared one.
func (b *AudioBuffer) LoopPoints() (start, end int, ok bool) {
	return b.loopStart, b.loopEnd, b.hasLoop
}

// Slice returns a non-owning view of a frame range of the buffer. The
// view shares the parent's memory.
func (b *AudioBuffer) Slice(offsetFrames, frames int) (*AudioBuffer, error) {
	start := b.format.FramesToBytes(offsetFrames)
	end := start + b.format.FramesToBytes(frames)
	if start < 0 || end > len(b.data) || start > end {
		return nil, fmt.Errorf("slice [%d,%d) frames out of range", offsetFrames, offsetFrames+frames)
	}
	s := &AudioBuffer{
		format:   b.format,
		data:     b.data[start:end],
		ownsData: false,
		parent:   b,
	}
	d := b.dev
	d.mu.Lock()
	d.registerLocked(s, &s.resourceBase, resBuffer, nil, s.disposeLocked)
	d.mu.Unlock()
	return s, nil
}

func (b *AudioBuffer) Dispose() {
	d := b.dev
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b.disposeLocked()
}

func (b *AudioBuffer) disposeLocked() {
	if b.disposed {
		return
	}
	b.disposed = true
	if b.ownsData {
		b.data = nil
	}
	b.dev.deregisterLocked(&b.resourceBase)
}

// CreateBuffer wraps raw PCM in an AudioBuffer. owns controls whether
// the buffer releases the memory on disposal.
func (d *AudioDevice) CreateBuffer(f audio.Format, data []byte, owns bool) *AudioBuffer {
	b := &AudioBuffer{format: f, data: data, ownsData: owns}
	d.mu.Lock()
	d.registerLocked(b, &b.resourceBase, resBuffer, nil, b.disposeLocked)
	d.mu.Unlock()
	return b
}

// CreateBufferFromWAV parses a RIFF/WAVE file and returns a buffer over
// its data chunk, carrying smpl loop points when present.
func (d *AudioDevice) CreateBufferFromWAV(file []byte) (*AudioBuffer, error) {
	info, pcm, err := decode.DecodeWAV(file)
	if err != nil {
		return nil, fmt.Errorf("wav load failed: %w", err)
	}
	b := d.CreateBuffer(info.Format, pcm, true)
	b.hasLoop = info.HasLoop
	b.loopStart = info.LoopStart
	b.loopEnd = info.LoopEnd
	return b, nil
}

// CreateBufferFromOGG fully decodes an Ogg Vorbis file into a buffer.
func (d *AudioDevice) CreateBufferFromOGG(file []byte) (*AudioBuffer, error) {
	f, pcm, err := decode.DecodeAllVorbis(file)
	if err != nil {
		return nil, fmt.Errorf("ogg load failed: %w", err)
	}
	return d.CreateBuffer(f, pcm, true), nil
}

// CreateBufferFromQOA fully decodes a QOA file into a buffer.
func (d *AudioDevice) CreateBufferFromQOA(file []byte) (*AudioBuffer, error) {
	f, pcm, err := decode.DecodeAllQOA(file)
	if err != nil {
		return nil, fmt.Errorf("qoa load failed: %w", err)
	}
	return d.CreateBuffer(f, pcm, true), nil
}
