// ABOUTME: StreamingVoice refill protocol
// ABOUTME: Keeps a ring of N buffers queued ahead of playback from a decode.Stream
package chime

import (
	"fmt"

	"github.com/chime-audio/chime-go/pkg/audio/decode"
)

// streamBufferCount is the queue depth target: decode never runs
// further ahead than this many chunks.
const streamBufferCount = 3

// StreamingVoice is a SourceVoice that pulls PCM from a decode.Stream,
// keeping up to streamBufferCount buffers queued. Refill happens on
// every device tick while playing, so the queue is re-topped within one
// tick interval of dropping below target.
type StreamingVoice struct {
	SourceVoice
	stream  decode.Stream
	ring    [streamBufferCount][]byte
	ringIdx int
	loop    bool
	ended   bool
}

// Load attaches an opened stream, unloading any prior one, and
// immediately tops the queue up. The stream's format must match the
// voice's.
func (v *StreamingVoice) Load(s decode.Stream) error {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()

	if s == nil {
		return fmt.Errorf("nil stream")
	}
	f := s.Format()
	if !f.Valid() {
		return fmt.Errorf("stream must be opened before loading")
	}
	if f != v.format {
		return fmt.Errorf("stream format %s does not match voice format %s", f, v.format)
	}

	if v.stream != nil {
		v.stopLocked()
	}
	v.stream = s
	v.ended = false
	v.ringIdx = 0

	size := s.PreferredChunkSize()
	for i := range v.ring {
		if cap(v.ring[i]) < size {
			v.ring[i] = make([]byte, size)
		}
		v.ring[i] = v.ring[i][:size]
	}

	return v.refillLocked()
}

// Unload stops playback, flushes the queue and detaches the stream.
// The stream itself stays open; its lifecycle belongs to the caller.
func (v *StreamingVoice) Unload() {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	v.stopLocked()
	v.stream = nil
	v.ended = false
}

// SetLoop controls whether end-of-stream seeks back to the start
// instead of finishing.
func (v *StreamingVoice) SetLoop(loop bool) {
	v.dev.mu.Lock()
	v.loop = loop
	if loop {
		v.ended = false
	}
	v.dev.mu.Unlock()
}

func (v *StreamingVoice) Loop() bool {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.loop
}

// Finished reports that the stream ended and the queue fully drained.
func (v *StreamingVoice) Finished() bool {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.ended && v.handle.State().BuffersQueued == 0
}

// service runs once per device tick.
func (v *StreamingVoice) service() error {
	if v.stream == nil {
		return nil
	}
	if v.state == StatePlaying && !v.ended {
		return v.refillLocked()
	}
	if v.ended && v.state == StatePlaying && v.handle.State().BuffersQueued == 0 {
		// queue drained after end-of-stream: playback is finished
		v.state = StateStopped
	}
	return nil
}

// refillLocked decodes and submits buffers until the native queue is
// back at target depth. When the stream reports end while looping, it
// seeks to frame 0 before submitting, so looped playback has no gap.
func (v *StreamingVoice) refillLocked() error {
	for v.handle.State().BuffersQueued < streamBufferCount {
		buf := v.ring[v.ringIdx]
		n, end, err := v.stream.Decode(buf)
		if err != nil {
			v.ended = true
			return fmt.Errorf("stream decode failed: %w", err)
		}
		if n > 0 {
			if err := v.handle.SubmitBuffer(buf[:n]); err != nil {
				return err
			}
			v.ringIdx = (v.ringIdx + 1) % streamBufferCount
		}
		if end {
			if v.loop {
				if err := v.stream.Seek(0); err != nil {
					v.ended = true
					return fmt.Errorf("loop seek failed: %w", err)
				}
				continue
			}
			v.ended = true
			break
		}
		if n == 0 {
			// a zero fill without the end flag signals end anyway;
			// treating it as such keeps a misbehaving decoder from
			// spinning the tick forever
			v.ended = true
			break
		}
	}
	return nil
}
