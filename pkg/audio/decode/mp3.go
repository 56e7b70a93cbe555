// ABOUTME: MP3 streamable
// ABOUTME: Incremental decode via hajimehoshi/go-mp3 (16-bit stereo output)
package decode

import (
	"bytes"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/chime-audio/chime-go/pkg/audio"
)

// MP3Stream decodes an MP3 file held in memory. go-mp3 always emits
// 16-bit little-endian stereo, so the format is fixed apart from the
// sample rate.
type MP3Stream struct {
	data    []byte
	decoder *mp3.Decoder
	format  audio.Format
}

func (s *MP3Stream) Open(data []byte) error {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to open mp3 stream: %w", err)
	}
	s.data = data
	s.decoder = d
	s.format = audio.Format{
		Tag:           audio.FormatTagPCM,
		Channels:      2,
		SampleRate:    d.SampleRate(),
		BitsPerSample: 16,
	}
	return nil
}

func (s *MP3Stream) Close() error {
	s.decoder = nil
	s.data = nil
	return nil
}

func (s *MP3Stream) Seek(frame int) error {
	if s.decoder == nil {
		return nil
	}
	if _, err := s.decoder.Seek(int64(s.format.FramesToBytes(frame)), io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek to frame %d failed: %w", frame, err)
	}
	return nil
}

func (s *MP3Stream) Decode(dst []byte) (int, bool, error) {
	if s.decoder == nil {
		return 0, true, ErrNotOpen
	}
	filled := 0
	for filled < len(dst) {
		n, err := s.decoder.Read(dst[filled:])
		filled += n
		if err == io.EOF {
			return filled, true, nil
		}
		if err != nil {
			return filled, false, fmt.Errorf("mp3 decode failed: %w", err)
		}
		if n == 0 {
			return filled, true, nil
		}
	}
	return filled, false, nil
}

func (s *MP3Stream) Format() audio.Format {
	return s.format
}

func (s *MP3Stream) PreferredChunkSize() int {
	return s.format.FramesToBytes(4096)
}
