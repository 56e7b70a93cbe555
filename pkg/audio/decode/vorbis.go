// ABOUTME: Ogg Vorbis streamable
// ABOUTME: Incremental float32 decode via jfreymuth/oggvorbis, emitted as 16-bit PCM
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/chime-audio/chime-go/pkg/audio"
)

const vorbisChunkFrames = 4096

// VorbisStream decodes an Ogg Vorbis container held in memory. The
// decoder emits float32 samples; Decode converts them to interleaved
// 16-bit PCM.
type VorbisStream struct {
	data   []byte
	reader *oggvorbis.Reader
	format audio.Format
	tmp    []float32
}

func (s *VorbisStream) Open(data []byte) error {
	r, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to open ogg vorbis stream: %w", err)
	}
	s.data = data
	s.reader = r
	s.format = audio.Format{
		Tag:           audio.FormatTagPCM,
		Channels:      r.Channels(),
		SampleRate:    r.SampleRate(),
		BitsPerSample: 16,
	}
	return nil
}

func (s *VorbisStream) Close() error {
	s.reader = nil
	s.data = nil
	return nil
}

func (s *VorbisStream) Seek(frame int) error {
	if s.reader == nil {
		return nil
	}
	if err := s.reader.SetPosition(int64(frame)); err != nil {
		return fmt.Errorf("vorbis seek to frame %d failed: %w", frame, err)
	}
	return nil
}

func (s *VorbisStream) Decode(dst []byte) (int, bool, error) {
	if s.reader == nil {
		return 0, true, ErrNotOpen
	}

	want := len(dst) / 2 // float samples that fit as int16
	if cap(s.tmp) < want {
		s.tmp = make([]float32, want)
	}

	filled := 0
	for filled < want {
		n, err := s.reader.Read(s.tmp[filled:want])
		filled += n
		if err == io.EOF {
			s.emit(dst, filled)
			return filled * 2, true, nil
		}
		if err != nil {
			return filled * 2, false, fmt.Errorf("vorbis decode failed: %w", err)
		}
		if n == 0 {
			break
		}
	}
	s.emit(dst, filled)
	return filled * 2, filled < want, nil
}

func (s *VorbisStream) emit(dst []byte, samples int) {
	for i := 0; i < samples; i++ {
		v := audio.SampleFromFloat32(s.tmp[i])
		dst[i*2] = byte(v)
		dst[i*2+1] = byte(uint16(v) >> 8)
	}
}

func (s *VorbisStream) Format() audio.Format {
	return s.format
}

func (s *VorbisStream) PreferredChunkSize() int {
	return s.format.FramesToBytes(vorbisChunkFrames)
}

// DecodeAllVorbis decodes an entire Ogg Vorbis file to 16-bit PCM, for
// fully buffered (non-streaming) playback.
func DecodeAllVorbis(data []byte) (audio.Format, []byte, error) {
	var s VorbisStream
	if err := s.Open(data); err != nil {
		return audio.Format{}, nil, err
	}
	defer s.Close()

	var out []byte
	chunk := make([]byte, s.PreferredChunkSize())
	for {
		n, end, err := s.Decode(chunk)
		if err != nil {
			return audio.Format{}, nil, err
		}
		out = append(out, chunk[:n]...)
		if end {
			return s.format, out, nil
		}
	}
}
