// ABOUTME: QOA streamable
// ABOUTME: Frame-based decode of the Quite OK Audio format with LMS prediction
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chime-audio/chime-go/pkg/audio"
)

var (
	ErrNotQOA     = errors.New("decode: not a QOA file")
	ErrInvalidQOA = errors.New("decode: invalid QOA file")
)

const (
	qoaMagic           = 0x716f6166 // "qoaf"
	qoaSliceLen        = 20
	qoaSlicesPerFrame  = 256
	qoaFrameLen        = qoaSliceLen * qoaSlicesPerFrame // samples per channel per frame
	qoaLMSLen          = 4
	qoaHeaderSize      = 8
	qoaFrameHeaderSize = 8
)

var qoaDequantTab = [16][8]int{
	{1, -1, 3, -3, 5, -5, 7, -7},
	{5, -5, 18, -18, 32, -32, 49, -49},
	{16, -16, 53, -53, 95, -95, 147, -147},
	{34, -34, 113, -113, 200, -200, 315, -315},
	{63, -63, 210, -210, 371, -371, 584, -584},
	{104, -104, 345, -345, 610, -610, 960, -960},
	{158, -158, 528, -528, 934, -934, 1468, -1468},
	{228, -228, 760, -760, 1343, -1343, 2112, -2112},
	{316, -316, 1053, -1053, 1863, -1863, 2927, -2927},
	{422, -422, 1405, -1405, 2486, -2486, 3907, -3907},
	{548, -548, 1828, -1828, 3233, -3233, 5080, -5080},
	{696, -696, 2320, -2320, 4102, -4102, 6444, -6444},
	{868, -868, 2893, -2893, 5115, -5115, 8037, -8037},
	{1064, -1064, 3548, -3548, 6274, -6274, 9859, -9859},
	{1286, -1286, 4288, -4288, 7582, -7582, 11912, -11912},
	{1536, -1536, 5120, -5120, 9056, -9056, 14224, -14224},
}

type qoaLMS struct {
	history [qoaLMSLen]int
	weights [qoaLMSLen]int
}

func (l *qoaLMS) predict() int {
	p := 0
	for i := 0; i < qoaLMSLen; i++ {
		p += l.weights[i] * l.history[i]
	}
	return p >> 13
}

func (l *qoaLMS) update(sample, residual int) {
	delta := residual >> 4
	for i := 0; i < qoaLMSLen; i++ {
		if l.history[i] < 0 {
			l.weights[i] -= delta
		} else {
			l.weights[i] += delta
		}
	}
	copy(l.history[:], l.history[1:])
	l.history[qoaLMSLen-1] = sample
}

func qoaClamp(v int) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}

// QOAStream decodes a QOA file one frame at a time. Every frame carries
// its own LMS state, so frames are independently decodable and seeking
// lands on a frame boundary then discards to the exact sample.
type QOAStream struct {
	data         []byte
	format       audio.Format
	totalSamples int // per channel
	channels     int

	pos     int // byte offset of the next frame
	decoded int // samples per channel decoded so far
	cache   []int16
	cacheAt int
}

func (s *QOAStream) Open(data []byte) error {
	if len(data) < qoaHeaderSize {
		return ErrNotQOA
	}
	if binary.BigEndian.Uint32(data[0:4]) != qoaMagic {
		return ErrNotQOA
	}
	total := int(binary.BigEndian.Uint32(data[4:8]))
	if total == 0 {
		return fmt.Errorf("%w: zero total samples", ErrInvalidQOA)
	}
	if len(data) < qoaHeaderSize+qoaFrameHeaderSize {
		return fmt.Errorf("%w: missing first frame", ErrInvalidQOA)
	}

	channels := int(data[qoaHeaderSize])
	sampleRate := int(binary.BigEndian.Uint32(data[qoaHeaderSize:qoaHeaderSize+4]) & 0xffffff)
	if channels == 0 || sampleRate == 0 {
		return fmt.Errorf("%w: bad frame header", ErrInvalidQOA)
	}

	s.data = data
	s.channels = channels
	s.totalSamples = total
	s.format = audio.Format{
		Tag:           audio.FormatTagPCM,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	}
	s.pos = qoaHeaderSize
	s.decoded = 0
	s.cache = nil
	s.cacheAt = 0
	return nil
}

func (s *QOAStream) Close() error {
	s.data = nil
	s.cache = nil
	return nil
}

// fullFrameSize is the byte size of a frame holding qoaFrameLen samples
// per channel.
func (s *QOAStream) fullFrameSize() int {
	return qoaFrameHeaderSize + s.channels*(16+8*qoaSlicesPerFrame)
}

func (s *QOAStream) Seek(frame int) error {
	if s.data == nil {
		return nil
	}
	if frame < 0 {
		frame = 0
	}
	if frame > s.totalSamples {
		frame = s.totalSamples
	}
	frameIdx := frame / qoaFrameLen
	s.pos = qoaHeaderSize + frameIdx*s.fullFrameSize()
	s.decoded = frameIdx * qoaFrameLen
	s.cache = nil
	s.cacheAt = 0

	if skip := frame % qoaFrameLen; skip > 0 {
		if err := s.decodeNextFrame(); err != nil {
			return err
		}
		drop := skip * s.channels
		if drop > len(s.cache) {
			drop = len(s.cache)
		}
		s.cacheAt = drop
	}
	return nil
}

func (s *QOAStream) Decode(dst []byte) (int, bool, error) {
	if s.data == nil {
		return 0, true, ErrNotOpen
	}

	filled := 0
	for filled+2 <= len(dst) {
		if s.cacheAt >= len(s.cache) {
			if s.exhausted() {
				return filled, true, nil
			}
			if err := s.decodeNextFrame(); err != nil {
				return filled, true, err
			}
			if len(s.cache) == 0 {
				return filled, true, nil
			}
		}
		v := s.cache[s.cacheAt]
		s.cacheAt++
		dst[filled] = byte(v)
		dst[filled+1] = byte(uint16(v) >> 8)
		filled += 2
	}
	return filled, s.exhausted() && s.cacheAt >= len(s.cache), nil
}

func (s *QOAStream) exhausted() bool {
	return s.decoded >= s.totalSamples || s.pos+qoaFrameHeaderSize > len(s.data)
}

// decodeNextFrame decodes one QOA frame into the interleaved sample
// cache and advances the frame cursor.
func (s *QOAStream) decodeNextFrame() error {
	b := s.data[s.pos:]
	if len(b) < qoaFrameHeaderSize {
		return fmt.Errorf("%w: truncated frame header", ErrInvalidQOA)
	}

	channels := int(b[0])
	fsamples := int(binary.BigEndian.Uint16(b[4:6]))
	fsize := int(binary.BigEndian.Uint16(b[6:8]))
	if channels != s.channels {
		return fmt.Errorf("%w: channel count changed mid-stream", ErrInvalidQOA)
	}
	if fsamples == 0 || fsamples > qoaFrameLen || fsize > len(b) {
		return fmt.Errorf("%w: bad frame header", ErrInvalidQOA)
	}

	lms := make([]qoaLMS, channels)
	off := qoaFrameHeaderSize
	if len(b) < off+channels*16 {
		return fmt.Errorf("%w: truncated LMS state", ErrInvalidQOA)
	}
	for c := 0; c < channels; c++ {
		for i := 0; i < qoaLMSLen; i++ {
			lms[c].history[i] = int(int16(binary.BigEndian.Uint16(b[off:])))
			off += 2
		}
		for i := 0; i < qoaLMSLen; i++ {
			lms[c].weights[i] = int(int16(binary.BigEndian.Uint16(b[off:])))
			off += 2
		}
	}

	out := make([]int16, fsamples*channels)
	for sampleIdx := 0; sampleIdx < fsamples; sampleIdx += qoaSliceLen {
		for c := 0; c < channels; c++ {
			if len(b) < off+8 {
				return fmt.Errorf("%w: truncated slice", ErrInvalidQOA)
			}
			slice := binary.BigEndian.Uint64(b[off:])
			off += 8

			sf := int(slice >> 60)
			count := qoaSliceLen
			if sampleIdx+count > fsamples {
				count = fsamples - sampleIdx
			}
			for i := 0; i < count; i++ {
				quantized := int((slice >> (57 - i*3)) & 0x7)
				dequantized := qoaDequantTab[sf][quantized]
				reconstructed := qoaClamp(lms[c].predict() + dequantized)
				out[(sampleIdx+i)*channels+c] = reconstructed
				lms[c].update(int(reconstructed), dequantized)
			}
		}
	}

	s.pos += off
	s.decoded += fsamples
	s.cache = out
	s.cacheAt = 0
	return nil
}

func (s *QOAStream) Format() audio.Format {
	return s.format
}

// PreferredChunkSize matches the codec's frame granule so one refill
// decodes whole frames.
func (s *QOAStream) PreferredChunkSize() int {
	return s.format.FramesToBytes(qoaFrameLen)
}

// DecodeAllQOA decodes an entire QOA file to 16-bit PCM.
func DecodeAllQOA(data []byte) (audio.Format, []byte, error) {
	var s QOAStream
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
