// ABOUTME: Streamable decoder package for compressed audio
// ABOUTME: WAV chunk scanning plus Ogg Vorbis, QOA and MP3 streams
// Package decode provides incremental decoders for compressed audio.
//
// Supports: WAV (RIFF chunk scan with smpl loop points), Ogg Vorbis,
// QOA and MP3.
//
// All decoders implement the Stream interface: they own a decode
// context over an in-memory copy of the file bytes, produce fixed-size
// chunks of interleaved 16-bit PCM on demand, and support seeking by
// sample frame.
//
// Example:
//
//	s, err := decode.ForPath("music.ogg")
//	err = s.Open(fileBytes)
//	n, end, err := s.Decode(chunk)
package decode
