// ABOUTME: Streamable decoder contract
// ABOUTME: Common interface for incremental PCM decode over in-memory file bytes
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chime-audio/chime-go/pkg/audio"
)

var (
	// ErrNotOpen is returned by operations on a stream that has not
	// been opened (or has been closed).
	ErrNotOpen = errors.New("decode: stream not open")

	// ErrUnsupportedFile is returned when no decoder claims a path.
	ErrUnsupportedFile = errors.New("decode: unsupported file type")
)

// Stream decodes compressed audio incrementally. Implementations own a
// decode context over an in-memory copy of the file bytes and may be
// reopened after Close. A Stream imposes no locking of its own; its
// caller serializes access.
type Stream interface {
	// Open parses the container header and establishes the decode
	// context. Returns a load error if data is not a valid container.
	Open(data []byte) error

	// Close releases the decode context. Idempotent.
	Close() error

	// Seek repositions the decode cursor to the given sample frame.
	// No-op if the stream is not open.
	Seek(frame int) error

	// Decode fills dst with interleaved PCM from the current position,
	// returning the byte count produced and whether the stream is
	// exhausted. A partial or zero fill signals end.
	Decode(dst []byte) (n int, end bool, err error)

	// Format returns the PCM layout established by Open.
	Format() audio.Format

	// PreferredChunkSize returns the decoder's natural buffer size in
	// bytes; streaming voices size their ring buffers to it.
	PreferredChunkSize() int
}

// ForPath returns an unopened Stream chosen by file extension.
func ForPath(path string) (Stream, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg":
		return &VorbisStream{}, nil
	case ".qoa":
		return &QOAStream{}, nil
	case ".mp3":
		return &MP3Stream{}, nil
	case ".wav":
		return &WAVStream{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}
