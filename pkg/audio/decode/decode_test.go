// ABOUTME: Tests for decoder selection and contract basics
// ABOUTME: Extension dispatch and unopened-stream behavior
package decode

import (
	"errors"
	"testing"
)

func TestForPathDispatch(t *testing.T) {
	tests := []struct {
		path string
		want interface{}
	}{
		{"music/theme.ogg", &VorbisStream{}},
		{"sfx/jump.QOA", &QOAStream{}},
		{"voice/line01.mp3", &MP3Stream{}},
		{"ambience/rain.wav", &WAVStream{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s, err := ForPath(tt.path)
			if err != nil {
				t.Fatal(err)
			}
			switch tt.want.(type) {
			case *VorbisStream:
				if _, ok := s.(*VorbisStream); !ok {
					t.Errorf("got %T", s)
				}
			case *QOAStream:
				if _, ok := s.(*QOAStream); !ok {
					t.Errorf("got %T", s)
				}
			case *MP3Stream:
				if _, ok := s.(*MP3Stream); !ok {
					t.Errorf("got %T", s)
				}
			case *WAVStream:
				if _, ok := s.(*WAVStream); !ok {
					t.Errorf("got %T", s)
				}
			}
		})
	}
}

func TestForPathRejectsUnknownExtension(t *testing.T) {
	if _, err := ForPath("track.flac"); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("error = %v, want ErrUnsupportedFile", err)
	}
}

func TestUnopenedStreamsRefuseDecode(t *testing.T) {
	streams := []Stream{&VorbisStream{}, &QOAStream{}, &WAVStream{}}
	buf := make([]byte, 64)
	for _, s := range streams {
		if _, _, err := s.Decode(buf); !errors.Is(err, ErrNotOpen) {
			t.Errorf("%T: error = %v, want ErrNotOpen", s, err)
		}
	}
}

func TestVorbisOpenRejectsGarbage(t *testing.T) {
	var s VorbisStream
	if err := s.Open([]byte("definitely not an ogg container")); err == nil {
		t.Error("expected open to fail on garbage")
	}
}
