// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the Format value type and sample conversion functions
// Package audio provides fundamental audio types and utilities.
//
// This package defines the Format value type used throughout the chime
// library to describe PCM layouts, along with its derived block-align
// and byte-rate fields, and helpers for converting between int16 PCM
// and float32 mixing samples.
//
// Example:
//
//	format := audio.Format{
//	    Tag:           audio.FormatTagPCM,
//	    Channels:      2,
//	    SampleRate:    44100,
//	    BitsPerSample: 16,
//	}
//	frameBytes := format.BlockAlign()
package audio
