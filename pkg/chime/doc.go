// ABOUTME: Package documentation for chime
// ABOUTME: High-level audio engine over a native mixing backend
//
// Package chime is a real-time playback engine layered over a native
// voice-graph backend. An AudioDevice owns the device handle, a
// mastering graph, a recycling pool of source voices, a tween
// scheduler and a 200Hz background loop that services streaming
// refills, one-shot completion and property animations.
//
// Voices come in three pooled kinds: transient one-shots that recycle
// themselves when their queue drains, persistent voices the caller
// keeps and returns, and streaming voices fed chunk by chunk from a
// decode.Stream. All voices share a parameter layer (volume, pitch,
// pan, filter, reverb send) that can be set directly or animated with
// tweens, and route through submixes toward the mastering voice.
//
// Construction never fails hard: a machine without a playback device
// gets an inert AudioDevice and the application keeps running.
package chime
