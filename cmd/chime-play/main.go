// ABOUTME: Entry point for the chime demo player
// ABOUTME: Parses CLI flags, streams a file through an AudioDevice and runs the TUI
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fogleman/ease"

	"github.com/chime-audio/chime-go/internal/ui"
	"github.com/chime-audio/chime-go/pkg/audio/decode"
	"github.com/chime-audio/chime-go/pkg/chime"
)

var (
	file     = flag.String("file", "", "Audio file to play (.ogg, .qoa, .mp3, .wav)")
	loop     = flag.Bool("loop", false, "Loop playback")
	volume   = flag.Int("volume", 100, "Playback volume (0-100)")
	fadeIn   = flag.Duration("fade", 0, "Fade-in duration (e.g. 2s)")
	device   = flag.Int("device", -1, "Playback device index (-1 for default)")
	logFile  = flag.String("log-file", "chime-play.log", "Log file path")
	noTUI    = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: chime-play -file <path> [-loop] [-volume N] [-fade 2s]")
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	// Open and decode the file header before touching the device
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *file, err)
	}
	stream, err := decode.ForPath(*file)
	if err != nil {
		log.Fatal(err)
	}
	if err := stream.Open(data); err != nil {
		log.Fatalf("failed to open %s: %v", *file, err)
	}
	defer stream.Close()

	format := stream.Format()
	log.Printf("Playing %s: %s", *file, format)

	dev := chime.New(chime.Config{DeviceIndex: *device})
	if dev.Failed() {
		log.Fatal("no usable audio device")
	}
	defer dev.Close()

	voice, err := dev.ObtainStreaming(format)
	if err != nil {
		log.Fatalf("failed to obtain voice: %v", err)
	}
	voice.SetLoop(*loop)
	if err := voice.Load(stream); err != nil {
		log.Fatalf("failed to load stream: %v", err)
	}

	target := float32(*volume) / 100
	if *fadeIn > 0 {
		voice.SetVolume(0)
		voice.AnimateVolume(target, *fadeIn, ease.OutQuad)
	} else {
		voice.SetVolume(target)
	}

	if err := voice.Play(); err != nil {
		log.Fatalf("failed to start playback: %v", err)
	}

	// TUI setup
	var tuiProg *tea.Program
	var ctrl *ui.Control
	if useTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(ctrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()

		tuiProg.Send(ui.StatusMsg{
			File:       filepath.Base(*file),
			Codec:      codecName(*file),
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   format.BitsPerSample,
		})
		go statusLoop(dev, voice, tuiProg)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go watchFinished(voice, done)

	running := true
	for running {
		select {
		case cmd := <-commands(ctrl):
			running = handleCommand(voice, cmd)
		case <-sigChan:
			log.Printf("Shutdown signal received")
			running = false
		case <-done:
			log.Printf("Playback finished")
			running = false
		}
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}

	dev.Return(voice)
	log.Printf("Player stopped")
}

// commands returns the control channel, or a nil channel that never
// fires when the TUI is disabled.
func commands(ctrl *ui.Control) chan ui.Command {
	if ctrl == nil {
		return nil
	}
	return ctrl.Commands
}

// handleCommand applies one TUI command; false means quit.
func handleCommand(voice *chime.StreamingVoice, cmd ui.Command) bool {
	switch cmd.Kind {
	case ui.CmdQuit:
		return false
	case ui.CmdToggle:
		if voice.State() == chime.StatePlaying {
			if err := voice.Pause(); err != nil {
				log.Printf("pause failed: %v", err)
			}
		} else {
			if err := voice.Play(); err != nil {
				log.Printf("play failed: %v", err)
			}
		}
	case ui.CmdVolume:
		// short ramp avoids zipper noise on volume steps
		voice.AnimateVolume(float32(cmd.Value), 50*time.Millisecond, nil)
	case ui.CmdPan:
		voice.SetPan(float32(cmd.Value))
	case ui.CmdLoop:
		voice.SetLoop(cmd.On)
	}
	return true
}

// watchFinished polls for non-looping end of playback.
func watchFinished(voice *chime.StreamingVoice, done chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if voice.Finished() {
			close(done)
			return
		}
	}
}

// statusLoop periodically pushes playback state into the TUI.
func statusLoop(dev *chime.AudioDevice, voice *chime.StreamingVoice, prog *tea.Program) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	rate := voice.Format().SampleRate
	for range ticker.C {
		prog.Send(ui.StatusMsg{
			State:      voice.State().String(),
			PlayedSecs: float64(voice.SamplesPlayed()) / float64(rate),
			QueueDepth: voice.BuffersQueued(),
			VoicesLive: dev.LiveResourceCount(),
		})
	}
}

func codecName(path string) string {
	switch filepath.Ext(path) {
	case ".ogg":
		return "vorbis"
	case ".qoa":
		return "qoa"
	case ".mp3":
		return "mp3"
	}
	return "pcm"
}
