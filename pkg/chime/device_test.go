// ABOUTME: Tests for AudioDevice lifecycle
// ABOUTME: Soft-fail construction, tick servicing and teardown ordering
package chime

import (
	"testing"

	"github.com/chime-audio/chime-go/pkg/audio"
	"github.com/chime-audio/chime-go/pkg/engine/enginetest"
)

var testFormat = audio.Format{
	Tag:           audio.FormatTagPCM,
	Channels:      2,
	SampleRate:    44100,
	BitsPerSample: 16,
}

// newTestDevice builds a device over a fake engine without the
// background loop; tests drive ticks by hand for determinism.
func newTestDevice(t *testing.T) (*AudioDevice, *enginetest.Fake) {
	t.Helper()
	fk := enginetest.New()
	d := newDevice(Config{Engine: fk}, false)
	if d.Failed() {
		t.Fatal("device construction failed against fake engine")
	}
	return d, fk
}

// sourceVoiceOf finds the fake native voice backing a source voice.
func sourceVoiceOf(t *testing.T, fk *enginetest.Fake, index int) *enginetest.FakeVoice {
	t.Helper()
	n := 0
	for _, v := range fk.Voices() {
		if v.Kind == "source" {
			if n == index {
				return v
			}
			n++
		}
	}
	t.Fatalf("no fake source voice at index %d", index)
	return nil
}

func TestNewSoftFailsWithoutDevices(t *testing.T) {
	fk := enginetest.New()
	fk.FailDevices = true

	d := newDevice(Config{Engine: fk}, false)
	if !d.Failed() {
		t.Fatal("expected failed device when enumeration fails")
	}
	if _, err := d.ObtainTransient(testFormat); err == nil {
		t.Error("expected obtain to fail on a dead device")
	}
	d.Close() // must not panic
}

func TestNewSoftFailsWhenMasterCreationFails(t *testing.T) {
	fk := enginetest.New()
	fk.FailMaster = true

	d := newDevice(Config{Engine: fk}, false)
	if !d.Failed() {
		t.Fatal("expected failed device when mastering voice creation fails")
	}
	d.Close()
}

func TestClosedDeviceRefusesObtain(t *testing.T) {
	d, _ := newTestDevice(t)
	d.Close()
	if _, err := d.ObtainPersistent(testFormat); err == nil {
		t.Error("expected obtain to fail after Close")
	}
}

func TestCloseStopsBackgroundLoop(t *testing.T) {
	fk := enginetest.New()
	d := New(Config{Engine: fk})
	if d.Failed() {
		t.Fatal("device construction failed")
	}
	d.Close()
	if !fk.Closed() {
		t.Error("engine not closed")
	}
	// done channel closed means the loop goroutine exited
	select {
	case <-d.done:
	default:
		t.Error("background loop still running after Close")
	}
}

func TestCloseOrdering(t *testing.T) {
	d, fk := newTestDevice(t)

	if _, err := d.ObtainTransient(testFormat); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateSubmix(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateReverb(); err != nil {
		t.Fatal(err)
	}

	d.Close()

	ops := fk.Ops()
	first := func(op string) int {
		for i, o := range ops {
			if o == op {
				return i
			}
		}
		t.Fatalf("op %q not found in %v", op, ops)
		return -1
	}
	last := func(op string) int {
		idx := -1
		for i, o := range ops {
			if o == op {
				idx = i
			}
		}
		if idx < 0 {
			t.Fatalf("op %q not found in %v", op, ops)
		}
		return idx
	}

	stopSrc := first("source stop flush=true")
	destroySrc := first("destroy source")
	lastSubmix := last("destroy submix")
	destroyMaster := first("destroy master")
	closeEngine := first("close engine")

	if stopSrc > destroySrc {
		t.Error("source destroyed before it was stopped")
	}
	if destroySrc > lastSubmix {
		t.Error("submix destroyed before source voices")
	}
	if lastSubmix > destroyMaster {
		t.Error("mastering voice destroyed before submixes")
	}
	if destroyMaster > closeEngine {
		t.Error("engine closed before mastering voice destroyed")
	}
	if closeEngine != len(ops)-1 {
		t.Errorf("close engine is not the final op: %v", ops)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	d, _ := newTestDevice(t)
	d.Close()
	d.Close()
}

func TestTransientAutoReturnsWhenDrained(t *testing.T) {
	d, fk := newTestDevice(t)
	defer d.Close()

	v, err := d.ObtainTransient(testFormat)
	if err != nil {
		t.Fatal(err)
	}
	buf := d.CreateBuffer(testFormat, make([]byte, 64), true)
	if err := v.SubmitBuffer(buf); err != nil {
		t.Fatal(err)
	}
	if err := v.Play(); err != nil {
		t.Fatal(err)
	}

	// still queued: the voice must not return yet
	d.runTick()
	if v.State() != StatePlaying {
		t.Fatalf("state = %v, want playing", v.State())
	}

	sourceVoiceOf(t, fk, 0).ConsumeBuffers(1)
	d.runTick()

	if v.State() != StateStopped {
		t.Fatalf("state = %v, want stopped after drain", v.State())
	}

	// the drained voice is back in the pool
	v2, err := d.ObtainTransient(testFormat)
	if err != nil {
		t.Fatal(err)
	}
	if v2 != v {
		t.Error("expected the drained transient voice to be recycled")
	}
}

func TestSyncGroupStartsAllVoicesTogether(t *testing.T) {
	d, fk := newTestDevice(t)
	defer d.Close()

	a, err := d.ObtainPersistent(testFormat)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.ObtainPersistent(testFormat)
	if err != nil {
		t.Fatal(err)
	}
	d.AddToSyncGroup("layers", &a.SourceVoice)
	d.AddToSyncGroup("layers", &b.SourceVoice)

	if a.State() != StateStopped || b.State() != StateStopped {
		t.Fatal("voices started before trigger")
	}

	d.TriggerSyncGroup("layers")

	if a.State() != StatePlaying || b.State() != StatePlaying {
		t.Error("sync group trigger did not start all voices")
	}
	if !sourceVoiceOf(t, fk, 0).Started || !sourceVoiceOf(t, fk, 1).Started {
		t.Error("native voices not started")
	}

	// a fired group is consumed
	d.TriggerSyncGroup("layers")
}

func TestLiveResourceCountTracksDisposal(t *testing.T) {
	d, _ := newTestDevice(t)
	defer d.Close()

	base := d.LiveResourceCount() // the mastering submix

	buf := d.CreateBuffer(testFormat, make([]byte, 16), true)
	sub, err := d.CreateSubmix()
	if err != nil {
		t.Fatal(err)
	}
	if got := d.LiveResourceCount(); got != base+2 {
		t.Errorf("live resources = %d, want %d", got, base+2)
	}

	buf.Dispose()
	sub.Dispose()
	if got := d.LiveResourceCount(); got != base {
		t.Errorf("live resources after dispose = %d, want %d", got, base)
	}

	// disposal is idempotent
	buf.Dispose()
	if got := d.LiveResourceCount(); got != base {
		t.Errorf("double dispose changed count to %d", got)
	}
}
