// ABOUTME: Resource registry primitives
// ABOUTME: Slab registration of live resources without owning references
package chime

// AudioResource is the base contract of every disposable object owned
// by callers of an AudioDevice. Disposal is idempotent.
type AudioResource interface {
	Dispose()
	IsDisposed() bool
}

// resKind partitions registered resources for teardown ordering.
type resKind uint8

const (
	resSource resKind = iota
	resSubmix
	resReverb
	resBuffer
)

// resourceBase is embedded by every resource. It registers itself into
// the device's slab at construction and deregisters at disposal; the
// device holds only the slab index, never an owning reference, so there
// is no destruction-order cycle between device and resource.
type resourceBase struct {
	dev      *AudioDevice
	regIndex int
	disposed bool
}

func (b *resourceBase) IsDisposed() bool {
	return b.disposed
}

type regEntry struct {
	res  AudioResource
	base *resourceBase
	kind resKind

	// teardown hooks, invoked with the device lock held
	stop    func()
	dispose func()
}

// registerLocked appends the resource to the slab and records its
// index. Caller holds the device lock.
func (d *AudioDevice) registerLocked(res AudioResource, base *resourceBase, kind resKind, stop, dispose func()) {
	base.dev = d
	base.regIndex = len(d.resources)
	d.resources = append(d.resources, regEntry{res: res, base: base, kind: kind, stop: stop, dispose: dispose})
}

// deregisterLocked swap-removes the resource's slab entry and fixes up
// the moved entry's stored index. Caller holds the device lock.
func (d *AudioDevice) deregisterLocked(base *resourceBase) {
	i := base.regIndex
	if i < 0 || i >= len(d.resources) || d.resources[i].base != base {
		return
	}
	last := len(d.resources) - 1
	d.resources[i] = d.resources[last]
	d.resources[i].base.regIndex = i
	d.resources = d.resources[:last]
	base.regIndex = -1
}

// LiveResourceCount returns the number of registered, undisposed
// resources. Mainly useful for leak assertions in tests.
func (d *AudioDevice) LiveResourceCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resources)
}
