package audio

import (
	"errors"
	"sync"
)

// FakeContext is an in-memory backend for tests and dry runs. Feed pushes
// synthetic PCM into whatever capture is currently running.
type FakeContext struct {
	// FailCapture simulates a denied or missing microphone.
	FailCapture bool
	// FailStart simulates a device that opens but cannot start.
	FailStart bool

	mu      sync.Mutex
	current *fakeDevice
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "Fake Microphone"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig, callback DataCallback) (CaptureDevice, error) {
	if f.FailCapture {
		return nil, errors.New("permission denied")
	}

	dev := &fakeDevice{callback: callback, failStart: f.FailStart}

	f.mu.Lock()
	f.current = dev
	f.mu.Unlock()

	return dev, nil
}

func (f *FakeContext) Close() {}

// Feed delivers a synthetic PCM chunk to the running capture, if any.
func (f *FakeContext) Feed(data []byte) {
	f.mu.Lock()
	dev := f.current
	f.mu.Unlock()

	if dev == nil {
		return
	}
	dev.feed(data)
}

type fakeDevice struct {
	callback  DataCallback
	failStart bool

	mu      sync.Mutex
	started bool
	closed  bool
}

func (d *fakeDevice) Start() error {
	if d.failStart {
		return errors.New("device unavailable")
	}

	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Stop() {
	d.mu.Lock()
	d.started = false
	d.mu.Unlock()
}

func (d *fakeDevice) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *fakeDevice) feed(data []byte) {
	d.mu.Lock()
	started := d.started
	cb := d.callback
	d.mu.Unlock()

	if started && cb != nil {
		cb(data, uint32(len(data)/2))
	}
}
