package audio

import (
	"fmt"
	"sync"
)

// Recorder accumulates microphone chunks into an in-memory buffer and hands a
// single finalized WAV blob to the completion callback on stop.
//
// The backend context is acquired once and reused across start/stop cycles;
// the capture device itself is fully released on every stop so the microphone
// is never held open between answers.
type Recorder struct {
	ctx        Context
	cfg        CaptureConfig
	onComplete func(wav []byte)

	mu        sync.Mutex
	device    CaptureDevice
	buf       []byte
	recording bool
	lastErr   string
}

// NewRecorder creates a Recorder on top of the given backend context.
// onComplete may be nil; Stop still returns the finalized blob.
func NewRecorder(ctx Context, cfg CaptureConfig, onComplete func(wav []byte)) *Recorder {
	if cfg.SampleRate == 0 || cfg.Channels == 0 {
		cfg = DefaultConfig()
	}

	return &Recorder{
		ctx:        ctx,
		cfg:        cfg,
		onComplete: onComplete,
	}
}

// Start opens the capture device, resets the buffer and begins appending
// chunks. Device errors (permission denied, device unavailable) are surfaced
// immediately; no retry happens here.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return nil
	}

	r.buf = r.buf[:0]
	r.lastErr = ""

	device, err := r.ctx.NewCapture(nil, r.cfg, func(data []byte, _ uint32) {
		r.mu.Lock()
		if r.recording {
			r.buf = append(r.buf, data...)
		}
		r.mu.Unlock()
	})
	if err != nil {
		r.lastErr = fmt.Sprintf("microphone unavailable: %v", err)
		return fmt.Errorf("opening capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Close()
		r.lastErr = fmt.Sprintf("starting capture failed: %v", err)
		return fmt.Errorf("starting capture device: %w", err)
	}

	r.device = device
	r.recording = true

	return nil
}

// Stop finalizes the buffer into a WAV blob, releases the device and invokes
// the completion callback. Calling Stop while not recording returns nil.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()

	if !r.recording {
		r.mu.Unlock()
		return nil, nil
	}

	r.recording = false
	r.releaseLocked()

	pcm := make([]byte, len(r.buf))
	copy(pcm, r.buf)
	r.buf = r.buf[:0]
	cfg := r.cfg
	onComplete := r.onComplete
	r.mu.Unlock()

	wav := EncodeWAV(pcm, cfg.SampleRate, cfg.Channels)

	if onComplete != nil {
		onComplete(wav)
	}

	return wav, nil
}

// Release stops and closes the capture device without finalizing a blob. It
// is the single cleanup routine shared by the success, teardown and error
// exit paths, and is safe to call repeatedly.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recording = false
	r.releaseLocked()
}

func (r *Recorder) releaseLocked() {
	if r.device == nil {
		return
	}
	r.device.Stop()
	r.device.Close()
	r.device = nil
}

// IsRecording reports whether a capture is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Err returns the last device error as a user-facing string, empty when the
// previous start succeeded.
func (r *Recorder) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
