// Package audio acquires microphone input and turns a recording into a single
// finalized WAV blob for submission.
package audio

// DataCallback receives raw PCM chunks as the device produces them.
type DataCallback func(data []byte, frameCount uint32)

// CaptureConfig holds the PCM format requested from the device.
type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// DeviceInfo identifies a capture device.
type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Context owns the platform audio backend and enumerates capture devices.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig, callback DataCallback) (CaptureDevice, error)
	Close()
}

// CaptureDevice is a single open microphone stream.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
}

// DefaultConfig is the capture format used when nothing is configured:
// 16 kHz mono, matching what speech backends expect.
func DefaultConfig() CaptureConfig {
	return CaptureConfig{SampleRate: 16000, Channels: 1}
}
