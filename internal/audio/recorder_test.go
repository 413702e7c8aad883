package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestRecorderDeliversFinalizedWAV(t *testing.T) {
	ctx := &FakeContext{}

	var delivered []byte
	rec := NewRecorder(ctx, CaptureConfig{SampleRate: 16000, Channels: 1}, func(wav []byte) {
		delivered = wav
	})

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !rec.IsRecording() {
		t.Fatalf("expected recording state")
	}

	ctx.Feed([]byte{1, 2, 3, 4})
	ctx.Feed([]byte{5, 6})

	wav, err := rec.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if rec.IsRecording() {
		t.Fatalf("expected recording to have stopped")
	}

	if !bytes.Equal(wav, delivered) {
		t.Fatalf("callback blob differs from returned blob")
	}

	if len(wav) != WAVHeaderSize+6 {
		t.Fatalf("expected %d bytes, got %d", WAVHeaderSize+6, len(wav))
	}
	if !bytes.Equal(wav[WAVHeaderSize:], []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected PCM payload: %v", wav[WAVHeaderSize:])
	}
}

func TestRecorderPermissionDenied(t *testing.T) {
	ctx := &FakeContext{FailCapture: true}

	rec := NewRecorder(ctx, DefaultConfig(), nil)

	if err := rec.Start(); err == nil {
		t.Fatalf("expected error when capture is denied")
	}
	if rec.IsRecording() {
		t.Fatalf("recording must stay false on failure")
	}
	if rec.Err() == "" {
		t.Fatalf("expected a user-facing error string")
	}
}

func TestRecorderStartFailureReleasesDevice(t *testing.T) {
	ctx := &FakeContext{FailStart: true}

	rec := NewRecorder(ctx, DefaultConfig(), nil)

	if err := rec.Start(); err == nil {
		t.Fatalf("expected start failure")
	}
	if ctx.current == nil || !ctx.current.closed {
		t.Fatalf("device must be closed after a failed start")
	}
}

func TestRecorderSecondCycleResetsBuffer(t *testing.T) {
	ctx := &FakeContext{}
	rec := NewRecorder(ctx, CaptureConfig{SampleRate: 16000, Channels: 1}, nil)

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx.Feed([]byte{9, 9})
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if err := rec.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	ctx.Feed([]byte{1, 1})
	wav, err := rec.Stop()
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}

	if !bytes.Equal(wav[WAVHeaderSize:], []byte{1, 1}) {
		t.Fatalf("buffer must reset between cycles, got %v", wav[WAVHeaderSize:])
	}
}

func TestRecorderReleaseIsIdempotent(t *testing.T) {
	ctx := &FakeContext{}
	rec := NewRecorder(ctx, DefaultConfig(), nil)

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	rec.Release()
	rec.Release()

	if rec.IsRecording() {
		t.Fatalf("expected recording to be stopped after release")
	}
	if !ctx.current.closed {
		t.Fatalf("expected device closed after release")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{0, 1, 2, 3}
	wav := EncodeWAV(pcm, 16000, 1)

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad RIFF header: %q %q", wav[0:4], wav[8:12])
	}

	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Fatalf("expected 1 channel, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("expected data length %d, got %d", len(pcm), got)
	}
}
