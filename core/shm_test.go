package core

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegion(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shm_region")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create region file: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate region file: %v", err)
	}
	return path
}

func TestSharedMemoryHandshakeReadyAndPayload(t *testing.T) {
	path := newTestRegion(t, 1024)
	h, err := AttachSharedMemoryAt(path, 1024, 0, 1, 9, time.Millisecond)
	if err != nil {
		t.Fatalf("AttachSharedMemoryAt failed: %v", err)
	}
	defer h.Close()

	if h.Ready() {
		t.Fatalf("expected region to not be ready before flag set")
	}

	payload := []byte(`{"blockTime":1}`)
	binary.LittleEndian.PutUint64(h.region[1:9], uint64(len(payload)))
	copy(h.region[9:], payload)
	h.region[0] = 1

	if !h.Ready() {
		t.Fatalf("expected region to be ready after flag set")
	}
	if got := h.PayloadLength(); got != uint64(len(payload)) {
		t.Fatalf("expected payload length %d, got %d", len(payload), got)
	}
	got, err := h.Payload(h.PayloadLength())
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected payload %q, got %q", payload, got)
	}

	h.MarkDone()
	if h.Ready() {
		t.Fatalf("expected region to not be ready after MarkDone")
	}
}

func TestSharedMemoryHandshakePayloadTooLarge(t *testing.T) {
	path := newTestRegion(t, 64)
	h, err := AttachSharedMemoryAt(path, 64, 0, 1, 9, time.Millisecond)
	if err != nil {
		t.Fatalf("AttachSharedMemoryAt failed: %v", err)
	}
	defer h.Close()

	if _, err := h.Payload(1000); err == nil {
		t.Fatalf("expected error for payload length exceeding region capacity")
	}
}

func TestSharedMemoryHandshakeAttachMissingFile(t *testing.T) {
	if _, err := AttachSharedMemoryAt(filepath.Join(t.TempDir(), "missing"), 1024, 0, 1, 9, time.Millisecond); err == nil {
		t.Fatalf("expected error attaching to a nonexistent region")
	}
}

func TestSharedMemoryHandshakePollLoop(t *testing.T) {
	path := newTestRegion(t, 1024)
	h, err := AttachSharedMemoryAt(path, 1024, 0, 1, 9, time.Millisecond)
	if err != nil {
		t.Fatalf("AttachSharedMemoryAt failed: %v", err)
	}
	defer h.Close()

	payload := []byte(`{}`)
	binary.LittleEndian.PutUint64(h.region[1:9], uint64(len(payload)))
	copy(h.region[9:], payload)
	h.region[0] = 1

	stop := make(chan struct{})
	done := make(chan []byte, 1)
	go h.PollLoop(stop, func(p []byte) {
		done <- append([]byte(nil), p...)
		close(stop)
	})

	select {
	case got := <-done:
		if string(got) != string(payload) {
			t.Fatalf("expected %q, got %q", payload, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for PollLoop to observe the ready flag")
	}
}
