package core

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/sirupsen/logrus"
)

// SharedMemoryHandshake implements the producer-consumer handshake
// over a named shared-memory region. Byte 0 is the flag (producer
// writes 1, consumer writes 0 on completion); bytes 1..8 hold the
// little-endian unaligned payload length; the payload begins at
// DataOffset and is null-padded at least 32 bytes past its logical
// end.
//
// On Linux a POSIX shared-memory object is a regular file under
// /dev/shm; this handshake attaches to it the same way, through an
// ordinary memory-mapped file rather than raw shm_open/mmap syscalls.
type SharedMemoryHandshake struct {
	FlagOffset int64
	SizeOffset int64
	DataOffset int64
	PollEvery  time.Duration

	file   *os.File
	region mmap.MMap
}

// AttachSharedMemory opens and memory-maps the named region for
// read/write. A failure here is startup-fatal.
func AttachSharedMemory(name string, sizeBytes int64, flagOffset, sizeOffset, dataOffset int64, pollEvery time.Duration) (*SharedMemoryHandshake, error) {
	return AttachSharedMemoryAt(shmPath(name), sizeBytes, flagOffset, sizeOffset, dataOffset, pollEvery)
}

// AttachSharedMemoryAt is AttachSharedMemory against an explicit file
// path rather than a resolved /dev/shm object name; it exists so the
// handshake can be exercised against an ordinary file in tests.
func AttachSharedMemoryAt(path string, sizeBytes int64, flagOffset, sizeOffset, dataOffset int64, pollEvery time.Duration) (*SharedMemoryHandshake, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("attach shared memory %s: %w", path, err)
	}
	region, err := mmap.MapRegion(f, int(sizeBytes), mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap shared memory %s: %w", path, err)
	}
	return &SharedMemoryHandshake{
		FlagOffset: flagOffset,
		SizeOffset: sizeOffset,
		DataOffset: dataOffset,
		PollEvery:  pollEvery,
		file:       f,
		region:     region,
	}, nil
}

// shmPath maps a shared-memory object name to its backing file path
// the way the Linux POSIX shm implementation does.
func shmPath(name string) string {
	return "/dev/shm/" + name
}

// Close unmaps the region and releases the backing file descriptor.
func (h *SharedMemoryHandshake) Close() error {
	if err := h.region.Unmap(); err != nil {
		return err
	}
	return h.file.Close()
}

// Ready reports whether the producer has set the flag byte to 1.
func (h *SharedMemoryHandshake) Ready() bool {
	return h.region[h.FlagOffset] == 1
}

// MarkDone resets the flag byte to 0, signalling the producer that
// the consumer has finished with the current payload.
func (h *SharedMemoryHandshake) MarkDone() {
	h.region[h.FlagOffset] = 0
}

// PayloadLength reads the unaligned little-endian 64-bit length field.
// The field is not 8-byte aligned in the region, so it is read
// byte-by-byte rather than through a typed pointer cast.
func (h *SharedMemoryHandshake) PayloadLength() uint64 {
	return binary.LittleEndian.Uint64(h.region[h.SizeOffset : h.SizeOffset+8])
}

// Payload returns the data region starting at DataOffset, truncated to
// length n. A length exceeding the mapped region is a
// per-block-recoverable error: the caller should warn, call MarkDone,
// and continue to the next poll.
func (h *SharedMemoryHandshake) Payload(n uint64) ([]byte, error) {
	capacity := uint64(len(h.region)) - uint64(h.DataOffset)
	if n > capacity {
		return nil, fmt.Errorf("payload length %d exceeds region capacity %d", n, capacity)
	}
	return h.region[h.DataOffset : uint64(h.DataOffset)+n], nil
}

// PollLoop blocks the calling goroutine, invoking onReady with each
// ready payload until stop is closed. The flag is always reset after
// each invocation; a payload length exceeding the region is logged,
// the flag reset, and polling continues.
func (h *SharedMemoryHandshake) PollLoop(stop <-chan struct{}, onReady func(payload []byte)) {
	ticker := time.NewTicker(h.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !h.Ready() {
				continue
			}
			n := h.PayloadLength()
			payload, err := h.Payload(n)
			if err != nil {
				logrus.Warnf("ingestd: %v", err)
				h.MarkDone()
				continue
			}
			onReady(payload)
			h.MarkDone()
		}
	}
}
