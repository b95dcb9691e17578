package core

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// HotAddressTable is the mutable set+map of pool vault addresses keyed
// by a 64-bit hash. It is seeded from a file at startup, grows on each
// pool-event, and lives for the process lifetime; it is never shrunk.
//
// storage is append-only: once a string is stored, its backing array
// never moves (Go strings are immutable, so storing string values
// rather than byte slices into a shared buffer means append-and-grow
// on the slice header never invalidates a previously returned string).
type HotAddressTable struct {
	mu         sync.RWMutex
	storage    []string
	hashes     map[uint64]struct{}
	hashToAddr map[uint64]string
}

// NewHotAddressTable returns an empty table ready for seeding.
func NewHotAddressTable() *HotAddressTable {
	return &HotAddressTable{
		hashes:     make(map[uint64]struct{}),
		hashToAddr: make(map[uint64]string),
	}
}

// HashAddress computes the 64-bit non-cryptographic hash used both for
// stored canonical addresses and for candidate addresses scanned out
// of a transaction. The zero seed is part of the external contract:
// the same function must be used on both sides or lookups silently
// fail to match.
func HashAddress(addr string) uint64 {
	return xxhash.Sum64String(addr)
}

// add is the unlocked insert used by both SeedFromFile and AddPool.
func (t *HotAddressTable) add(addr string) {
	t.storage = append(t.storage, addr)
	h := HashAddress(addr)
	t.hashes[h] = struct{}{}
	t.hashToAddr[h] = addr
}

// SeedFromFile consumes newline-separated addresses; each nonempty
// line is stored and indexed. Intended to be called once before any
// worker starts.
func (t *HotAddressTable) SeedFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open hot address seed file: %w", err)
	}
	defer f.Close()

	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		t.add(line)
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read hot address seed file: %w", err)
	}
	return n, nil
}

// AddPool adds two addresses (a pool's base and quote vault) under a
// write-exclusive lock. After return both are visible to all
// subsequent reads.
func (t *HotAddressTable) AddPool(baseVault, quoteVault string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.add(baseVault)
	t.add(quoteVault)
}

// Contains reports whether hash matches a stored address. It takes the
// shared lock for this one lookup only.
func (t *HotAddressTable) Contains(hash uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.hashes[hash]
	return ok
}

// Lookup returns the canonical stored address for hash, if any.
// Collisions are accepted as matches by design: the address space is
// short and the false-positive rate is negligible for this domain, but
// callers that mutate state on a hash match should treat the returned
// string as canonical rather than re-deriving it from the source
// bytes.
func (t *HotAddressTable) Lookup(hash uint64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addr, ok := t.hashToAddr[hash]
	return addr, ok
}

// Len returns the number of addresses currently stored.
func (t *HotAddressTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.storage)
}
