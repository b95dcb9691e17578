package core

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// DefaultBatchCutoff is the default row-count threshold at which a
// worker flushes its accumulated builders mid-chunk.
const DefaultBatchCutoff = 10000

// BatchStream is a single worker's open write session to the data
// sink for the duration of one block.
type BatchStream interface {
	Write(batch *RecordBatch) error
	Close() error
}

// BatchSink opens a streaming write session. One stream is opened per
// worker at block start and closed at end-of-chunk.
type BatchSink interface {
	OpenStream() (BatchStream, error)
}

// EngineConfig controls the parallel transaction engine's tunables.
// Metrics is optional; a nil value disables per-block metrics recording
// entirely.
type EngineConfig struct {
	DataCenterSuffix string
	BatchCutoff      int
	Metrics          *IngestMetrics
}

// DefaultEngineConfig returns the engine's documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{DataCenterSuffix: "-1", BatchCutoff: DefaultBatchCutoff}
}

// ProcessTransactionsParallel partitions txViews across
// max(1, runtime.NumCPU()) worker goroutines, never more than
// len(txViews). Each worker takes a contiguous chunk of equal size and
// the last one also takes the remainder. Each worker filters for
// hot-pool transactions, resolves owners against hot, aggregates
// balances, and flushes record batches to its own sink stream. It
// returns the total count of pool-touching transactions seen across
// all workers.
//
// Workers coordinate on nothing but the Hot-Address Table's read lock
// and the sink's streaming writes; a write failure aborts only that
// worker's remaining output for the block.
func ProcessTransactionsParallel(txViews []TxKeyViews, hot *HotAddressTable, blockTime string, sink BatchSink, cfg EngineConfig) int {
	numThreads := runtime.NumCPU()
	if numThreads < 1 {
		numThreads = 1
	}
	total := len(txViews)
	if total == 0 {
		return 0
	}
	if numThreads > total {
		numThreads = total
	}
	chunkSize := total / numThreads

	var wg sync.WaitGroup
	var poolTxCounter int64

	for w := 0; w < numThreads; w++ {
		start := w * chunkSize
		if start >= total {
			break
		}
		end := start + chunkSize
		if w == numThreads-1 {
			end = total
		}

		wg.Add(1)
		go func(workerID, start, end int) {
			defer wg.Done()
			n := runWorker(workerID, txViews, start, end, hot, blockTime, sink, cfg)
			atomic.AddInt64(&poolTxCounter, int64(n))
		}(w, start, end)
	}

	wg.Wait()
	return int(poolTxCounter)
}

// runWorker processes the contiguous chunk [start,end) of txViews and
// returns the number of pool-touching transactions in that chunk,
// whether or not they yielded any rows.
func runWorker(workerID int, txViews []TxKeyViews, start, end int, hot *HotAddressTable, blockTime string, sink BatchSink, cfg EngineConfig) int {
	stream, err := sink.OpenStream()
	if err != nil {
		logrus.WithField("worker", workerID).Warnf("ingestd: sink connect failed, worker producing no rows: %v", err)
		return 0
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logrus.WithField("worker", workerID).Warnf("ingestd: sink stream close failed: %v", err)
		}
	}()

	builders := &ColumnBuilders{}
	txMap := make(OwnerMintMap)
	poolTxCount := 0
	aborted := false

	for txIdx := start; end > txIdx; txIdx++ {
		if aborted {
			break
		}
		tx := txViews[txIdx]

		accountAddrs := parseStringArray(tx.AccountKeys)
		writableAddrs := parseStringArray(tx.Writable)
		readonlyAddrs := parseStringArray(tx.Readonly)

		if !txTouchesHot(accountAddrs, hot) && !txTouchesHot(writableAddrs, hot) && !txTouchesHot(readonlyAddrs, hot) {
			continue
		}
		poolTxCount++

		indexToHot := buildIndexToHotMap(accountAddrs, writableAddrs, readonlyAddrs, hot)

		clear(txMap)
		aggregateBalances(tx.PreTokenBalances, txMap, true, indexToHot)
		aggregateBalances(tx.PostTokenBalances, txMap, false, indexToHot)

		signature := blockTime + "-" + strconv.Itoa(txIdx) + cfg.DataCenterSuffix
		for owner, byMint := range txMap {
			for mint, bal := range byMint {
				if bal.Pre == "" && bal.Post == "" {
					continue
				}
				builders.AppendRow(owner, signature, mint, bal.Pre, bal.Post)
			}
		}

		if builders.Len() >= cfg.BatchCutoff {
			if err := flushBuilders(builders, blockTime, stream); err != nil {
				logrus.WithField("worker", workerID).Warnf("ingestd: sink write failed, aborting remaining writes for this block: %v", err)
				aborted = true
			}
		}
	}

	if !aborted && builders.Len() > 0 {
		if err := flushBuilders(builders, blockTime, stream); err != nil {
			logrus.WithField("worker", workerID).Warnf("ingestd: final flush failed: %v", err)
		}
	}

	return poolTxCount
}

// txTouchesHot reports whether any address in addrs hashes to a hot
// entry.
func txTouchesHot(addrs [][]byte, hot *HotAddressTable) bool {
	for _, addr := range addrs {
		if hot.Contains(hashAddressBytes(addr)) {
			return true
		}
	}
	return false
}

// buildIndexToHotMap re-scans accountKeys, then writable, then
// readonly in that fixed order, assigning continuous account indices
// starting at 0 across all three. Each index whose address hashes to
// a hot entry is mapped to the canonical hot view. The first
// occurrence of a given index always wins since indices never repeat
// across the scan.
func buildIndexToHotMap(accountAddrs, writableAddrs, readonlyAddrs [][]byte, hot *HotAddressTable) map[int]string {
	out := make(map[int]string)
	idx := 0
	for _, group := range [][][]byte{accountAddrs, writableAddrs, readonlyAddrs} {
		for _, addr := range group {
			if canonical, ok := hot.Lookup(hashAddressBytes(addr)); ok {
				out[idx] = canonical
			}
			idx++
		}
	}
	return out
}

// aggregateBalances parses view as an array of token-balance objects
// and writes each into txMap, keyed by the canonical hot owner when
// the object's accountIndex is a hot match, or by its own owner field
// otherwise. Later occurrences for the same (owner,mint,side)
// overwrite earlier ones.
func aggregateBalances(view []byte, txMap OwnerMintMap, isPre bool, indexToHot map[int]string) {
	pos := 0
	for {
		obj, next, ok := parseTokenBalanceObject(view, pos)
		if !ok {
			return
		}
		pos = next

		var ownerKey string
		if canonical, hit := indexToHot[obj.accountIndex]; hit {
			ownerKey = canonical
		} else {
			ownerKey = string(obj.owner)
		}
		if ownerKey == "" {
			continue
		}

		bp := txMap.get(ownerKey, string(obj.mint))
		if isPre {
			bp.Pre = string(obj.balance)
		} else {
			bp.Post = string(obj.balance)
		}
	}
}

// hashAddressBytes hashes a byte-slice address view without an
// intermediate string allocation on the hot path. It must use the
// same hash function and seed as HashAddress so stored and
// candidate hashes compare equal.
func hashAddressBytes(addr []byte) uint64 {
	return xxhash.Sum64(addr)
}
