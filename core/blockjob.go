package core

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// BlockJobResult carries the per-block diagnostics the console output
// advertises: pool-touching transaction count and wall-clock elapsed
// time for the block.
type BlockJobResult struct {
	BlockTime   string
	TxViewCount int
	PoolTxCount int
	Elapsed     time.Duration
}

// ProcessBlock runs the sequential stages (block-time extraction,
// structural indexing, skip-map construction, transaction location) on
// the main goroutine, then hands the located transactions to the
// parallel engine. buf must be a raw JSON block buffer padded with at
// least 32 zero bytes past its logical end, per the structural
// indexer's tail-batch contract.
func ProcessBlock(buf []byte, hot *HotAddressTable, sink BatchSink, cfg EngineConfig) BlockJobResult {
	start := time.Now()

	blockTime := ExtractBlockTime(buf)
	index := BuildStructuralIndex(buf)
	skip := BuildSkipMap(index, buf)
	txViews := FindTransactionViews(buf, index, skip)

	effectiveSink := sink
	var counted *countingSink
	if cfg.Metrics != nil {
		counted = &countingSink{inner: sink}
		effectiveSink = counted
	}

	poolTxCount := ProcessTransactionsParallel(txViews, hot, blockTime, effectiveSink, cfg)

	result := BlockJobResult{
		BlockTime:   blockTime,
		TxViewCount: len(txViews),
		PoolTxCount: poolTxCount,
		Elapsed:     time.Since(start),
	}

	logrus.WithFields(logrus.Fields{
		"block_time":    result.BlockTime,
		"tx_views":      result.TxViewCount,
		"pool_tx_count": result.PoolTxCount,
		"elapsed":       result.Elapsed,
	}).Info("ingestd: block processed")

	if cfg.Metrics != nil {
		cfg.Metrics.RecordBlock(result, int(atomic.LoadInt64(&counted.rows)), hot.Len())
	}

	return result
}
