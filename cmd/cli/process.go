package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/solpool/ingestd/core"
)

// countingStream is a local BatchStream that only tallies rows, for
// one-shot file processing runs where there is no live collector to
// send to.
type countingStream struct{ rows int }

func (s *countingStream) Write(batch *core.RecordBatch) error {
	s.rows += batch.NumRows()
	return nil
}

func (s *countingStream) Close() error { return nil }

// countingSink opens a fresh countingStream per worker and aggregates
// their totals once every worker has closed.
type countingSink struct {
	mu      sync.Mutex
	streams []*countingStream
}

func (s *countingSink) OpenStream() (core.BatchStream, error) {
	st := &countingStream{}
	s.mu.Lock()
	s.streams = append(s.streams, st)
	s.mu.Unlock()
	return st, nil
}

func (s *countingSink) total() int {
	n := 0
	for _, st := range s.streams {
		n += st.rows
	}
	return n
}

func processFile(cmd *cobra.Command, args []string) error {
	hotMu.RLock()
	t := hot
	hotMu.RUnlock()
	if t == nil {
		t = core.NewHotAddressTable()
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	padded := make([]byte, len(buf)+32)
	copy(padded, buf)

	sink := &countingSink{}
	result := core.ProcessBlock(padded, t, sink, core.DefaultEngineConfig())

	fmt.Fprintf(cmd.OutOrStdout(), "block_time=%s tx_views=%d pool_tx=%d rows=%d elapsed=%s\n",
		result.BlockTime, result.TxViewCount, result.PoolTxCount, sink.total(), result.Elapsed)
	return nil
}

var processCmd = &cobra.Command{
	Use:               "process <block-json-file>",
	Short:             "Run the ingest pipeline once against a local block JSON file",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: poolInit,
	RunE:              processFile,
}

// ProcessCmd is the one-shot local file processing subcommand,
// exported for mounting in a hosting main package.
var ProcessCmd = processCmd
