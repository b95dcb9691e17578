// Package cli holds the ingest parser's operator subcommands: manual
// pool registration and one-shot local file processing, for use
// outside the daemon's shared-memory/pubsub wiring.
package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/solpool/ingestd/core"
)

var (
	hotOnce sync.Once
	hotMu   sync.RWMutex
	hot     *core.HotAddressTable
)

func poolInit(cmd *cobra.Command, _ []string) error {
	hotOnce.Do(func() {
		hotMu.Lock()
		hot = core.NewHotAddressTable()
		hotMu.Unlock()
	})
	return nil
}

// HotAddressTable returns the process-wide hot-address table used by
// the CLI subcommands. It is exported so a hosting binary can seed it
// or hand it to the daemon's own components.
func HotAddressTable() *core.HotAddressTable {
	hotMu.RLock()
	defer hotMu.RUnlock()
	return hot
}

func poolSeed(cmd *cobra.Command, args []string) error {
	hotMu.RLock()
	t := hot
	hotMu.RUnlock()
	n, err := t.SeedFromFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d hot addresses from %s\n", n, args[0])
	return nil
}

func poolAdd(cmd *cobra.Command, args []string) error {
	hotMu.RLock()
	t := hot
	hotMu.RUnlock()
	t.AddPool(args[0], args[1])
	fmt.Fprintf(cmd.OutOrStdout(), "added pool base=%s quote=%s, table now holds %d addresses\n", args[0], args[1], t.Len())
	return nil
}

func poolLen(cmd *cobra.Command, _ []string) error {
	hotMu.RLock()
	t := hot
	hotMu.RUnlock()
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", t.Len())
	return nil
}

var poolCmd = &cobra.Command{Use: "pool", Short: "Manage the hot-address table", PersistentPreRunE: poolInit}
var poolSeedCmd = &cobra.Command{Use: "seed <file>", Short: "Seed hot addresses from a file", Args: cobra.ExactArgs(1), RunE: poolSeed}
var poolAddCmd = &cobra.Command{Use: "add <base-vault> <quote-vault>", Short: "Register a pool's two vault addresses", Args: cobra.ExactArgs(2), RunE: poolAdd}
var poolLenCmd = &cobra.Command{Use: "len", Short: "Report the number of seeded hot addresses", RunE: poolLen}

func init() {
	poolCmd.AddCommand(poolSeedCmd)
	poolCmd.AddCommand(poolAddCmd)
	poolCmd.AddCommand(poolLenCmd)
}

// PoolCmd is the hot-address management subcommand, exported for
// mounting in a hosting main package.
var PoolCmd = poolCmd
