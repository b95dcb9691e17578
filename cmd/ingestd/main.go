// cmd/ingestd/main.go – entrypoint for the Solana hot-pool ingest
// parser daemon.
//
//	$ ingestd /etc/ingestd/hot_addresses.txt
package main

import (
	"context"
	"os"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solpool/ingestd/cmd/cli"
	"github.com/solpool/ingestd/core"
	"github.com/solpool/ingestd/pkg/config"
)

func main() {
	root := &cobra.Command{
		Use:   "ingestd <hot-address-seed-file>",
		Short: "Solana hot-pool ingest parser daemon",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.PersistentFlags().String("env", "", "config environment to merge on top of defaults")
	root.AddCommand(cli.PoolCmd)
	root.AddCommand(cli.ProcessCmd)

	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	seedPath := args[0]

	env, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	configureLogging(cfg.Logging.Level)

	logrus.WithFields(logrus.Fields{
		"avx2":   cpuid.CPU.Has(cpuid.AVX2),
		"pclmul": cpuid.CPU.Has(cpuid.CLMUL),
	}).Info("ingestd: starting (structural indexer runs a portable equivalent regardless of hardware support)")

	hot := core.NewHotAddressTable()
	n, err := hot.SeedFromFile(seedPath)
	if err != nil {
		return err
	}
	logrus.Infof("ingestd: seeded %d hot addresses from %s", n, seedPath)

	shm, err := core.AttachSharedMemory(
		cfg.SharedMemory.Name,
		cfg.SharedMemory.SizeBytes,
		cfg.SharedMemory.FlagOffset,
		cfg.SharedMemory.SizeOffset,
		cfg.SharedMemory.DataOffset,
		time.Duration(cfg.SharedMemory.PollInterval)*time.Microsecond,
	)
	if err != nil {
		return err
	}
	defer shm.Close()

	var metrics *core.IngestMetrics
	if cfg.Metrics.Enabled {
		metrics = core.NewIngestMetrics()
		metricsSrv := metrics.StartMetricsServer(cfg.Metrics.ListenAddr)
		defer metricsSrv.Shutdown(context.Background())
		logrus.Infof("ingestd: metrics listening on %s", cfg.Metrics.ListenAddr)
	}

	if sub, err := core.NewPoolEventSubscriber(cfg.PoolEvents.ListenAddr, cfg.PoolEvents.Topic); err != nil {
		logrus.Warnf("ingestd: pool-event subscriber unavailable, running seed-only: %v", err)
	} else {
		sub.SetMetrics(metrics)
		defer sub.Close()
		go sub.Run(hot)
	}

	sink, err := core.DialBatchSink(cfg.Sink.Endpoint, cfg.Sink.Insecure, core.NewGRPCSinkStubClient(cfg.Sink.Endpoint))
	if err != nil {
		return err
	}
	defer sink.Close()

	engineCfg := core.EngineConfig{
		DataCenterSuffix: cfg.DataCenterSuffix,
		BatchCutoff:      cfg.Sink.BatchCutoff,
		Metrics:          metrics,
	}

	stop := make(chan struct{})
	shm.PollLoop(stop, func(payload []byte) {
		core.ProcessBlock(payload, hot, sink, engineCfg)
	})
	return nil
}

func configureLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
