package core

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// IngestMetrics is a Prometheus registry of per-block and per-pool-event
// gauges/counters, exposed over an HTTP /metrics endpoint. It carries
// the tx-view count, pool-tx count and elapsed time that ProcessBlock
// also logs, plus rows emitted, hot address table size, goroutine
// count, blocks processed and pool updates applied.
type IngestMetrics struct {
	registry *prometheus.Registry

	txViewsGauge       prometheus.Gauge
	poolTxGauge        prometheus.Gauge
	hotAddressGauge    prometheus.Gauge
	blockElapsedGauge  prometheus.Gauge
	goroutinesGauge    prometheus.Gauge
	rowsCounter        prometheus.Counter
	blocksCounter      prometheus.Counter
	poolUpdatesCounter prometheus.Counter
}

// NewIngestMetrics builds and registers the full gauge/counter set on a
// fresh registry. Nothing is wired to an HTTP server until
// StartMetricsServer is called.
func NewIngestMetrics() *IngestMetrics {
	m := &IngestMetrics{registry: prometheus.NewRegistry()}

	m.txViewsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestd_block_tx_views",
		Help: "Transaction views located in the most recently processed block",
	})
	m.poolTxGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestd_block_pool_tx",
		Help: "Pool-touching transactions found in the most recently processed block",
	})
	m.hotAddressGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestd_hot_addresses",
		Help: "Current size of the hot address table",
	})
	m.blockElapsedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestd_block_elapsed_seconds",
		Help: "Wall-clock time spent on the most recently processed block",
	})
	m.goroutinesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestd_goroutines",
		Help: "Goroutines running in this process",
	})
	m.rowsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_rows_emitted_total",
		Help: "Rows written to the batch sink across all blocks",
	})
	m.blocksCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_blocks_processed_total",
		Help: "Blocks processed since startup",
	})
	m.poolUpdatesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_pool_updates_total",
		Help: "Pool-event messages applied to the hot address table",
	})

	m.registry.MustRegister(
		m.txViewsGauge,
		m.poolTxGauge,
		m.hotAddressGauge,
		m.blockElapsedGauge,
		m.goroutinesGauge,
		m.rowsCounter,
		m.blocksCounter,
		m.poolUpdatesCounter,
	)
	return m
}

// RecordBlock updates the per-block gauges and advances the
// monotonic counters from one BlockJobResult, the number of rows the
// block emitted to the sink, and the hot address table's current size.
func (m *IngestMetrics) RecordBlock(result BlockJobResult, rowsEmitted int, hotAddresses int) {
	m.txViewsGauge.Set(float64(result.TxViewCount))
	m.poolTxGauge.Set(float64(result.PoolTxCount))
	m.hotAddressGauge.Set(float64(hotAddresses))
	m.blockElapsedGauge.Set(result.Elapsed.Seconds())
	m.goroutinesGauge.Set(float64(runtime.NumGoroutine()))
	m.rowsCounter.Add(float64(rowsEmitted))
	m.blocksCounter.Inc()
}

// RecordPoolUpdate increments the pool-update counter by one.
func (m *IngestMetrics) RecordPoolUpdate() {
	m.poolUpdatesCounter.Inc()
}

// StartMetricsServer mounts the registry's collectors on /metrics and
// serves it on addr in the background. The returned server is the
// caller's to shut down.
func (m *IngestMetrics) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("ingestd: metrics server error: %v", err)
		}
	}()
	return srv
}

// ShutdownMetricsServer gracefully stops a server started by
// StartMetricsServer.
func (m *IngestMetrics) ShutdownMetricsServer(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}

// countingSink wraps a BatchSink so ProcessBlock can learn how many
// rows its streams actually wrote without changing BatchStream's
// interface or ProcessTransactionsParallel's signature.
type countingSink struct {
	inner BatchSink
	rows  int64
}

func (s *countingSink) OpenStream() (BatchStream, error) {
	stream, err := s.inner.OpenStream()
	if err != nil {
		return nil, err
	}
	return &countingStream{inner: stream, sink: s}, nil
}

type countingStream struct {
	inner BatchStream
	sink  *countingSink
}

func (s *countingStream) Write(batch *RecordBatch) error {
	if err := s.inner.Write(batch); err != nil {
		return err
	}
	atomic.AddInt64(&s.sink.rows, int64(batch.NumRows()))
	return nil
}

func (s *countingStream) Close() error {
	return s.inner.Close()
}
