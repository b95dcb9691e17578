package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/sirupsen/logrus"
)

// poolEventMessage is the wire shape of a pool-creation notification:
// {"base_mint","quote_mint","base_vault","quote_vault"}. Only the two
// vault fields are consumed.
type poolEventMessage struct {
	BaseMint   string `json:"base_mint"`
	QuoteMint  string `json:"quote_mint"`
	BaseVault  string `json:"base_vault"`
	QuoteVault string `json:"quote_vault"`
}

// PoolEventSubscriber is a long-lived subscription to the pool-update
// topic. It runs a blocking receive loop on its own goroutine; no
// unbounded queue is needed because each message's work (decode, add
// two addresses) is O(1) and bounded.
type PoolEventSubscriber struct {
	ctx     context.Context
	cancel  context.CancelFunc
	topic   *pubsub.Topic
	sub     *pubsub.Subscription
	metrics *IngestMetrics
}

// SetMetrics attaches an optional metrics recorder; every subsequently
// applied pool-event message increments its pool-update counter. Passing
// nil disables this.
func (s *PoolEventSubscriber) SetMetrics(m *IngestMetrics) {
	s.metrics = m
}

// NewPoolEventSubscriber creates a libp2p host, joins gossipsub on
// topic, and subscribes. A failure here is not startup-fatal: the
// caller may choose to run without pool-growth and rely solely on the
// seed file, logging a warning instead.
func NewPoolEventSubscriber(listenAddr, topic string) (*PoolEventSubscriber, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(listenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create pool-event host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("create pool-event pubsub: %w", err)
	}

	t, err := ps.Join(topic)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("join pool-event topic %s: %w", topic, err)
	}

	sub, err := t.Subscribe()
	if err != nil {
		t.Close()
		h.Close()
		cancel()
		return nil, fmt.Errorf("subscribe to pool-event topic %s: %w", topic, err)
	}

	return &PoolEventSubscriber{ctx: ctx, cancel: cancel, topic: t, sub: sub}, nil
}

// Run blocks, decoding every incoming message and calling
// hot.AddPool for well-formed ones. Malformed messages are logged and
// skipped; subscription errors never affect the parsing path, they
// simply end the loop when the context is cancelled via Close.
func (s *PoolEventSubscriber) Run(hot *HotAddressTable) {
	for {
		msg, err := s.sub.Next(s.ctx)
		if err != nil {
			logrus.Warnf("ingestd: pool-event subscription ended: %v", err)
			return
		}
		if applyPoolEventMessage(hot, msg.Data) && s.metrics != nil {
			s.metrics.RecordPoolUpdate()
		}
	}
}

// applyPoolEventMessage decodes one raw pool-event payload and, if
// well-formed, adds its vaults to hot. Malformed or incomplete
// messages are logged and skipped. It reports whether the message was
// applied.
func applyPoolEventMessage(hot *HotAddressTable, data []byte) bool {
	var evt poolEventMessage
	if err := json.Unmarshal(data, &evt); err != nil {
		logrus.Warnf("ingestd: malformed pool-event message, skipping: %v", err)
		return false
	}
	if evt.BaseVault == "" || evt.QuoteVault == "" {
		logrus.Warnf("ingestd: pool-event message missing vault fields, skipping")
		return false
	}

	hot.AddPool(evt.BaseVault, evt.QuoteVault)
	logrus.Infof("ingestd: pool update added base=%s quote=%s", evt.BaseVault, evt.QuoteVault)
	return true
}

// Close cancels the subscription context and releases the
// subscription and topic handles.
func (s *PoolEventSubscriber) Close() {
	s.sub.Cancel()
	s.topic.Close()
	s.cancel()
}
