package core

import (
	"context"
	"errors"
	"testing"
)

type fakeBatchSinkStream struct {
	sent   []*WriteBatchRequest
	closed bool
	failOn error
}

func (s *fakeBatchSinkStream) Send(req *WriteBatchRequest) error {
	if s.failOn != nil {
		return s.failOn
	}
	s.sent = append(s.sent, req)
	return nil
}

func (s *fakeBatchSinkStream) CloseAndRecv() (*WriteBatchResponse, error) {
	s.closed = true
	return &WriteBatchResponse{Accepted: int64(len(s.sent))}, nil
}

type fakeBatchSinkStubClient struct {
	stream *fakeBatchSinkStream
	failOn error
}

func (c *fakeBatchSinkStubClient) OpenWriteStream(ctx context.Context) (BatchSinkStream, error) {
	if c.failOn != nil {
		return nil, c.failOn
	}
	return c.stream, nil
}

func TestGRPCBatchSinkOpenStreamAndWrite(t *testing.T) {
	fakeStream := &fakeBatchSinkStream{}
	sink, err := DialBatchSink("127.0.0.1:0", true, &fakeBatchSinkStubClient{stream: fakeStream})
	if err != nil {
		t.Fatalf("DialBatchSink failed: %v", err)
	}
	defer sink.Close()

	stream, err := sink.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	pre := "1.5"
	batch := &RecordBatch{
		Wallet:    []string{"w1"},
		Signature: []string{"sig1"},
		Mint:      []string{"m1"},
		Pre:       []*string{&pre},
		Post:      []*string{nil},
		Metadata:  map[string]string{"timestamp": "100"},
	}
	if err := stream.Write(batch); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(fakeStream.sent) != 1 {
		t.Fatalf("expected 1 request sent, got %d", len(fakeStream.sent))
	}
	got := fakeStream.sent[0]
	if got.Wallet[0] != "w1" || got.Signature[0] != "sig1" || got.Mint[0] != "m1" {
		t.Fatalf("unexpected request contents: %+v", got)
	}
	if got.Metadata["timestamp"] != "100" {
		t.Fatalf("expected timestamp metadata to be carried through, got %+v", got.Metadata)
	}
	if got.StreamID == "" {
		t.Fatalf("expected a non-empty correlation id")
	}
	if !fakeStream.closed {
		t.Fatalf("expected underlying stream to be closed")
	}
}

func TestGRPCBatchSinkDistinctStreamIDs(t *testing.T) {
	client := &fakeBatchSinkStubClient{stream: &fakeBatchSinkStream{}}
	sink, err := DialBatchSink("127.0.0.1:0", true, client)
	if err != nil {
		t.Fatalf("DialBatchSink failed: %v", err)
	}
	defer sink.Close()

	s1, err := sink.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	s2, err := sink.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	id1 := s1.(*grpcBatchStream).id
	id2 := s2.(*grpcBatchStream).id
	if id1 == id2 {
		t.Fatalf("expected distinct correlation ids per stream, got %q twice", id1)
	}
}

func TestGRPCBatchSinkOpenStreamFailure(t *testing.T) {
	client := &fakeBatchSinkStubClient{failOn: errors.New("collector unavailable")}
	sink, err := DialBatchSink("127.0.0.1:0", true, client)
	if err != nil {
		t.Fatalf("DialBatchSink failed: %v", err)
	}
	defer sink.Close()

	if _, err := sink.OpenStream(); err == nil {
		t.Fatalf("expected OpenStream to surface the stub client's error")
	}
}

func TestGRPCBatchSinkWriteFailure(t *testing.T) {
	fakeStream := &fakeBatchSinkStream{failOn: errors.New("send failed")}
	sink, err := DialBatchSink("127.0.0.1:0", true, &fakeBatchSinkStubClient{stream: fakeStream})
	if err != nil {
		t.Fatalf("DialBatchSink failed: %v", err)
	}
	defer sink.Close()

	stream, err := sink.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	batch := &RecordBatch{Wallet: []string{"w1"}, Signature: []string{"sig1"}, Mint: []string{"m1"}, Pre: []*string{nil}, Post: []*string{nil}}
	if err := stream.Write(batch); err == nil {
		t.Fatalf("expected Write to surface the underlying send error")
	}
}
