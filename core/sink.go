package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

//---------------------------------------------------------------------
// gRPC proto (compiled separately) – minimal stub interface here.
//---------------------------------------------------------------------

// WriteBatchRequest carries one record batch plus its metadata to the
// downstream collector.
type WriteBatchRequest struct {
	StreamID  string
	Wallet    []string
	Signature []string
	Mint      []string
	Pre       []*string
	Post      []*string
	Metadata  map[string]string
}

// WriteBatchResponse acknowledges a WriteBatchRequest.
type WriteBatchResponse struct {
	Accepted int64
}

// BatchSinkStubClient is the hand-written client-side stub for the
// downstream collector's streaming batch-write RPC.
type BatchSinkStubClient interface {
	OpenWriteStream(ctx context.Context) (BatchSinkStream, error)
}

// BatchSinkStream is one open streaming write session to the
// collector.
type BatchSinkStream interface {
	Send(req *WriteBatchRequest) error
	CloseAndRecv() (*WriteBatchResponse, error)
}

// GRPCBatchSink is the concrete BatchSink backed by a real gRPC
// ClientConn. One stream is opened per worker at block start and
// closed at end-of-chunk; the underlying connection is shared.
type GRPCBatchSink struct {
	conn   *grpc.ClientConn
	client BatchSinkStubClient
}

// DialBatchSink opens a gRPC connection to endpoint and wraps it with
// the caller-supplied stub client.
func DialBatchSink(endpoint string, insecureDial bool, client BatchSinkStubClient) (*GRPCBatchSink, error) {
	var opts []grpc.DialOption
	if insecureDial {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial batch sink %s: %w", endpoint, err)
	}
	return &GRPCBatchSink{conn: conn, client: client}, nil
}

// OpenStream opens one gRPC stream, tagged with a correlation id for
// the collector's own diagnostics.
func (s *GRPCBatchSink) OpenStream() (BatchStream, error) {
	grpcStream, err := s.client.OpenWriteStream(context.Background())
	if err != nil {
		return nil, fmt.Errorf("open sink stream: %w", err)
	}
	return &grpcBatchStream{id: uuid.NewString(), stream: grpcStream}, nil
}

// Close releases the underlying gRPC connection.
func (s *GRPCBatchSink) Close() error {
	return s.conn.Close()
}

// grpcSinkStubClient is the default BatchSinkStubClient: a
// placeholder for the generated protobuf client. Its streams accept
// every batch and count rows without touching the gRPC connection.
type grpcSinkStubClient struct{}

// NewGRPCSinkStubClient returns the default BatchSinkStubClient for
// endpoint. The endpoint is accepted for symmetry with the real
// generated client's constructor and currently unused by the
// placeholder.
func NewGRPCSinkStubClient(_ string) BatchSinkStubClient {
	return &grpcSinkStubClient{}
}

func (grpcSinkStubClient) OpenWriteStream(_ context.Context) (BatchSinkStream, error) {
	return &grpcSinkStream{}, nil
}

// grpcSinkStream is the placeholder stream backing grpcSinkStubClient.
type grpcSinkStream struct {
	accepted int64
}

func (s *grpcSinkStream) Send(req *WriteBatchRequest) error {
	s.accepted += int64(len(req.Wallet))
	return nil
}

func (s *grpcSinkStream) CloseAndRecv() (*WriteBatchResponse, error) {
	return &WriteBatchResponse{Accepted: s.accepted}, nil
}

// grpcBatchStream adapts a BatchSinkStream to the engine's
// BatchStream contract.
type grpcBatchStream struct {
	id     string
	stream BatchSinkStream
}

func (w *grpcBatchStream) Write(batch *RecordBatch) error {
	req := &WriteBatchRequest{
		StreamID:  w.id,
		Wallet:    batch.Wallet,
		Signature: batch.Signature,
		Mint:      batch.Mint,
		Pre:       batch.Pre,
		Post:      batch.Post,
		Metadata:  batch.Metadata,
	}
	return w.stream.Send(req)
}

func (w *grpcBatchStream) Close() error {
	_, err := w.stream.CloseAndRecv()
	return err
}
