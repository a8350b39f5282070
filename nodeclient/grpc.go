package nodeclient

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GrpcDialer is a factory for creating GRPC connections to cluster nodes.
type GrpcDialer struct{}

// NewGrpcDialer creates a new GrpcDialer.
func NewGrpcDialer() *GrpcDialer {
	return &GrpcDialer{}
}

// DialContext creates a new GRPC connection to the given replica. It blocks
// until the connection is established and ready, or the context is canceled.
func (d *GrpcDialer) DialContext(ctx context.Context, replica Replica) (Conn, error) {
	creds := insecure.NewCredentials()

	opts := []grpc.DialOption{
		grpc.WithBlock(),
		grpc.WithTransportCredentials(creds),
	}

	if replica.User != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(basicAuth{
			user:     replica.User,
			password: replica.Password,
		}))
	}

	grpcConn, err := grpc.DialContext(ctx, replica.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial failed: %w", err)
	}

	return &GrpcConn{
		addr:   replica.Addr,
		conn:   grpcConn,
		health: healthpb.NewHealthClient(grpcConn),
	}, nil
}

// basicAuth attaches per-request credentials as GRPC metadata.
type basicAuth struct {
	user     string
	password string
}

func (a basicAuth) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{
		"username": a.user,
		"password": a.password,
	}, nil
}

func (a basicAuth) RequireTransportSecurity() bool {
	return false
}

// GrpcConn is a GRPC-backed connection to a single cluster node.
type GrpcConn struct {
	addr   string
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	closed uint32
}

// Addr returns the address the connection was established to.
func (c *GrpcConn) Addr() string {
	return c.addr
}

// Ping checks the node through the standard GRPC health service.
func (c *GrpcConn) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("node is not serving: %s", resp.Status)
	}

	return nil
}

// Raw exposes the underlying GRPC connection for the query engine to
// register its own service clients on.
func (c *GrpcConn) Raw() *grpc.ClientConn {
	return c.conn
}

// Close closes the underlying GRPC connection. Note that the connection may
// be used by other goroutines and closing it may cause some operations to fail.
func (c *GrpcConn) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		return nil // already closed
	}

	return c.conn.Close()
}

// IsClosed returns true if the connection is closed.
func (c *GrpcConn) IsClosed() bool {
	return atomic.LoadUint32(&c.closed) == 1
}
