// Package gateway implements job.Gateway over a gRPC connection.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"jobctl/internal/apperrors"
	"jobctl/internal/config"
	"jobctl/internal/job"
	"jobctl/internal/observability"
)

// Full method paths per operation.
const (
	jobService     = "/cluster.api.job.v1.JobService/"
	podService     = "/cluster.api.pod.v1.PodService/"
	respoolService = "/cluster.api.respool.v1.ResourcePoolService/"
)

var methods = map[job.Operation]string{
	job.OpCreateJob:  jobService + "CreateJob",
	job.OpStartJob:   jobService + "StartJob",
	job.OpStopJob:    jobService + "StopJob",
	job.OpRestartJob: jobService + "RestartJob",
	job.OpDeleteJob:  jobService + "DeleteJob",
	job.OpGetJob:     jobService + "GetJob",
	job.OpQueryPods:  jobService + "QueryPods",

	job.OpStartPod:     podService + "StartPod",
	job.OpStopPod:      podService + "StopPod",
	job.OpGetPod:       podService + "GetPod",
	job.OpGetPodEvents: podService + "GetPodEvents",

	job.OpLookupResourcePool: respoolService + "LookupResourcePool",
	job.OpCreateResourcePool: respoolService + "CreateResourcePool",
}

// Client is a gRPC-backed job.Gateway. It owns the connection, applies the
// per-call timeout, and classifies transport failures into the apperrors
// taxonomy. Safe for concurrent use.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	metrics *observability.Metrics
}

// New dials the cluster endpoint. The connection is lazy; failures surface
// on the first call.
func New(cfg config.ClientConfig, metrics *observability.Metrics) (*Client, error) {
	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Address, err)
	}
	return &Client{
		conn:    conn,
		timeout: cfg.RPCTimeout,
		metrics: metrics,
	}, nil
}

// Invoke issues the RPC named by op, filling resp on success.
func (c *Client) Invoke(ctx context.Context, op job.Operation, req, resp any) error {
	method, ok := methods[op]
	if !ok {
		return apperrors.InvalidArgument(string(op), fmt.Sprintf("unknown operation %q", op))
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.conn.Invoke(callCtx, method, req, resp)
	classified := apperrors.FromRPC(resourceFor(op), string(op), err)

	if c.metrics != nil {
		c.metrics.RecordRPC(ctx, string(op), time.Since(start).Seconds(), classified == nil)
	}
	return classified
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// resourceFor names the resource an operation acts on, for error context.
func resourceFor(op job.Operation) string {
	method := methods[op]
	switch {
	case strings.HasPrefix(method, podService):
		return "pod"
	case strings.HasPrefix(method, respoolService):
		return "respool"
	default:
		return "job"
	}
}
