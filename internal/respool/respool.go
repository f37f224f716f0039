// Package respool manages the resource pool a job is created under.
package respool

import (
	"context"
	"errors"
	"log/slog"

	"jobctl/internal/apperrors"
	"jobctl/internal/job"
)

// Spec describes a resource pool.
type Spec struct {
	Name      string  `json:"name"`
	Parent    string  `json:"parent,omitempty"`
	CPULimit  float64 `json:"cpuLimit,omitempty"`
	MemLimit  float64 `json:"memLimit,omitempty"`
	DiskLimit float64 `json:"diskLimit,omitempty"`
}

// Path returns the pool's absolute path under the root pool.
func (s *Spec) Path() string {
	parent := s.Parent
	if parent == "" || parent == "/" {
		return "/" + s.Name
	}
	return parent + "/" + s.Name
}

// LookupRequest resolves a pool path to its ID.
type LookupRequest struct {
	Path string `json:"path"`
}

// LookupResponse carries the pool ID.
type LookupResponse struct {
	RespoolID string `json:"respoolId"`
}

// CreateRequest creates a pool from a spec.
type CreateRequest struct {
	Spec *Spec `json:"spec"`
}

// CreateResponse carries the new pool ID.
type CreateResponse struct {
	RespoolID string `json:"respoolId"`
}

// Pool is a client-side handle on one resource pool.
type Pool struct {
	gateway job.Gateway
	spec    *Spec
}

// New creates a Pool handle.
func New(gateway job.Gateway, spec *Spec) *Pool {
	return &Pool{gateway: gateway, spec: spec}
}

// EnsureExists resolves the pool's ID, creating the pool first if the
// service does not know the path yet.
func (p *Pool) EnsureExists(ctx context.Context) (string, error) {
	path := p.spec.Path()

	var lookup LookupResponse
	err := p.gateway.Invoke(ctx, job.OpLookupResourcePool, &LookupRequest{Path: path}, &lookup)
	if err == nil {
		return lookup.RespoolID, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return "", err
	}

	var created CreateResponse
	if err := p.gateway.Invoke(ctx, job.OpCreateResourcePool, &CreateRequest{Spec: p.spec}, &created); err != nil {
		return "", err
	}
	slog.Info("resource pool created", "path", path, "respoolId", created.RespoolID)
	return created.RespoolID, nil
}
