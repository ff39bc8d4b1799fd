package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

// Adapter is one platform's capability surface: probe the session, build
// the publish request, and judge whether a response means true success.
type Adapter interface {
	Descriptor() platform.Descriptor
	ProbeLogin(ctx context.Context) bool
	BuildRequest(ctx context.Context, article *domain.Article) (*platform.OutboundRequest, error)
	IsSuccess(body any) bool
}

// Dispatcher puts one outbound request on the wire.
type Dispatcher interface {
	Do(ctx context.Context, req *platform.OutboundRequest) (*platform.Response, error)
}

// RunStore persists settled batches for operator review.
type RunStore interface {
	SaveRun(ctx context.Context, status *domain.SyncStatus) (int64, error)
}

// Publisher emits one event per settled platform result.
type Publisher interface {
	Publish(ctx context.Context, result *domain.SyncResult) error
	Close() error
}
