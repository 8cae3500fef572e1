package usecase

import (
	"context"
	"net/url"

	"github.com/totegamma/remotefollow"
	"github.com/totegamma/remotefollow/internal/domain"
)

// DiscoveryClient performs the two remote lookups resolution is built from.
type DiscoveryClient interface {
	WebFinger(ctx context.Context, handle string) (remotefollow.WebFinger, error)
	FetchActor(ctx context.Context, id *url.URL, keyID string) (remotefollow.Actor, error)
}

// FollowerStore keeps the last resolved follower of a session.
type FollowerStore interface {
	// Get returns domain.ErrNotFound when the session has no follower.
	Get(ctx context.Context, sessionID string) (domain.Identity, error)
	Set(ctx context.Context, sessionID string, follower domain.Identity) error
	Delete(ctx context.Context, sessionID string) error
}
