package usecase

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/totegamma/remotefollow/internal/domain"
)

// FollowPlan is everything needed to send a follower to their own server to
// follow Person.
type FollowPlan struct {
	Person   domain.Identity  `json:"person"`
	Follower *domain.Identity `json:"follower,omitempty"`
	// Subscribe is the follower's subscribe template with the person's id
	// filled in. Empty when there is no follower or no template.
	Subscribe string `json:"subscribe,omitempty"`
}

// FollowUsecase drives the remote follow flow. It never sends a Follow
// activity; it only prepares the redirect to the follower's server.
type FollowUsecase struct {
	resolver *ResolverUsecase
	store    FollowerStore
}

func NewFollowUsecase(resolver *ResolverUsecase, store FollowerStore) *FollowUsecase {
	return &FollowUsecase{resolver: resolver, store: store}
}

// Login resolves idOrHandle as the session's follower. Only fully resolved
// followers are remembered. On failure the returned Identity holds whatever
// was resolved before the error, with ResolutionError set.
func (uc *FollowUsecase) Login(ctx context.Context, sessionID, idOrHandle, keyID string) (domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Follow.Usecase.Login")
	defer span.End()

	follower, err := uc.resolver.Resolve(ctx, idOrHandle, keyID)
	if err != nil {
		span.RecordError(err)
		follower.ResolutionError = err.Error()
		return follower, err
	}

	if follower.Complete() {
		if err := uc.store.Set(ctx, sessionID, follower); err != nil {
			span.RecordError(err)
			return follower, errors.Wrap(err, "failed to store follower")
		}
	}

	return follower, nil
}

func (uc *FollowUsecase) Logout(ctx context.Context, sessionID string) error {
	return uc.store.Delete(ctx, sessionID)
}

// Follower returns the session's follower, if one is stored.
func (uc *FollowUsecase) Follower(ctx context.Context, sessionID string) (*domain.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}
	follower, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &follower, nil
}

// Prepare resolves target and, if the session has a follower, fills in the
// follower's subscribe template.
func (uc *FollowUsecase) Prepare(ctx context.Context, sessionID, target, keyID string) (FollowPlan, error) {
	ctx, span := tracer.Start(ctx, "Follow.Usecase.Prepare")
	defer span.End()

	person, err := uc.resolver.Resolve(ctx, target, keyID)
	if err != nil {
		span.RecordError(err)
		return FollowPlan{Person: person}, err
	}

	plan := FollowPlan{Person: person}

	follower, err := uc.Follower(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return plan, err
	}
	plan.Follower = follower

	if follower != nil && follower.SubscribeTemplate != "" && person.ID != "" {
		plan.Subscribe, err = SubscribeURL(*follower, person.ID)
		if err != nil {
			return plan, err
		}
	}

	return plan, nil
}

// SubscribeURL fills the follower's subscribe template with targetID.
func SubscribeURL(follower domain.Identity, targetID string) (string, error) {
	if follower.SubscribeTemplate == "" || !strings.Contains(follower.SubscribeTemplate, "{uri}") {
		return "", domain.ErrNoSubscribeTemplate
	}
	return strings.ReplaceAll(follower.SubscribeTemplate, "{uri}", url.QueryEscape(targetID)), nil
}
