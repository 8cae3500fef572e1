package usecase

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/remotefollow"
	"github.com/totegamma/remotefollow/internal/domain"
)

var tracer = otel.Tracer("usecase")

type ResolverUsecase struct {
	discovery DiscoveryClient
}

func NewResolverUsecase(discovery DiscoveryClient) *ResolverUsecase {
	return &ResolverUsecase{discovery: discovery}
}

// Resolve turns a handle or actor id into an Identity. Actor fetches are
// signed as keyID. When an error is returned the Identity still carries the
// handle or id known at the point of failure.
func (uc *ResolverUsecase) Resolve(ctx context.Context, idOrHandle, keyID string) (domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Resolver.Usecase.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("input", idOrHandle))

	ref := remotefollow.Classify(idOrHandle)
	if !ref.Valid() {
		err := domain.ResolutionError{
			Kind:  domain.KindInvalidInput,
			Input: idOrHandle,
			Err:   domain.InvalidInputError{Input: idOrHandle},
		}
		span.RecordError(err)
		return domain.Identity{}, err
	}

	var (
		person    domain.Identity
		webfinger *remotefollow.WebFinger
		actor     remotefollow.Actor
		note      string
	)

	if ref.Handle != "" {
		person.Handle = ref.Handle

		wf, err := uc.discovery.WebFinger(ctx, ref.Handle)
		if err != nil {
			return person, uc.fail(ctx, domain.KindWebFinger, idOrHandle, err)
		}
		webfinger = &wf

		self, ok := remotefollow.LinkURL(wf.Links, remotefollow.RelSelf, remotefollow.MIMEActivityJSON, remotefollow.LinkHref)
		if !ok {
			return person, uc.fail(ctx, domain.KindNoSelfLink, idOrHandle, nil)
		}
		id, _ := remotefollow.ParseAbsoluteURL(self)
		person.ID = self

		actor, err = uc.discovery.FetchActor(ctx, id, keyID)
		if err != nil {
			return person, uc.fail(ctx, domain.KindActorFetch, idOrHandle, err)
		}
	} else {
		person.ID = ref.ID.String()

		var err error
		actor, err = uc.discovery.FetchActor(ctx, ref.ID, keyID)
		if err != nil {
			return person, uc.fail(ctx, domain.KindActorFetch, idOrHandle, err)
		}

		if actor.PreferredUsername == "" {
			note = "actor document has no preferredUsername"
		} else {
			person.Handle = remotefollow.ComposeHandle(actor.PreferredUsername, ref.ID.Hostname())

			// the actor document alone is enough, so webfinger is best effort here
			wf, err := uc.discovery.WebFinger(ctx, person.Handle)
			if err != nil {
				span.RecordError(err)
				slog.WarnContext(
					ctx, "webfinger lookup for resolved actor failed",
					slog.String("handle", person.Handle),
					slog.String("error", err.Error()),
					slog.String("module", "resolver"),
				)
				note = err.Error()
			} else {
				webfinger = &wf
			}
		}
	}

	merge(&person, webfinger, actor)

	switch {
	case actor.Error != "":
		person.ResolutionError = actor.Error
	case note != "":
		person.ResolutionError = note
	}

	span.SetAttributes(
		attribute.String("id", person.ID),
		attribute.String("handle", person.Handle),
	)
	return person, nil
}

func (uc *ResolverUsecase) fail(ctx context.Context, kind domain.ResolutionKind, input string, cause error) error {
	err := domain.ResolutionError{Kind: kind, Input: input, Err: cause}
	trace.SpanFromContext(ctx).RecordError(err)
	slog.InfoContext(
		ctx, "resolution failed",
		slog.String("input", input),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
		slog.String("module", "resolver"),
	)
	return err
}

// merge copies display fields into person. WebFinger links win over the
// actor document for the avatar.
func merge(person *domain.Identity, webfinger *remotefollow.WebFinger, actor remotefollow.Actor) {
	if webfinger != nil {
		if avatar, ok := remotefollow.LinkURL(webfinger.Links, remotefollow.RelAvatar, "", remotefollow.LinkHref); ok {
			person.AvatarURL = avatar
		}
		if template, ok := remotefollow.LinkURL(webfinger.Links, remotefollow.RelSubscribe, "", remotefollow.LinkTemplate); ok {
			person.SubscribeTemplate = template
		}
	}

	if person.AvatarURL == "" {
		if icon, ok := actor.Icon.First(); ok {
			if _, ok := remotefollow.ParseAbsoluteURL(icon.URL()); ok {
				person.AvatarURL = icon.URL()
			}
		}
	}

	person.Name = actor.Name
	person.Summary = actor.Summary
	person.ProfileURL = actor.URL
}
