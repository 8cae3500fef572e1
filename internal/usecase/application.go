package usecase

import (
	"strings"

	"github.com/totegamma/remotefollow"
	"github.com/totegamma/remotefollow/internal/domain"
	"github.com/totegamma/remotefollow/internal/utils"
)

const (
	defaultApplicationName     = "Remote Follow"
	defaultPreferredUsername   = "RemoteFollow"
	applicationActorType       = "Application"
	activityStreamsContext     = "https://www.w3.org/ns/activitystreams"
	securityContext            = "https://w3id.org/security/v1"
	mastodonNamespace          = "http://joinmastodon.org/ns#"
	schemaNamespace            = "http://schema.org#"
	subscribePlaceholderSuffix = "/{uri}"
)

// ApplicationUsecase describes this server to remote discoverers. Documents
// depend only on the base URL of the incoming request and are rebuilt for
// every request.
type ApplicationUsecase struct {
	config domain.Config
}

func NewApplicationUsecase(config domain.Config) *ApplicationUsecase {
	if !config.ActorLayout.Valid() {
		config.ActorLayout = domain.ActorLayoutRoot
	}
	if config.Name == "" {
		config.Name = defaultApplicationName
	}
	if config.PreferredUsername == "" {
		config.PreferredUsername = defaultPreferredUsername
	}
	config.PublicKey = remotefollow.NormalizePEM(config.PublicKey)
	return &ApplicationUsecase{config: config}
}

func (uc *ApplicationUsecase) ActorID(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if uc.config.ActorLayout == domain.ActorLayoutActor {
		return baseURL + "/actor"
	}
	return baseURL
}

// KeyID is the keyId outbound signatures are made with.
func (uc *ApplicationUsecase) KeyID(baseURL string) string {
	return uc.ActorID(baseURL) + "#main-key"
}

func (uc *ApplicationUsecase) Actor(baseURL string) remotefollow.Actor {
	baseURL = strings.TrimSuffix(baseURL, "/")
	id := uc.ActorID(baseURL)
	discoverable := true
	indexable := false

	return remotefollow.Actor{
		Context: []any{
			activityStreamsContext,
			securityContext,
			mastodonContext,
		},
		ID:           id,
		Type:         applicationActorType,
		Discoverable: &discoverable,
		Indexable:    &indexable,
		Inbox:        id + "/inbox",
		Outbox:       id + "/outbox",
		PublicKey: &remotefollow.PublicKey{
			ID:           uc.KeyID(baseURL),
			Owner:        id,
			PublicKeyPem: uc.config.PublicKey,
		},
		Name:              uc.config.Name,
		PreferredUsername: uc.config.PreferredUsername,
		URL:               baseURL,
	}
}

// WebFinger answers a lookup for resource with links to the application
// actor. The subscribe link points back at this server with a {uri}
// placeholder.
func (uc *ApplicationUsecase) WebFinger(baseURL, resource string) remotefollow.WebFinger {
	baseURL = strings.TrimSuffix(baseURL, "/")
	id := uc.ActorID(baseURL)
	subscribe := baseURL + subscribePlaceholderSuffix

	return remotefollow.WebFinger{
		Subject: resource,
		Aliases: []string{id},
		Links: []remotefollow.Link{
			{
				Rel:  remotefollow.RelSelf,
				Type: remotefollow.MIMEActivityJSON,
				Href: id,
			},
			{
				Rel:  remotefollow.RelProfilePage,
				Href: baseURL,
			},
			{
				Rel:      remotefollow.RelSubscribe,
				Href:     subscribe,
				Template: subscribe,
			},
		},
	}
}

func idType(id string) utils.OrderedMap {
	return utils.OrderedMap{{Key: "@id", Value: id}, {Key: "@type", Value: "@id"}}
}

var mastodonContext = utils.OrderedMap{
	{Key: "manuallyApprovesFollowers", Value: "as:manuallyApprovesFollowers"},
	{Key: "toot", Value: mastodonNamespace},
	{Key: "featured", Value: idType("toot:featured")},
	{Key: "featuredTags", Value: idType("toot:featuredTags")},
	{Key: "alsoKnownAs", Value: idType("as:alsoKnownAs")},
	{Key: "movedTo", Value: idType("as:movedTo")},
	{Key: "schema", Value: schemaNamespace},
	{Key: "PropertyValue", Value: "schema:PropertyValue"},
	{Key: "value", Value: "schema:value"},
	{Key: "discoverable", Value: "toot:discoverable"},
	{Key: "suspended", Value: "toot:suspended"},
	{Key: "memorial", Value: "toot:memorial"},
	{Key: "indexable", Value: "toot:indexable"},
	{Key: "attributionDomains", Value: idType("toot:attributionDomains")},
	{Key: "focalPoint", Value: utils.OrderedMap{{Key: "@container", Value: "@list"}, {Key: "@id", Value: "toot:focalPoint"}}},
}
