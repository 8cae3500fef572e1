package domain

// ActorLayout selects where this server's own actor lives.
type ActorLayout string

const (
	// ActorLayoutRoot serves the actor at the base URL itself.
	ActorLayoutRoot ActorLayout = "root"
	// ActorLayoutActor serves the actor at <base URL>/actor.
	ActorLayoutActor ActorLayout = "actor"
)

func (l ActorLayout) Valid() bool {
	return l == ActorLayoutRoot || l == ActorLayoutActor
}

// Config is the node description the usecases need.
type Config struct {
	PublicKey         string
	ActorLayout       ActorLayout
	Name              string
	PreferredUsername string
}
