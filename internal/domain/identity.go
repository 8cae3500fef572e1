package domain

// Identity is a resolved ActivityPub actor, normalized for remote follow.
// It is built once per resolution and not modified afterwards.
type Identity struct {
	ID                string `json:"id,omitempty"`
	Handle            string `json:"handle,omitempty"`
	Name              string `json:"name,omitempty"`
	Summary           string `json:"summary,omitempty"`
	ProfileURL        string `json:"profileUrl,omitempty"`
	AvatarURL         string `json:"avatarUrl,omitempty"`
	SubscribeTemplate string `json:"subscribeTemplate,omitempty"`

	// ResolutionError describes a partial failure. The other fields hold
	// whatever could still be resolved.
	ResolutionError string `json:"resolutionError,omitempty"`
}

// Complete reports whether both anchors were resolved without error.
func (i Identity) Complete() bool {
	return i.ID != "" && i.Handle != "" && i.ResolutionError == ""
}
