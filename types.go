package remotefollow

import (
	"bytes"
	"encoding/json"
)

const (
	RelSelf        = "self"
	RelProfilePage = "http://webfinger.net/rel/profile-page"
	RelAvatar      = "http://webfinger.net/rel/avatar"
	RelSubscribe   = "http://ostatus.org/schema/1.0/subscribe"
)

const (
	MIMEActivityJSON = "application/activity+json"
	MIMEActivityLD   = `application/ld+json; profile="http://www.w3.org/ns/activitystreams"`
	MIMEJRDJSON      = "application/jrd+json"
)

// ActivityPubMediaTypes are the Accept values that select the ActivityPub
// representation of a resource.
var ActivityPubMediaTypes = []string{
	MIMEActivityLD,
	`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`,
	MIMEActivityJSON,
}

type LinkProperty string

const (
	LinkHref     LinkProperty = "href"
	LinkTemplate LinkProperty = "template"
)

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

// Property returns the raw value of the named link member.
func (l Link) Property(prop LinkProperty) string {
	switch prop {
	case LinkHref:
		return l.Href
	case LinkTemplate:
		return l.Template
	default:
		return ""
	}
}

// UnmarshalJSON keeps only string-valued members, so one malformed link does
// not spoil the whole document.
func (l *Link) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		// links that are not objects are ignored
		*l = Link{}
		return nil
	}
	*l = Link{
		Rel:      stringValue(raw["rel"]),
		Type:     stringValue(raw["type"]),
		Href:     stringValue(raw["href"]),
		Template: stringValue(raw["template"]),
	}
	return nil
}

type WebFinger struct {
	Subject string   `json:"subject,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

func (w *WebFinger) UnmarshalJSON(b []byte) error {
	var raw struct {
		Subject json.RawMessage `json:"subject"`
		Aliases json.RawMessage `json:"aliases"`
		Links   []Link          `json:"links"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	w.Subject = stringValue(raw.Subject)
	w.Aliases = stringList(raw.Aliases)
	w.Links = raw.Links
	return nil
}

type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Actor is an ActivityPub actor document. Remote documents are decoded
// leniently: members with an unexpected shape are dropped instead of failing
// the decode.
type Actor struct {
	Context           []any      `json:"@context,omitempty"`
	ID                string     `json:"id,omitempty"`
	Type              string     `json:"type,omitempty"`
	Discoverable      *bool      `json:"discoverable,omitempty"`
	Indexable         *bool      `json:"indexable,omitempty"`
	Inbox             string     `json:"inbox,omitempty"`
	Outbox            string     `json:"outbox,omitempty"`
	PublicKey         *PublicKey `json:"publicKey,omitempty"`
	PreferredUsername string     `json:"preferredUsername,omitempty"`
	Name              string     `json:"name,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	URL               string     `json:"url,omitempty"`
	Icon              Icons      `json:"icon,omitempty"`

	// Error is the error member some servers put in place of (or next to)
	// the actor, e.g. for deleted or unauthorized accounts.
	Error string `json:"error,omitempty"`

	// Status is the HTTP status the document was served with.
	Status int `json:"-"`
}

func (a *Actor) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var icons Icons
	if v, ok := raw["icon"]; ok {
		if err := icons.UnmarshalJSON(v); err != nil {
			return err
		}
	}

	*a = Actor{
		ID:                hrefValue(raw["id"]),
		Type:              stringValue(raw["type"]),
		Inbox:             hrefValue(raw["inbox"]),
		Outbox:            hrefValue(raw["outbox"]),
		PreferredUsername: stringValue(raw["preferredUsername"]),
		Name:              stringValue(raw["name"]),
		Summary:           stringValue(raw["summary"]),
		URL:               hrefValue(raw["url"]),
		Icon:              icons,
		Error:             errorValue(raw["error"]),
	}

	if v, ok := raw["publicKey"]; ok {
		var key PublicKey
		if json.Unmarshal(v, &key) == nil {
			a.PublicKey = &key
		}
	}

	return nil
}

type IconKind int

const (
	IconKindUnknown IconKind = iota
	IconKindString
	IconKindObject
)

type ImageObject struct {
	Type      string `json:"type,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Icon is one entry of an actor's icon member, which is either a bare URL or
// an Image object.
type Icon struct {
	Kind   IconKind
	Href   string
	Object ImageObject
}

func (i Icon) URL() string {
	switch i.Kind {
	case IconKindString:
		return i.Href
	case IconKindObject:
		return i.Object.URL
	default:
		return ""
	}
}

func (i Icon) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case IconKindString:
		return json.Marshal(i.Href)
	case IconKindObject:
		return json.Marshal(i.Object)
	default:
		return []byte("null"), nil
	}
}

// Icons holds the icon member, which may be a single value or an array.
type Icons []Icon

// First returns the first icon entry.
func (is Icons) First() (Icon, bool) {
	if len(is) == 0 {
		return Icon{}, false
	}
	return is[0], true
}

func (is *Icons) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*is = nil
		return nil
	}

	switch b[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		result := make(Icons, 0, len(items))
		for _, item := range items {
			icon, ok := decodeIcon(item)
			if ok {
				result = append(result, icon)
			}
		}
		*is = result
	default:
		icon, ok := decodeIcon(b)
		if ok {
			*is = Icons{icon}
		} else {
			*is = nil
		}
	}
	return nil
}

func decodeIcon(b json.RawMessage) (Icon, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Icon{}, false
	}

	switch b[0] {
	case '"':
		var href string
		if err := json.Unmarshal(b, &href); err != nil {
			return Icon{}, false
		}
		return Icon{Kind: IconKindString, Href: href}, true
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return Icon{}, false
		}
		return Icon{
			Kind: IconKindObject,
			Object: ImageObject{
				Type:      stringValue(raw["type"]),
				MediaType: stringValue(raw["mediaType"]),
				URL:       hrefValue(raw["url"]),
			},
		}, true
	default:
		return Icon{}, false
	}
}

// stringValue returns raw as a string if it is a JSON string.
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := stringValue(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	var result []string
	for _, item := range items {
		if s := stringValue(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// hrefValue reads a member that may be a URL string, a Link object or an
// array of either, and returns the first URL found.
func hrefValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		return stringValue(raw)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		if href := stringValue(obj["href"]); href != "" {
			return href
		}
		return stringValue(obj["url"])
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return ""
		}
		for _, item := range items {
			if href := hrefValue(item); href != "" {
				return href
			}
		}
	}
	return ""
}

// errorValue renders an error member as text: strings verbatim, anything
// else as compact JSON.
func errorValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		return stringValue(raw)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ErrorMessage extracts the error member of a JSON error body, as returned
// by many servers alongside 4xx and 5xx statuses.
func ErrorMessage(body []byte) string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	return errorValue(raw["error"])
}
