package remotefollow

import (
	"net/url"
	"regexp"
	"strings"
)

var handlePattern = regexp.MustCompile(`^@?([^/@\s]+@[^/@\s]+\.[^/@\s]+)$`)

// Reference is what a user-supplied identity string turned out to be. At
// most one of Handle and ID is set.
type Reference struct {
	Handle string
	ID     *url.URL
}

func (r Reference) Valid() bool {
	return r.Handle != "" || r.ID != nil
}

// Classify parses a handle (user@domain.tld, optionally prefixed with @) or
// an absolute actor URL. Unrecognized input yields an empty Reference.
func Classify(idOrHandle string) Reference {
	input := strings.TrimSpace(idOrHandle)

	if m := handlePattern.FindStringSubmatch(input); m != nil {
		return Reference{Handle: m[1]}
	}

	id, ok := ParseAbsoluteURL(input)
	if !ok {
		return Reference{}
	}
	return Reference{ID: id}
}

// ParseAbsoluteURL accepts only URLs with a scheme and a host.
func ParseAbsoluteURL(s string) (*url.URL, bool) {
	if s == "" {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	return u, true
}

// SplitHandle splits user@domain into its two parts.
func SplitHandle(handle string) (user, domain string, ok bool) {
	split := strings.Split(handle, "@")
	if len(split) != 2 || split[0] == "" || split[1] == "" {
		return "", "", false
	}
	return split[0], split[1], true
}

func ComposeHandle(user, domain string) string {
	return user + "@" + domain
}

// FindLink returns the first link whose rel equals rel and, when typ is not
// empty, whose type equals typ.
func FindLink(links []Link, rel, typ string) (Link, bool) {
	for _, link := range links {
		if link.Rel == "" || link.Rel != rel {
			continue
		}
		if typ != "" && link.Type != typ {
			continue
		}
		return link, true
	}
	return Link{}, false
}

// LinkURL looks up a link and returns the requested property if it is an
// absolute URL. The value is returned as received so templates keep their
// {uri} placeholder intact.
func LinkURL(links []Link, rel, typ string, prop LinkProperty) (string, bool) {
	link, ok := FindLink(links, rel, typ)
	if !ok {
		return "", false
	}
	value := link.Property(prop)
	if _, ok := ParseAbsoluteURL(value); !ok {
		return "", false
	}
	return value, true
}

// IsActivityPubAccept reports whether an Accept header asks for an
// ActivityPub representation.
func IsActivityPubAccept(accept string) bool {
	if accept == "" {
		return false
	}
	for _, mt := range ActivityPubMediaTypes {
		if strings.Contains(accept, mt) {
			return true
		}
	}
	return false
}

// NormalizePEM converts CRLF and CR line endings to LF.
func NormalizePEM(pem string) string {
	pem = strings.ReplaceAll(pem, "\r\n", "\n")
	return strings.ReplaceAll(pem, "\r", "\n")
}
