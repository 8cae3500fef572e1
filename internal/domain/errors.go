package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// InvalidInputError means the input was neither a handle nor an actor URL.
type InvalidInputError struct {
	Input string
}

func (e InvalidInputError) Error() string {
	if e.Input == "" {
		return "please supply a valid id or handle"
	}
	return fmt.Sprintf("please supply a valid id or handle: %q", e.Input)
}

func (e InvalidInputError) Is(target error) bool {
	_, ok := target.(InvalidInputError)
	return ok
}

var ErrInvalidInput = InvalidInputError{}

// InvalidHandleError means a handle did not split into user and domain.
type InvalidHandleError struct {
	Handle string
}

func (e InvalidHandleError) Error() string {
	return fmt.Sprintf("handle %q needs exactly one @ symbol between a user and a domain", e.Handle)
}

func (e InvalidHandleError) Is(target error) bool {
	_, ok := target.(InvalidHandleError)
	return ok
}

var ErrInvalidHandle = InvalidHandleError{}

type DiscoveryStage string

const (
	StageWebFinger  DiscoveryStage = "webfinger"
	StageActorFetch DiscoveryStage = "actor-fetch"
)

type DiscoveryCause string

const (
	CauseTransport  DiscoveryCause = "transport"
	CauseNonJSON    DiscoveryCause = "non-json"
	CauseHTTPStatus DiscoveryCause = "http-status"
	CauseTimeout    DiscoveryCause = "timeout"
)

// DiscoveryError is a failed WebFinger lookup or actor fetch.
type DiscoveryError struct {
	Stage  DiscoveryStage
	Cause  DiscoveryCause
	URL    string
	Status int
	// Detail is the error message the remote server returned, if any.
	Detail string
	Err    error
}

func (e DiscoveryError) Error() string {
	msg := fmt.Sprintf("%s failed (%s)", e.Stage, e.Cause)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e DiscoveryError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e DiscoveryError) Timeout() bool {
	return e.Cause == CauseTimeout
}

// SigningError means an outbound request could not be signed.
type SigningError struct {
	Err error
}

func (e SigningError) Error() string {
	if e.Err == nil {
		return "signing failed"
	}
	return "signing failed: " + e.Err.Error()
}

func (e SigningError) Unwrap() error {
	return e.Err
}

var ErrNoPrivateKey = errors.New("no private key configured")

type ResolutionKind string

const (
	KindInvalidInput ResolutionKind = "invalid-input"
	KindWebFinger    ResolutionKind = "webfinger"
	KindNoSelfLink   ResolutionKind = "no-self-link"
	KindActorFetch   ResolutionKind = "actor-fetch"
)

// ResolutionError is returned by the resolver and wraps whatever stage failed.
type ResolutionError struct {
	Kind  ResolutionKind
	Input string
	Err   error
}

func (e ResolutionError) Error() string {
	switch {
	case e.Kind == KindNoSelfLink:
		return fmt.Sprintf("could not resolve %s: no ActivityPub self link in webfinger response", e.Input)
	case e.Err != nil:
		return fmt.Sprintf("could not resolve %s: %v", e.Input, e.Err)
	default:
		return fmt.Sprintf("could not resolve %s: %s", e.Input, e.Kind)
	}
}

func (e ResolutionError) Unwrap() error {
	return e.Err
}

// Is matches another ResolutionError of the same kind. A target without a
// kind matches any ResolutionError.
func (e ResolutionError) Is(target error) bool {
	t, ok := target.(ResolutionError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

var ErrNoSubscribeTemplate = errors.New("follower has no subscribe template")
