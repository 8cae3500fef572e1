// Package httpsig signs outbound ActivityPub requests with draft-cavage HTTP
// signatures over (request-target), host and date.
package httpsig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/totegamma/remotefollow"
	"github.com/totegamma/remotefollow/internal/domain"
)

// SignedHeaders lists the signed fields in the order they are hashed.
const SignedHeaders = "(request-target) host date"

// Clock returns the time used for the date header.
type Clock func() time.Time

type Option func(*Signer)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(s *Signer) {
		s.clock = clock
	}
}

// Target is the part of an outbound request that gets signed.
type Target struct {
	Method       string
	Host         string
	PathAndQuery string
}

// Headers are the headers to send with a signed request.
type Headers struct {
	Host      string
	Date      string
	Signature string
	Accept    string
}

// Signer holds the private key. It is safe for concurrent use.
type Signer struct {
	key     crypto.Signer
	loadErr error
	clock   Clock
}

// NewSigner parses a PEM (or OpenSSH) private key. A missing or malformed
// key does not fail here; it is reported by Sign and Ready.
func NewSigner(privateKeyPEM string, opts ...Option) *Signer {
	s := &Signer{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		s.loadErr = err
	} else {
		s.key = key
	}
	return s
}

// Ready returns the key loading error, if any.
func (s *Signer) Ready() error {
	if s.loadErr != nil {
		return domain.SigningError{Err: s.loadErr}
	}
	return nil
}

// Sign builds the signature headers for target, announcing keyID as the key
// the remote server should verify against.
func (s *Signer) Sign(target Target, keyID string) (Headers, error) {
	if s.loadErr != nil {
		return Headers{}, domain.SigningError{Err: s.loadErr}
	}

	date := s.clock().UTC().Format(http.TimeFormat)
	signingString := SigningString(target, date)

	signature, err := s.signBytes([]byte(signingString))
	if err != nil {
		return Headers{}, domain.SigningError{Err: err}
	}

	return Headers{
		Host: target.Host,
		Date: date,
		Signature: fmt.Sprintf(
			`keyId="%s",headers="%s",signature="%s"`,
			keyID, SignedHeaders, base64.StdEncoding.EncodeToString(signature),
		),
		Accept: remotefollow.MIMEActivityLD,
	}, nil
}

// SignRequest signs req and sets the resulting headers on it.
func (s *Signer) SignRequest(req *http.Request, keyID string) error {
	headers, err := s.Sign(Target{
		Method:       req.Method,
		Host:         req.URL.Host,
		PathAndQuery: req.URL.RequestURI(),
	}, keyID)
	if err != nil {
		return err
	}

	req.Host = headers.Host
	req.Header.Set("Host", headers.Host)
	req.Header.Set("Date", headers.Date)
	req.Header.Set("Signature", headers.Signature)
	req.Header.Set("Accept", headers.Accept)
	return nil
}

// SigningString is the canonical text that gets signed.
func SigningString(target Target, date string) string {
	lines := []string{
		"(request-target): " + strings.ToLower(target.Method) + " " + target.PathAndQuery,
		"host: " + target.Host,
		"date: " + date,
	}
	return strings.Join(lines, "\n")
}

func (s *Signer) signBytes(data []byte) ([]byte, error) {
	switch key := s.key.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(key, data), nil
	case *rsa.PrivateKey:
		digest := sha256.Sum256(data)
		return rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	case *ecdsa.PrivateKey:
		digest := sha256.Sum256(data)
		return ecdsa.SignASN1(rand.Reader, key, digest[:])
	default:
		return nil, fmt.Errorf("unsupported key type %T", s.key)
	}
}

func parsePrivateKey(privateKeyPEM string) (crypto.Signer, error) {
	privateKeyPEM = strings.TrimSpace(remotefollow.NormalizePEM(privateKeyPEM))
	if privateKeyPEM == "" {
		return nil, domain.ErrNoPrivateKey
	}

	raw, err := ssh.ParseRawPrivateKey([]byte(privateKeyPEM))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	switch key := raw.(type) {
	case *rsa.PrivateKey:
		return key, nil
	case *ecdsa.PrivateKey:
		return key, nil
	case ed25519.PrivateKey:
		return key, nil
	case *ed25519.PrivateKey:
		return *key, nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", raw)
	}
}
