package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/remotefollow"
	"github.com/totegamma/remotefollow/internal/domain"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultUserAgent = "RemoteFollow/1.0 (+https://github.com/totegamma/remotefollow)"
	maxBodySize      = 1 << 20
)

var tracer = otel.Tracer("client")

// Signer signs outbound actor fetches.
type Signer interface {
	SignRequest(req *http.Request, keyID string) error
}

type Options struct {
	// Timeout bounds each outbound request. Zero means the default.
	Timeout time.Duration
	// CacheTTL enables memoization of WebFinger responses. Zero disables it.
	CacheTTL  time.Duration
	UserAgent string
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to remote ActivityPub servers: WebFinger discovery and
// signed actor fetches. It never retries.
type Client struct {
	client    *http.Client
	transport http.RoundTripper
	cache     *cache.Cache
	signer    Signer
	userAgent string
	timeout   time.Duration
}

func New(signer Signer, opts Options) *Client {
	c := &Client{
		signer:    signer,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		transport: opts.Transport,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	c.client = &http.Client{Transport: c}
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return c.transport.RoundTrip(req)
}

// WebFinger looks up acct:<handle> on the handle's domain.
func (c *Client) WebFinger(ctx context.Context, handle string) (remotefollow.WebFinger, error) {
	ctx, span := tracer.Start(ctx, "Client.WebFinger")
	defer span.End()
	span.SetAttributes(attribute.String("handle", handle))

	_, host, ok := remotefollow.SplitHandle(handle)
	if !ok {
		err := domain.InvalidHandleError{Handle: handle}
		span.RecordError(err)
		return remotefollow.WebFinger{}, err
	}

	cacheKey := "webfinger:" + handle
	if c.cache != nil {
		if x, found := c.cache.Get(cacheKey); found {
			slog.DebugContext(ctx, "webfinger cache hit", slog.String("handle", handle), slog.String("module", "client"))
			return x.(remotefollow.WebFinger), nil
		}
	}

	endpoint := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     "/.well-known/webfinger",
		RawQuery: url.Values{"resource": {"acct:" + handle}}.Encode(),
	}

	req, err := http.NewRequest(http.MethodGet, endpoint.String(), nil)
	if err != nil {
		derr := domain.DiscoveryError{Stage: domain.StageWebFinger, Cause: domain.CauseTransport, URL: endpoint.String(), Err: err}
		span.RecordError(derr)
		return remotefollow.WebFinger{}, derr
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(ctx, req)
	if err != nil {
		derr := domain.DiscoveryError{Stage: domain.StageWebFinger, Cause: causeOf(err), URL: endpoint.String(), Err: err}
		span.RecordError(derr)
		return remotefollow.WebFinger{}, derr
	}

	if status < 200 || status >= 300 {
		derr := domain.DiscoveryError{
			Stage:  domain.StageWebFinger,
			Cause:  domain.CauseHTTPStatus,
			URL:    endpoint.String(),
			Status: status,
			Detail: remotefollow.ErrorMessage(body),
		}
		span.RecordError(derr)
		return remotefollow.WebFinger{}, derr
	}

	var wf remotefollow.WebFinger
	if err := json.Unmarshal(body, &wf); err != nil {
		derr := domain.DiscoveryError{
			Stage:  domain.StageWebFinger,
			Cause:  domain.CauseNonJSON,
			URL:    endpoint.String(),
			Status: status,
			Err:    errors.Wrap(err, "failed to decode webfinger response"),
		}
		span.RecordError(derr)
		return remotefollow.WebFinger{}, derr
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, wf, cache.DefaultExpiration)
	}

	return wf, nil
}

// FetchActor GETs an actor document with a signed request. The body is
// decoded whatever the status code, since servers often explain a 4xx in
// JSON; the status is kept in Actor.Status.
func (c *Client) FetchActor(ctx context.Context, id *url.URL, keyID string) (remotefollow.Actor, error) {
	ctx, span := tracer.Start(ctx, "Client.FetchActor")
	defer span.End()
	span.SetAttributes(attribute.String("id", id.String()))

	if c.signer == nil {
		err := domain.SigningError{Err: domain.ErrNoPrivateKey}
		span.RecordError(err)
		return remotefollow.Actor{}, err
	}

	req, err := http.NewRequest(http.MethodGet, id.String(), nil)
	if err != nil {
		derr := domain.DiscoveryError{Stage: domain.StageActorFetch, Cause: domain.CauseTransport, URL: id.String(), Err: err}
		span.RecordError(derr)
		return remotefollow.Actor{}, derr
	}

	err = c.signer.SignRequest(req, keyID)
	if err != nil {
		span.RecordError(errors.Wrap(err, "Client.FetchActor: signer.SignRequest failed"))
		return remotefollow.Actor{}, err
	}

	body, status, err := c.do(ctx, req)
	if err != nil {
		derr := domain.DiscoveryError{Stage: domain.StageActorFetch, Cause: causeOf(err), URL: id.String(), Err: err}
		span.RecordError(derr)
		return remotefollow.Actor{}, derr
	}

	var actor remotefollow.Actor
	if err := json.Unmarshal(body, &actor); err != nil {
		derr := domain.DiscoveryError{
			Stage:  domain.StageActorFetch,
			Cause:  domain.CauseNonJSON,
			URL:    id.String(),
			Status: status,
			Err:    errors.Wrap(err, "failed to decode actor document"),
		}
		span.RecordError(derr)
		return remotefollow.Actor{}, derr
	}
	actor.Status = status

	span.SetAttributes(attribute.Int("status", status))
	return actor, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	slog.DebugContext(
		ctx, "outbound request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.String("module", "client"),
	)

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "failed to read response body")
	}

	return body, resp.StatusCode, nil
}

func causeOf(err error) domain.DiscoveryCause {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CauseTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.CauseTimeout
	}
	return domain.CauseTransport
}
