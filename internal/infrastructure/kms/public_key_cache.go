// Package kms distributes the issuer's verification key to consumer services.
package kms

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

const (
	refreshKey       = "public-key"
	maxResponseBytes = 64 << 10
)

// CachedKey is one fetched copy of the issuer's public key. It is never mutated after it
// has been stored; a refresh replaces it with a new value.
type CachedKey struct {
	Value     string
	Key       *rsa.PublicKey
	FetchedAt time.Time
}

// PublicKeyCacheConfig configures a PublicKeyCache. Zero values use the defaults of one
// hour TTL and a five second fetch timeout.
type PublicKeyCacheConfig struct {
	AuthServiceURL string
	TTL            time.Duration
	FetchTimeout   time.Duration
	HTTPClient     *http.Client
	Clock          func() time.Time
	Metrics        *monitoring.Metrics
}

// PublicKeyCache fetches the issuer's public key over HTTP and reuses it for TTL.
// Concurrent callers that find the cache stale share a single in-flight fetch.
type PublicKeyCache struct {
	endpoint string
	client   *http.Client
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	metrics  *monitoring.Metrics
	log      logger.Logger
	tracer   trace.Tracer

	current atomic.Pointer[CachedKey]
	group   singleflight.Group
}

// publicKeyResponse is the issuer's /auth/public-key envelope.
type publicKeyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		PublicKey string `json:"publicKey"`
		Algorithm string `json:"algorithm"`
		Issuer    string `json:"issuer"`
		Audience  string `json:"audience"`
	} `json:"data"`
}

// NewPublicKeyCache creates an empty cache for the issuer at cfg.AuthServiceURL.
func NewPublicKeyCache(cfg PublicKeyCacheConfig, log logger.Logger) (*PublicKeyCache, error) {
	base := cfg.AuthServiceURL
	if base == "" {
		base = constants.DefaultAuthServiceURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + constants.PublicKeyPath)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid auth service url %q", base)
	}

	c := &PublicKeyCache{
		endpoint: u.String(),
		client:   cfg.HTTPClient,
		ttl:      cfg.TTL,
		timeout:  cfg.FetchTimeout,
		now:      cfg.Clock,
		metrics:  cfg.Metrics,
		log:      log,
		tracer:   otel.Tracer(monitoring.TracerName),
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	if c.ttl <= 0 {
		c.ttl = constants.PublicKeyCacheTTL
	}
	if c.timeout <= 0 {
		c.timeout = constants.PublicKeyFetchTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Get returns the PEM public key, fetching it when the cached copy is absent or stale.
// A failed fetch returns ErrKeyFetch and leaves the cached copy untouched.
func (c *PublicKeyCache) Get(ctx context.Context) (string, error) {
	k, err := c.get(ctx)
	if err != nil {
		return "", err
	}
	return k.Value, nil
}

// PublicKey returns the parsed public key. It satisfies crypto.PublicKeyProvider.
func (c *PublicKeyCache) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	k, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return k.Key, nil
}

// Snapshot returns the currently stored key, fresh or not.
func (c *PublicKeyCache) Snapshot() (*CachedKey, bool) {
	k := c.current.Load()
	return k, k != nil
}

// Endpoint returns the URL the key is fetched from.
func (c *PublicKeyCache) Endpoint() string {
	return c.endpoint
}

func (c *PublicKeyCache) fresh() *CachedKey {
	k := c.current.Load()
	if k != nil && c.now().Sub(k.FetchedAt) < c.ttl {
		return k
	}
	return nil
}

func (c *PublicKeyCache) get(ctx context.Context) (*CachedKey, error) {
	if k := c.fresh(); k != nil {
		return k, nil
	}

	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		// a flight that finished just before this one started may already have refreshed
		if k := c.fresh(); k != nil {
			return k, nil
		}
		return c.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CachedKey), nil
	case <-ctx.Done():
		return nil, errors.ErrKeyFetch.WithError(ctx.Err())
	}
}

// refresh performs one fetch. It runs detached from the triggering caller's cancellation
// because other callers may be waiting on the same flight.
func (c *PublicKeyCache) refresh(ctx context.Context) (*CachedKey, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "PublicKeyCache.refresh", trace.WithAttributes(
		attribute.String("http.url", c.endpoint),
	))
	defer span.End()

	start := time.Now()
	k, err := c.fetch(ctx)
	c.metrics.RecordPublicKeyFetch(err == nil, time.Since(start))
	if err != nil {
		monitoring.RecordSpanError(ctx, err)
		c.log.Error(ctx, "Failed to fetch public key", err, logger.Fields{"endpoint": c.endpoint})
		return nil, errors.ErrKeyFetch.WithError(err)
	}

	c.current.Store(k)
	c.log.Info(ctx, "Public key refreshed", logger.Fields{"endpoint": c.endpoint})
	return k, nil
}

func (c *PublicKeyCache) fetch(ctx context.Context) (*CachedKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.endpoint)
	}

	var body publicKeyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode public key response: %w", err)
	}
	if !body.Success || body.Data.PublicKey == "" {
		return nil, fmt.Errorf("public key response carries no key")
	}
	if body.Data.Algorithm != "" && body.Data.Algorithm != constants.SigningAlgorithm {
		return nil, fmt.Errorf("issuer advertises unsupported algorithm %q", body.Data.Algorithm)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(body.Data.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &CachedKey{Value: body.Data.PublicKey, Key: key, FetchedAt: c.now()}, nil
}
