package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

type Visibility string

const (
	VisibilityPublic Visibility = "public"
	VisibilitySigned Visibility = "signed"
)

type AccessURL struct {
	URL        string
	Visibility Visibility
}

// AccessResolver turns a stored object into a URL a client can fetch: the
// public URL when the bucket is public, a signed URL otherwise.
type AccessResolver struct {
	backend   Backend
	cache     *VisibilityCache
	rawExpiry string
	logger    *slog.Logger
}

// NewAccessResolver keeps rawExpiry unparsed. An invalid value only fails
// requests that actually need a signed URL.
func NewAccessResolver(backend Backend, cache *VisibilityCache, rawExpiry string, logger *slog.Logger) *AccessResolver {
	if cache == nil {
		cache = NewVisibilityCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessResolver{
		backend:   backend,
		cache:     cache,
		rawExpiry: rawExpiry,
		logger:    logger.With("component", "access_resolver"),
	}
}

func (r *AccessResolver) ResolveURL(ctx context.Context, bucket, path string) (*AccessURL, error) {
	if r.isPublic(ctx, bucket) {
		if url := r.backend.PublicURL(bucket, path); url != "" {
			return &AccessURL{URL: url, Visibility: VisibilityPublic}, nil
		}
	}

	expiry, err := parseExpiry(r.rawExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: bucket %q is not public and signed url expiry is invalid: %v", ErrSignedURLUnavailable, bucket, err)
	}

	signed, err := r.backend.SignedURL(ctx, bucket, path, expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignedURLUnavailable, err)
	}
	if signed == "" {
		return nil, fmt.Errorf("%w: backend returned an empty signed url", ErrSignedURLUnavailable)
	}
	return &AccessURL{URL: signed, Visibility: VisibilitySigned}, nil
}

// Cache exposes the visibility cache so callers can reset it.
func (r *AccessResolver) Cache() *VisibilityCache {
	return r.cache
}

func (r *AccessResolver) isPublic(ctx context.Context, bucket string) bool {
	if public, ok := r.cache.Get(bucket); ok {
		return public
	}

	public, err := r.backend.BucketPublic(ctx, bucket)
	if err != nil {
		r.logger.Warn("unable to determine bucket visibility, assuming private", "bucket", bucket, "error", err)
		public = false
	}
	r.cache.Set(bucket, public)
	return public
}

func parseExpiry(raw string) (int, error) {
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", seconds)
	}
	return seconds, nil
}
