package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const defaultModelScopeEndpoint = "https://www.modelscope.cn"

// ModelScopeResolver materialises ms: references by downloading
// "<split>.jsonl" from the dataset repository file API.
type ModelScopeResolver struct {
	endpoint string
	revision string
	client   *http.Client
	logger   *slog.Logger
}

// ModelScopeOption configures a ModelScopeResolver.
type ModelScopeOption func(*ModelScopeResolver)

// WithModelScopeEndpoint overrides the hub endpoint.
func WithModelScopeEndpoint(endpoint string) ModelScopeOption {
	return func(r *ModelScopeResolver) {
		r.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithModelScopeRevision sets the repository revision. Default is "master".
func WithModelScopeRevision(rev string) ModelScopeOption {
	return func(r *ModelScopeResolver) {
		r.revision = rev
	}
}

// WithModelScopeClient sets the HTTP client.
func WithModelScopeClient(client *http.Client) ModelScopeOption {
	return func(r *ModelScopeResolver) {
		r.client = client
	}
}

// NewModelScopeResolver creates a resolver for ms: references.
func NewModelScopeResolver(opts ...ModelScopeOption) *ModelScopeResolver {
	r := &ModelScopeResolver{
		endpoint: defaultModelScopeEndpoint,
		revision: "master",
		client:   &http.Client{Timeout: 10 * time.Minute},
		logger:   slog.Default().With("component", "ms-resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve downloads the split file into dir unless it is already cached.
func (r *ModelScopeResolver) Resolve(ctx context.Context, ref Ref, dir string) (string, error) {
	target := filepath.Join(dir, ref.CacheName("jsonl"))
	if fileExists(target) {
		r.logger.Debug("using cached dataset", "ref", ref.String(), "path", target)
		return target, nil
	}
	q := url.Values{}
	q.Set("Revision", r.revision)
	q.Set("FilePath", ref.Split+".jsonl")
	u := fmt.Sprintf("%s/api/v1/datasets/%s/repo?%s", r.endpoint, ref.Dataset, q.Encode())

	r.logger.Info("downloading dataset", "ref", ref.String())
	if err := download(ctx, r.client, u, "", target); err != nil {
		return "", err
	}
	return target, nil
}
