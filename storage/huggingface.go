package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/dataforge/core"
	"golang.org/x/sync/errgroup"
)

const defaultHuggingFaceEndpoint = "https://huggingface.co"

// HuggingFaceResolver materialises hf: references from the dataset parquet
// export of the Hugging Face hub.
type HuggingFaceResolver struct {
	endpoint    string
	token       string
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

// HuggingFaceOption configures a HuggingFaceResolver.
type HuggingFaceOption func(*HuggingFaceResolver)

// WithHuggingFaceEndpoint overrides the hub endpoint.
func WithHuggingFaceEndpoint(endpoint string) HuggingFaceOption {
	return func(r *HuggingFaceResolver) {
		r.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithHuggingFaceToken sets the access token for gated datasets.
// Defaults to the HF_TOKEN environment variable.
func WithHuggingFaceToken(token string) HuggingFaceOption {
	return func(r *HuggingFaceResolver) {
		r.token = token
	}
}

// WithHuggingFaceClient sets the HTTP client.
func WithHuggingFaceClient(client *http.Client) HuggingFaceOption {
	return func(r *HuggingFaceResolver) {
		r.client = client
	}
}

// WithShardConcurrency bounds concurrent shard downloads. Default is 4.
func WithShardConcurrency(n int) HuggingFaceOption {
	return func(r *HuggingFaceResolver) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// NewHuggingFaceResolver creates a resolver for hf: references.
func NewHuggingFaceResolver(opts ...HuggingFaceOption) *HuggingFaceResolver {
	r := &HuggingFaceResolver{
		endpoint:    defaultHuggingFaceEndpoint,
		token:       os.Getenv("HF_TOKEN"),
		client:      &http.Client{Timeout: 10 * time.Minute},
		concurrency: 4,
		logger:      slog.Default().With("component", "hf-resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve downloads every parquet shard of the split, concatenates them in
// shard order and caches the result as jsonl in dir.
func (r *HuggingFaceResolver) Resolve(ctx context.Context, ref Ref, dir string) (string, error) {
	target := filepath.Join(dir, ref.CacheName("jsonl"))
	if fileExists(target) {
		r.logger.Debug("using cached dataset", "ref", ref.String(), "path", target)
		return target, nil
	}

	shards, err := r.listShards(ctx, ref)
	if err != nil {
		return "", err
	}
	if len(shards) == 0 {
		return "", fmt.Errorf("%w: %s has no parquet shards", ErrRemoteFetch, ref)
	}
	r.logger.Info("downloading dataset", "ref", ref.String(), "shards", len(shards))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	shardDir, err := os.MkdirTemp(dir, ".hf-shards-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(shardDir)

	tables := make([]*core.Table, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, shardURL := range shards {
		g.Go(func() error {
			path := filepath.Join(shardDir, fmt.Sprintf("%05d.parquet", i))
			if err := download(gctx, r.client, shardURL, r.token, path); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			t, err := Decode("parquet", data)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	merged := core.NewTable(tables[0].Columns(), nil)
	for _, t := range tables {
		merged.Append(t.Rows()...)
	}
	if err := WriteFile(ctx, target, merged); err != nil {
		return "", err
	}
	r.logger.Info("dataset cached", "ref", ref.String(), "rows", merged.Len(), "path", target)
	return target, nil
}

func (r *HuggingFaceResolver) listShards(ctx context.Context, ref Ref) ([]string, error) {
	u := fmt.Sprintf("%s/api/datasets/%s/parquet/%s/%s",
		r.endpoint, ref.Dataset, url.PathEscape(ref.Config), url.PathEscape(ref.Split))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list shards of %s: status %d", ErrRemoteFetch, ref, resp.StatusCode)
	}
	var shards []string
	if err := json.NewDecoder(resp.Body).Decode(&shards); err != nil {
		return nil, fmt.Errorf("%w: list shards of %s: %w", ErrRemoteFetch, ref, err)
	}
	return shards, nil
}
