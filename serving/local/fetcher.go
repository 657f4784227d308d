package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultHubEndpoint = "https://huggingface.co"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// HubFetcher downloads model snapshots from the Hugging Face hub into a
// local directory. A snapshot already present is reused.
type HubFetcher struct {
	endpoint    string
	revision    string
	dir         string
	token       string
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

var _ Fetcher = (*HubFetcher)(nil)

// HubOption configures a HubFetcher.
type HubOption func(*HubFetcher)

// WithHubEndpoint overrides the hub base URL.
func WithHubEndpoint(endpoint string) HubOption {
	return func(f *HubFetcher) {
		f.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithHubRevision selects a branch, tag or commit. Default is main.
func WithHubRevision(revision string) HubOption {
	return func(f *HubFetcher) {
		f.revision = revision
	}
}

// WithHubClient sets the HTTP client.
func WithHubClient(client *http.Client) HubOption {
	return func(f *HubFetcher) {
		f.client = client
	}
}

// WithHubToken sets the access token. Default is $HF_TOKEN.
func WithHubToken(token string) HubOption {
	return func(f *HubFetcher) {
		f.token = token
	}
}

// NewHubFetcher creates a fetcher storing snapshots under dir.
func NewHubFetcher(dir string, opts ...HubOption) *HubFetcher {
	f := &HubFetcher{
		endpoint:    defaultHubEndpoint,
		revision:    "main",
		dir:         dir,
		token:       os.Getenv("HF_TOKEN"),
		client:      &http.Client{Timeout: 30 * time.Minute},
		concurrency: 4,
		logger:      slog.Default().With("component", "hub-fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type hubModelInfo struct {
	Siblings []struct {
		Filename string `json:"rfilename"`
	} `json:"siblings"`
}

// completeMarker is written once every file of a snapshot is present.
const completeMarker = ".complete"

// Fetch downloads every file of modelID and returns the snapshot directory.
func (f *HubFetcher) Fetch(ctx context.Context, modelID string) (string, error) {
	if modelID == "" {
		return "", ErrModelRequired
	}
	target := filepath.Join(f.dir, unsafeChars.ReplaceAllString(modelID, "_"))
	if _, err := os.Stat(filepath.Join(target, completeMarker)); err == nil {
		return target, nil
	}

	info, err := f.modelInfo(ctx, modelID)
	if err != nil {
		return "", err
	}
	f.logger.Info("downloading model", "model", modelID, "files", len(info.Siblings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, s := range info.Siblings {
		g.Go(func() error {
			u := fmt.Sprintf("%s/%s/resolve/%s/%s", f.endpoint, modelID, url.PathEscape(f.revision), s.Filename)
			return f.download(gctx, u, filepath.Join(target, filepath.FromSlash(s.Filename)))
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(target, completeMarker), nil, 0644); err != nil {
		return "", err
	}
	return target, nil
}

func (f *HubFetcher) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrModelFetch, u, resp.StatusCode)
	}
	return resp, nil
}

func (f *HubFetcher) modelInfo(ctx context.Context, modelID string) (*hubModelInfo, error) {
	u := fmt.Sprintf("%s/api/models/%s/revision/%s", f.endpoint, modelID, url.PathEscape(f.revision))
	resp, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var info hubModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: model info: %w", ErrModelFetch, err)
	}
	return &info, nil
}

func (f *HubFetcher) download(ctx context.Context, u, path string) error {
	resp, err := f.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
