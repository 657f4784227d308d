package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Remote providers recognised by ParseRef.
const (
	ProviderHuggingFace = "hf"
	ProviderModelScope  = "ms"
	ProviderS3          = "s3"
)

// Ref identifies a remote dataset.
type Ref struct {
	Provider string
	// Dataset is "<org>/<name>" for hub providers and "<bucket>/<key>" for s3.
	Dataset string
	Config  string
	Split   string
}

func (r Ref) String() string {
	switch r.Provider {
	case ProviderHuggingFace:
		return fmt.Sprintf("hf:%s:%s:%s", r.Dataset, r.Config, r.Split)
	case ProviderModelScope:
		return fmt.Sprintf("ms:%s:%s", r.Dataset, r.Split)
	default:
		return r.Provider + ":" + r.Dataset
	}
}

// CacheName returns a file-system safe name for the cached copy.
func (r Ref) CacheName(ext string) string {
	name := unsafeChars.ReplaceAllString(r.String(), "_")
	return strings.Trim(name, "_") + "." + ext
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ParseRef parses a remote dataset reference. ok is false when s is not a
// remote reference at all (a plain path).
//
//	hf:<org>/<name>:<config>:<split>
//	hf:<org>/<name>:<split>          (config "default")
//	ms:<org>/<name>:<split>
//	s3:<bucket>/<key>
func ParseRef(s string) (ref Ref, ok bool, err error) {
	provider, rest, found := strings.Cut(s, ":")
	if !found {
		return Ref{}, false, nil
	}
	switch provider {
	case ProviderHuggingFace, ProviderModelScope, ProviderS3:
	default:
		return Ref{}, false, nil
	}

	ref.Provider = provider
	parts := strings.Split(rest, ":")
	switch provider {
	case ProviderHuggingFace:
		switch len(parts) {
		case 2:
			ref.Dataset, ref.Config, ref.Split = parts[0], "default", parts[1]
		case 3:
			ref.Dataset, ref.Config, ref.Split = parts[0], parts[1], parts[2]
		default:
			return Ref{}, true, fmt.Errorf("%w: %q: want hf:<org>/<name>[:<config>]:<split>", ErrInvalidRemoteRef, s)
		}
	case ProviderModelScope:
		if len(parts) != 2 {
			return Ref{}, true, fmt.Errorf("%w: %q: want ms:<org>/<name>:<split>", ErrInvalidRemoteRef, s)
		}
		ref.Dataset, ref.Split = parts[0], parts[1]
	case ProviderS3:
		ref.Dataset = rest
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Ref{}, true, fmt.Errorf("%w: %q: want s3:<bucket>/<key>", ErrInvalidRemoteRef, s)
		}
		return ref, true, nil
	}

	org, name, _ := strings.Cut(ref.Dataset, "/")
	if org == "" || name == "" || ref.Split == "" {
		return Ref{}, true, fmt.Errorf("%w: %q", ErrInvalidRemoteRef, s)
	}
	return ref, true, nil
}

// download fetches url into path through a temporary file.
func download(ctx context.Context, client *http.Client, url, token, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", ErrRemoteFetch, url, resp.StatusCode)
	}
	return writeAtomic(path, resp.Body)
}

// writeAtomic copies r to path via a temporary file in the same directory.
func writeAtomic(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
