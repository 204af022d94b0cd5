// Package health probes the upstream site and a running adapter.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapetech/tv4play/internal/fetch"
)

// CheckUpstream fetches the root catalog URL with client (nil = 15s
// default). Returns nil on 200. Cloudflare challenges are reported as
// *fetch.ErrBlocked.
func CheckUpstream(ctx context.Context, client *http.Client, catalogURL string) error {
	if catalogURL == "" {
		return fmt.Errorf("no catalog URL configured")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		if ok, cfErr := fetch.IsCFResponse(resp); ok {
			return cfErr
		}
		return fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CheckEndpoints hits healthz, the plug-in root and metrics at baseURL and
// returns the first error or nil.
func CheckEndpoints(ctx context.Context, baseURL, prefix string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	for _, path := range []string{"/healthz", prefix, "/metrics"} {
		url := baseURL + path
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
		}
	}
	return nil
}

// CheckResources reports the files in names that are missing from dir.
func CheckResources(dir string, names []string) error {
	var missing []string
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil || fi.IsDir() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %s", dir, strings.Join(missing, ", "))
	}
	return nil
}
