package publish

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"golang.org/x/sync/errgroup"
)

// httpClient is shared by every upload to reuse TCP connections.
var httpClient = &http.Client{}

func publishHTTP(ctx context.Context, input *Input, files []fsutil.Match) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*input.Concurrency)
	for _, f := range files {
		g.Go(func() error {
			target, err := url.JoinPath(input.URL, filepath.ToSlash(f.Rel))
			if err != nil {
				return fmt.Errorf("building upload url for %s: %w", f.Rel, err)
			}
			return uploadFile(gctx, f.Path, target, input.Headers)
		})
	}
	return g.Wait()
}

// uploadFile PUTs one file to target.
func uploadFile(ctx context.Context, path, target string, headers map[string]string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.ContentLength = stat.Size()

	logger.Debug("Uploading file.", "source", path, "url", target, "size", stat.Size(), "contentType", contentType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload of %s failed with status: %s", path, resp.Status)
	}
	return nil
}
