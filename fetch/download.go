package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/carbocation/pfx"
)

// Downloader saves the body at url to dst.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// HTTPDownloader performs one GET per download. Non-2xx responses leave
// nothing at dst.
type HTTPDownloader struct {
	Client *http.Client
}

func (h HTTPDownloader) Download(ctx context.Context, url, dst string) error {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pfx.Err(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return pfx.Err(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pfx.Err(fmt.Errorf("GET %s: %s", url, resp.Status))
	}

	f, err := os.Create(dst)
	if err != nil {
		return pfx.Err(err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

// DownloaderFunc adapts a function to the Downloader interface.
type DownloaderFunc func(ctx context.Context, url, dst string) error

func (f DownloaderFunc) Download(ctx context.Context, url, dst string) error {
	return f(ctx, url, dst)
}
