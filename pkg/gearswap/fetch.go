package gearswap

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Fetch downloads raw lua text from the given URLs, so gearsets kept on
// GitHub or a pastebin can be analyzed without a local checkout. Any failed
// download aborts the batch.
func Fetch(urls []string) ([]ScriptFile, error) {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = 3
	client.HTTPClient.Timeout = 30 * time.Second

	files := make([]ScriptFile, 0, len(urls))
	for _, u := range urls {
		req, err := retryablehttp.NewRequest("GET", u, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid script URL %s: %w", u, err)
		}
		req.Header.Set("User-Agent", "gearsweep")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", u, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", u, err)
		}
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("fetching %s: unexpected status %d", u, resp.StatusCode)
		}

		files = append(files, ScriptFile{Name: remoteName(u), Text: string(body)})
	}
	return files, nil
}

func remoteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}
	return path.Base(u.Path)
}
