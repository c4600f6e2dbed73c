package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

const (
	userAgent      = "remoteboard-ingest/1.0"
	maxBodySnippet = 256
)

// getJSON issues a GET and decodes a 2xx JSON body into out. Any other status
// becomes a *model.HTTPError carrying a short body snippet.
func getJSON(ctx context.Context, client *http.Client, ats, key, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s fetch for %s: %w", ats, key, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s fetch for %s: %w", ats, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       strings.Join(strings.Fields(string(snippet)), " "),
			Err:        fmt.Errorf("%s fetch for %s: unexpected status %d", ats, key, resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s fetch for %s: decoding response: %w", ats, key, err)
	}
	return nil
}

// missingJobsError reports a 2xx body that carries no job list. Treating it as
// an empty board would expire every job of the source.
func missingJobsError(ats, key string) error {
	return fmt.Errorf("%s fetch for %s: decoding response: no jobs list in body", ats, key)
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
