package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is used by HTTPRemote.Subscribe when none is set.
const DefaultPollInterval = 5 * time.Second

// HTTPRemote talks to a document server. Authentication is the job of the
// supplied http.Client (see auth.Client).
type HTTPRemote struct {
	baseURL    string
	httpClient *http.Client
	poll       time.Duration
	logger     zerolog.Logger
}

// NewHTTPRemote returns a remote for the server at baseURL.
func NewHTTPRemote(baseURL string, httpClient *http.Client, poll time.Duration, logger zerolog.Logger) *HTTPRemote {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &HTTPRemote{baseURL: baseURL, httpClient: httpClient, poll: poll, logger: logger}
}

func (r *HTTPRemote) endpoint(collection, user string) string {
	return fmt.Sprintf("%s/v1/docs/%s/%s", r.baseURL, url.PathEscape(collection), url.PathEscape(user))
}

// Get fetches the document body.
func (r *HTTPRemote) Get(ctx context.Context, collection, user string) ([]byte, error) {
	body, _, _, err := r.fetch(ctx, collection, user, "")
	return body, err
}

// fetch performs a conditional GET. notModified is true when etag still
// matches the server revision.
func (r *HTTPRemote) fetch(ctx context.Context, collection, user, etag string) (body []byte, rev string, notModified bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(collection, user), nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", false, fmt.Errorf("document server request failed: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, "", false, fmt.Errorf("reading response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return data, resp.Header.Get("ETag"), false, nil
	case http.StatusNotModified:
		return nil, etag, true, nil
	case http.StatusNotFound:
		return nil, "", false, ErrNotFound
	default:
		return nil, "", false, fmt.Errorf("document server error %d: %s", resp.StatusCode, string(data))
	}
}

// Put replaces the document body.
func (r *HTTPRemote) Put(ctx context.Context, collection, user string, doc []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.endpoint(collection, user), bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("document server request failed: %w", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("document server error %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

// Subscribe polls the server with If-None-Match and calls fn whenever the
// revision changes. The document present at subscription time is the
// baseline and is not reported.
func (r *HTTPRemote) Subscribe(ctx context.Context, collection, user string, fn func([]byte)) (func(), error) {
	_, rev, _, err := r.fetch(ctx, collection, user, "")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			body, next, notModified, err := r.fetch(ctx, collection, user, rev)
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, ErrNotFound), notModified:
				continue
			case err != nil:
				r.logger.Warn().Err(err).Str("collection", collection).Msg("poll failed")
				continue
			}
			if next == rev && next != "" {
				continue
			}
			rev = next
			fn(body)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
