// Package httpapi fetches the lesson and client collections from a JSON API.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aulas/internal/core"
	"aulas/internal/sources"
)

const (
	DefaultLessonsPath = "/aulas"
	DefaultClientsPath = "/base"

	// maxErrorBody bounds how much of a failed response is kept in StatusError.
	maxErrorBody = 512
)

var _ sources.Source = (*Client)(nil)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Config holds the upstream location.
type Config struct {
	BaseURL     string
	LessonsPath string
	ClientsPath string
	Timeout     time.Duration
}

type Client struct {
	http       *http.Client
	lessonsURL string
	clientsURL string
}

// New builds a client. Empty paths default to /aulas and /base.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme %q: must be http or https", base.Scheme)
	}
	lessons := cfg.LessonsPath
	if lessons == "" {
		lessons = DefaultLessonsPath
	}
	clients := cfg.ClientsPath
	if clients == "" {
		clients = DefaultClientsPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		lessonsURL: base.String() + "/" + strings.TrimLeft(lessons, "/"),
		clientsURL: base.String() + "/" + strings.TrimLeft(clients, "/"),
	}, nil
}

// FetchLessons implements sources.LessonSource
func (c *Client) FetchLessons(ctx context.Context) ([]core.RawRecord, error) {
	return c.getArray(ctx, c.lessonsURL)
}

// FetchClients implements sources.ClientSource
func (c *Client) FetchClients(ctx context.Context) ([]core.RawRecord, error) {
	return c.getArray(ctx, c.clientsURL)
}

func (c *Client) getArray(ctx context.Context, target string) ([]core.RawRecord, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	// Numbers stay json.Number so large ids keep their exact digits.
	out, err := sources.DecodeRecords(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, err)
	}

	slog.DebugContext(ctx, "Fetched source collection",
		"url", target,
		"records", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}
