// Package backend is the HTTP client for the remote Twimp game service. The
// service owns all game logic; this client only forwards parameters.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Routes names the paths a game mode uses. They vary by mode but share
// request and response shapes.
type Routes struct {
	Play string
	AWTY string
	Next string
	// Meta is the prefix for GET <Meta>/<id>.
	Meta string
}

// RoutesFor builds the conventional routes under base, e.g. "/easter".
func RoutesFor(base string) Routes {
	base = "/" + strings.Trim(base, "/")
	return Routes{
		Play: base + "/play",
		AWTY: base + "/awty",
		Next: base + "/next",
		Meta: base,
	}
}

func (c *Client) Play(ctx context.Context, routes Routes, req LocationRequest) (PlayResponse, error) {
	var resp PlayResponse
	if err := c.post(ctx, routes.Play, req, &resp); err != nil {
		return PlayResponse{}, fmt.Errorf("starting session: %w", err)
	}
	return resp, nil
}

func (c *Client) AWTY(ctx context.Context, routes Routes, req LocationRequest) (AWTYResponse, error) {
	var resp AWTYResponse
	if err := c.post(ctx, routes.AWTY, req, &resp); err != nil {
		return AWTYResponse{}, fmt.Errorf("checking arrival: %w", err)
	}
	return resp, nil
}

func (c *Client) Next(ctx context.Context, routes Routes, req NextRequest) (NextResponse, error) {
	var resp NextResponse
	if err := c.post(ctx, routes.Next, req, &resp); err != nil {
		return NextResponse{}, fmt.Errorf("submitting %s: %w", req.Action, err)
	}
	return resp, nil
}

func (c *Client) Game(ctx context.Context, routes Routes, id string) (GameInfo, error) {
	var info GameInfo
	if err := c.get(ctx, routes.Meta+"/"+url.PathEscape(id), &info); err != nil {
		return GameInfo{}, fmt.Errorf("fetching game %q: %w", id, err)
	}
	return info, nil
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
