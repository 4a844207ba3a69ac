package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string { return fmt.Sprintf("server returned %d", e.status) }

type apiClient struct {
	base *url.URL
	http *http.Client
}

func newAPIClient(g *globals) (*apiClient, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(g.server), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	return &apiClient{base: u, http: &http.Client{Timeout: g.timeout}}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	endpoint := *c.base
	if i := strings.Index(path, "?"); i >= 0 {
		endpoint.RawQuery = path[i+1:]
		path = path[:i]
	}
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + path

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &httpError{status: resp.StatusCode, body: prettyJSON(data)}
	}
	return data, nil
}

func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func printJSON(raw []byte) {
	fmt.Fprintln(os.Stdout, prettyJSON(raw))
}
