// Package remote is the HTTP client for the repopatch server API:
// connection probe, directory listing, batched file content, and patch
// application.
package remote

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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/davell/repopatch/internal/models"
)

// directoryCacheSize bounds the number of cached directory listings.
const directoryCacheSize = 32

// DirectoryResult is a fetched directory tree plus the canonicalized root
// path the server resolved the requested path to. Callers must replace
// their stored path with Root.
type DirectoryResult struct {
	Root string
	Tree map[string]*models.TreeNode
}

// Client talks to a repopatch server endpoint.
//
// For absolute endpoints the client retries a failed request once on the
// alternate scheme (https to http or back) and sticks with whichever
// worked. Root-relative endpoints are used as-is, never subject to
// fallback.
//
// Directory listings are cached until explicitly invalidated; there is no
// automatic staleness detection. Refresh is the caller's action.
type Client struct {
	base  string
	httpc *http.Client
	trees *lru.Cache[string, *DirectoryResult]
}

// NewClient creates a client for the given endpoint, e.g.
// "http://localhost:3000".
func NewClient(endpoint string) (*Client, error) {
	return NewClientWithHTTP(endpoint, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a client with a caller-supplied http.Client,
// used by tests to count or fake transport calls.
func NewClientWithHTTP(endpoint string, httpc *http.Client) (*Client, error) {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is empty")
	}
	trees, err := lru.New[string, *DirectoryResult](directoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{base: endpoint, httpc: httpc, trees: trees}, nil
}

// Base returns the endpoint currently in use, including any scheme
// switch a fallback settled on.
func (c *Client) Base() string { return c.base }

// alternateScheme flips https and http on an absolute base URL. Returns
// "" when no alternate applies.
func alternateScheme(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "http://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "https://" + strings.TrimPrefix(base, "http://")
	}
	return ""
}

// doJSON performs one request against the endpoint and decodes the JSON
// body into out. Transport failures on an absolute endpoint are retried
// once on the alternate scheme; HTTP-level responses (any status) are
// decoded, not retried, since the server reports errors in-band with
// success:false.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	err := c.doJSONOnce(ctx, c.base, method, path, body, out)
	if err == nil {
		return nil
	}

	alt := alternateScheme(c.base)
	if alt == "" {
		return err
	}
	if altErr := c.doJSONOnce(ctx, alt, method, path, body, out); altErr == nil {
		c.base = alt
		return nil
	}
	return err
}

func (c *Client) doJSONOnce(ctx context.Context, base, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

type connectResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// Connect probes the endpoint.
func (c *Client) Connect(ctx context.Context) error {
	var resp connectResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/connect", nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server refused connection: %s", resp.Error)
	}
	return nil
}

type directoryResponse struct {
	Success bool                        `json:"success"`
	Root    string                      `json:"root"`
	Tree    map[string]*models.TreeNode `json:"tree"`
	Error   string                      `json:"error"`
}

// Directory fetches the tree for a server-side path. Results are served
// from the cache unless refresh is set, which re-fetches and replaces the
// cached entry wholesale.
func (c *Client) Directory(ctx context.Context, path string, refresh bool) (*DirectoryResult, error) {
	if !refresh {
		if cached, ok := c.trees.Get(path); ok {
			return cached, nil
		}
	}

	var resp directoryResponse
	q := "/api/directory?path=" + url.QueryEscape(path)
	if err := c.doJSON(ctx, http.MethodGet, q, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("directory %s: %s", path, resp.Error)
	}

	result := &DirectoryResult{Root: resp.Root, Tree: resp.Tree}
	c.trees.Add(path, result)
	if resp.Root != path {
		c.trees.Add(resp.Root, result)
	}
	return result, nil
}

// InvalidateDirectory drops any cached listings. Called by the explicit
// refresh action; nothing else expires the cache.
func (c *Client) InvalidateDirectory() {
	c.trees.Purge()
}

// FileResult is one file's entry in a batch response.
type FileResult struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

type filesRequest struct {
	Paths []string `json:"paths"`
}

type filesResponse struct {
	Success bool                  `json:"success"`
	Files   map[string]FileResult `json:"files"`
	Error   string                `json:"error"`
}

// Files fetches the contents of absolute server-side paths in one batched
// request. The returned map is keyed by the requested absolute path; the
// server may omit entries, which callers must treat as per-file failures.
func (c *Client) Files(ctx context.Context, paths []string) (map[string]FileResult, error) {
	var resp filesResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/files", filesRequest{Paths: paths}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("batch fetch: %s", resp.Error)
	}
	return resp.Files, nil
}

type applyRequest struct {
	DirectoryPath string `json:"directoryPath"`
	PatchContent  string `json:"patchContent"`
}

// ApplyPatch submits patch text for application against a server-side
// directory. The result carries partial progress even on failure.
func (c *Client) ApplyPatch(ctx context.Context, directoryPath, patchContent string) (*models.ApplyResult, error) {
	var resp models.ApplyResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/apply_patch", applyRequest{
		DirectoryPath: directoryPath,
		PatchContent:  patchContent,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
