package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// pageLimit is the page size requested from list endpoints. A page with
// fewer items than this is treated as the last one; a full final page
// costs one extra empty request, which is deliberate (truncating on an
// exactly-full page would silently drop items if the remote paging
// semantics ever differ from ours).
const pageLimit = 50

// AuthError means no credentials are configured for the remote service.
type AuthError struct{}

func (e *AuthError) Error() string {
	return "remote: no application key or auth token configured"
}

// HTTPError is a non-success response from the remote service.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote: HTTP %d from %s", e.Status, e.URL)
}

// Client issues authenticated requests against the worldbuilding API.
// List endpoints are paginated transparently. Worlds are memoized per
// client; everything else is fetched on demand.
type Client struct {
	baseURL string
	appKey  string
	token   string
	http    *http.Client
	worlds  map[string]*World
}

// NewClient creates a client for the given API base URL. Empty appKey or
// token leaves the client unauthenticated; every fetch then fails with
// AuthError except GetWorlds, which returns an empty list.
func NewClient(baseURL, appKey, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		appKey:  appKey,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		worlds:  make(map[string]*World),
	}
}

// Authenticated reports whether credentials are configured.
func (c *Client) Authenticated() bool {
	return c.appKey != "" && c.token != ""
}

// fetchOne issues a single authenticated GET and decodes the JSON body
// into out. The constructed URL is logged for diagnostics.
func (c *Client) fetchOne(ctx context.Context, path string, params url.Values, out any) error {
	if !c.Authenticated() {
		return &AuthError{}
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	log.Printf("remote: GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("x-application-key", c.appKey)
	req.Header.Set("x-auth-token", c.token)
	req.Header.Set("User-Agent", "lorebridge/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &HTTPError{Status: resp.StatusCode, URL: u}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// fetchPaginated repeatedly fetches a list endpoint, advancing offset by
// the number of items each page returned, and concatenates the arrays
// found under collectionKey. It stops once a page returns fewer than
// pageLimit items. Callers must not depend on wrapper fields beyond the
// collection itself.
func (c *Client) fetchPaginated(ctx context.Context, path, collectionKey string, params url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage
	offset := 0

	for {
		p := url.Values{}
		for k, vs := range params {
			p[k] = vs
		}
		p.Set("limit", strconv.Itoa(pageLimit))
		p.Set("offset", strconv.Itoa(offset))

		var page map[string]json.RawMessage
		if err := c.fetchOne(ctx, path, p, &page); err != nil {
			return nil, err
		}

		var items []json.RawMessage
		if raw, ok := page[collectionKey]; ok && string(raw) != "null" {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decoding %s collection %q: %w", path, collectionKey, err)
			}
		}

		all = append(all, items...)
		if len(items) < pageLimit {
			return all, nil
		}
		offset += len(items)
	}
}

// decodePage unmarshals each raw collection item into T.
func decodePage[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decoding collection item: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

// GetWorld fetches one world, memoized by id. A different id forces a
// fresh fetch; the same id is served from cache.
func (c *Client) GetWorld(ctx context.Context, worldID string) (*World, error) {
	if w, ok := c.worlds[worldID]; ok {
		return w, nil
	}
	var w World
	if err := c.fetchOne(ctx, "/world/"+worldID, nil, &w); err != nil {
		return nil, err
	}
	c.worlds[worldID] = &w
	return &w, nil
}

// GetWorlds lists the worlds visible to the configured user. Without
// credentials it returns an empty list rather than an error.
func (c *Client) GetWorlds(ctx context.Context) ([]World, error) {
	if !c.Authenticated() {
		return nil, nil
	}
	raws, err := c.fetchPaginated(ctx, "/user/worlds", "worlds", nil)
	if err != nil {
		return nil, err
	}
	return decodePage[World](raws)
}

// GetCategories lists every category of a world.
func (c *Client) GetCategories(ctx context.Context, worldID string) ([]Category, error) {
	raws, err := c.fetchPaginated(ctx, "/world/"+worldID+"/categories", "categories", nil)
	if err != nil {
		return nil, err
	}
	return decodePage[Category](raws)
}

// GetArticles lists every article stub of a world.
func (c *Client) GetArticles(ctx context.Context, worldID string) ([]ArticleStub, error) {
	raws, err := c.fetchPaginated(ctx, "/world/"+worldID+"/articles", "articles", nil)
	if err != nil {
		return nil, err
	}
	return decodePage[ArticleStub](raws)
}

// GetArticle fetches one full article by id.
func (c *Client) GetArticle(ctx context.Context, articleID string) (*Article, error) {
	params := url.Values{"granularity": {"2"}}
	var a Article
	if err := c.fetchOne(ctx, "/article/"+articleID, params, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
