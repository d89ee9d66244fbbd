package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// pagedHandler serves a fixed collection under collectionKey, honoring
// limit/offset, and counts the requests it saw.
func pagedHandler(collectionKey string, total int, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*requests++
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var items []map[string]string
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]string{
				"id":    fmt.Sprintf("item-%d", i),
				"title": fmt.Sprintf("Item %d", i),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{collectionKey: items})
	}
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, "app-key", "token", 0)
}

func TestPaginationAssemblesAllPages(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(pagedHandler("articles", 137, &requests))
	defer srv.Close()

	stubs, err := testClient(srv).GetArticles(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stubs) != 137 {
		t.Errorf("expected 137 items, got %d", len(stubs))
	}
	if requests != 3 {
		t.Errorf("expected 3 page requests (50+50+37), got %d", requests)
	}
	if stubs[136].ID != "item-136" {
		t.Errorf("expected last item id item-136, got %s", stubs[136].ID)
	}
}

func TestPaginationExactlyFullLastPage(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(pagedHandler("articles", 100, &requests))
	defer srv.Close()

	stubs, err := testClient(srv).GetArticles(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stubs) != 100 {
		t.Errorf("expected 100 items, got %d", len(stubs))
	}
	// A full final page means one extra (empty) request. Deliberate.
	if requests != 3 {
		t.Errorf("expected 3 requests (50+50+0), got %d", requests)
	}
}

func TestUnauthenticatedFetchFailsWithAuthError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(srv.URL, "", "", 0)
	_, err := c.GetArticle(context.Background(), "a1")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthError, got %v", err)
	}
}

func TestUnauthenticatedGetWorldsReturnsEmpty(t *testing.T) {
	c := NewClient("http://unused.invalid", "", "", 0)
	worlds, err := c.GetWorlds(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(worlds) != 0 {
		t.Errorf("expected empty world list, got %d", len(worlds))
	}
}

func TestHTTPErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetArticle(context.Background(), "a1")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", httpErr.Status)
	}
}

func TestGetWorldMemoizes(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(World{ID: "w1", Name: "Testlands"})
	}))
	defer srv.Close()

	c := testClient(srv)
	for i := 0; i < 3; i++ {
		w, err := c.GetWorld(context.Background(), "w1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.Name != "Testlands" {
			t.Errorf("expected Testlands, got %q", w.Name)
		}
	}
	if requests != 1 {
		t.Errorf("expected 1 request for repeated GetWorld, got %d", requests)
	}
}

func TestAuthHeadersSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-application-key") != "app-key" || r.Header.Get("x-auth-token") != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(World{ID: "w1"})
	}))
	defer srv.Close()

	if _, err := testClient(srv).GetWorld(context.Background(), "w1"); err != nil {
		t.Errorf("expected authenticated request to succeed: %v", err)
	}
}

func TestRelationValueSingleOrList(t *testing.T) {
	var a Article
	data := []byte(`{
		"id": "a1",
		"title": "Rivertown",
		"relations": {
			"ruler": {"id": "p1", "title": "The Mayor"},
			"landmarks": [{"id": "l1", "title": "Old Bridge"}, {"id": "l2", "title": "Mill"}]
		}
	}`)
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a.Relations["ruler"].Refs) != 1 {
		t.Errorf("expected single relation to become 1 ref, got %d", len(a.Relations["ruler"].Refs))
	}
	if len(a.Relations["landmarks"].Refs) != 2 {
		t.Errorf("expected list relation to keep 2 refs, got %d", len(a.Relations["landmarks"].Refs))
	}
}
