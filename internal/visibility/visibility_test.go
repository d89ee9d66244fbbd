package visibility

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lorebridge/lorebridge/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(s string) *string { return &s }

func TestSetArticleVisibility(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertDocument("A", nil, "", nil, ptr("a1"), nil, store.PermissionNone)

	r := New(s)
	if err := r.SetArticleVisibility(id, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _ := s.GetDocumentByID(id)
	if !doc.Visible() {
		t.Error("expected document visible after toggle on")
	}

	if err := r.SetArticleVisibility(id, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _ = s.GetDocumentByID(id)
	if doc.Visible() {
		t.Error("expected document hidden after toggle off")
	}
}

func TestSetArticleVisibilityNotFound(t *testing.T) {
	s := openTestStore(t)
	err := New(s).SetArticleVisibility(99, true)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestSetCategoryVisibilityOnlyWrongSide(t *testing.T) {
	s := openTestStore(t)
	s.InsertDocument("A", nil, "", nil, ptr("a1"), nil, store.PermissionNone)
	id2, _ := s.InsertDocument("B", nil, "", nil, ptr("a2"), nil, store.PermissionObserver)
	s.InsertDocument("C", nil, "", nil, ptr("a3"), nil, store.PermissionNone)

	// a2 is already visible, only a1 and a3 should change.
	changed, err := New(s).SetCategoryVisibility([]string{"a1", "a2", "a3"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed != 2 {
		t.Errorf("expected 2 documents changed, got %d", changed)
	}

	for _, articleID := range []string{"a1", "a2", "a3"} {
		doc, _ := s.FindDocumentByArticleID(articleID)
		if !doc.Visible() {
			t.Errorf("expected %s visible", articleID)
		}
	}

	// Owner-level documents count as visible and are left alone when
	// toggling on, but are demoted when toggling off.
	s.SetDocumentPermission(id2, store.PermissionOwner)
	changed, _ = New(s).SetCategoryVisibility([]string{"a2"}, true)
	if changed != 0 {
		t.Errorf("expected no change for already-visible document, got %d", changed)
	}
	changed, _ = New(s).SetCategoryVisibility([]string{"a2"}, false)
	if changed != 1 {
		t.Errorf("expected 1 change when hiding, got %d", changed)
	}
}

func TestSetCategoryVisibilitySkipsUnbound(t *testing.T) {
	s := openTestStore(t)
	s.InsertDocument("A", nil, "", nil, ptr("a1"), nil, store.PermissionNone)

	changed, err := New(s).SetCategoryVisibility([]string{"a1", "never-synced"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed != 1 {
		t.Errorf("expected only the bound document changed, got %d", changed)
	}
}

func TestCategoryVisible(t *testing.T) {
	s := openTestStore(t)
	s.InsertDocument("A", nil, "", nil, ptr("a1"), nil, store.PermissionNone)
	s.InsertDocument("B", nil, "", nil, ptr("a2"), nil, store.PermissionObserver)

	r := New(s)
	visible, err := r.CategoryVisible([]string{"a1", "a2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !visible {
		t.Error("expected category visible when one article is")
	}

	visible, _ = r.CategoryVisible([]string{"a1"})
	if visible {
		t.Error("expected category hidden when no article is visible")
	}

	visible, _ = r.CategoryVisible(nil)
	if visible {
		t.Error("expected empty category hidden")
	}
}
