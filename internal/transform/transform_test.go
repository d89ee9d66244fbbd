package transform

import (
	"strings"
	"testing"

	"github.com/lorebridge/lorebridge/internal/remote"
)

func TestArticleBodyRendered(t *testing.T) {
	a := &remote.Article{
		ID:      "a1",
		Title:   "Rivertown",
		Content: "A town on **two** rivers.",
	}
	c, err := New().Article(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.HTML, "<strong>two</strong>") {
		t.Errorf("expected rendered markup, got %q", c.HTML)
	}
}

func TestSectionsRenderedWithTitles(t *testing.T) {
	a := &remote.Article{
		ID:    "a1",
		Title: "Rivertown",
		Sections: map[string]remote.Section{
			"history": {Title: "History", Content: "Founded long ago."},
		},
	}
	c, err := New().Article(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.HTML, "<h2>History</h2>") {
		t.Errorf("expected section heading, got %q", c.HTML)
	}
	if !strings.Contains(c.HTML, "Founded long ago.") {
		t.Errorf("expected section body, got %q", c.HTML)
	}
}

func TestSidebarHiddenByDefault(t *testing.T) {
	a := &remote.Article{
		ID: "a1",
		Sections: map[string]remote.Section{
			"sidebarcontent": {Content: "Sidebar notes"},
		},
	}
	c, err := New().Article(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(c.HTML, "Sidebar notes") {
		t.Error("expected sidebar content hidden without the toggle")
	}
}

func TestSidebarShownWhenToggled(t *testing.T) {
	a := &remote.Article{
		ID: "a1",
		Sections: map[string]remote.Section{
			"displaysidebar": {Content: "1"},
			"sidebarcontent": {Content: "Sidebar notes"},
		},
	}
	c, err := New().Article(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.HTML, "Sidebar notes") {
		t.Error("expected sidebar content with the toggle set")
	}
	if strings.Contains(c.HTML, "displaysidebar") {
		t.Error("expected the toggle section itself to be omitted")
	}
}

func TestSecretsExtracted(t *testing.T) {
	a := &remote.Article{
		ID: "a1",
		Sections: map[string]remote.Section{
			"secret_hidden-door": {Content: "There is a hidden door."},
			"secret_treasure":    {Content: "Gold under the floor."},
			"history":            {Title: "History", Content: "Public knowledge."},
		},
	}
	c, err := New().Article(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.SecretIDs) != 2 {
		t.Fatalf("expected 2 secret ids, got %d", len(c.SecretIDs))
	}
	// Section keys are processed in sorted order.
	if c.SecretIDs[0] != "hidden-door" || c.SecretIDs[1] != "treasure" {
		t.Errorf("unexpected secret ids: %v", c.SecretIDs)
	}
	if !strings.Contains(c.HTML, `data-secret-id="hidden-door"`) {
		t.Errorf("expected secret marker in html, got %q", c.HTML)
	}
}

func TestRelationsRendered(t *testing.T) {
	a := &remote.Article{
		ID: "a1",
		Relations: map[string]remote.RelationValue{
			"ruler": {Refs: []remote.Ref{{ID: "p1", Title: "The Mayor", URL: "https://example.com/p1"}}},
		},
	}
	c, err := New().Article(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.HTML, "The Mayor") {
		t.Errorf("expected relation link text, got %q", c.HTML)
	}
	if !strings.Contains(c.HTML, `href="https://example.com/p1"`) {
		t.Errorf("expected relation href, got %q", c.HTML)
	}
}

func TestImagePriority(t *testing.T) {
	base := remote.Article{ID: "a1", Content: "![inline](https://example.com/inline.png)"}

	withPortrait := base
	withPortrait.Portrait = &remote.Image{URL: "https://example.com/p.png"}
	withPortrait.Cover = &remote.Image{URL: "https://example.com/c.png"}

	withCover := base
	withCover.Cover = &remote.Image{URL: "https://example.com/c.png"}

	tests := []struct {
		name    string
		article remote.Article
		want    string
	}{
		{"portrait wins", withPortrait, "https://example.com/p.png"},
		{"cover next", withCover, "https://example.com/c.png"},
		{"first img fallback", base, "https://example.com/inline.png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New().Article(&tc.article)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Image != tc.want {
				t.Errorf("expected image %q, got %q", tc.want, c.Image)
			}
		})
	}
}

func TestEmptyArticleProducesNoImage(t *testing.T) {
	c, err := New().Article(&remote.Article{ID: "a1", Title: "Blank"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Image != "" {
		t.Errorf("expected no image, got %q", c.Image)
	}
	if len(c.SecretIDs) != 0 {
		t.Errorf("expected no secrets, got %v", c.SecretIDs)
	}
}
