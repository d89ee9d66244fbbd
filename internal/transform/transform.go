// Package transform maps one remote article into local-document-ready
// content: an HTML body, an extracted image, and the list of secret ids
// the body contains.
package transform

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/yuin/goldmark"

	"github.com/lorebridge/lorebridge/internal/remote"
)

// Section keys with structural meaning. displaySidebarKey toggles whether
// the sidebar sections are included; secretPrefix marks a section as a
// secret whose reveal state is tracked per document.
const (
	displaySidebarKey = "displaysidebar"
	secretPrefix      = "secret_"
)

var sidebarKeys = map[string]bool{
	"sidebarcontent":       true,
	"sidebarcontentbottom": true,
	"sidepanelcontent":     true,
	"sidepaneltop":         true,
}

// Content is the payload the sync engine persists. Hooks registered with
// the engine may rewrite it before persistence.
type Content struct {
	HTML      string
	Image     string
	SecretIDs []string
}

// Transformer renders remote articles into Content. With an HTTP client
// configured it additionally fetches readable text for articles whose
// body is empty but which carry an external URL.
type Transformer struct {
	md     goldmark.Markdown
	client *http.Client
}

// New creates a transformer without external-content fetching.
func New() *Transformer {
	return &Transformer{md: goldmark.New()}
}

// NewWithExternalFetch creates a transformer that falls back to fetching
// and extracting an article's public page when the body is empty.
func NewWithExternalFetch(timeout time.Duration) *Transformer {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Transformer{
		md:     goldmark.New(),
		client: &http.Client{Timeout: timeout},
	}
}

// Article renders a remote article into a Content payload.
func (t *Transformer) Article(a *remote.Article) (*Content, error) {
	var buf bytes.Buffer

	body := a.Content
	if body == "" && a.URL != "" && t.client != nil {
		body = t.fetchExternal(a.URL)
	}
	if body != "" {
		if err := t.md.Convert([]byte(body), &buf); err != nil {
			return nil, fmt.Errorf("rendering body of %q: %w", a.Title, err)
		}
	}

	showSidebar := false
	if s, ok := a.Sections[displaySidebarKey]; ok {
		showSidebar = truthy(s.Content)
	}

	var secretIDs []string
	for _, key := range sortedKeys(a.Sections) {
		if key == displaySidebarKey {
			continue
		}
		section := a.Sections[key]

		if strings.HasPrefix(key, secretPrefix) {
			id := strings.TrimPrefix(key, secretPrefix)
			secretIDs = append(secretIDs, id)
			rendered, err := t.render(section.Content)
			if err != nil {
				return nil, fmt.Errorf("rendering secret %q of %q: %w", id, a.Title, err)
			}
			fmt.Fprintf(&buf, "<section class=%q data-secret-id=%q>%s</section>\n", "secret", id, rendered)
			continue
		}

		if sidebarKeys[key] && !showSidebar {
			continue
		}

		if section.Title != "" {
			fmt.Fprintf(&buf, "<h2>%s</h2>\n", html.EscapeString(section.Title))
		}
		rendered, err := t.render(section.Content)
		if err != nil {
			return nil, fmt.Errorf("rendering section %q of %q: %w", key, a.Title, err)
		}
		buf.WriteString(rendered)
	}

	if rel := renderRelations(a.Relations); rel != "" {
		buf.WriteString(rel)
	}

	content := &Content{
		HTML:      buf.String(),
		SecretIDs: secretIDs,
	}
	content.Image = pickImage(a, content.HTML)
	return content, nil
}

func (t *Transformer) render(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := t.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderRelations appends the cross-reference bag as a link list, keyed
// sections in deterministic order.
func renderRelations(relations map[string]remote.RelationValue) string {
	if len(relations) == 0 {
		return ""
	}
	var buf bytes.Buffer
	buf.WriteString("<h2>Related</h2>\n<ul class=\"relations\">\n")
	wrote := false
	for _, key := range sortedKeys(relations) {
		for _, ref := range relations[key].Refs {
			if ref.Title == "" {
				continue
			}
			wrote = true
			if ref.URL != "" {
				fmt.Fprintf(&buf, "<li><a href=%q>%s</a></li>\n", ref.URL, html.EscapeString(ref.Title))
			} else {
				fmt.Fprintf(&buf, "<li>%s</li>\n", html.EscapeString(ref.Title))
			}
		}
	}
	if !wrote {
		return ""
	}
	buf.WriteString("</ul>\n")
	return buf.String()
}

// pickImage chooses the document image: portrait wins over cover, and
// with neither set the first <img> of the rendered body is used.
func pickImage(a *remote.Article, renderedHTML string) string {
	if a.Portrait != nil && a.Portrait.URL != "" {
		return a.Portrait.URL
	}
	if a.Cover != nil && a.Cover.URL != "" {
		return a.Cover.URL
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

// fetchExternal pulls readable text from an article's public page.
// Failures are advisory: the article still syncs with an empty body.
func (t *Transformer) fetchExternal(articleURL string) string {
	req, err := http.NewRequest(http.MethodGet, articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "lorebridge/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("transform: external fetch of %s failed: %v", articleURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("transform: external fetch of %s: HTTP %d", articleURL, resp.StatusCode)
		return ""
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(articleURL)
	page, err := readability.FromReader(bytes.NewReader(bodyBytes), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(page.TextContent)
	if len(text) < 100 {
		return ""
	}
	return text
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
