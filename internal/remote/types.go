package remote

import "encoding/json"

// World is the top-level container for categories and articles.
type World struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Ref is a shallow reference to another remote entity.
type Ref struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Category groups articles. Parent is nil for top-level categories.
// Position is the remote sort key; nil means "sort by title".
type Category struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Position *float64 `json:"position"`
	Parent   *Ref     `json:"parent_category"`
}

// ArticleStub is the list-endpoint shape of an article: enough to decide
// whether and where to sync it, without the body.
type ArticleStub struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category *Ref   `json:"category"`
	IsDraft  bool   `json:"is_draft"`
	IsWIP    bool   `json:"is_wip"`
}

// CategoryID returns the referenced category id, or "" if uncategorized.
func (s *ArticleStub) CategoryID() string {
	if s.Category == nil {
		return ""
	}
	return s.Category.ID
}

// Section is one keyed sub-content block of an article.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Article is the full single-article shape.
type Article struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	URL       string                   `json:"url"`
	Category  *Ref                     `json:"category"`
	Content   string                   `json:"content"`
	Sections  map[string]Section       `json:"sections"`
	Relations map[string]RelationValue `json:"relations"`
	Portrait  *Image                   `json:"portrait"`
	Cover     *Image                   `json:"cover"`
	IsDraft   bool                     `json:"is_draft"`
	IsWIP     bool                     `json:"is_wip"`
}

// CategoryID returns the referenced category id, or "" if uncategorized.
func (a *Article) CategoryID() string {
	if a.Category == nil {
		return ""
	}
	return a.Category.ID
}

// Image is a remote image attachment.
type Image struct {
	URL string `json:"url"`
}

// RelationValue is a cross-reference bag entry. The remote API serializes
// a relation as either a single ref object or an array of them.
type RelationValue struct {
	Refs []Ref
}

// MarshalJSON always emits the array form.
func (r RelationValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Refs)
}

// UnmarshalJSON accepts both the single-object and the array form.
func (r *RelationValue) UnmarshalJSON(data []byte) error {
	var many []Ref
	if err := json.Unmarshal(data, &many); err == nil {
		r.Refs = many
		return nil
	}
	var one Ref
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	r.Refs = []Ref{one}
	return nil
}
