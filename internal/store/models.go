package store

// Permission levels for a document's default (player-facing) access.
// A document is visible to players at Observer or above.
const (
	PermissionNone     = 0
	PermissionLimited  = 1
	PermissionObserver = 2
	PermissionOwner    = 3
)

// Document is a local journal entry, bound to at most one remote article.
type Document struct {
	ID         int64
	Name       string
	FolderID   *int64
	HTML       string
	Image      *string
	ArticleID  *string
	ArticleURL *string
	Permission int
	CreatedAt  *string
	UpdatedAt  *string
}

// Visible reports whether players can see the document.
func (d Document) Visible() bool {
	return d.Permission >= PermissionObserver
}

// Folder is a local container, bound to at most one remote category.
type Folder struct {
	ID         int64
	Name       string
	ParentID   *int64
	CategoryID *string
	CreatedAt  *string
}

// Stats contains aggregate journal statistics.
type Stats struct {
	Documents        int
	VisibleDocuments int
	Folders          int
	Secrets          int
	RevealedSecrets  int
}
