// Package visibility computes and applies player-facing permission state
// for synced documents.
package visibility

import (
	"fmt"

	"github.com/lorebridge/lorebridge/internal/store"
)

// NotFoundError means a document expected to exist locally is absent.
type NotFoundError struct {
	DocumentID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("visibility: no document with id %d", e.DocumentID)
}

// Reconciler batch-applies permission changes to the journal.
type Reconciler struct {
	store *store.Store
}

// New creates a reconciler over the given store.
func New(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// SetArticleVisibility sets one document's player visibility. Returns
// NotFoundError if the document does not exist.
func (r *Reconciler) SetArticleVisibility(documentID int64, visible bool) error {
	doc, err := r.store.GetDocumentByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return &NotFoundError{DocumentID: documentID}
	}
	return r.store.SetDocumentPermission(documentID, targetPermission(visible))
}

// SetCategoryVisibility applies visibility to every bound document among
// the given article ids that is currently on the wrong side of the
// threshold, in one batched update. The ids must be the articles
// directly in the category: visibility never cascades to descendants.
// Returns the number of documents changed.
func (r *Reconciler) SetCategoryVisibility(articleIDs []string, visible bool) (int, error) {
	docs, err := r.store.FindDocumentsByArticleIDs(articleIDs)
	if err != nil {
		return 0, err
	}

	var ids []int64
	for _, d := range docs {
		if d.Visible() != visible {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.store.SetDocumentPermissions(ids, targetPermission(visible)); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CategoryVisible reports whether at least one of the directly-contained
// articles is visible to players.
func (r *Reconciler) CategoryVisible(articleIDs []string) (bool, error) {
	docs, err := r.store.FindDocumentsByArticleIDs(articleIDs)
	if err != nil {
		return false, err
	}
	for _, d := range docs {
		if d.Visible() {
			return true, nil
		}
	}
	return false, nil
}

func targetPermission(visible bool) int {
	if visible {
		return store.PermissionObserver
	}
	return store.PermissionNone
}
