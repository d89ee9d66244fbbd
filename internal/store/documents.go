package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// InsertDocument creates a journal document and returns its id.
func (s *Store) InsertDocument(name string, folderID *int64, html string, image, articleID, articleURL *string, permission int) (int64, error) {
	result, err := s.conn.Exec(
		`INSERT INTO documents (name, folder_id, html, image, article_id, article_url, permission)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, folderID, html, image, articleID, articleURL, permission,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document %q: %w", name, err)
	}
	return result.LastInsertId()
}

// UpdateDocument overwrites a document's name, body, image, and article
// URL in place. Folder, permission, and the article binding are untouched.
func (s *Store) UpdateDocument(id int64, name, html string, image, articleURL *string) error {
	_, err := s.conn.Exec(
		`UPDATE documents SET name = ?, html = ?, image = ?, article_url = ?,
		updated_at = datetime('now') WHERE id = ?`,
		name, html, image, articleURL, id,
	)
	return err
}

// GetDocumentByID returns a document, or nil if it does not exist.
func (s *Store) GetDocumentByID(id int64) (*Document, error) {
	row := s.conn.QueryRow(documentSelect+" WHERE id = ?", id)
	return scanDocumentRow(row)
}

// FindDocumentByArticleID returns the document bound to a remote article
// id, or nil if no binding exists.
func (s *Store) FindDocumentByArticleID(articleID string) (*Document, error) {
	row := s.conn.QueryRow(documentSelect+" WHERE article_id = ?", articleID)
	return scanDocumentRow(row)
}

// FindDocumentByArticleURL returns the document bound to a remote
// article's public URL, or nil if none matches.
func (s *Store) FindDocumentByArticleURL(articleURL string) (*Document, error) {
	row := s.conn.QueryRow(documentSelect+" WHERE article_url = ?", articleURL)
	return scanDocumentRow(row)
}

// FindDocumentsByArticleIDs returns every document bound to one of the
// given remote article ids.
func (s *Store) FindDocumentsByArticleIDs(articleIDs []string) ([]Document, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(articleIDs)), ",")
	args := make([]any, len(articleIDs))
	for i, id := range articleIDs {
		args[i] = id
	}
	rows, err := s.conn.Query(
		documentSelect+" WHERE article_id IN ("+placeholders+") ORDER BY id", args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ListDocumentsInFolder returns the documents directly inside a folder,
// ordered by name. A nil folderID lists root-level documents.
func (s *Store) ListDocumentsInFolder(folderID *int64) ([]Document, error) {
	var rows *sql.Rows
	var err error
	if folderID == nil {
		rows, err = s.conn.Query(documentSelect + " WHERE folder_id IS NULL ORDER BY name")
	} else {
		rows, err = s.conn.Query(documentSelect+" WHERE folder_id = ? ORDER BY name", *folderID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// SetDocumentPermission updates one document's default permission.
func (s *Store) SetDocumentPermission(id int64, permission int) error {
	_, err := s.conn.Exec("UPDATE documents SET permission = ? WHERE id = ?", permission, id)
	return err
}

// SetDocumentPermissions updates the permission of every listed document
// in a single statement.
func (s *Store) SetDocumentPermissions(ids []int64, permission int) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, permission)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.conn.Exec(
		"UPDATE documents SET permission = ? WHERE id IN ("+placeholders+")", args...,
	)
	return err
}

// GetSecretStates returns the reveal state of every secret tracked for a
// document, keyed by secret id.
func (s *Store) GetSecretStates(documentID int64) (map[string]bool, error) {
	rows, err := s.conn.Query(
		"SELECT secret_id, revealed FROM document_secrets WHERE document_id = ?", documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var id string
		var revealed int
		if err := rows.Scan(&id, &revealed); err != nil {
			return nil, err
		}
		states[id] = revealed != 0
	}
	return states, rows.Err()
}

// ReplaceSecretStates replaces a document's secret states wholesale.
// Secret ids absent from states are dropped.
func (s *Store) ReplaceSecretStates(documentID int64, states map[string]bool) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM document_secrets WHERE document_id = ?", documentID); err != nil {
		tx.Rollback()
		return err
	}

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		revealed := 0
		if states[id] {
			revealed = 1
		}
		if _, err := tx.Exec(
			"INSERT INTO document_secrets (document_id, secret_id, revealed) VALUES (?, ?, ?)",
			documentID, id, revealed,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SetSecretRevealed toggles one secret's reveal state.
func (s *Store) SetSecretRevealed(documentID int64, secretID string, revealed bool) error {
	v := 0
	if revealed {
		v = 1
	}
	result, err := s.conn.Exec(
		"UPDATE document_secrets SET revealed = ? WHERE document_id = ? AND secret_id = ?",
		v, documentID, secretID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %d has no secret %q", documentID, secretID)
	}
	return nil
}

// GetStats returns aggregate journal statistics.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{fmt.Sprintf("SELECT COUNT(*) FROM documents WHERE permission >= %d", PermissionObserver), &stats.VisibleDocuments},
		{"SELECT COUNT(*) FROM folders", &stats.Folders},
		{"SELECT COUNT(*) FROM document_secrets", &stats.Secrets},
		{"SELECT COUNT(*) FROM document_secrets WHERE revealed = 1", &stats.RevealedSecrets},
	}
	for _, q := range queries {
		if err := s.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

const documentSelect = `SELECT id, name, folder_id, html, image, article_id, article_url, permission, created_at, updated_at
	FROM documents`

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.FolderID, &d.HTML, &d.Image,
			&d.ArticleID, &d.ArticleURL, &d.Permission, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocumentRow(row *sql.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.FolderID, &d.HTML, &d.Image,
		&d.ArticleID, &d.ArticleURL, &d.Permission, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
