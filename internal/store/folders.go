package store

import (
	"database/sql"
	"fmt"
)

// InsertFolder creates a folder bound to a remote category id.
func (s *Store) InsertFolder(name string, parentID *int64, categoryID string) (int64, error) {
	result, err := s.conn.Exec(
		"INSERT INTO folders (name, parent_id, category_id) VALUES (?, ?, ?)",
		name, parentID, categoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting folder %q: %w", name, err)
	}
	return result.LastInsertId()
}

// GetFolderByID returns a folder, or nil if it does not exist.
func (s *Store) GetFolderByID(id int64) (*Folder, error) {
	row := s.conn.QueryRow(folderSelect+" WHERE id = ?", id)
	return scanFolderRow(row)
}

// FindFolderByCategoryID returns the folder bound to a remote category
// id, or nil if no binding exists.
func (s *Store) FindFolderByCategoryID(categoryID string) (*Folder, error) {
	row := s.conn.QueryRow(folderSelect+" WHERE category_id = ?", categoryID)
	return scanFolderRow(row)
}

// ListChildFolders returns the folders directly under a parent, ordered
// by name. A nil parentID lists top-level folders.
func (s *Store) ListChildFolders(parentID *int64) ([]Folder, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = s.conn.Query(folderSelect + " WHERE parent_id IS NULL ORDER BY name")
	} else {
		rows, err = s.conn.Query(folderSelect+" WHERE parent_id = ? ORDER BY name", *parentID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.CategoryID, &f.CreatedAt); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

const folderSelect = "SELECT id, name, parent_id, category_id, created_at FROM folders"

func scanFolderRow(row *sql.Row) (*Folder, error) {
	var f Folder
	err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.CategoryID, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
