package sync

import (
	"context"
	"fmt"

	"github.com/lorebridge/lorebridge/internal/tree"
)

// resolveFolder finds or creates the folder for a category node,
// provisioning ancestors first. The root resolves to nil (documents of
// root-level categories live in top-level folders). Bindings are cached
// for the session, so repeated calls for the same category create at
// most one folder.
func (e *Engine) resolveFolder(ctx context.Context, node *tree.Node) (*int64, error) {
	if node.Root() {
		return nil, nil
	}
	if id, ok := e.folders[node.ID]; ok {
		return &id, nil
	}

	parent, ok := e.catTree.Index[node.ParentID]
	if !ok {
		// Cannot happen for a node taken from a built tree.
		return nil, &tree.ConsistencyError{Reason: fmt.Sprintf("node %q has unknown parent %q", node.ID, node.ParentID)}
	}
	parentID, err := e.resolveFolder(ctx, parent)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.FindFolderByCategoryID(node.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up folder for category %s: %w", node.ID, err)
	}
	if existing != nil {
		e.folders[node.ID] = existing.ID
		return &existing.ID, nil
	}

	name := node.Title
	if parentID == nil {
		// Top-level folders get the world name as context since no
		// parent folder distinguishes them.
		world, err := e.World(ctx)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("[%s] %s", world.Name, node.Title)
	}

	id, err := e.store.InsertFolder(name, parentID, node.ID)
	if err != nil {
		return nil, fmt.Errorf("creating folder for category %s: %w", node.ID, err)
	}
	e.folders[node.ID] = id
	return &id, nil
}
