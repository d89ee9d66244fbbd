// Package sync reconciles remote articles into the local journal:
// find-or-create with stable remote bindings, lazy folder provisioning,
// and sequential bulk runs with per-item failure isolation.
package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/lorebridge/lorebridge/internal/remote"
	"github.com/lorebridge/lorebridge/internal/store"
	"github.com/lorebridge/lorebridge/internal/transform"
	"github.com/lorebridge/lorebridge/internal/tree"
)

// Notifier receives user-facing progress messages. The default writes
// them to the process log; a UI layer may substitute its own.
type Notifier interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

type logNotifier struct{}

func (logNotifier) Info(format string, args ...any) { log.Printf(format, args...) }
func (logNotifier) Warn(format string, args ...any) { log.Printf("warning: "+format, args...) }

// Hook inspects and may rewrite the content payload after transformation
// and before persistence. Hooks run in registration order.
type Hook func(article *remote.Article, content *transform.Content)

// Config bundles the engine's collaborators. Uses a struct because the
// engine has too many dependencies for positional parameters.
type Config struct {
	Client       *remote.Client
	Store        *store.Store
	Transformer  *transform.Transformer
	WorldID      string
	ImportDrafts bool
	ImportWIP    bool
	Notifier     Notifier // nil means log-backed default
}

// Engine drives category/article synchronization for one world. Tree,
// article list, and folder bindings are cached for the engine's lifetime
// and dropped only by Refresh. Not safe for concurrent use: syncs run
// sequentially so no two runs for the same article are ever in flight.
type Engine struct {
	client       *remote.Client
	store        *store.Store
	transformer  *transform.Transformer
	worldID      string
	importDrafts bool
	importWIP    bool
	notify       Notifier

	world    *remote.World
	catTree  *tree.Tree
	articles []remote.ArticleStub
	haveList bool
	folders  map[string]int64
	hooks    []Hook
}

// New creates an engine from its collaborators.
func New(cfg Config) *Engine {
	n := cfg.Notifier
	if n == nil {
		n = logNotifier{}
	}
	return &Engine{
		client:       cfg.Client,
		store:        cfg.Store,
		transformer:  cfg.Transformer,
		worldID:      cfg.WorldID,
		importDrafts: cfg.ImportDrafts,
		importWIP:    cfg.ImportWIP,
		notify:       n,
		folders:      make(map[string]int64),
	}
}

// RegisterHook appends a payload hook. Hooks run in registration order
// on every article sync.
func (e *Engine) RegisterHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// Refresh drops the cached world, tree, article list, and folder
// bindings. The next operation refetches from the remote service.
func (e *Engine) Refresh() {
	e.world = nil
	e.catTree = nil
	e.articles = nil
	e.haveList = false
	e.folders = make(map[string]int64)
}

// World returns the synced world's metadata, cached per session.
func (e *Engine) World(ctx context.Context) (*remote.World, error) {
	if e.world != nil {
		return e.world, nil
	}
	w, err := e.client.GetWorld(ctx, e.worldID)
	if err != nil {
		return nil, err
	}
	e.world = w
	return w, nil
}

// CategoryTree returns the category tree, building and caching it on
// first use.
func (e *Engine) CategoryTree(ctx context.Context) (*tree.Tree, error) {
	if e.catTree != nil {
		return e.catTree, nil
	}
	categories, err := e.client.GetCategories(ctx, e.worldID)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	t, err := tree.Build(categories)
	if err != nil {
		return nil, err
	}
	e.catTree = t
	return t, nil
}

// Articles returns the world's article stubs, cached per session.
func (e *Engine) Articles(ctx context.Context) ([]remote.ArticleStub, error) {
	if e.haveList {
		return e.articles, nil
	}
	stubs, err := e.client.GetArticles(ctx, e.worldID)
	if err != nil {
		return nil, fmt.Errorf("fetching article list: %w", err)
	}
	e.articles = stubs
	e.haveList = true
	return stubs, nil
}

// ArticlesInCategory returns the stubs whose resolved category is exactly
// the given node (descendant categories excluded).
func (e *Engine) ArticlesInCategory(ctx context.Context, categoryID string) ([]remote.ArticleStub, error) {
	t, err := e.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	stubs, err := e.Articles(ctx)
	if err != nil {
		return nil, err
	}
	var out []remote.ArticleStub
	for _, s := range stubs {
		if t.Resolve(s.CategoryID()).ID == categoryID {
			out = append(out, s)
		}
	}
	return out, nil
}

// SyncArticle reconciles one remote article into the journal. An
// existing bound document is updated in place, carrying forward the
// reveal state of secrets that survived the re-sync; otherwise a new
// document is created in the provisioned folder of the article's
// category. Exactly one document is bound to the article id afterwards.
func (e *Engine) SyncArticle(ctx context.Context, articleID string) (*store.Document, error) {
	t, err := e.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}

	article, err := e.client.GetArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("fetching article %s: %w", articleID, err)
	}

	content, err := e.transformer.Article(article)
	if err != nil {
		return nil, err
	}
	for _, h := range e.hooks {
		h(article, content)
	}

	var image *string
	if content.Image != "" {
		image = &content.Image
	}
	var articleURL *string
	if article.URL != "" {
		articleURL = &article.URL
	}

	existing, err := e.store.FindDocumentByArticleID(articleID)
	if err != nil {
		return nil, fmt.Errorf("looking up binding for %s: %w", articleID, err)
	}

	if existing != nil {
		previous, err := e.store.GetSecretStates(existing.ID)
		if err != nil {
			return nil, fmt.Errorf("reading secret state of document %d: %w", existing.ID, err)
		}
		states := make(map[string]bool, len(content.SecretIDs))
		for _, id := range content.SecretIDs {
			states[id] = previous[id]
		}
		if err := e.store.UpdateDocument(existing.ID, article.Title, content.HTML, image, articleURL); err != nil {
			return nil, fmt.Errorf("updating document %d: %w", existing.ID, err)
		}
		if err := e.store.ReplaceSecretStates(existing.ID, states); err != nil {
			return nil, fmt.Errorf("updating secret state of document %d: %w", existing.ID, err)
		}
		e.notify.Info("updated %q", article.Title)
		return e.store.GetDocumentByID(existing.ID)
	}

	node := t.Resolve(article.CategoryID())
	folderID, err := e.resolveFolder(ctx, node)
	if err != nil {
		return nil, err
	}

	id, err := e.store.InsertDocument(article.Title, folderID, content.HTML, image, &article.ID, articleURL, store.PermissionNone)
	if err != nil {
		return nil, fmt.Errorf("creating document for %q: %w", article.Title, err)
	}
	states := make(map[string]bool, len(content.SecretIDs))
	for _, sid := range content.SecretIDs {
		states[sid] = false
	}
	if err := e.store.ReplaceSecretStates(id, states); err != nil {
		return nil, fmt.Errorf("storing secret state of document %d: %w", id, err)
	}
	e.notify.Info("imported %q", article.Title)
	return e.store.GetDocumentByID(id)
}

// SubtreeOptions controls a bulk subtree sync.
type SubtreeOptions struct {
	// OnlyExisting skips articles with no pre-existing local binding.
	OnlyExisting bool
}

// SubtreeResult summarizes a bulk subtree sync.
type SubtreeResult struct {
	Synced  int
	Skipped int
	Failed  int
	Errors  []error
}

// SyncSubtree syncs every article under node and its descendants,
// parents before children, one at a time. A single article's failure is
// warned about and does not stop the rest of the batch.
func (e *Engine) SyncSubtree(ctx context.Context, node *tree.Node, opts SubtreeOptions) (*SubtreeResult, error) {
	t, err := e.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	stubs, err := e.Articles(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]remote.ArticleStub)
	for _, s := range stubs {
		cat := t.Resolve(s.CategoryID()).ID
		byCategory[cat] = append(byCategory[cat], s)
	}

	var batch []remote.ArticleStub
	tree.Walk(node, func(n *tree.Node) {
		batch = append(batch, byCategory[n.ID]...)
	})

	e.notify.Info("sync started: %d articles under %q", len(batch), node.Title)

	result := &SubtreeResult{}
	for _, stub := range batch {
		if !e.importDrafts && stub.IsDraft {
			result.Skipped++
			continue
		}
		if !e.importWIP && stub.IsWIP {
			result.Skipped++
			continue
		}
		if opts.OnlyExisting {
			doc, err := e.store.FindDocumentByArticleID(stub.ID)
			if err != nil {
				return nil, fmt.Errorf("looking up binding for %s: %w", stub.ID, err)
			}
			if doc == nil {
				result.Skipped++
				continue
			}
		}

		if _, err := e.SyncArticle(ctx, stub.ID); err != nil {
			e.notify.Warn("sync of %q failed: %v", stub.Title, err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", stub.Title, err))
			continue
		}
		result.Synced++
	}

	e.notify.Info("sync completed: %d synced, %d skipped, %d failed", result.Synced, result.Skipped, result.Failed)
	return result, nil
}

// SyncAll syncs the whole world: every article under the root.
func (e *Engine) SyncAll(ctx context.Context, opts SubtreeOptions) (*SubtreeResult, error) {
	t, err := e.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	return e.SyncSubtree(ctx, t.Root, opts)
}
