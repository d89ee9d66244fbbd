package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorebridge/lorebridge/internal/activity"
	"github.com/lorebridge/lorebridge/internal/config"
	"github.com/lorebridge/lorebridge/internal/remote"
	"github.com/lorebridge/lorebridge/internal/server"
	"github.com/lorebridge/lorebridge/internal/store"
	syncengine "github.com/lorebridge/lorebridge/internal/sync"
	"github.com/lorebridge/lorebridge/internal/transform"
	"github.com/lorebridge/lorebridge/internal/tree"
	"github.com/lorebridge/lorebridge/internal/visibility"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lorebridge",
	Short:   "Mirror worldbuilding articles into a local journal",
	Long:    "Lorebridge pulls categories and articles from a worldbuilding service and keeps a local journal of documents and folders in sync with them.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(worldsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(articleCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(visibilityCmd)
	rootCmd.AddCommand(revealCmd)
	rootCmd.AddCommand(changesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lorebridge", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/lorebridge/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the world id and credential env vars.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journal and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("World: %s\n\n", cfg.Remote.WorldID)
		fmt.Println("Journal:")
		fmt.Printf("  Documents: %d\n", stats.Documents)
		fmt.Printf("  Visible to players: %d\n", stats.VisibleDocuments)
		fmt.Printf("  Folders: %d\n", stats.Folders)
		fmt.Println("\nSecrets:")
		fmt.Printf("  Tracked: %d\n", stats.Secrets)
		fmt.Printf("  Revealed: %d\n", stats.RevealedSecrets)
		return nil
	},
}

var worldsCmd = &cobra.Command{
	Use:   "worlds",
	Short: "List the worlds visible to the configured user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		worlds, err := client.GetWorlds(cmd.Context())
		if err != nil {
			return err
		}
		if len(worlds) == 0 {
			fmt.Println("No worlds found. Check your credentials.")
			return nil
		}
		for _, w := range worlds {
			fmt.Printf("  %s  %s\n", w.ID, w.Name)
		}
		return nil
	},
}

// --- sync command ---

var (
	syncCategory     string
	syncExistingOnly bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the whole world, or one category subtree, into the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		engine := newEngine(s)
		opts := syncengine.SubtreeOptions{OnlyExisting: syncExistingOnly}

		var result *syncengine.SubtreeResult
		if syncCategory == "" {
			result, err = engine.SyncAll(cmd.Context(), opts)
		} else {
			t, terr := engine.CategoryTree(cmd.Context())
			if terr != nil {
				return terr
			}
			node, ok := t.Index[syncCategory]
			if !ok {
				return fmt.Errorf("unknown category id: %s", syncCategory)
			}
			result, err = engine.SyncSubtree(cmd.Context(), node, opts)
		}
		if err != nil {
			return err
		}

		fmt.Println("\nSync complete:")
		fmt.Printf("  Synced: %d\n", result.Synced)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		fmt.Printf("  Failed: %d\n", result.Failed)
		for _, e := range result.Errors {
			fmt.Printf("  ! %v\n", e)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncCategory, "category", "", "Sync only this category subtree")
	syncCmd.Flags().BoolVar(&syncExistingOnly, "existing-only", false, "Only re-sync articles already bound to a document")
}

var articleCmd = &cobra.Command{
	Use:   "article [id]",
	Short: "Sync a single article by remote id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		engine := newEngine(s)
		doc, err := engine.SyncArticle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Synced %q (document %d)\n", doc.Name, doc.ID)
		return nil
	},
}

// --- tree command ---

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the remote category tree with local binding state",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		engine := newEngine(s)
		t, err := engine.CategoryTree(cmd.Context())
		if err != nil {
			return err
		}
		stubs, err := engine.Articles(cmd.Context())
		if err != nil {
			return err
		}

		counts := make(map[string]int)
		for _, stub := range stubs {
			counts[t.Resolve(stub.CategoryID()).ID]++
		}

		printNode(s, t.Root, counts, 0)
		return nil
	},
}

func printNode(s *store.Store, node *tree.Node, counts map[string]int, depth int) {
	if !node.Root() {
		marker := " "
		if folder, _ := s.FindFolderByCategoryID(node.ID); folder != nil {
			marker = "+"
		}
		fmt.Printf("%s%s %s (%s, %d articles)\n",
			strings.Repeat("  ", depth), marker, node.Title, node.ID, counts[node.ID])
	}
	for _, child := range node.Children {
		printNode(s, child, counts, depth+1)
	}
}

// --- visibility commands ---

var visibilityCmd = &cobra.Command{
	Use:   "visibility",
	Short: "Control what players can see",
}

var visibilityArticleCmd = &cobra.Command{
	Use:   "article [document-id] [on|off]",
	Short: "Set one document's player visibility",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid document id: %s", args[0])
		}
		visible, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		if err := visibility.New(s).SetArticleVisibility(id, visible); err != nil {
			return err
		}
		fmt.Printf("Document %d visibility: %s\n", id, args[1])
		return nil
	},
}

var visibilityCategoryCmd = &cobra.Command{
	Use:   "category [category-id] [on|off]",
	Short: "Set the visibility of every bound document directly in a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		visible, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		engine := newEngine(s)
		stubs, err := engine.ArticlesInCategory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ids := make([]string, len(stubs))
		for i, stub := range stubs {
			ids[i] = stub.ID
		}

		changed, err := visibility.New(s).SetCategoryVisibility(ids, visible)
		if err != nil {
			return err
		}
		fmt.Printf("Changed %d document(s) in category %s\n", changed, args[0])
		return nil
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal [document-id] [secret-id] [on|off]",
	Short: "Toggle one secret's reveal state",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid document id: %s", args[0])
		}
		revealed, err := parseOnOff(args[2])
		if err != nil {
			return err
		}
		if err := s.SetSecretRevealed(id, args[1], revealed); err != nil {
			return err
		}
		fmt.Printf("Secret %s on document %d: %s\n", args[1], id, args[2])
		return nil
	},
}

func init() {
	visibilityCmd.AddCommand(visibilityArticleCmd)
	visibilityCmd.AddCommand(visibilityCategoryCmd)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected 'on' or 'off', got %q", s)
}

// --- changes command ---

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Re-sync articles that appear in the world's activity feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		watcher := activity.NewWatcher(cfg.Remote.ActivityFeed, s)
		changes, err := watcher.RecentChanges(cmd.Context())
		if err != nil {
			return err
		}

		engine := newEngine(s)
		synced, unmatched := 0, 0
		for _, change := range changes {
			if !change.Bound() {
				unmatched++
				fmt.Printf("  ? %s (no local binding)\n", change.Title)
				continue
			}
			if _, err := engine.SyncArticle(cmd.Context(), change.ArticleID); err != nil {
				fmt.Printf("  ! %s: %v\n", change.Title, err)
				continue
			}
			synced++
			fmt.Printf("  * %s\n", change.Title)
		}

		fmt.Printf("\n%d re-synced, %d without a binding\n", synced, unmatched)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local journal browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(s, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "lorebridge.db"))
}

func newClient() *remote.Client {
	r := cfg.Remote
	return remote.NewClient(r.BaseURL, r.AppKey(), r.Token(), time.Duration(r.TimeoutSeconds)*time.Second)
}

func newEngine(s *store.Store) *syncengine.Engine {
	var transformer *transform.Transformer
	if cfg.Import.ExternalFetch {
		transformer = transform.NewWithExternalFetch(0)
	} else {
		transformer = transform.New()
	}

	return syncengine.New(syncengine.Config{
		Client:       newClient(),
		Store:        s,
		Transformer:  transformer,
		WorldID:      cfg.Remote.WorldID,
		ImportDrafts: cfg.Import.Drafts,
		ImportWIP:    cfg.Import.WIP,
	})
}
