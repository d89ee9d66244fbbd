// Package server is a read-only local web UI over the synced journal.
package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"

	"github.com/lorebridge/lorebridge/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the HTTP server for browsing synced documents.
type Server struct {
	store *store.Store
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// FolderView is one folder with its resolved children, used by the
// index template.
type FolderView struct {
	Folder    store.Folder
	Children  []*FolderView
	Documents []store.Document
}

// New creates a new Server.
func New(s *store.Store) (*Server, error) {
	funcMap := template.FuncMap{
		"rawHTML": func(body string) template.HTML {
			// Document bodies are produced by the transformer; they are
			// trusted local content.
			return template.HTML(body) //nolint: gosec
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the
	// clone so each page gets its own {{define "content"}}.
	pageNames := []string{"index.html", "document.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	srv := &Server{store: s, pages: pages, mux: http.NewServeMux()}
	srv.routes()
	return srv, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/doc/", s.handleDocument)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	folders, err := s.folderTree(nil)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	rootDocs, err := s.store.ListDocumentsInFolder(nil)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Folders":   folders,
		"Documents": rootDocs,
	})
}

// folderTree resolves the folder hierarchy under parentID.
func (s *Server) folderTree(parentID *int64) ([]*FolderView, error) {
	folders, err := s.store.ListChildFolders(parentID)
	if err != nil {
		return nil, err
	}

	var views []*FolderView
	for _, f := range folders {
		children, err := s.folderTree(&f.ID)
		if err != nil {
			return nil, err
		}
		docs, err := s.store.ListDocumentsInFolder(&f.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &FolderView{Folder: f, Children: children, Documents: docs})
	}
	return views, nil
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/doc/"):]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	doc, err := s.store.GetDocumentByID(id)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.NotFound(w, r)
		return
	}

	secrets, err := s.store.GetSecretStates(doc.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "document.html", map[string]any{
		"Document": doc,
		"Secrets":  secrets,
		"Visible":  doc.Visible(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(s *store.Store, port int) error {
	srv, err := New(s)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
