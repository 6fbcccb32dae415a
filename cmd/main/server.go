package main

import (
	"log/slog"
	"net/http"
	"os"
	"path"

	"github.com/CTAG07/catdex/pkg/templating"
)

// Cat is one entry rendered on the dynamic page.
type Cat struct {
	Name      string
	ImagePath string
}

// CatdexPage is the render context for the dynamic page.
type CatdexPage struct {
	ProjectName string
	Cats        []Cat
}

// newCatdexPage builds the page data. A fresh value is returned on every call so
// no request can observe another's data.
func newCatdexPage() CatdexPage {
	return CatdexPage{
		ProjectName: "Catdex",
		Cats: []Cat{
			{Name: "British short hair", ImagePath: "/static/image/british-short-hair.jpg"},
			{Name: "Persian", ImagePath: "/static/image/persian.jpg"},
			{Name: "Ragdoll", ImagePath: "/static/image/ragdoll.jpg"},
		},
	}
}

type Server struct {
	config    *Config
	logger    *slog.Logger
	tm        *templating.TemplateManager
	serverAPI *ServerAPI
	mux       *http.ServeMux
	handler   http.Handler
}

// NewServer compiles the templates and builds the route table. Nothing here is
// modified once it returns.
func NewServer(config *Config, logger *slog.Logger) (*Server, error) {
	tm, err := templating.NewTemplateManager(logger, config.Templates)
	if err != nil {
		return nil, err
	}
	if !tm.Has(config.Server.DynamicTemplate) {
		logger.Warn("Dynamic page template is not registered, /dynamic_index will answer 500",
			"template", config.Server.DynamicTemplate, "dir", tm.GetTemplateDir())
	}

	server := &Server{
		config:    config,
		logger:    logger,
		tm:        tm,
		serverAPI: NewServerAPI(tm, logger),
		mux:       http.NewServeMux(),
	}

	server.mux.HandleFunc("GET /hello", server.handleHello)
	server.mux.HandleFunc("GET /{$}", server.handleIndex)
	server.mux.HandleFunc("GET /dynamic_index", server.handleDynamicIndex)

	var staticFS http.FileSystem = http.Dir(config.Server.StaticDir)
	if config.Server.ShowFilesListing {
		staticFS = listingFS{staticFS}
	} else {
		staticFS = noListingFS{staticFS}
	}
	server.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(staticFS)))

	server.serverAPI.RegisterRoutes(server.mux)

	server.handler = withRequestID(withAccessLog(logger, server.mux))
	return server, nil
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HTTPServer returns an http.Server configured from the server config.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:           s.config.Server.Addr,
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.readTimeout(),
		WriteTimeout:   s.config.Server.writeTimeout(),
		IdleTimeout:    s.config.Server.idleTimeout(),
		MaxHeaderBytes: 1 << 20,
	}
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello World"))
}

// handleIndex serves the static index file. A missing file is a plain 404 from
// net/http.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.config.Server.IndexPath)
}

// handleDynamicIndex renders the dynamic template with the Catdex data. The body
// is fully rendered before anything is written, so a failure never leaves a
// half-sent page behind.
func (s *Server) handleDynamicIndex(w http.ResponseWriter, r *http.Request) {
	name := s.config.Server.DynamicTemplate
	body, err := s.tm.Render(name, newCatdexPage())
	if err != nil {
		status := templating.StatusCode(err)
		s.logger.Error("Failed to render dynamic page",
			"template", name,
			"not_found", templating.IsNotFound(err),
			"error", err,
			"request_id", requestIDFrom(r.Context()))
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// listingFS hides index.html files so http.FileServer lists every directory
// instead of substituting its index page. FileServer already redirects direct
// requests for .../index.html to the directory, so those files were never
// reachable by name.
type listingFS struct {
	fs http.FileSystem
}

func (l listingFS) Open(name string) (http.File, error) {
	if path.Base(name) == "index.html" {
		return nil, os.ErrNotExist
	}
	return l.fs.Open(name)
}

// noListingFS hides directories that have no index.html, which turns directory
// listings into 404s.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if stat.IsDir() {
		index, err := n.fs.Open(path.Join(name, "index.html"))
		if err != nil {
			_ = f.Close()
			return nil, os.ErrNotExist
		}
		_ = index.Close()
	}
	return f, nil
}
