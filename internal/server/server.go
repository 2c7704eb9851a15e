package server

import (
	"embed"
	"io/fs"
	"log"
	"net/http"

	"github.com/moghouse/gearsweep/internal/analyzer"
	"github.com/moghouse/gearsweep/pkg/checklist"
	"github.com/moghouse/gearsweep/pkg/history"
)

//go:embed web
var WebFS embed.FS

type Server struct {
	Store    *checklist.Store
	Hist     *history.DB
	Cfg      analyzer.Config
	Username string
	Password string
}

func New(store *checklist.Store, hist *history.DB, cfg analyzer.Config, user, pass string) *Server {
	return &Server{
		Store:    store,
		Hist:     hist,
		Cfg:      cfg,
		Username: user,
		Password: pass,
	}
}

func (s *Server) Start(addr string) error {
	log.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler builds the mux; split from Start so tests can drive it with
// httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API Group
	mux.HandleFunc("GET /api/status", s.basicAuth(s.handleStatus))
	mux.HandleFunc("GET /api/checklist", s.basicAuth(s.handleChecklist))
	mux.HandleFunc("POST /api/update-item", s.basicAuth(s.handleUpdateItem))
	mux.HandleFunc("POST /api/analyze", s.basicAuth(s.handleAnalyze))
	mux.HandleFunc("GET /api/export", s.basicAuth(s.handleExport))
	mux.HandleFunc("GET /api/export-csv", s.basicAuth(s.handleExportCSV))
	mux.HandleFunc("POST /api/load-state", s.basicAuth(s.handleLoadState))
	mux.HandleFunc("POST /api/clear", s.basicAuth(s.handleClear))

	// Static Files
	webRoot, err := fs.Sub(WebFS, "web")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(webRoot))
	mux.Handle("/", s.basicAuthMiddlewareForStatic(fileServer))

	return mux
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) basicAuthMiddlewareForStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
