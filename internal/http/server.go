package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/report"
	"tally/internal/storage"
	"tally/internal/store"
	appweb "tally/web"
)

const summaryCacheKey = "summary"

// Server renders the application and exposes the mutation endpoints. It reads
// through a small summary cache that is purged on every store notification.
type Server struct {
	http.Server
	store     *store.Store
	gateway   *storage.Gateway
	templates *template.Template
	limiter   *ratelimit.Limiter

	summaryCache *cache.LRU[report.Summary]

	unsubscribe      func()
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(addr string, st *store.Store, gw *storage.Gateway) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:            st,
		gateway:          gw,
		limiter:          ratelimit.New(60),
		summaryCache:     cache.NewLRU[report.Summary](8, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           security.DefaultHeaders().Middleware(trace.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.startCacheCleanup()

	// Any mutation invalidates the cached projections. Runs under the store
	// lock, so it only touches the cache.
	s.unsubscribe = st.Subscribe(func(store.State) {
		s.summaryCache.Purge()
	})

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAsset(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	limit := s.limiter.Middleware(trace.ClientIP)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// UI partials
	mux.HandleFunc("GET /ui/summary", s.handleSummary)
	mux.HandleFunc("GET /ui/chart", s.handleChart)
	mux.HandleFunc("GET /ui/insights", s.handleInsights)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactionList)
	mux.HandleFunc("GET /ui/categories", s.handleCategoryList)

	// Mutations, rate limited per client
	mux.Handle("POST /transactions", limit(http.HandlerFunc(s.handleCreateTransaction)))
	mux.Handle("PUT /transactions/{id}", limit(http.HandlerFunc(s.handleUpdateTransaction)))
	mux.Handle("DELETE /transactions/{id}", limit(http.HandlerFunc(s.handleDeleteTransaction)))
	mux.Handle("POST /categories", limit(http.HandlerFunc(s.handleAddCategory)))
	mux.Handle("DELETE /categories/{name}", limit(http.HandlerFunc(s.handleRemoveCategory)))
	mux.Handle("POST /settings/currency", limit(http.HandlerFunc(s.handleSetCurrency)))
	mux.Handle("POST /settings/import", limit(http.HandlerFunc(s.handleImport)))
	mux.Handle("POST /settings/clear", limit(http.HandlerFunc(s.handleClear)))
	mux.HandleFunc("GET /settings/export", s.handleExport)

	// Navigation and modals
	mux.HandleFunc("POST /view/{view}", s.handleSetView)
	mux.HandleFunc("POST /modal/open", s.handleOpenModal)
	mux.HandleFunc("POST /modal/close", s.handleCloseModal)

	return s
}

// startCacheCleanup periodically drops expired cache entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.summaryCache.CleanExpired(); removed > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.limiter.Stop()
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// summarize serves the dashboard projection through the cache.
func (s *Server) summarize(ctx context.Context) report.Summary {
	if sum, ok := s.summaryCache.Get(summaryCacheKey); ok {
		slog.DebugContext(ctx, "Summary cache hit")
		return sum
	}
	sum := report.Summarize(s.store.Snapshot())
	s.summaryCache.Set(summaryCacheKey, sum)
	return sum
}

// render executes a template, falling back to a plain 500 when templates
// failed to parse at startup.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The store is in-memory and always ready once constructed.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
