package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
)

// pathsResponse is served on /paths for external file watchers.
type pathsResponse struct {
	Watched   []string `json:"watched"`
	Unwatched []string `json:"unwatched"`
	Output    string   `json:"output"`
}

// healthHandler logs the request and reports that the process is alive.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// graphHandler serves the node graph with its latest timings.
func (a *App) graphHandler(w http.ResponseWriter, r *http.Request) {
	b := a.currentBuilder()
	if b == nil {
		http.Error(w, "no builder yet", http.StatusServiceUnavailable)
		return
	}
	data, err := b.MarshalGraph()
	if err != nil {
		ctxlog.FromContext(a.ctx).Error("Failed to render graph.", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// pathsHandler serves the source directories of the graph.
func (a *App) pathsHandler(w http.ResponseWriter, r *http.Request) {
	b := a.currentBuilder()
	if b == nil {
		http.Error(w, "no builder yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pathsResponse{
		Watched:   b.WatchedPaths(),
		Unwatched: b.UnwatchedPaths(),
		Output:    b.OutputPath(),
	})
}

// statusHandler routes every status endpoint.
func (a *App) statusHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/graph", a.graphHandler)
	mux.HandleFunc("/paths", a.pathsHandler)
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

// listenStatus binds the status server. The server is stored on the app so
// it can be shut down.
func (a *App) listenStatus() (net.Listener, error) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Configuring status server.")

	addr := fmt.Sprintf(":%d", a.config.StatusPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start status server: %w", err)
	}

	a.mu.Lock()
	a.httpServer = &http.Server{
		Handler:           a.statusHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Unlock()

	logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
	return ln, nil
}

// serveStatus blocks until the status server is shut down.
func (a *App) serveStatus(ln net.Listener) error {
	a.mu.RLock()
	srv := a.httpServer
	a.mu.RUnlock()

	// Serve returns http.ErrServerClosed on graceful shutdown.
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

func (a *App) closeStatusServer() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Closing status server...")

	a.mu.RLock()
	srv := a.httpServer
	a.mu.RUnlock()
	if srv == nil {
		logger.Debug("Status server was not running.")
		return nil
	}

	// The run context is usually done by now; shutdown gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server...")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}

	logger.Debug("Status server shut down gracefully.")
	return nil
}
