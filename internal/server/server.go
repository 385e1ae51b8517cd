// Package server exposes the visibility decision API over HTTP. Two
// endpoints carry the load: /v1/check answers a single actor-item-scope
// question, /v1/resolve precomputes per-type visible id sets for feed
// queries.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/okanca/streamgate/internal/catalog"
	"github.com/okanca/streamgate/internal/observability"
	"github.com/okanca/streamgate/internal/visibility"
)

// Defaults are the permission sets applied to request actors that
// arrive without explicit permissions.
type Defaults struct {
	AnonymousPermissions     []string
	AuthenticatedPermissions []string
}

type Server struct {
	httpServer *http.Server
	listener   net.Listener
	resolver   *visibility.Resolver
	catalog    *catalog.Catalog
	defaults   Defaults
}

func New(addr string, obs *observability.Observability, resolver *visibility.Resolver, cat *catalog.Catalog, defaults Defaults) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: lis,
		resolver: resolver,
		catalog:  cat,
		defaults: defaults,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("POST /v1/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/items/{target}/{id}", s.handleGetItem)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{Addr: addr, Handler: s.withRequestID(mux)}

	if obs != nil && obs.Shutdown != nil {
		obs.Shutdown.Register("decision-server", func(ctx context.Context) error {
			return s.httpServer.Shutdown(ctx)
		})
	}

	return s, nil
}

// withRequestID tags every request with a uuid carried on the response
// and in logs.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		slog.DebugContext(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "request_id", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Serve() error {
	slog.Info("decision server starting", "addr", s.Addr())
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
