package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chainview-tools/chainview/pkg/seedprobe"
)

// SeedDirectory supplies the per-chain seed endpoint lists served and probed
// by the HTTP layer. *seedstore.Store is the production implementation.
type SeedDirectory interface {
	Seeds(chain string) ([]string, error)
	Chains() ([]string, error)
}

// Prober classifies a batch of seed endpoints.
type Prober interface {
	Probe(ctx context.Context, endpoints []string) []seedprobe.Result
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Addr is the listen address (host:port).
	Addr string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Must exceed the prober's join deadline or seed-node
	// responses get cut off.
	WriteTimeout time.Duration

	// MaxRequestSize is the maximum allowed request body size in bytes.
	MaxRequestSize int64

	// EnableCORS enables CORS headers for browser access.
	EnableCORS bool

	// AllowedOrigins specifies allowed CORS origins (empty means all).
	AllowedOrigins []string

	// EnableCompression gzips responses for clients that accept it.
	EnableCompression bool
}

// DefaultServerConfig returns a default HTTP server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":5000",
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxRequestSize:    64 * 1024, // 64KB
		EnableCORS:        true,
		EnableCompression: true,
	}
}

// Server is the HTTP front of the gateway: the /rpc endpoint plus the small
// status API the dashboard consumes.
type Server struct {
	config  ServerConfig
	gateway *Gateway
	seeds   SeedDirectory
	prober  Prober
	logger  *slog.Logger

	server *http.Server

	mu        sync.Mutex
	running   bool
	lastProbe *probeSummary
}

// probeSummary condenses the most recent probe batch for /api/status.
type probeSummary struct {
	Chain   string    `json:"chain"`
	At      time.Time `json:"at"`
	Online  int       `json:"online"`
	Stuck   int       `json:"stuck"`
	Offline int       `json:"offline"`
}

// NewServer creates the HTTP server. seeds and prober may be nil, which
// disables the seed-node endpoints.
func NewServer(config ServerConfig, gw *Gateway, seeds SeedDirectory, prober Prober, logger *slog.Logger) (*Server, error) {
	if gw == nil {
		return nil, errors.New("gateway: server requires a gateway")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  config,
		gateway: gw,
		seeds:   seeds,
		prober:  prober,
		logger:  logger,
	}, nil
}

// Handler builds the full route tree. Exposed separately from Start so tests
// can drive it through httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if s.config.EnableCORS {
		r.Use(s.corsMiddleware)
	}

	r.Post("/rpc", s.handleRPC)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/seednodes/{chain}", s.handleSeedNodes)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.config.EnableCompression {
		return gzhttp.GzipHandler(r)
	}
	return r
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server starting", "addr", s.config.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRPC decodes one envelope and runs it through the gateway. A body
// that is not an envelope at all gets an error response with a null id;
// everything past decoding is the gateway's uniform envelope contract.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var env Envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		s.writeJSON(w, http.StatusBadRequest, Response{
			ID:    json.RawMessage("null"),
			Error: &ErrorBody{Message: fmt.Sprintf("malformed request: %v", err)},
		})
		return
	}

	resp := s.gateway.Handle(r.Context(), env)
	s.writeJSON(w, http.StatusOK, resp)
}

// nodeStatus is one entry in the /api/status node list.
type nodeStatus struct {
	Chain    string `json:"chain"`
	Name     string `json:"name"`
	Host     string `json:"rpc_host"`
	Port     int    `json:"rpc_port"`
	Local    bool   `json:"is_localhost"`
	Witness  bool   `json:"is_witness"`
	Graphene bool   `json:"is_graphene_based"`
	Main     bool   `json:"is_main"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reg := s.gateway.Registry()
	main := reg.MainNode()

	nodes := make([]nodeStatus, 0, len(reg.Nodes()))
	for _, n := range reg.Nodes() {
		nodes = append(nodes, nodeStatus{
			Chain:    n.Chain,
			Name:     n.Name,
			Host:     n.RPCHost,
			Port:     n.RPCPort,
			Local:    n.Localhost,
			Witness:  n.Witness,
			Graphene: n.GrapheneBased,
			Main:     n == main,
		})
	}

	s.mu.Lock()
	lastProbe := s.lastProbe
	s.mu.Unlock()

	hits, misses := s.gateway.CacheStats()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes":        nodes,
		"main_node":    main.Key(),
		"offline":      s.gateway.Offline(),
		"cache_hits":   hits,
		"cache_misses": misses,
		"last_probe":   lastProbe,
	})
}

func (s *Server) handleSeedNodes(w http.ResponseWriter, r *http.Request) {
	if s.seeds == nil || s.prober == nil {
		http.Error(w, "seed probing not configured", http.StatusNotFound)
		return
	}

	chain := chi.URLParam(r, "chain")
	endpoints, err := s.seeds.Seeds(chain)
	if err != nil {
		s.logger.Error("seed lookup failed", "chain", chain, "err", err)
		http.Error(w, "seed lookup failed", http.StatusInternalServerError)
		return
	}

	results := s.prober.Probe(r.Context(), endpoints)

	summary := &probeSummary{Chain: chain, At: time.Now().UTC()}
	for _, res := range results {
		switch res.Status {
		case seedprobe.StatusOnline:
			summary.Online++
		case seedprobe.StatusStuck:
			summary.Stuck++
		default:
			summary.Offline++
		}
	}
	s.mu.Lock()
	s.lastProbe = summary
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"chain": chain,
		"seeds": results,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.gateway.Offline() {
		status = "node offline"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]string{"status": status})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed", "err", err)
	}
}

// corsMiddleware adds CORS headers for allowed origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			allowed := len(s.config.AllowedOrigins) == 0
			for _, allowedOrigin := range s.config.AllowedOrigins {
				if allowedOrigin == origin || allowedOrigin == "*" {
					allowed = true
					break
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
