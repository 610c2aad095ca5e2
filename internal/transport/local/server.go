package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/hub"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
	"github.com/hearthwire/hearth-core/internal/transport/cloud"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// KeyAuthenticator resolves an API key to an identity. Implemented by
// auth.APIKeyRepository.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, key string) (auth.Identity, error)
}

// Deps holds the dependencies required by the local server.
type Deps struct {
	Config     config.LocalConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Dispatcher Dispatcher
	Bus        *hub.Bus
	Keys       KeyAuthenticator // optional: API key auth disabled when nil
	Version    string
}

// Server is the local-network control server.
//
// It manages the HTTP listener, the WebSocket upgrade endpoint, and the
// client channel. The server is created with New() and started with
// Start().
type Server struct {
	cfg     config.LocalConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	deps    Deps
	server  *http.Server
	channel *Channel
	cancel  context.CancelFunc
	version string
}

// upgrader configures the WebSocket upgrader. Cross-origin browsers on
// the LAN are legitimate clients; origin restriction is the private
// network check, not the Origin header.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// New creates a local server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}

	return &Server{
		cfg:     deps.Config,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		deps:    deps,
		version: deps.Version,
	}, nil
}

// Channel returns the client channel. Valid after Start().
func (s *Server) Channel() *Channel {
	return s.channel
}

// Start begins listening for local connections.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.channel = NewChannel(srvCtx, s.cfg.WebSocket, s.deps.Dispatcher, s.logger)
	s.channel.Attach(s.deps.Bus)

	// Forward cloud connectivity changes so local UIs can show relay
	// reachability.
	s.deps.Bus.Subscribe(cloud.EventCloudConnected, func(string, any) {
		s.channel.Send("connected", true)
	})
	s.deps.Bus.Subscribe(cloud.EventCloudDisconnected, func(string, any) {
		s.channel.Send("connected", false)
	})

	router := s.buildRouter()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("local server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("local server error", "error", err)
		}
	}()

	go func() {
		<-srvCtx.Done()
		s.channel.closeAll()
	}()

	return nil
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.privateNetworkMiddleware)

	path := s.cfg.WebSocket.Path
	if path == "" {
		path = "/client"
	}
	r.Get(path, s.handleWebSocket)
	r.Get("/health", s.handleHealth)

	return r
}

// handleHealth reports liveness and version for LAN discovery.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","version":%q,"clients":%d}`, s.version, s.channel.ClientCount())
}

// handleWebSocket authenticates and upgrades one client connection.
//
// Authentication is via query parameter: token (a JWT issued through
// the cloud identity service) or apikey (a locally provisioned key).
// The resolved identity is attached to the session and stamped onto
// every command envelope it produces. A connection that fails
// authentication is rejected before any envelope exists.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticate(r)
	if err != nil {
		s.logger.Warn("local client rejected", "remote", r.RemoteAddr, "error", err)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(s.channel, conn, identity)
	s.channel.Register(client)

	go client.writePump(s.cfg.WebSocket)
	go client.readPump(s.cfg.WebSocket)
}

// authenticate resolves the connecting client's identity from its
// token or API key.
func (s *Server) authenticate(r *http.Request) (auth.Identity, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return auth.ParseToken(token, s.secCfg.JWT.Secret)
	}
	if key := r.URL.Query().Get("apikey"); key != "" {
		if s.deps.Keys == nil {
			return auth.Identity{}, auth.ErrKeyNotFound
		}
		return s.deps.Keys.Authenticate(r.Context(), key)
	}
	return auth.Identity{}, auth.ErrTokenInvalid
}

// Close gracefully shuts down the local server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("local server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down local server: %w", err)
	}
	return nil
}

// HealthCheck verifies the local server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("local health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("local server not started")
	}
	return nil
}
