// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"
)

const (
	// defaultServerAddress is the default address for the server
	defaultServerAddress = "localhost:3000"
	// defaultServerPath is the default API path prefix
	defaultServerPath = "/mcp"
)

// HTTPContextFunc defines a function type that extracts information from HTTP request to context.
// This function is called before each HTTP request processing, allowing users to extract information
// from HTTP request and add it to the context.
// Multiple HTTPContextFunc will be executed in the order they are registered.
type HTTPContextFunc func(ctx context.Context, r *http.Request) context.Context

// Server represents an MCP gateway server.
type Server struct {
	// Basic configuration
	config *serverConfig

	// Server information
	serverInfo Implementation

	// HTTP server handler
	httpHandler *httpServerHandler

	// MCP protocol handler
	mcpHandler *mcpHandler

	// Tool manager
	toolManager *toolManager

	// Lifecycle manager
	lifecycleManager *lifecycleManager

	// HTTP request multiplexer
	mux *http.ServeMux
}

// serverConfig contains all configuration options for the server.
type serverConfig struct {
	// Network configuration
	addr string
	path string

	// Authentication configuration
	auth *AuthConfig

	// Tool configuration
	toolsProvider   ToolsProvider
	toolCallHandler ToolCallHandler
	toolMiddlewares []MiddlewareFunc

	// Server instructions advertised during initialization
	instructions string

	// HTTP context functions
	httpContextFuncs []HTTPContextFunc

	// Custom routes installed on the server mux
	routerInstallers []func(mux *http.ServeMux)

	logger Logger
}

// ServerOption defines a server configuration option.
type ServerOption func(*Server)

// NewServer creates a new MCP gateway server.
func NewServer(name, version string, options ...ServerOption) *Server {
	s := &Server{
		config: &serverConfig{
			addr:   defaultServerAddress,
			path:   defaultServerPath,
			logger: GetDefaultLogger(),
		},
		serverInfo: Implementation{
			Name:    name,
			Version: version,
		},
	}

	for _, option := range options {
		option(s)
	}

	s.initComponents()
	return s
}

// initComponents initializes protocol components and the HTTP mux.
func (s *Server) initComponents() {
	s.toolManager = newToolManager().
		withLogger(s.config.logger).
		withToolsProvider(s.config.toolsProvider).
		withToolCallHandler(s.config.toolCallHandler)

	s.lifecycleManager = newLifecycleManager(s.serverInfo).
		withToolManager(s.toolManager).
		withLogger(s.config.logger).
		withInstructions(s.config.instructions)

	s.mcpHandler = newMCPHandler(
		withToolManager(s.toolManager),
		withLifecycleManager(s.lifecycleManager),
		withMiddlewares(s.config.toolMiddlewares),
	)

	httpOptions := []func(*httpServerHandler){
		withServerTransportLogger(s.config.logger),
		withTransportServerInfo(s.serverInfo),
	}
	if len(s.config.httpContextFuncs) > 0 {
		httpOptions = append(httpOptions, withTransportHTTPContextFuncs(s.config.httpContextFuncs))
	}

	// Wrap the transport with authentication if configured. A broken auth
	// configuration must never start an unprotected server.
	if s.config.auth != nil {
		authWrap, err := buildAuthMiddleware(s.config.auth, s.config.logger)
		if err != nil {
			s.config.logger.Fatalf("invalid auth configuration: %v", err)
		}
		httpOptions = append(httpOptions, withTransportAuthEnabled(authWrap))

		var methods []string
		if s.config.auth.PAT != nil {
			methods = append(methods, "pat")
		}
		if s.config.auth.OAuth != nil {
			methods = append(methods, "oauth")
		}
		httpOptions = append(httpOptions, withTransportAuthMethods(methods))
	}

	s.httpHandler = newHTTPServerHandler(s.mcpHandler, s.config.path, httpOptions...)

	s.mux = http.NewServeMux()
	s.mux.Handle(s.config.path, s.httpHandler)
	s.mux.Handle(s.config.path+"/", s.httpHandler)

	if s.config.auth != nil && s.config.auth.ResourceURL != "" {
		s.installProtectedResourceMetadata()
	}

	for _, install := range s.config.routerInstallers {
		install(s.mux)
	}
}

// installProtectedResourceMetadata serves the RFC 9728 protected resource
// metadata document so clients can discover the authorization server.
func (s *Server) installProtectedResourceMetadata() {
	metadata := protectedResourceMetadata{
		Resource:      s.config.auth.ResourceURL,
		BearerMethods: []string{"header"},
	}
	if s.config.auth.OAuth != nil {
		metadata.AuthorizationServers = []string{s.config.auth.OAuth.Issuer}
	}

	s.mux.HandleFunc(protectedResourceMetadataPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metadata); err != nil {
			s.config.logger.Errorf("failed to encode protected resource metadata: %v", err)
		}
	})
}

// WithServerAddress sets the listen address.
func WithServerAddress(addr string) ServerOption {
	return func(s *Server) {
		s.config.addr = addr
	}
}

// WithServerPath sets the API path prefix.
func WithServerPath(path string) ServerOption {
	return func(s *Server) {
		s.config.path = path
	}
}

// WithServerLogger sets the logger for the server and all components it creates.
func WithServerLogger(logger Logger) ServerOption {
	return func(s *Server) {
		s.config.logger = logger
	}
}

// WithInstructions sets the instructions string returned during initialization.
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) {
		s.config.instructions = instructions
	}
}

// WithHTTPContextFunc registers a function that extracts information from the
// HTTP request into the context before protocol handling.
func WithHTTPContextFunc(fn HTTPContextFunc) ServerOption {
	return func(s *Server) {
		s.config.httpContextFuncs = append(s.config.httpContextFuncs, fn)
	}
}

// WithToolsProvider sets an external source of tool definitions, merged with
// locally registered tools on tools/list.
func WithToolsProvider(provider ToolsProvider) ServerOption {
	return func(s *Server) {
		s.config.toolsProvider = provider
	}
}

// WithToolCallHandler sets the fallback handler invoked for tool calls that
// do not match a locally registered tool.
func WithToolCallHandler(handler ToolCallHandler) ServerOption {
	return func(s *Server) {
		s.config.toolCallHandler = handler
	}
}

// WithToolMiddleware appends a middleware applied around tools/call handling.
// Middlewares run in registration order, first registered outermost.
func WithToolMiddleware(middleware MiddlewareFunc) ServerOption {
	return func(s *Server) {
		s.config.toolMiddlewares = append(s.config.toolMiddlewares, middleware)
	}
}

// WithRateLimit applies a per-user rate limit to tool calls.
func WithRateLimit(r rate.Limit, burst int) ServerOption {
	return WithToolMiddleware(RateLimitMiddleware(r, burst))
}

// withHTTPRoutes registers additional routes on the server mux. Used
// internally for discovery endpoints and available for embedding servers.
func withHTTPRoutes(install func(mux *http.ServeMux)) ServerOption {
	return func(s *Server) {
		s.config.routerInstallers = append(s.config.routerInstallers, install)
	}
}

// RegisterTool registers a tool with its handler. Registering a tool with an
// existing name replaces the previous registration.
func (s *Server) RegisterTool(tool *Tool, handler toolHandler) {
	s.toolManager.registerTool(tool, handler)
}

// UnregisterTools removes tools by name. Returns an error if no names are
// given or none of the named tools exist.
func (s *Server) UnregisterTools(names ...string) error {
	return s.toolManager.unregisterTools(names...)
}

// GetTool returns a registered tool by name.
func (s *Server) GetTool(name string) (*Tool, bool) {
	registered, ok := s.toolManager.getTool(name)
	if !ok {
		return nil, false
	}
	return registered.tool, true
}

// GetTools returns all locally registered tools in registration order.
func (s *Server) GetTools() []Tool {
	return s.toolManager.listLocalTools()
}

// Handler returns the http.Handler serving all server routes. Use this to
// mount the gateway inside an existing HTTP server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Path returns the API path prefix.
func (s *Server) Path() string {
	return s.config.path
}

// Start begins listening on the configured address. Blocks until the server
// stops.
func (s *Server) Start() error {
	s.config.logger.Infof("starting MCP server at %s%s", s.config.addr, s.config.path)
	return http.ListenAndServe(s.config.addr, s.mux)
}
