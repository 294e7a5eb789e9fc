// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader carries the correlation ID for a request. Incoming values
// are trusted as-is; absent ones are minted server-side.
const requestIDHeader = "X-Request-ID"

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// RequestIDFromContext returns the correlation ID assigned to the current
// HTTP request, if any. Tool handlers can use it to tie their own logs to
// the transport logs.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// httpServerHandler serves the MCP endpoint over plain HTTP POST. Every
// request is self-contained: authentication happens per request and no
// session state survives between calls.
type httpServerHandler struct {
	// MCP protocol handler
	mcpHandler handler

	// API path prefix
	path string

	// Server identity reported on GET
	serverInfo Implementation

	// HTTP context functions applied before request processing
	httpContextFuncs []HTTPContextFunc

	// Authentication wrapper, applied around the core handler
	authEnabled bool
	authWrap    func(http.Handler) http.Handler

	// Auth method names reported by the info endpoint
	authMethods []string

	logger Logger

	// core is the handler chain including auth, built once
	core http.Handler
}

// newHTTPServerHandler creates an HTTP transport handler for the MCP endpoint.
func newHTTPServerHandler(mcpHandler handler, path string, options ...func(*httpServerHandler)) *httpServerHandler {
	h := &httpServerHandler{
		mcpHandler: mcpHandler,
		path:       path,
		logger:     GetDefaultLogger(),
	}
	for _, option := range options {
		option(h)
	}

	core := http.Handler(http.HandlerFunc(h.serveCore))
	if h.authEnabled && h.authWrap != nil {
		core = h.authWrap(core)
	}
	h.core = core
	return h
}

// withServerTransportLogger sets the logger for the HTTP handler.
func withServerTransportLogger(logger Logger) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.logger = logger
	}
}

// withTransportHTTPContextFuncs sets context functions applied to each request.
func withTransportHTTPContextFuncs(funcs []HTTPContextFunc) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.httpContextFuncs = funcs
	}
}

// withTransportAuthEnabled enables authentication by wrapping the handler with given middleware
func withTransportAuthEnabled(wrap func(http.Handler) http.Handler) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.authEnabled = (wrap != nil)
		h.authWrap = wrap
	}
}

// withTransportAuthMethods sets the auth method names reported by the info
// endpoint.
func withTransportAuthMethods(methods []string) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.authMethods = methods
	}
}

// withTransportServerInfo sets the identity reported by the info endpoint.
func withTransportServerInfo(info Implementation) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.serverInfo = info
	}
}

// ServeHTTP implements http.Handler.
func (h *httpServerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.core.ServeHTTP(w, r)
}

// serveCore routes by HTTP method after authentication has passed.
func (h *httpServerHandler) serveCore(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGet reports the server identity. Useful as a health and discovery
// endpoint for operators.
func (h *httpServerHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":            h.serverInfo.Name,
		"version":         h.serverInfo.Version,
		"protocolVersion": ProtocolVersion,
		"transport":       "http",
	}
	if len(h.authMethods) > 0 {
		info["authMethods"] = h.authMethods
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.logger.Errorf("failed to encode server info: %v", err)
	}
}

// handlePost processes a JSON-RPC message. Transport-level problems (wrong
// content type, empty body) are HTTP errors; anything past that point is
// answered as JSON-RPC on HTTP 200.
func (h *httpServerHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	if !acceptableContentType(r.Header.Get("Content-Type")) {
		http.Error(w, "Unsupported Media Type: Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Empty request body", http.StatusBadRequest)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		h.writeResponse(w, newJSONRPCErrorResponse(nil, ErrCodeParse, errorCodeMessage(ErrCodeParse), nil))
		return
	}

	id, hasID := parseRequestID(raw)
	if !validEnvelope(raw) {
		h.writeResponse(w, newJSONRPCErrorResponse(id, ErrCodeInvalidRequest, errorCodeMessage(ErrCodeInvalidRequest), nil))
		return
	}

	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)

	ctx := context.WithValue(r.Context(), requestIDKey, requestID)
	for _, fn := range h.httpContextFuncs {
		ctx = fn(ctx, r)
	}

	var method string
	_ = json.Unmarshal(raw["method"], &method)

	// A message without an id, or carrying a notification method, expects
	// no response body.
	if !hasID || isNotificationMethod(method) {
		var notification JSONRPCNotification
		if err := json.Unmarshal(body, &notification); err != nil {
			h.writeResponse(w, newJSONRPCErrorResponse(id, ErrCodeInvalidRequest, errorCodeMessage(ErrCodeInvalidRequest), nil))
			return
		}
		if err := h.mcpHandler.handleNotification(ctx, &notification); err != nil {
			h.logger.Errorf("notification handling failed: method=%s requestID=%s error=%v", method, requestID, err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	var request JSONRPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		h.writeResponse(w, newJSONRPCErrorResponse(id, ErrCodeInvalidRequest, errorCodeMessage(ErrCodeInvalidRequest), nil))
		return
	}

	response, err := h.mcpHandler.handleRequest(ctx, &request)
	if err != nil {
		// Handler errors stay in the log; the wire carries a generic
		// internal error.
		h.logger.Errorf("request handling failed: method=%s requestID=%s error=%v", method, requestID, err)
		h.writeResponse(w, newJSONRPCErrorResponse(id, ErrCodeInternal, errorCodeMessage(ErrCodeInternal), nil))
		return
	}
	h.writeResponse(w, response)
}

// writeResponse encodes a JSON-RPC message with HTTP 200.
func (h *httpServerHandler) writeResponse(w http.ResponseWriter, msg JSONRPCMessage) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		h.logger.Errorf("failed to encode response: %v", err)
	}
}

// acceptableContentType reports whether the request carries JSON.
func acceptableContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// parseRequestID extracts the id field. The bool reports id presence; an
// explicit null reads as present with a nil value.
func parseRequestID(raw map[string]json.RawMessage) (RequestID, bool) {
	idRaw, ok := raw["id"]
	if !ok {
		return nil, false
	}
	var id interface{}
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return nil, true
	}
	return id, true
}

// validEnvelope checks the JSON-RPC framing fields.
func validEnvelope(raw map[string]json.RawMessage) bool {
	versionRaw, ok := raw["jsonrpc"]
	if !ok {
		return false
	}
	var version string
	if err := json.Unmarshal(versionRaw, &version); err != nil || version != JSONRPCVersion {
		return false
	}

	methodRaw, ok := raw["method"]
	if !ok {
		return false
	}
	var method string
	if err := json.Unmarshal(methodRaw, &method); err != nil || method == "" {
		return false
	}
	return true
}
