// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Handler is the function at the end of a middleware chain. It executes the
// actual request, such as a tool call.
type Handler func(ctx context.Context, req interface{}) (interface{}, error)

// MiddlewareFunc wraps a Handler. It receives the request and the next
// handler in the chain and may run logic before and after it.
type MiddlewareFunc func(ctx context.Context, req interface{}, next Handler) (interface{}, error)

// MiddlewareChain executes middlewares in registration order.
type MiddlewareChain struct {
	middlewares []MiddlewareFunc
}

// NewMiddlewareChain creates a middleware chain.
func NewMiddlewareChain(middlewares ...MiddlewareFunc) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Use appends a middleware to the chain.
func (mc *MiddlewareChain) Use(middleware MiddlewareFunc) {
	mc.middlewares = append(mc.middlewares, middleware)
}

// Execute runs the chain around finalHandler.
func (mc *MiddlewareChain) Execute(ctx context.Context, req interface{}, finalHandler Handler) (interface{}, error) {
	return Chain(finalHandler, mc.middlewares...)(ctx, req)
}

// Chain links middlewares around a handler. The first middleware in the
// argument list runs outermost: Chain(handler, m1, m2) executes m1 -> m2 ->
// handler.
func Chain(handler Handler, middlewares ...MiddlewareFunc) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = wrap(middlewares[i], handler)
	}
	return handler
}

func wrap(m MiddlewareFunc, next Handler) Handler {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		return m(ctx, req, next)
	}
}

// RecoveryMiddleware converts a panic in the chain into an error.
func RecoveryMiddleware(ctx context.Context, req interface{}, next Handler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			GetDefaultLogger().Errorf("panic recovered in middleware chain: %v", r)
			resp = nil
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	return next(ctx, req)
}

// LoggingMiddleware logs request timing through the given logger.
func LoggingMiddleware(logger Logger) MiddlewareFunc {
	return func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		start := time.Now()
		name := "request"
		if callReq, ok := req.(*CallToolRequest); ok {
			name = callReq.Params.Name
		}

		resp, err := next(ctx, req)

		duration := time.Since(start)
		if err != nil {
			logger.Infof("tool call failed: tool=%s duration=%v error=%v", name, duration, err)
		} else {
			logger.Debugf("tool call completed: tool=%s duration=%v", name, duration)
		}
		return resp, err
	}
}

// TimeoutMiddleware bounds the execution time of the rest of the chain.
func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			resp interface{}
			err  error
		}
		resultChan := make(chan result, 1)
		go func() {
			resp, err := next(timeoutCtx, req)
			resultChan <- result{resp, err}
		}()

		select {
		case res := <-resultChan:
			return res.resp, res.err
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("request timeout after %v", timeout)
		}
	}
}

// limiterPool maintains one rate limiter per key.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterPool(r rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	limiter, ok := p.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(p.rate, p.burst)
		p.limiters[key] = limiter
	}
	return limiter
}

// RateLimitMiddleware rejects requests exceeding the given rate. Keyed per
// authenticated user when an identity is present in the context, otherwise a
// single shared limiter applies.
func RateLimitMiddleware(r rate.Limit, burst int) MiddlewareFunc {
	limiters := newLimiterPool(r, burst)
	return func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		key := ""
		if identity, ok := AuthIdentityFromContext(ctx); ok {
			key = identity.UserID
		}
		if !limiters.get(key).Allow() {
			return nil, fmt.Errorf("rate limit exceeded")
		}
		return next(ctx, req)
	}
}
