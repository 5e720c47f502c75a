package utils

import (
	"context"
	"time"
)

const (
	// LoadTimeout bounds a document load, embedding calls included.
	LoadTimeout = 10 * time.Minute

	// ChatTimeout bounds one chat request.
	ChatTimeout = 2 * time.Minute

	// ShutdownTimeout is the grace period for in-flight requests.
	ShutdownTimeout = 30 * time.Second
)

// WithLoadTimeout creates a context for loading a tenant's documents
func WithLoadTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LoadTimeout)
}

// WithChatTimeout creates a context for one chat request
func WithChatTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ChatTimeout)
}
