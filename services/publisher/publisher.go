package publisher

import "context"

// Publisher represents a service for publishing extracted records
type Publisher interface {
	// Publish publishes a message to a stream under key
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// Nop discards everything. It stands in when no stream is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }
func (Nop) TrimStreams(context.Context) error             { return nil }
func (Nop) Close() error                                  { return nil }
