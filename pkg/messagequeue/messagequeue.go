// Package messagequeue publishes messages to a broker.
package messagequeue

import "context"

// Publisher defines the interface for publishing to a message queue.
type Publisher interface {
	Publish(ctx context.Context, queueName, contentType string, body []byte) error
	Close() error
}
