package ports

import "context"

// Publisher sends an already-encoded event to a topic.
type Publisher interface {
	PublishRaw(ctx context.Context, arn string, payload []byte) error
}
