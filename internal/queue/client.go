package queue

import "context"

// Client hands a job dispatch message to the queue backend. A nil Client in
// the orchestrator means jobs run in-process instead.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
