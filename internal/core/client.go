package core

import "sync"

// DefaultQueueSize is the outbound reply buffer of a client.
const DefaultQueueSize = 64

// Client is the server-side handle of one connection.
// Replies are queued on a bounded channel drained by the connection writer.
type Client struct {
	ID   string
	Addr string

	outbound  chan Reply
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client handle with a queue of the given size.
func NewClient(id, addr string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		ID:       id,
		Addr:     addr,
		outbound: make(chan Reply, queueSize),
		done:     make(chan struct{}),
	}
}

// Deliver enqueues a reply without blocking.
func (c *Client) Deliver(r Reply) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.outbound <- r:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSlowConsumer
	}
}

// Outbound is the queue the connection writer drains.
func (c *Client) Outbound() <-chan Reply {
	return c.outbound
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client closed. It is safe to call more than once.
// The outbound queue is never closed so concurrent Deliver calls cannot panic.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
