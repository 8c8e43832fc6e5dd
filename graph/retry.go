package graph

import (
	"context"
	"time"
)

const (
	defaultBaseBackoff = 200 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
)

// RetryPolicy bounds retries of a node's Execute. Retry is a
// decoration applied uniformly at the node boundary, never scheduler
// logic.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func normalizeRetryPolicy(in RetryPolicy) RetryPolicy {
	out := in
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.BaseBackoff <= 0 {
		out.BaseBackoff = defaultBaseBackoff
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = defaultMaxBackoff
	}
	if out.MaxBackoff < out.BaseBackoff {
		out.MaxBackoff = out.BaseBackoff
	}
	return out
}

func (p RetryPolicy) backoffForAttempt(retryNumber int) time.Duration {
	if retryNumber < 1 {
		retryNumber = 1
	}
	delay := p.BaseBackoff
	for i := 1; i < retryNumber; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

type retryNode struct {
	inner  Node
	policy RetryPolicy
}

// WithRetry wraps any node's Execute in bounded exponential backoff.
// Port selection delegates to the wrapped node.
func WithRetry(node Node, policy RetryPolicy) Node {
	if node == nil {
		return nil
	}
	return &retryNode{inner: node, policy: normalizeRetryPolicy(policy)}
}

func (n *retryNode) Execute(ctx context.Context, in Inputs) (Outputs, error) {
	var lastErr error
	for attempt := 1; attempt <= n.policy.MaxAttempts; attempt++ {
		out, err := n.inner.Execute(ctx, in)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == n.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(n.policy.backoffForAttempt(attempt)):
		}
	}
	return nil, lastErr
}

func (n *retryNode) SelectPort(out Outputs) string {
	if selector, ok := n.inner.(PortSelector); ok {
		return selector.SelectPort(out)
	}
	return DefaultPort
}
