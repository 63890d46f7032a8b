// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"meeting-intel/internal/llm"
)

// Reply is one scripted answer: Text, or Err when set.
type Reply struct {
	Text string
	Err  error
}

// Provider returns queued replies in order and records every request.
// When the queue is exhausted the last reply repeats.
type Provider struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request
}

func New(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

// Texts queues successful replies.
func Texts(texts ...string) *Provider {
	replies := make([]Reply, 0, len(texts))
	for _, t := range texts {
		replies = append(replies, Reply{Text: t})
	}
	return New(replies...)
}

func (p *Provider) Generate(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := len(p.requests)
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		return "{}", nil
	}
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	r := p.replies[idx]
	return r.Text, r.Err
}

// Calls returns the number of Generate calls so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of every request received.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}
