package channels

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/astrarelay/astra/pkg/models"
)

// CLIAdapter is the reference in-process adapter used by tests and local
// chat: it reads lines from an input stream and turns each into an inbound
// event, and writes outbound chains back to an output stream. It implements
// FullAdapter so the lifecycle coordinator can wire it exactly like a
// networked platform adapter.
type CLIAdapter struct {
	id        models.PlatformID
	sessionID string

	in  io.Reader
	out io.Writer

	events chan *models.InboundEvent

	mu        sync.Mutex
	connected bool
}

// NewCLIAdapter builds a CLIAdapter reading lines from in and writing
// replies to out, all attributed to a single fixed session.
func NewCLIAdapter(id models.PlatformID, sessionID string, in io.Reader, out io.Writer) *CLIAdapter {
	return &CLIAdapter{
		id:        id,
		sessionID: sessionID,
		in:        in,
		out:       out,
		events:    make(chan *models.InboundEvent, 1),
	}
}

func (a *CLIAdapter) Name() string             { return string(a.id) }
func (a *CLIAdapter) ID() models.PlatformID    { return a.id }
func (a *CLIAdapter) Meta() models.PlatformMeta {
	return models.PlatformMeta{Name: string(a.id), Description: "in-process console adapter"}
}

func (a *CLIAdapter) Events() <-chan *models.InboundEvent { return a.events }

// Run scans input lines until ctx is cancelled or the stream ends, emitting
// one InboundEvent per non-empty line.
func (a *CLIAdapter) Run(ctx context.Context) error {
	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.connected = false
		a.mu.Unlock()
		close(a.events)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			chain := models.NewChain(models.Text{Content: line})
			event := models.NewInboundEvent(string(a.id), "private", a.sessionID, models.Sender{ID: "console"}, chain)
			select {
			case a.events <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (a *CLIAdapter) Terminate(ctx context.Context) error {
	return nil
}

// Send writes a reply chain's plain text to the output stream.
func (a *CLIAdapter) Send(ctx context.Context, sessionID string, chain *models.MessageChain) error {
	_, err := fmt.Fprintln(a.out, chain.PlainText())
	return err
}

// SendStreaming has no native streaming support; it drains the stream and
// falls back to a single Send of the final chain.
func (a *CLIAdapter) SendStreaming(ctx context.Context, sessionID string, stream <-chan *models.MessageChain, fallback *models.MessageChain) error {
	var last *models.MessageChain
	for chain := range stream {
		last = chain
	}
	if last == nil {
		last = fallback
	}
	if last == nil {
		return nil
	}
	return a.Send(ctx, sessionID, last)
}

func (a *CLIAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{Connected: a.connected}
}

func (a *CLIAdapter) HealthCheck(ctx context.Context) HealthStatus {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	return HealthStatus{Healthy: connected, LastCheck: time.Now()}
}

func (a *CLIAdapter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{}
}

var _ FullAdapter = (*CLIAdapter)(nil)
