package channels

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/astrarelay/astra/pkg/models"
)

func TestCLIAdapterEmitsOneEventPerLine(t *testing.T) {
	in := strings.NewReader("hello\n\nworld\n")
	out := &strings.Builder{}
	adapter := NewCLIAdapter("cli", "session-1", in, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- adapter.Run(ctx) }()

	var got []*models.InboundEvent
	for event := range adapter.Events() {
		got = append(got, event)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after input was exhausted")
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events (blank line skipped), got %d", len(got))
	}
	if got[0].PlainText != "hello" || got[1].PlainText != "world" {
		t.Fatalf("unexpected event contents: %+v", got)
	}
	for _, event := range got {
		if event.SessionID != "session-1" {
			t.Fatalf("expected fixed session id, got %q", event.SessionID)
		}
	}
}

func TestCLIAdapterSendWritesPlainText(t *testing.T) {
	out := &strings.Builder{}
	adapter := NewCLIAdapter("cli", "session-1", strings.NewReader(""), out)

	chain := models.NewChain(models.Text{Content: "reply"})
	if err := adapter.Send(context.Background(), "session-1", chain); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := out.String(); got != "reply\n" {
		t.Fatalf("expected %q written to output, got %q", "reply\n", got)
	}
}

func TestCLIAdapterSendStreamingFallsBackToLastChain(t *testing.T) {
	out := &strings.Builder{}
	adapter := NewCLIAdapter("cli", "session-1", strings.NewReader(""), out)

	stream := make(chan *models.MessageChain, 2)
	stream <- models.NewChain(models.Text{Content: "partial"})
	stream <- models.NewChain(models.Text{Content: "final"})
	close(stream)

	if err := adapter.SendStreaming(context.Background(), "session-1", stream, nil); err != nil {
		t.Fatalf("SendStreaming() error = %v", err)
	}
	if got := out.String(); got != "final\n" {
		t.Fatalf("expected only the final chain written, got %q", got)
	}
}

func TestCLIAdapterSendStreamingUsesFallbackWhenStreamEmpty(t *testing.T) {
	out := &strings.Builder{}
	adapter := NewCLIAdapter("cli", "session-1", strings.NewReader(""), out)

	stream := make(chan *models.MessageChain)
	close(stream)
	fallback := models.NewChain(models.Text{Content: "fallback"})

	if err := adapter.SendStreaming(context.Background(), "session-1", stream, fallback); err != nil {
		t.Fatalf("SendStreaming() error = %v", err)
	}
	if got := out.String(); got != "fallback\n" {
		t.Fatalf("expected fallback chain written, got %q", got)
	}
}

func TestCLIAdapterDisconnectsOnceInputIsExhausted(t *testing.T) {
	adapter := NewCLIAdapter("cli", "session-1", strings.NewReader(""), &strings.Builder{})
	if adapter.Status().Connected {
		t.Fatal("expected adapter to start disconnected")
	}

	if err := adapter.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if adapter.Status().Connected {
		t.Fatal("expected adapter to disconnect once input is exhausted")
	}
}
