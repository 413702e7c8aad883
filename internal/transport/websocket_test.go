package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

func newEchoServer(t *testing.T, greeting string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		if greeting != "" {
			if err := conn.Write(ctx, websocket.MessageText, []byte(greeting)); err != nil {
				return
			}
		}

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSClientSubscribeReceivesMessages(t *testing.T) {
	srv := newEchoServer(t, "hello")
	defer srv.Close()

	client := NewWS(WSConfig{URL: wsURL(srv)}, zap.NewNop())
	ch, unsubscribe := client.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	select {
	case ev := <-ch:
		if ev.Err != nil {
			t.Fatalf("unexpected event error: %v", ev.Err)
		}
		if string(ev.Data) != "hello" {
			t.Fatalf("expected greeting, got %q", ev.Data)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}

	if err := client.Send(ctx, []byte("ping-payload")); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case ev := <-ch:
		if string(ev.Data) != "ping-payload" {
			t.Fatalf("expected echo, got %q", ev.Data)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for echo")
	}
}

func TestWSClientCloseClosesSubscribers(t *testing.T) {
	srv := newEchoServer(t, "")
	defer srv.Close()

	client := NewWS(WSConfig{URL: wsURL(srv)}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ch, _ := client.Subscribe()

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected subscriber channel to be closed")
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for channel close")
	}

	// Closing twice is a no-op.
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWSClientConnectAfterCloseFails(t *testing.T) {
	client := NewWS(WSConfig{URL: "ws://127.0.0.1:0"}, zap.NewNop())
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := client.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect on closed client to fail")
	}
}
