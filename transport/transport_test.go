package transport

import (
	"context"
	"testing"
	"time"
)

func TestSendRecvLoopback(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	defer a.Close()
	b, err := Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	defer b.Close()

	msg := []byte("hello lifx")
	if err := a.Send(msg, b.LocalAddr()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	dg, err := b.Recv(recvCtx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(dg.Payload) != string(msg) {
		t.Errorf("got %q, want %q", dg.Payload, msg)
	}
}

func TestRecvTimeout(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	recvCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := a.Recv(recvCtx); err == nil {
		t.Errorf("Recv with nothing sent should have timed out")
	}
}
