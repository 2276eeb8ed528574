package network

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/dbehnke/mavtrap/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

func startListener(t *testing.T) (*Listener, *net.UDPAddr, context.CancelFunc, chan error) {
	t.Helper()
	l := NewListener("127.0.0.1:0", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	errChan := make(chan error, 1)
	go func() {
		errChan <- l.Start(ctx)
	}()

	if err := l.WaitStarted(ctx); err != nil {
		cancel()
		t.Fatalf("listener failed to start: %v", err)
	}
	addr, err := l.Addr()
	if err != nil {
		cancel()
		t.Fatalf("Addr error: %v", err)
	}
	return l, addr, cancel, errChan
}

func TestListener_AddrBeforeStart(t *testing.T) {
	l := NewListener("127.0.0.1:0", testLogger())
	if _, err := l.Addr(); err == nil {
		t.Error("Expected error before Start")
	}
	if _, err := l.WriteTo([]byte{1}, &net.UDPAddr{}); err == nil {
		t.Error("Expected WriteTo error before Start")
	}
}

func TestListener_StartStop(t *testing.T) {
	_, _, cancel, errChan := startListener(t)

	// Cancel context to stop listener
	cancel()

	select {
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			t.Errorf("Unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_ReceiveAndReply(t *testing.T) {
	l, addr, cancel, _ := startListener(t)
	defer cancel()

	client, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("Failed to create client connection: %v", err)
	}
	defer func() { _ = client.Close() }()

	payload := []byte{0xFE, 0x09, 0x00, 0xFF, 0xBE, 0x00}
	if _, err := client.Write(payload); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var dg Datagram
	select {
	case dg = <-l.Packets():
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
	}

	if !bytes.Equal(dg.Data, payload) {
		t.Errorf("Expected %x, got %x", payload, dg.Data)
	}
	if dg.Addr.String() != client.LocalAddr().String() {
		t.Errorf("Expected sender %s, got %s", client.LocalAddr(), dg.Addr)
	}
	if dg.At.IsZero() {
		t.Error("Expected receive time to be set")
	}

	if _, err := l.WriteTo([]byte("pong"), dg.Addr); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}

	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline error: %v", err)
	}
	buffer := make([]byte, 64)
	n, err := client.Read(buffer)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(buffer[:n]) != "pong" {
		t.Errorf("Expected pong, got %q", buffer[:n])
	}
}

func TestListener_DatagramsAreCopied(t *testing.T) {
	l, addr, cancel, _ := startListener(t)
	defer cancel()

	client, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	for _, msg := range []string{"first", "second"} {
		if _, err := client.Write([]byte(msg)); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for len(got) < 2 {
		select {
		case dg := <-l.Packets():
			got = append(got, string(dg.Data))
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected 2 datagrams, got %v", got)
		}
	}
	if got[0] != "first" || got[1] != "second" {
		t.Errorf("Datagrams overwritten or reordered: %v", got)
	}
}
