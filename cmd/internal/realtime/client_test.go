package realtime

import "testing"

func TestClientTryEnqueue(t *testing.T) {
	t.Parallel()

	c := NewClient("c1", 2)

	if !c.TryEnqueue([]byte("a")) || !c.TryEnqueue([]byte("b")) {
		t.Fatal("enqueue into a non-full queue failed")
	}
	// Queue full: reject, never block.
	if c.TryEnqueue([]byte("c")) {
		t.Fatal("enqueue into a full queue succeeded")
	}

	<-c.Send
	if !c.TryEnqueue([]byte("c")) {
		t.Fatal("enqueue after drain failed")
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	t.Parallel()

	c := NewClient("c1", 2)
	c.Close()
	c.Close()

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not signalled after Close")
	}

	if c.TryEnqueue([]byte("a")) {
		t.Fatal("enqueue accepted after Close")
	}
}

func TestClientNilSafe(t *testing.T) {
	t.Parallel()

	var c *Client
	c.Close()
	if c.TryEnqueue([]byte("a")) {
		t.Fatal("nil client accepted a frame")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("nil client's Done must read as closed")
	}
}
