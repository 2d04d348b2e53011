package api

import "testing"

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	h := NewHub()
	id1, ch1 := h.Register()
	id2, ch2 := h.Register()
	if id1 == id2 {
		t.Fatal("session ids must be unique")
	}
	if h.Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", h.Count())
	}

	h.Broadcast("tasks:update", []byte("hello"))
	for _, ch := range []<-chan envelope{ch1, ch2} {
		select {
		case env := <-ch:
			if env.event != "tasks:update" || string(env.data) != "hello" {
				t.Fatalf("unexpected envelope: %#v", env)
			}
		default:
			t.Fatal("no envelope delivered")
		}
	}

	h.Unregister(id1)
	if h.Has(id1) {
		t.Fatal("session still present after unregister")
	}
	if !h.Has(id2) {
		t.Fatal("other session must survive")
	}

	h.Broadcast("tasks:update", []byte("again"))
	select {
	case <-ch1:
		t.Fatal("received envelope after unregister")
	default:
	}
	select {
	case <-ch2:
	default:
		t.Fatal("remaining session missed the broadcast")
	}
}

func TestHubSlowSessionDropsFramesWithoutBlocking(t *testing.T) {
	h := NewHub()
	_, slow := h.Register()
	_, healthy := h.Register()

	// Saturate the slow session's buffer, then one more.
	for i := 0; i <= sessionBuffer; i++ {
		h.Broadcast("tasks:update", []byte("frame"))
	}

	if len(slow) != sessionBuffer {
		t.Fatalf("expected slow session capped at %d frames, got %d", sessionBuffer, len(slow))
	}
	// The healthy session is unaffected in registration terms: frames beyond
	// its buffer are dropped for it too, but delivery never blocked.
	if len(healthy) != sessionBuffer {
		t.Fatalf("expected healthy session capped at %d frames, got %d", sessionBuffer, len(healthy))
	}
}
