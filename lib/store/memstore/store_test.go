package memstore

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/store"
)

func TestSetGetDelete(t *testing.T) {
	s := New("test")

	if err := s.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok, err := s.Get("key")
	if err != nil || !ok {
		t.Fatalf("Expected key to exist, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(val, []byte("value")) {
		t.Errorf("Expected value %q, got %q", "value", val)
	}

	// returned values must be copies
	val[0] = 'X'
	val, _, _ = s.Get("key")
	if val[0] != 'v' {
		t.Errorf("Stored value was modified through returned slice")
	}

	if err := s.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if has, _ := s.Has("key"); has {
		t.Errorf("Expected key to be deleted")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d keys", s.Len())
	}
}

func TestStoreAsIStore(t *testing.T) {
	var s store.IStore = New("test")

	if err := s.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if has, err := s.Has("key"); err != nil || !has {
		t.Fatalf("Expected key to exist, got has=%v err=%v", has, err)
	}
	if err := s.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, err := s.Get("key"); err != nil || ok {
		t.Errorf("Expected key to be gone, got ok=%v err=%v", ok, err)
	}
}

func TestFailNext(t *testing.T) {
	s := New("test")
	boom := errors.New("boom")
	s.FailNext(OpGet, boom)

	if _, _, err := s.Get("a"); !errors.Is(err, boom) {
		t.Errorf("Expected injected error, got %v", err)
	}
	if _, _, err := s.Get("a"); err != nil {
		t.Errorf("Expected second call to succeed, got %v", err)
	}
	if s.Count(OpGet) != 2 {
		t.Errorf("Expected 2 get calls, got %d", s.Count(OpGet))
	}
}

func TestClientClose(t *testing.T) {
	s := New("test")
	c := s.Client()
	if s.OpenClients() != 1 {
		t.Fatalf("Expected 1 open client, got %d", s.OpenClients())
	}

	_ = c.Close()
	_ = c.Close()
	if s.OpenClients() != 0 {
		t.Errorf("Expected 0 open clients, got %d", s.OpenClients())
	}
	if err := c.Set("k", []byte("v")); err == nil {
		t.Errorf("Expected error when using a closed client")
	}
}

func TestReplicationDelay(t *testing.T) {
	src, dst := New("src"), New("dst")
	link := Replicate(src, dst, 50*time.Millisecond)
	defer link.Close()

	_ = src.Set("k", []byte("v"))
	if ok, _ := dst.Has("k"); ok {
		t.Fatalf("Write replicated before the delay elapsed")
	}

	link.Wait()
	if ok, _ := dst.Has("k"); !ok {
		t.Fatalf("Write was not replicated")
	}

	_ = src.Delete("k")
	link.Wait()
	if ok, _ := dst.Has("k"); ok {
		t.Errorf("Delete was not replicated")
	}
}

func TestReplicationPaused(t *testing.T) {
	src, dst := New("src"), New("dst")
	link := Replicate(src, dst, 0)
	defer link.Close()

	link.Pause()
	_ = src.Set("dropped", []byte("v"))
	link.Resume()
	_ = src.Set("kept", []byte("v"))

	if ok, _ := dst.Has("dropped"); ok {
		t.Errorf("Write made while paused was replicated")
	}
	if ok, _ := dst.Has("kept"); !ok {
		t.Errorf("Write made after resume was not replicated")
	}
}
