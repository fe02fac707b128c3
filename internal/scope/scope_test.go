package scope

import (
	"errors"
	"testing"
)

func TestScope_SetGet(t *testing.T) {
	s := New()
	if err := s.Set("title", "Home"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, ok := s.Get("title")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if v != "Home" {
		t.Errorf("Get() = %v, want %q", v, "Home")
	}
	if !s.Has("title") {
		t.Error("Has() = false, want true")
	}
	if s.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestScope_CallMethod(t *testing.T) {
	s := New()
	calls := 0
	if err := s.Set("refresh", func() any {
		calls++
		return calls
	}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := s.Call("refresh")
	if !ok {
		t.Fatal("Call() ok = false, want true")
	}
	if got != 1 {
		t.Errorf("Call() = %v, want 1", got)
	}
	if calls != 1 {
		t.Errorf("method invoked %d times, want 1", calls)
	}
}

func TestScope_CallNotCallable(t *testing.T) {
	s := New()
	_ = s.Set("title", "Home")

	if _, ok := s.Call("title"); ok {
		t.Error("Call() on non-func field ok = true, want false")
	}
	if _, ok := s.Call("missing"); ok {
		t.Error("Call() on absent field ok = true, want false")
	}
}

func TestScope_Destroy(t *testing.T) {
	s := New()
	_ = s.Set("items", []int{1, 2})

	ran := 0
	s.OnDestroy(func() { ran++ })
	s.Destroy()

	if !s.Destroyed() {
		t.Fatal("Destroyed() = false after Destroy")
	}
	if ran != 1 {
		t.Errorf("destroy listener ran %d times, want 1", ran)
	}

	// Fields stay readable for post-teardown assertions, writes fail.
	if _, ok := s.Get("items"); !ok {
		t.Error("Get() after Destroy ok = false, want true")
	}
	if err := s.Set("items", nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Set() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestScope_DestroyTwice(t *testing.T) {
	s := New()
	ran := 0
	s.OnDestroy(func() { ran++ })

	s.Destroy()
	s.Destroy()

	if ran != 1 {
		t.Errorf("destroy listener ran %d times, want 1", ran)
	}
}
