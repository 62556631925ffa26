package sessionstore

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	m := NewMemory[[]string]()
	m.Set("suggest_cache:ap:anon", []string{"apple", "apricot"}, time.Minute)

	got, ok := m.Get("suggest_cache:ap:anon")
	if !ok || len(got) != 2 {
		t.Fatalf("Get = %v, %v", got, ok)
	}
}

func TestExpiry(t *testing.T) {
	m := NewMemory[int]()
	m.Set("k", 1, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := m.Get("k"); ok {
		t.Fatal("expected expired key to be absent")
	}
}

func TestDeletePrefix(t *testing.T) {
	m := NewMemory[int]()
	m.Set("suggest_cache:ap:anon", 1, time.Minute)
	m.Set("suggest_cache:ap:u1", 2, time.Minute)
	m.Set("suggest_cache:ba:anon", 3, time.Minute)

	m.DeletePrefix("suggest_cache:ap")
	if _, ok := m.Get("suggest_cache:ap:anon"); ok {
		t.Error("expected ap:anon deleted")
	}
	if _, ok := m.Get("suggest_cache:ba:anon"); !ok {
		t.Error("expected ba:anon to survive")
	}
}

func TestClear(t *testing.T) {
	m := NewMemory[int]()
	m.Set("a", 1, time.Minute)
	m.Set("b", 2, time.Minute)
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", m.Len())
	}
}
