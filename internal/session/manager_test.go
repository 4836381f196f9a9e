package session

import (
	"testing"

	"toolview/internal/backend"
)

func openSession(t *testing.T, title string) *Session {
	t.Helper()
	return New(newFakeBackend(), Config{Kind: backend.KindClaude, Title: title})
}

func TestManagerFocusAndOrder(t *testing.T) {
	m := NewManager()
	if m.Active() != nil {
		t.Fatal("empty manager should have no active session")
	}

	a := openSession(t, "alpha")
	b := openSession(t, "beta")
	c := openSession(t, "gamma")
	defer m.CloseAll()

	m.Add(a)
	m.Add(b)
	m.Add(c)

	if got := m.Active(); got != a {
		t.Fatalf("first added session should hold focus, got %v", got.Title())
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}

	list := m.List()
	if len(list) != 3 || list[0] != a || list[1] != b || list[2] != c {
		t.Fatal("List should preserve creation order")
	}

	if !m.SetActive(b.ID()) {
		t.Fatal("SetActive on known id should succeed")
	}
	if m.SetActive("nope") {
		t.Fatal("SetActive on unknown id should fail")
	}
	if m.Active() != b {
		t.Fatal("focus should be on beta")
	}
}

func TestManagerCycle(t *testing.T) {
	m := NewManager()
	a := openSession(t, "alpha")
	b := openSession(t, "beta")
	c := openSession(t, "gamma")
	defer m.CloseAll()

	m.Add(a)
	m.Add(b)
	m.Add(c)

	if got := m.Next(); got != b {
		t.Fatalf("Next = %v, want beta", got.Title())
	}
	if got := m.Next(); got != c {
		t.Fatalf("Next = %v, want gamma", got.Title())
	}
	if got := m.Next(); got != a {
		t.Fatal("Next should wrap to alpha")
	}
	if got := m.Prev(); got != c {
		t.Fatal("Prev should wrap to gamma")
	}
}

func TestManagerRemoveRefocuses(t *testing.T) {
	m := NewManager()
	a := openSession(t, "alpha")
	b := openSession(t, "beta")
	c := openSession(t, "gamma")
	defer m.CloseAll()

	m.Add(a)
	m.Add(b)
	m.Add(c)
	m.SetActive(b.ID())

	m.Remove(b.ID())
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if m.Active() != a {
		t.Fatal("focus should fall back to the predecessor")
	}
	if closed, _ := b.Closed(); !closed {
		t.Fatal("removed session should be closed")
	}

	m.Remove(a.ID())
	if m.Active() != c {
		t.Fatal("removing the head should focus the next session")
	}
	m.Remove(c.ID())
	if m.Active() != nil || m.Len() != 0 {
		t.Fatal("manager should be empty")
	}
}
