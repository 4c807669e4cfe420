package transport

import (
	"regexp"
	"testing"
)

func TestSessionRegistry_BindAndLookup(t *testing.T) {
	r := NewSessionRegistry()

	token := r.Bind("lib-session-1", "alice")
	if got := r.Agent("lib-session-1"); got != "alice" {
		t.Fatalf("Agent = %q, want alice", got)
	}
	if got := r.SessionFor("alice"); got != "lib-session-1" {
		t.Fatalf("SessionFor = %q, want lib-session-1", got)
	}
	if !regexp.MustCompile(`^alice-[0-9a-f]{8}$`).MatchString(token) {
		t.Fatalf("token = %q, want alice-<8hex>", token)
	}
}

func TestSessionRegistry_RebindEvictsOldSession(t *testing.T) {
	r := NewSessionRegistry()
	r.Bind("old", "alice")
	r.Bind("new", "alice")

	if got := r.Agent("old"); got != "" {
		t.Fatalf("old session still bound to %q after rebind", got)
	}
	if got := r.SessionFor("alice"); got != "new" {
		t.Fatalf("SessionFor = %q, want new", got)
	}
}

func TestSessionRegistry_RemoveClearsBothDirections(t *testing.T) {
	r := NewSessionRegistry()
	r.Bind("s1", "bob")
	r.Remove("s1")

	if r.Agent("s1") != "" {
		t.Fatal("session still resolves after Remove")
	}
	if r.HasSession("bob") {
		t.Fatal("agent still has a session after Remove")
	}
}
