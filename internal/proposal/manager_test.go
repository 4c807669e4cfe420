package proposal

import (
	"testing"

	"github.com/aaltonen/chanflow/internal/domain"
)

func TestVote_PluralityResolvesWithFirstTieBreak(t *testing.T) {
	m := New()
	p, err := m.Create(CreateParams{
		Title:   "pick one",
		Options: []string{"p", "q"},
		Creator: "alice",
		Quorum:  3,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, resolved, err := m.Vote(p.ID, "alice", "p"); err != nil || resolved {
		t.Fatalf("vote 1: resolved=%v err=%v", resolved, err)
	}
	if _, resolved, err := m.Vote(p.ID, "bob", "q"); err != nil || resolved {
		t.Fatalf("vote 2: resolved=%v err=%v", resolved, err)
	}
	final, resolved, err := m.Vote(p.ID, "charlie", "p")
	if err != nil {
		t.Fatalf("vote 3: %v", err)
	}
	if !resolved {
		t.Fatal("expected the third vote to satisfy quorum and resolve the proposal")
	}
	if final.Status != domain.ProposalResolved {
		t.Fatalf("status = %s, want resolved", final.Status)
	}
	if final.Result == nil || final.Result.Winner != "p" {
		t.Fatalf("result = %+v, want winner p", final.Result)
	}
	if final.Result.Counts["p"] != 2 || final.Result.Counts["q"] != 1 {
		t.Fatalf("counts = %v, want {p:2,q:1}", final.Result.Counts)
	}
}

func TestVote_RejectsInvalidOption(t *testing.T) {
	m := New()
	p, _ := m.Create(CreateParams{Title: "t", Options: []string{"a", "b"}, Creator: "x", Quorum: 1})
	if _, _, err := m.Vote(p.ID, "x", "nonexistent"); err == nil {
		t.Fatal("expected an error for an option not in the proposal")
	}
}

func TestVote_TieBreakerNoneReportsTieWithoutWinner(t *testing.T) {
	m := New()
	p, _ := m.Create(CreateParams{
		Title: "t", Options: []string{"a", "b"}, Creator: "x",
		Quorum: 2, TieBreaker: "none",
	})
	_, _, _ = m.Vote(p.ID, "x", "a")
	final, resolved, err := m.Vote(p.ID, "y", "b")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if !resolved {
		t.Fatal("expected resolution once quorum is met even on a tie")
	}
	if final.Result.Winner != "" || !final.Result.Tied {
		t.Fatalf("result = %+v, want a reported tie with no winner", final.Result)
	}
}

func TestCancel_OnlyCreatorMayCancel(t *testing.T) {
	m := New()
	p, _ := m.Create(CreateParams{Title: "t", Options: []string{"a", "b"}, Creator: "alice"})
	if _, err := m.Cancel(p.ID, "bob"); err == nil {
		t.Fatal("expected an error when a non-creator cancels")
	}
	cancelled, err := m.Cancel(p.ID, "alice")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.ProposalCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestVote_WithoutQuorumNeverResolves(t *testing.T) {
	m := New()
	p, _ := m.Create(CreateParams{Title: "t", Options: []string{"a", "b"}, Creator: "x"})
	final, resolved, err := m.Vote(p.ID, "x", "a")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if resolved || final.Status != domain.ProposalActive {
		t.Fatalf("status = %s resolved=%v, want active/false with Quorum=0", final.Status, resolved)
	}
}
