package store

import (
	"context"
	"strings"
	"testing"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/storage/memory"
)

func newTestStore(agents ...string) *Store {
	return New(memory.New(), nil, agents)
}

func TestAppendMessage_IsAppendOnlyAndStable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("alice", "bob")

	m1, err := s.AppendMessage(ctx, "alice", "hello @bob", AppendOptions{})
	if err != nil {
		t.Fatalf("append 1: %v", err)
	}
	before, err := s.ReadChannel(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	m2, err := s.AppendMessage(ctx, "bob", "hi @alice", AppendOptions{})
	if err != nil {
		t.Fatalf("append 2: %v", err)
	}
	after, err := s.ReadChannel(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(after) != len(before)+1 {
		t.Fatalf("after = %d entries, want %d", len(after), len(before)+1)
	}
	for i, m := range before {
		if after[i].ID != m.ID || after[i].Timestamp != m.Timestamp {
			t.Fatalf("entries observed at t1 are not a prefix at t2: index %d changed", i)
		}
	}
	if m1.ID == m2.ID {
		t.Fatal("ids collided")
	}
}

func TestAppendMessage_MentionPurity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("alice", "bob", "carol")

	m, err := s.AppendMessage(ctx, "alice", "hey @bob and @bob and @dave, cc @carol", AppendOptions{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	want := []string{"bob", "carol"}
	if len(m.Mentions) != len(want) {
		t.Fatalf("mentions = %v, want %v", m.Mentions, want)
	}
	for i, w := range want {
		if m.Mentions[i] != w {
			t.Fatalf("mentions = %v, want %v", m.Mentions, want)
		}
	}
}

func TestReadChannel_VisibilityExcludesNonConversationalKindsAndForeignDMs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a", "b", "c")

	_, err := s.AppendMessage(ctx, "a", "secret", AppendOptions{To: "b"})
	if err != nil {
		t.Fatalf("dm append: %v", err)
	}
	_, err = s.AppendMessage(ctx, "a", "sys", AppendOptions{Kind: domain.KindSystem})
	if err != nil {
		t.Fatalf("system append: %v", err)
	}
	_, err = s.AppendMessage(ctx, "a", "public hi", AppendOptions{})
	if err != nil {
		t.Fatalf("public append: %v", err)
	}

	cView, err := s.ReadChannel(ctx, ReadOptions{Agent: "c"})
	if err != nil {
		t.Fatalf("read as c: %v", err)
	}
	for _, m := range cView {
		if m.Content == "secret" {
			t.Fatal("c must not see a's DM to b")
		}
		if m.Kind == domain.KindSystem {
			t.Fatal("c must not see system-kind entries")
		}
	}

	bView, err := s.ReadChannel(ctx, ReadOptions{Agent: "b"})
	if err != nil {
		t.Fatalf("read as b: %v", err)
	}
	found := false
	for _, m := range bView {
		if m.Content == "secret" {
			found = true
		}
	}
	if !found {
		t.Fatal("b (the recipient) must see the DM")
	}
}

func TestGetInbox_CoverageAndOwnMessagesExcluded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a", "b")

	if _, err := s.AppendMessage(ctx, "a", "@b please look", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.AppendMessage(ctx, "b", "@b talking to myself", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	inbox, err := s.GetInbox(ctx, "b")
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("inbox = %d entries, want 1 (own-authored mention excluded)", len(inbox))
	}
	if inbox[0].Message.From != "a" {
		t.Fatalf("inbox[0].From = %s, want a", inbox[0].Message.From)
	}
}

func TestAckInbox_IsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a", "b")

	m1, _ := s.AppendMessage(ctx, "a", "@b one", AppendOptions{})
	m2, _ := s.AppendMessage(ctx, "a", "@b two", AppendOptions{})

	if err := s.AckInbox(ctx, "b", m2.ID); err != nil {
		t.Fatalf("ack m2: %v", err)
	}
	// Acking an earlier id after a later one must be a no-op.
	if err := s.AckInbox(ctx, "b", m1.ID); err != nil {
		t.Fatalf("ack m1: %v", err)
	}

	inbox, err := s.GetInbox(ctx, "b")
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 0 {
		t.Fatalf("inbox after ack = %d, want 0 (cursor must not have regressed)", len(inbox))
	}
}

func TestMarkRunStart_IsAFloorNotATruncation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a", "b")

	if _, err := s.AppendMessage(ctx, "a", "@b before restart", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.MarkRunStart(ctx); err != nil {
		t.Fatalf("MarkRunStart: %v", err)
	}

	inbox, err := s.GetInbox(ctx, "b")
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 0 {
		t.Fatalf("inbox after run-epoch floor = %d, want 0", len(inbox))
	}

	all, err := s.ReadChannel(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ReadChannel after run start = %d entries, want 1 (history is retained)", len(all))
	}

	if _, err := s.AppendMessage(ctx, "a", "@b after restart", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	inbox, err = s.GetInbox(ctx, "b")
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Message.Content != "@b after restart" {
		t.Fatalf("inbox after new mention = %+v", inbox)
	}
}

func TestSmartSend_RoundTripsThroughAResource(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), nil, []string{"a", "b"}, WithMessageThreshold(10))

	content := "```\n" + strings.Repeat("x", 200) + "\n```"
	res, err := s.SmartSend(ctx, "a", "@b "+content, "")
	if err != nil {
		t.Fatalf("SmartSend: %v", err)
	}
	if res.Resource == nil {
		t.Fatal("expected content over threshold to be extracted into a resource")
	}
	if !strings.Contains(res.Message.Content, res.Resource.Ref()) {
		t.Fatalf("visible message %q does not reference %s", res.Message.Content, res.Resource.Ref())
	}
	if len(res.Message.Mentions) != 1 || res.Message.Mentions[0] != "b" {
		t.Fatalf("visible message mentions = %v, want [b]", res.Message.Mentions)
	}

	full, ok, err := s.ReadResource(ctx, res.Resource.ID)
	if err != nil || !ok {
		t.Fatalf("ReadResource: ok=%v err=%v", ok, err)
	}
	if full.Content != "@b "+content {
		t.Fatalf("resource content mismatch: got %d bytes, want %d", len(full.Content), len("@b "+content))
	}
}

func TestGetInbox_EmptyInboxWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a", "b")

	before, err := s.ReadChannel(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	inbox, err := s.GetInbox(ctx, "b")
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 0 {
		t.Fatalf("expected empty inbox, got %d", len(inbox))
	}
	after, err := s.ReadChannel(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("reading an empty inbox must not write to the channel")
	}
}
