package store

import "testing"

func TestExtractMentions(t *testing.T) {
	agents := map[string]bool{"alice": true, "bob": true, "a-b_2": true}

	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"simple", "hey @alice", []string{"alice"}},
		{"order preserved", "@bob then @alice", []string{"bob", "alice"}},
		{"duplicates removed", "@alice @alice @bob @alice", []string{"alice", "bob"}},
		{"unknown names ignored", "@carol @alice", []string{"alice"}},
		{"punctuation terminates", "ping @alice, and @bob.", []string{"alice", "bob"}},
		{"hyphen and underscore in name", "cc @a-b_2 ok", []string{"a-b_2"}},
		{"name cannot start with digit", "@2fast @alice", []string{"alice"}},
		{"bare at sign", "email me @ home, @bob", []string{"bob"}},
		{"empty content", "", nil},
		{"at end of content", "over to @bob", []string{"bob"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := extractMentions(c.content, agents)
			if len(got) != len(c.want) {
				t.Fatalf("extractMentions(%q) = %v, want %v", c.content, got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("extractMentions(%q) = %v, want %v", c.content, got, c.want)
				}
			}
		})
	}
}

func TestContainsFencedCodeBlock(t *testing.T) {
	if !containsFencedCodeBlock("before\n```go\ncode\n```\nafter") {
		t.Error("fenced block not detected")
	}
	if containsFencedCodeBlock("just `inline` code") {
		t.Error("inline code misdetected as fenced block")
	}
}
