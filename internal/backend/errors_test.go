package backend

import (
	"bytes"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		output    string
		want      errorClass
		retryable bool
	}{
		{"Error: rate limit exceeded, retry later", classQuota, true},
		{"HTTP 429 Too Many Requests", classQuota, true},
		{"401 Unauthorized: invalid api key", classAuth, false},
		{"sh: claude: command not found", classNotFound, false},
		{"connection reset by peer", classTransient, true},
		{"", classTransient, true},
	}
	for _, c := range cases {
		got := classifyError(c.output)
		if got != c.want {
			t.Errorf("classifyError(%q) = %s, want %s", c.output, got, c.want)
		}
		if got.retryable() != c.retryable {
			t.Errorf("classifyError(%q).retryable() = %v, want %v", c.output, got.retryable(), c.retryable)
		}
	}
}

func TestBoundedWriter_CapsStoredBytes(t *testing.T) {
	var buf bytes.Buffer
	w := &boundedWriter{buf: &buf, cap: 10}

	n, err := w.Write([]byte("0123456789abcdef"))
	if err != nil || n != 16 {
		t.Fatalf("Write = (%d, %v), want (16, nil): the writer must report full consumption", n, err)
	}
	if buf.String() != "0123456789" {
		t.Fatalf("stored = %q, want the first 10 bytes only", buf.String())
	}

	// Further writes past the cap are discarded without error.
	if n, err := w.Write([]byte("more")); err != nil || n != 4 {
		t.Fatalf("Write past cap = (%d, %v), want (4, nil)", n, err)
	}
	if buf.Len() != 10 {
		t.Fatalf("buffer grew past cap to %d bytes", buf.Len())
	}
}
