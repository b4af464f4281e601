package hint

import (
	"strings"
	"testing"
)

func TestMatchConnectionRefused(t *testing.T) {
	t.Parallel()
	m := Default()
	got := m.Match("failed to connect to `host=localhost user=app database=app`: dial error (dial tcp 127.0.0.1:5432: connect: connection refused)")
	if !strings.Contains(got, "unreachable") {
		t.Fatalf("expected unreachable guidance, got %q", got)
	}
}

func TestMatchAuthFailure(t *testing.T) {
	t.Parallel()
	m := Default()
	got := m.Match(`FATAL: password authentication failed for user "app" (SQLSTATE 28P01)`)
	if !strings.Contains(got, "credentials") {
		t.Fatalf("expected credentials guidance, got %q", got)
	}
}

func TestNoMatch(t *testing.T) {
	t.Parallel()
	m := Default()
	if got := m.Match("some other error"); got != "" {
		t.Fatalf("expected empty string for non-matching error, got: %s", got)
	}
}

func TestMultipleMatches(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{
		{Pattern: `(?i)permission denied`, Message: "Check your privileges."},
		{Pattern: `(?i)denied.*table`, Message: "Verify table access grants."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Match("permission denied for table users")
	expected := "Check your privileges.\nVerify table access grants."
	if got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestAnnotate(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{{Pattern: `timeout`, Message: "Retry."}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Annotate("query timeout"); got != "query timeout\n\nRetry." {
		t.Fatalf("unexpected annotation: %q", got)
	}
	if got := m.Annotate("boom"); got != "boom" {
		t.Fatalf("expected unmatched message unchanged, got %q", got)
	}
}

func TestNilMatcher(t *testing.T) {
	t.Parallel()
	var m *Matcher
	if got := m.Annotate("boom"); got != "boom" {
		t.Fatalf("expected nil matcher to pass through, got %q", got)
	}
}

func TestInvalidRegex(t *testing.T) {
	t.Parallel()
	_, err := NewMatcher([]Rule{{Pattern: "[invalid(regex", Message: "x"}})
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
}
