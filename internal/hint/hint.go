// Package hint attaches operator guidance to catalog failures so the
// calling agent can tell the user what to check.
package hint

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error message pattern to a guidance message.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Matcher checks error messages against patterns and returns guidance.
type Matcher struct {
	rules []compiledRule
}

// DefaultRules cover the connectivity failures seen when a schema server
// points at the wrong database.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: `(?i)connection refused|no such host|dial tcp|i/o timeout`, Message: "The database is unreachable. Ask the user to check the host and port in DATABASE_URL."},
		{Pattern: `(?i)password authentication failed|no password supplied`, Message: "The database rejected the credentials. Ask the user to check the user and password in DATABASE_URL."},
		{Pattern: `(?i)database "[^"]*" does not exist`, Message: "The database named in DATABASE_URL does not exist."},
		{Pattern: `(?i)too many clients|remaining connection slots`, Message: "The database has no free connection slots. Retry later or lower PGSCHEMA_POOL_MAX_CONNS."},
		{Pattern: `(?i)context deadline exceeded|canceling statement due to statement timeout`, Message: "The catalog query timed out. Retry, or raise PGSCHEMA_QUERY_TIMEOUT."},
		{Pattern: `(?i)permission denied`, Message: "The database user lacks privileges on the catalog views."},
	}
}

// NewMatcher creates a new Matcher. Returns an error on invalid regex patterns.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("hint: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Default returns a Matcher over DefaultRules.
func Default() *Matcher {
	m, err := NewMatcher(DefaultRules())
	if err != nil {
		panic(err)
	}
	return m
}

// Match checks errMsg against all rules (top to bottom).
// Returns all matching messages joined with newline separators, or an
// empty string if none match.
func (m *Matcher) Match(errMsg string) string {
	if m == nil {
		return ""
	}
	var matches []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}

// Annotate appends the matching guidance to errMsg.
func (m *Matcher) Annotate(errMsg string) string {
	h := m.Match(errMsg)
	if h == "" {
		return errMsg
	}
	return errMsg + "\n\n" + h
}
