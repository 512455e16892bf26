package models

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// MatchMode is the closed set of rule match modes. Rule.Matches handles
// every mode exhaustively; an unknown mode never matches.
type MatchMode string

const (
	MatchExactly         MatchMode = "match_exactly"
	MatchCaseInsensitive MatchMode = "match_case_insensitive"
	MatchAny             MatchMode = "match_any"
	MatchExpression      MatchMode = "match_expression"
	MatchRegex           MatchMode = "match_regex"
	MatchStartsWith      MatchMode = "match_starts_with"
	MatchEndsWith        MatchMode = "match_ends_with"
	MatchContains        MatchMode = "match_contains"
	MatchNotContains     MatchMode = "match_not_contains"
	MatchNotStartsWith   MatchMode = "match_not_starts_with"
	MatchNotEndsWith     MatchMode = "match_not_ends_with"
	MatchNotRegex        MatchMode = "match_not_regex"
)

// AnyPosition selects every token position when set on a rule.
const AnyPosition = -1

// FilterAction is the classification outcome a filter assigns.
type FilterAction string

const (
	ActionToDownload FilterAction = "to_download"
	ActionToSkip     FilterAction = "to_skip"
	ActionDeleted    FilterAction = "deleted"
)

// Valid reports whether a is a known action.
func (a FilterAction) Valid() bool {
	switch a {
	case ActionToDownload, ActionToSkip, ActionDeleted:
		return true
	}
	return false
}

// Status returns the link status this action assigns.
func (a FilterAction) Status() LinkStatus {
	switch a {
	case ActionToDownload:
		return StatusToDownload
	case ActionToSkip:
		return StatusToSkip
	case ActionDeleted:
		return StatusDeleted
	}
	return StatusToReprocess
}

// Rule is a single positional token predicate. Position is a 0-based index
// into the token sequence, or AnyPosition to test every token.
type Rule struct {
	Position   int       `json:"position"`
	Mode       MatchMode `json:"mode"`
	Expression string    `json:"expression"`
}

// Sanitized returns a copy of the rule with the expression trimmed.
func (r Rule) Sanitized() Rule {
	r.Expression = strings.TrimSpace(r.Expression)
	return r
}

// Validate checks mode/expression consistency. Expression-bearing modes
// must carry a non-empty expression that parses (regex compiles, wildcard
// pattern is well formed) before a filter may enter the filter set.
func (r Rule) Validate() error {
	if r.Position < AnyPosition {
		return fmt.Errorf("rule position must be >= %d, got %d", AnyPosition, r.Position)
	}

	expr := strings.TrimSpace(r.Expression)
	switch r.Mode {
	case MatchAny:
		return nil
	case MatchExactly, MatchCaseInsensitive,
		MatchStartsWith, MatchEndsWith, MatchContains,
		MatchNotContains, MatchNotStartsWith, MatchNotEndsWith:
		if expr == "" {
			return fmt.Errorf("mode %s requires an expression", r.Mode)
		}
		return nil
	case MatchRegex, MatchNotRegex:
		if expr == "" {
			return fmt.Errorf("mode %s requires an expression", r.Mode)
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("invalid regex %q: %w", expr, err)
		}
		return nil
	case MatchExpression:
		if expr == "" {
			return fmt.Errorf("mode %s requires an expression", r.Mode)
		}
		if _, err := path.Match(expr, ""); err != nil {
			return fmt.Errorf("invalid wildcard pattern %q: %w", expr, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown match mode %q", r.Mode)
	}
}

// Matches reports whether the rule holds for the given token sequence.
// A positional rule whose position lies beyond the sequence fails; an
// any-position rule holds when at least one token satisfies the predicate.
func (r Rule) Matches(tokens []string) bool {
	if r.Mode == MatchAny {
		return true
	}
	for _, tok := range r.candidates(tokens) {
		if r.matchToken(tok) {
			return true
		}
	}
	return false
}

func (r Rule) candidates(tokens []string) []string {
	if r.Position == AnyPosition {
		return tokens
	}
	if r.Position < 0 || r.Position >= len(tokens) {
		return nil
	}
	return tokens[r.Position : r.Position+1]
}

func (r Rule) matchToken(token string) bool {
	expr := strings.TrimSpace(r.Expression)
	switch r.Mode {
	case MatchExactly:
		return token == expr
	case MatchCaseInsensitive:
		return strings.EqualFold(token, expr)
	case MatchAny:
		return true
	case MatchExpression:
		ok, err := path.Match(expr, token)
		return err == nil && ok
	case MatchRegex:
		re, err := regexp.Compile(expr)
		return err == nil && re.MatchString(token)
	case MatchNotRegex:
		re, err := regexp.Compile(expr)
		return err == nil && !re.MatchString(token)
	case MatchStartsWith:
		return strings.HasPrefix(token, expr)
	case MatchEndsWith:
		return strings.HasSuffix(token, expr)
	case MatchContains:
		return strings.Contains(token, expr)
	case MatchNotContains:
		return !strings.Contains(token, expr)
	case MatchNotStartsWith:
		return !strings.HasPrefix(token, expr)
	case MatchNotEndsWith:
		return !strings.HasSuffix(token, expr)
	}
	return false
}

// Filter pairs an ordered rule conjunction with the action it assigns.
// NumericID is stable and never reused; PriorityRank is the filter's
// position in the ordered filter set, maintained by the store.
type Filter struct {
	NumericID    int64        `json:"numeric_id"`
	Name         string       `json:"name"`
	Rules        []Rule       `json:"rules"`
	Action       FilterAction `json:"action"`
	PriorityRank int          `json:"priority_rank"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PlaceholderName builds the generated display name for unnamed filters.
func PlaceholderName(numericID int64) string {
	return fmt.Sprintf("Unnamed_%d", numericID)
}

// DisplayName returns the filter name, falling back to the placeholder.
func (f Filter) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return PlaceholderName(f.NumericID)
}

// Validate checks the filter is acceptable for the filter set.
func (f Filter) Validate() error {
	if len(f.Rules) == 0 {
		return fmt.Errorf("filter requires at least one rule")
	}
	if !f.Action.Valid() {
		return fmt.Errorf("unknown filter action %q", f.Action)
	}
	for i, rule := range f.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Matches reports whether every rule holds for the token sequence.
func (f Filter) Matches(tokens []string) bool {
	for _, rule := range f.Rules {
		if !rule.Matches(tokens) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand across the store boundary.
func (f Filter) Clone() Filter {
	cp := f
	cp.Rules = make([]Rule, len(f.Rules))
	copy(cp.Rules, f.Rules)
	return cp
}
