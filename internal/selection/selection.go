// Package selection parses the run selection expressions typed at the
// cleanup prompt.
//
// Grammar (case-insensitive, surrounding whitespace ignored):
//
//	""          cancel, selects nothing
//	"all"       every index
//	"old"       runs last modified before now - threshold
//	tokens...   whitespace separated integers ("3") or inclusive ranges ("0-5")
//
// Malformed tokens are reported one by one and skipped. Indices outside the
// catalog are dropped silently.
package selection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultOldThreshold is the age beyond which a run counts as old.
const DefaultOldThreshold = 7 * 24 * time.Hour

const (
	keywordAll = "all"
	keywordOld = "old"
)

// Snapshot is the view of a catalog the parser needs.
type Snapshot interface {
	Len() int
	OlderThan(cutoff time.Time) []int
}

// TokenError reports a token that is neither an integer nor a range.
type TokenError struct {
	Token string
	Kind  string // "number" or "range"
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Kind, e.Token)
}

// Result is the outcome of parsing one expression.
type Result struct {
	// Indices are unique, in range, and ascending
	Indices []int
	// Errors holds one *TokenError per malformed token
	Errors []error
	// Empty is true when the expression was blank
	Empty bool
}

// Cancelled reports whether the user entered nothing.
func (r Result) Cancelled() bool {
	return r.Empty
}

// Parser resolves expressions against a catalog snapshot.
type Parser struct {
	// OldThreshold is the minimum age for the "old" keyword.
	// Zero means DefaultOldThreshold.
	OldThreshold time.Duration
	// Now returns the reference time for "old". Defaults to time.Now.
	Now func() time.Time
}

// Parse resolves expr with the default threshold and the current time.
func Parse(expr string, snap Snapshot) Result {
	return (&Parser{}).Parse(expr, snap)
}

// Parse resolves expr against snap.
func (p *Parser) Parse(expr string, snap Snapshot) Result {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return Result{Indices: []int{}, Empty: true}
	}

	size := 0
	if snap != nil {
		size = snap.Len()
	}

	var candidates []int
	var errs []error

	switch expr {
	case keywordAll:
		candidates = make([]int, size)
		for i := range candidates {
			candidates[i] = i
		}
	case keywordOld:
		if snap != nil {
			candidates = snap.OlderThan(p.now().Add(-p.threshold()))
		}
	default:
		for _, token := range strings.Fields(expr) {
			indices, err := parseToken(token, size)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			candidates = append(candidates, indices...)
		}
	}

	return Result{Indices: normalize(candidates, size), Errors: errs}
}

func (p *Parser) threshold() time.Duration {
	if p.OldThreshold <= 0 {
		return DefaultOldThreshold
	}
	return p.OldThreshold
}

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// parseToken expands a single integer or "start-end" token.
// Range expansion is clamped to [0, size); an inverted range expands to nothing.
func parseToken(token string, size int) ([]int, error) {
	if !strings.Contains(token, "-") {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, &TokenError{Token: token, Kind: "number"}
		}
		return []int{n}, nil
	}

	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return nil, &TokenError{Token: token, Kind: "range"}
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, &TokenError{Token: token, Kind: "range"}
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, &TokenError{Token: token, Kind: "range"}
	}

	var indices []int
	for i := max(start, 0); i <= end && i < size; i++ {
		indices = append(indices, i)
	}
	return indices, nil
}

// normalize drops out-of-range indices, removes duplicates and sorts.
func normalize(candidates []int, size int) []int {
	seen := make(map[int]bool, len(candidates))
	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if i < 0 || i >= size || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
