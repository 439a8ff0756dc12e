// Package pathfilter implements the three Accept/Reject filter shapes used
// to scope a classpath scan: whole-string (with glob support),
// prefix, and leafname.
package pathfilter

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Shape selects how a List's literals and globs are matched against an
// input string.
type Shape int

const (
	// ShapeWholeString matches the entire input against a literal or glob.
	ShapeWholeString Shape = iota
	// ShapePrefix matches when the input starts with a listed literal.
	// Globs are not permitted in this shape.
	ShapePrefix
	// ShapeLeafname applies whole-string matching to the input's final
	// path segment only.
	ShapeLeafname
)

// List is one side (accept or reject) of a Filter: a set of literal strings
// plus compiled glob patterns, evaluated per Shape.
type List struct {
	shape    Shape
	literals []string
	globs    []string
	sorted   bool
}

// NewList creates an empty List for the given shape.
func NewList(shape Shape) *List {
	return &List{shape: shape}
}

// AddLiteral registers a literal string to match exactly (ShapeWholeString,
// ShapeLeafname) or as a prefix (ShapePrefix).
func (l *List) AddLiteral(s string) {
	l.literals = append(l.literals, s)
	l.sorted = false
}

// AddGlob registers a glob pattern. Valid only for ShapeWholeString and
// ShapeLeafname; ShapePrefix lists never compile globs. "*"
// matches any run of non-separator characters, "**" matches any run of
// characters including separators, and "?" matches exactly one character,
// per doublestar's matching rules.
func (l *List) AddGlob(pattern string) error {
	if l.shape == ShapePrefix {
		return &ShapeError{Shape: l.shape, Reason: "globs are not permitted in a prefix list"}
	}
	if !doublestar.ValidatePattern(pattern) {
		return &ShapeError{Reason: "invalid glob pattern: " + pattern}
	}
	l.globs = append(l.globs, pattern)
	l.sorted = false
	return nil
}

// LooksLikeGlob reports whether s contains any of the glob metacharacters
// this package's Shape-WholeString/Leafname matching recognizes ("*" or
// "?"), so callers building a List from a flat config seed list can decide
// whether to call AddGlob or AddLiteral without requiring the config
// format to tag entries explicitly.
func LooksLikeGlob(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// ShapeError signals an operation invalid for a List's Shape.
type ShapeError struct {
	Shape  Shape
	Reason string
}

func (e *ShapeError) Error() string { return e.Reason }

// IsEmpty reports whether the list has no literals and no globs, the
// "accept list is empty" predicate: an empty accept list accepts everything.
func (l *List) IsEmpty() bool {
	return len(l.literals) == 0 && len(l.globs) == 0
}

// Matches reports whether s is matched by this list, per its Shape.
func (l *List) Matches(s string) bool {
	switch l.shape {
	case ShapePrefix:
		for _, lit := range l.literals {
			if hasPathPrefix(s, lit) {
				return true
			}
		}
		return false
	case ShapeLeafname:
		return l.matchesWholeString(path.Base(s))
	default:
		return l.matchesWholeString(s)
	}
}

// hasPathPrefix reports whether prefix is s itself or a path-segment
// ancestor of s ("some accepted path
// begins with P plus separator"). A bare strings.HasPrefix would wrongly
// treat "com/example" as a prefix of the unrelated sibling
// "com/exampleFoo".
func hasPathPrefix(s, prefix string) bool {
	if s == prefix {
		return true
	}
	return strings.HasPrefix(s, prefix+"/")
}

func (l *List) matchesWholeString(s string) bool {
	for _, lit := range l.literals {
		if s == lit {
			return true
		}
	}
	for _, g := range l.globs {
		if ok, _ := doublestar.Match(g, s); ok {
			return true
		}
	}
	return false
}

// HasPrefix reports whether s occurs as a path-segment prefix of any
// literal in this list ("plus separator": segment-wise, never a bare
// string prefix). The walker uses it to
// decide whether to keep recursing into a directory that isn't itself
// accepted but might contain an accepted descendant. The empty string is a
// prefix of every non-empty list, matching the classpath root itself
// always being an ancestor of anything accepted under it.
func (l *List) HasPrefix(s string) bool {
	l.ensureSorted()
	if s == "" {
		return len(l.literals) > 0
	}
	for _, lit := range l.literals {
		if hasPathPrefix(lit, s) {
			return true
		}
	}
	return false
}

func (l *List) ensureSorted() {
	if l.sorted {
		return
	}
	sort.Strings(l.literals)
	l.sorted = true
}

// Filter pairs an accept List and a reject List of the same Shape. A string
// is accepted iff (accept is empty OR accept matches) AND reject does not
// match.
type Filter struct {
	Accept *List
	Reject *List
}

// NewFilter creates a Filter with empty accept/reject lists of the given
// shape.
func NewFilter(shape Shape) *Filter {
	return &Filter{Accept: NewList(shape), Reject: NewList(shape)}
}

// Test evaluates the accepted-and-not-rejected rule.
func (f *Filter) Test(s string) bool {
	if !f.Accept.IsEmpty() && !f.Accept.Matches(s) {
		return false
	}
	return !f.Reject.Matches(s)
}
