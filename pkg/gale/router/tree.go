// Package router implements the compressed-trie route tree and the
// Router that dispatches requests through it (spec.md §4.5-§4.7).
package router

import (
	"errors"
	"strings"

	"github.com/galehttp/gale/pkg/gale"
)

// ErrDuplicateRoute is returned when a pattern is registered twice for
// the same method.
var ErrDuplicateRoute = errors.New("router: duplicate route")

// ErrAmbiguousWildcard is returned when a node would carry more than
// one wildcard branch, or a deep wildcard alongside any other
// placeholder.
var ErrAmbiguousWildcard = errors.New("router: ambiguous wildcard")

// ErrPlaceholderNameConflict is returned when two placeholders at the
// same tree position are given different, non-empty names.
var ErrPlaceholderNameConflict = errors.New("router: placeholder name conflict")

// ErrInvalidPattern is returned for structurally invalid patterns, such
// as a deep wildcard followed by more path.
var ErrInvalidPattern = errors.New("router: invalid pattern")

// node is one position in the compressed trie. A node carries at most
// one literal-branch set, disjoint by leading byte (the trie
// invariant), and at most one placeholder branch (either a named
// single-segment capture or a deep, tail-consuming wildcard).
type node[T any] struct {
	prefix          string
	literals        []*node[T]
	placeholder     *node[T]
	placeholderName string
	deepWildcard    bool
	leaf            *T
}

func newNode[T any](prefix string) *node[T] {
	return &node[T]{prefix: prefix}
}

// onTerminal is invoked once insert locates (or creates) the node that
// pattern resolves to. Method trees use it to reject duplicates;
// the shared methods-index tree uses it to merge into an existing
// method set instead.
type onTerminal[T any] func(n *node[T]) error

// insert walks s (the pattern with its leading '/' already stripped)
// from n, applying spec.md §4.5's five cases.
func (n *node[T]) insert(s string, term onTerminal[T]) error {
	switch {
	case s == "":
		return term(n)

	case s[0] == '*':
		if len(s) != 1 {
			return ErrInvalidPattern
		}
		if n.placeholder != nil {
			return ErrAmbiguousWildcard
		}
		child := newNode[T]("")
		n.placeholder = child
		n.placeholderName = "*"
		n.deepWildcard = true
		return child.insert("", term)

	case s[0] == ':':
		name, rest := splitPlaceholder(s)
		if n.placeholder == nil {
			n.placeholder = newNode[T]("")
			n.placeholderName = name
		} else {
			if n.deepWildcard {
				return ErrAmbiguousWildcard
			}
			if n.placeholderName != "" && name != "" && n.placeholderName != name {
				return ErrPlaceholderNameConflict
			}
			if n.placeholderName == "" {
				n.placeholderName = name
			}
		}
		return n.placeholder.insert(rest, term)

	default:
		return n.insertLiteral(s, term)
	}
}

// splitPlaceholder extracts the token following ':' up to (not
// including) the next '/', returning the name and the remaining
// suffix (which may be empty or start with '/').
func splitPlaceholder(s string) (name, rest string) {
	slash := strings.IndexByte(s, '/')
	if slash == -1 {
		return s[1:], ""
	}
	return s[1:slash], s[slash:]
}

// firstWildcardChar returns the index of the first ':' or '*' in s, or
// -1 if neither appears.
func firstWildcardChar(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == '*' {
			return i
		}
	}
	return -1
}

// insertLiteral handles spec.md §4.5 cases 4 and 5: find or create the
// literal branch sharing s's first byte, splitting as needed to
// preserve the one-branch-per-first-byte invariant.
func (n *node[T]) insertLiteral(s string, term onTerminal[T]) error {
	for i, child := range n.literals {
		if child.prefix[0] != s[0] {
			continue
		}

		p := commonPrefixLen(child.prefix, s)
		switch {
		case p == len(child.prefix) && p == len(s):
			return child.insert("", term)
		case p == len(child.prefix):
			return child.insert(s[p:], term)
		case p == len(s):
			return n.splitAtShorterSuffix(i, p, term)
		default:
			return n.splitAtPartialPrefix(i, p, s, term)
		}
	}

	if p := firstWildcardChar(s); p > 0 {
		child := newNode[T](s[:p])
		n.literals = append(n.literals, child)
		return child.insert(s[p:], term)
	}

	child := newNode[T](s)
	n.literals = append(n.literals, child)
	return child.insert("", term)
}

// splitAtShorterSuffix handles the case where s is a strict prefix of
// an existing branch's component: s becomes a new intermediate node
// carrying the terminal, with the old subtree reattached below it via
// the branch's remaining tail.
func (n *node[T]) splitAtShorterSuffix(i, p int, term onTerminal[T]) error {
	old := n.literals[i]
	mid := newNode[T](old.prefix[:p])
	old.prefix = old.prefix[p:]
	mid.literals = []*node[T]{old}
	n.literals[i] = mid
	return mid.insert("", term)
}

// splitAtPartialPrefix handles the case where s and an existing
// branch's component share a prefix shorter than both: introduce an
// intermediate node for the shared prefix, reattach the old subtree
// under its tail, then insert the residual suffix of s under the new
// intermediate.
func (n *node[T]) splitAtPartialPrefix(i, p int, s string, term onTerminal[T]) error {
	old := n.literals[i]
	mid := newNode[T](old.prefix[:p])
	old.prefix = old.prefix[p:]
	mid.literals = []*node[T]{old}
	n.literals[i] = mid
	return mid.insert(s[p:], term)
}

func commonPrefixLen(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return i
}

// match walks s (path with its leading '/' stripped) from n, per
// spec.md §4.6, appending placeholder bindings to captures in visit
// order. Literal branches are tried before the node's own placeholder;
// the trie invariant guarantees at most one literal branch can share
// s's leading byte.
func (n *node[T]) match(s string, captures *gale.Captures) *T {
	if s == "" {
		if n.leaf != nil {
			return n.leaf
		}
		if n.placeholder != nil && n.deepWildcard {
			*captures = append(*captures, gale.Capture{Name: n.placeholderName, Value: ""})
			return n.placeholder.leaf
		}
		return nil
	}

	for _, child := range n.literals {
		if strings.HasPrefix(s, child.prefix) {
			if leaf := child.match(s[len(child.prefix):], captures); leaf != nil {
				return leaf
			}
		}
	}

	if n.placeholder == nil {
		return nil
	}

	if n.deepWildcard {
		*captures = append(*captures, gale.Capture{Name: n.placeholderName, Value: s})
		return n.placeholder.leaf
	}

	value, rest := s, ""
	if idx := strings.IndexByte(s, '/'); idx != -1 {
		value, rest = s[:idx], s[idx:]
	}
	*captures = append(*captures, gale.Capture{Name: n.placeholderName, Value: value})
	if leaf := n.placeholder.match(rest, captures); leaf != nil {
		return leaf
	}
	*captures = (*captures)[:len(*captures)-1]
	return nil
}
