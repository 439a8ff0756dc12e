// Package query evaluates the declarative queries over a finalized
// hierarchy graph: subclassesOf, classesImplementing,
// classesWithAnnotation, and pathMatches. An Engine instance moves through
// a small state machine (Configuring, Scanning, Scanned) so that queries
// only ever run against a fully-built graph, never a partially scanned
// one.
package query

import (
	"regexp"
	"sort"
	"sync"

	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/classfile"
	"github.com/corescan/jscan/internal/diagnostic"
	"github.com/corescan/jscan/internal/hierarchy"
	"github.com/corescan/jscan/internal/walker"
)

// State is the engine's lifecycle phase.
type State int

const (
	// Configuring accepts resource-pattern registrations.
	Configuring State = iota
	// Scanning is active while a walker/scan driver is feeding classfiles
	// and invoking path-match callbacks.
	Scanning
	// Scanned means finalize has run; subclass/implement/annotation
	// queries are now valid.
	Scanned
)

// ResourceMatch records one pathMatches callback invocation, made during
// Scanning, so a caller can inspect them after the fact as well as react
// to them live.
type ResourceMatch struct {
	Pattern string
	Path    string
}

// Engine evaluates queries against one scan's hierarchy graph.
type Engine struct {
	state State
	graph *hierarchy.Graph

	// matchMu guards matches: resource callbacks fire concurrently when a
	// scan walks classpath roots in parallel.
	matchMu sync.Mutex
	matches []ResourceMatch

	resourcePatterns []registeredPattern
}

type registeredPattern struct {
	name     string
	re       *regexp.Regexp
	callback func(relPath string, src *bytesource.Source) error
}

// New creates an Engine in the Configuring state, backed by graph (which
// the caller finalizes by calling EnterScanning/EnterScanned at the right
// points in the scan driver).
func New(graph *hierarchy.Graph) *Engine {
	return &Engine{state: Configuring, graph: graph}
}

// RegisterResourcePattern adds a pathMatches registration. Valid only in
// Configuring.
func (e *Engine) RegisterResourcePattern(name string, re *regexp.Regexp, callback func(relPath string, src *bytesource.Source) error) error {
	if e.state != Configuring {
		return &diagnostic.ArgumentError{Reason: "RegisterResourcePattern called outside Configuring"}
	}
	e.resourcePatterns = append(e.resourcePatterns, registeredPattern{name: name, re: re, callback: callback})
	return nil
}

// EnterScanning transitions Configuring -> Scanning. The scan driver calls
// this immediately before walking the classpath.
func (e *Engine) EnterScanning() error {
	if e.state != Configuring {
		return &diagnostic.ArgumentError{Reason: "EnterScanning called outside Configuring"}
	}
	e.state = Scanning
	return nil
}

// WalkerPatterns adapts every registered pattern into a walker.ResourcePattern,
// so a scan driver can hand them straight to walker.Walker.ResourcePatterns.
// Each adapted callback records the match (for ResourceMatches) before
// invoking the caller's own callback, in registration order. This is the
// engine's half of the pathMatches query, evaluated during the
// walk itself rather than deferred to the Scanned phase.
func (e *Engine) WalkerPatterns() []walker.ResourcePattern {
	out := make([]walker.ResourcePattern, len(e.resourcePatterns))
	for i, p := range e.resourcePatterns {
		p := p
		out[i] = walker.ResourcePattern{
			Regexp: p.re,
			Callback: func(relPath string, src *bytesource.Source) error {
				if e.state != Scanning {
					return &diagnostic.ArgumentError{Reason: "resource pattern matched outside Scanning"}
				}
				e.matchMu.Lock()
				e.matches = append(e.matches, ResourceMatch{Pattern: p.name, Path: relPath})
				e.matchMu.Unlock()
				if p.callback != nil {
					return p.callback(relPath, src)
				}
				return nil
			},
		}
	}
	return out
}

// EnterScanned transitions Scanning -> Scanned. The scan driver calls this
// after the graph's Finalize has returned successfully.
func (e *Engine) EnterScanned() error {
	if e.state != Scanning {
		return &diagnostic.ArgumentError{Reason: "EnterScanned called outside Scanning"}
	}
	if !e.graph.IsFinalized() {
		return &diagnostic.ArgumentError{Reason: "EnterScanned called before the graph was finalized"}
	}
	e.state = Scanned
	return nil
}

// State reports the engine's current phase.
func (e *Engine) State() State { return e.state }

// ResourceMatches returns every pathMatches hit recorded during Scanning,
// in the order they occurred.
func (e *Engine) ResourceMatches() []ResourceMatch {
	e.matchMu.Lock()
	defer e.matchMu.Unlock()
	out := make([]ResourceMatch, len(e.matches))
	copy(out, e.matches)
	return out
}

// SubclassesOf returns the names of every encountered class that is a
// transitive subclass of name. Fails with ArgumentError if name denotes an
// interface or annotation type, or if the engine isn't Scanned.
func (e *Engine) SubclassesOf(name string) ([]string, error) {
	if e.state != Scanned {
		return nil, &diagnostic.ArgumentError{Reason: "SubclassesOf called before Scanned"}
	}
	if iface, ok := e.graph.Interface(name); ok && iface.Encountered {
		return nil, &diagnostic.ArgumentError{Reason: "subclassesOf queried against an interface or annotation type: " + name}
	}
	node, ok := e.graph.Class(name)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(node.AllSubs()))
	for sub := range node.AllSubs() {
		if subNode, ok := e.graph.Class(sub); ok && subNode.Encountered {
			out = append(out, sub)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ClassesImplementing returns the names of every encountered class that
// implements interface name, per the inverted interface index.
func (e *Engine) ClassesImplementing(name string) ([]string, error) {
	if e.state != Scanned {
		return nil, &diagnostic.ArgumentError{Reason: "ClassesImplementing called before Scanned"}
	}
	return e.graph.ClassesImplementing(name), nil
}

// ClassesWithAnnotation returns the names of every encountered class
// bearing annotation name, per the inverted annotation index.
func (e *Engine) ClassesWithAnnotation(name string) ([]string, error) {
	if e.state != Scanned {
		return nil, &diagnostic.ArgumentError{Reason: "ClassesWithAnnotation called before Scanned"}
	}
	return e.graph.ClassesWithAnnotation(name), nil
}

// Fact returns the decoded ClassFact for a class or interface name, if it
// was encountered during the scan.
func (e *Engine) Fact(name string) (*classfile.ClassFact, bool) {
	if node, ok := e.graph.Class(name); ok && node.Encountered {
		return node.Fact, true
	}
	if node, ok := e.graph.Interface(name); ok && node.Encountered {
		return node.Fact, true
	}
	return nil, false
}
