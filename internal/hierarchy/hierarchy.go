// Package hierarchy maintains the shared class/interface graph a scan
// builds up from ClassFacts and answers its transitive-closure queries.
// A Graph is mutated under a single-writer discipline: callers
// running parallel decode workers must serialize ingestion through one
// goroutine or merge partial indexes themselves.
package hierarchy

import (
	"fmt"

	"github.com/corescan/jscan/internal/classfile"
	"github.com/corescan/jscan/internal/diagnostic"
)

// ClassNode is one class or enum's position in the hierarchy.
type ClassNode struct {
	Name           string
	Encountered    bool
	SuperName      string
	Subs           []string
	Interfaces     []string
	Annotations    []string
	SourceLocation int
	Fact           *classfile.ClassFact

	allSupers map[string]struct{}
	allSubs   map[string]struct{}
}

// AllSupers returns the transitive supertype set computed by Finalize.
func (n *ClassNode) AllSupers() map[string]struct{} { return n.allSupers }

// AllSubs returns the transitive subtype set computed by Finalize.
func (n *ClassNode) AllSubs() map[string]struct{} { return n.allSubs }

// InterfaceNode is one interface or annotation type's position in the
// hierarchy.
type InterfaceNode struct {
	Name            string
	Encountered     bool
	SuperInterfaces []string
	SourceLocation  int
	Fact            *classfile.ClassFact

	allSuperInterfaces map[string]struct{}
}

// AllSuperInterfaces returns the transitive superinterface set computed by
// Finalize.
func (n *InterfaceNode) AllSuperInterfaces() map[string]struct{} { return n.allSuperInterfaces }

// Graph is the shared, single-writer hierarchy built up over one scan.
type Graph struct {
	classes    map[string]*ClassNode
	interfaces map[string]*InterfaceNode

	annotationIndex map[string]map[string]struct{} // annotation name -> class names
	interfaceIndex  map[string]map[string]struct{} // interface name -> class names

	finalized   bool
	diagnostics *diagnostic.Stream
}

// New creates an empty Graph. diagnostics may be nil to discard events.
func New(diagnostics *diagnostic.Stream) *Graph {
	return &Graph{
		classes:     make(map[string]*ClassNode),
		interfaces:  make(map[string]*InterfaceNode),
		diagnostics: diagnostics,
	}
}

func (g *Graph) record(kind diagnostic.EventKind, source, detail string) {
	if g.diagnostics != nil {
		g.diagnostics.Record(kind, source, detail)
	}
}

func isInterfaceLike(k classfile.Kind) bool {
	return k == classfile.KindInterface || k == classfile.KindAnnotation
}

func (g *Graph) getOrCreateClass(name string) *ClassNode {
	n, ok := g.classes[name]
	if !ok {
		n = &ClassNode{Name: name}
		g.classes[name] = n
	}
	return n
}

func (g *Graph) getOrCreateInterface(name string) *InterfaceNode {
	n, ok := g.interfaces[name]
	if !ok {
		n = &InterfaceNode{Name: name}
		g.interfaces[name] = n
	}
	return n
}

// Ingest merges one ClassFact into the graph. Calling Ingest after
// Finalize has no defined effect.
func (g *Graph) Ingest(fact *classfile.ClassFact) error {
	if isInterfaceLike(fact.Kind) {
		return g.ingestInterface(fact)
	}
	return g.ingestClass(fact)
}

func (g *Graph) ingestClass(fact *classfile.ClassFact) error {
	node := g.getOrCreateClass(fact.Name)

	if node.Encountered {
		switch {
		case fact.SourceLocation > node.SourceLocation:
			// A later root's copy arriving after the earlier root's: shadowed.
			g.record(diagnostic.EventShadowSkip, fact.Name, fmt.Sprintf("root %d shadowed by earlier root %d", fact.SourceLocation, node.SourceLocation))
			return nil
		case fact.SourceLocation == node.SourceLocation:
			// The same root reporting the same class twice with
			// conflicting superclasses implies data corruption.
			if fact.SuperName != node.SuperName {
				return &diagnostic.Fatal{Reason: fmt.Sprintf("two superclasses for %s: %s and %s", fact.Name, node.SuperName, fact.SuperName)}
			}
			return nil
		default:
			// An earlier root's copy arrived after a later root's (workers
			// ran out of root order): upgrade in place. Shadowing keys on
			// minimum root index, never arrival order.
			g.record(diagnostic.EventShadowSkip, fact.Name, fmt.Sprintf("root %d supersedes previously ingested root %d", fact.SourceLocation, node.SourceLocation))
			g.detachFromSuper(node)
		}
	}

	node.Encountered = true
	node.Interfaces = fact.Interfaces
	node.Annotations = annotationNames(fact.Annotations)
	node.SourceLocation = fact.SourceLocation
	node.Fact = fact
	node.SuperName = fact.SuperName

	if fact.SuperName != "" {
		superNode := g.getOrCreateClass(fact.SuperName)
		superNode.Subs = append(superNode.Subs, node.Name)
	}
	return nil
}

// detachFromSuper removes node from its current super's Subs list, used
// when an earlier-root fact supersedes a previously ingested later-root
// fact for the same class name.
func (g *Graph) detachFromSuper(node *ClassNode) {
	if node.SuperName == "" {
		return
	}
	super, ok := g.classes[node.SuperName]
	if !ok {
		return
	}
	for i, name := range super.Subs {
		if name == node.Name {
			super.Subs = append(super.Subs[:i], super.Subs[i+1:]...)
			break
		}
	}
}

func (g *Graph) ingestInterface(fact *classfile.ClassFact) error {
	node := g.getOrCreateInterface(fact.Name)

	if node.Encountered {
		if fact.SourceLocation >= node.SourceLocation {
			g.record(diagnostic.EventShadowSkip, fact.Name, fmt.Sprintf("root %d shadowed by earlier root %d", fact.SourceLocation, node.SourceLocation))
			return nil
		}
		g.record(diagnostic.EventShadowSkip, fact.Name, fmt.Sprintf("root %d supersedes previously ingested root %d", fact.SourceLocation, node.SourceLocation))
	}

	node.Encountered = true
	node.SuperInterfaces = fact.Interfaces
	node.SourceLocation = fact.SourceLocation
	node.Fact = fact
	return nil
}

func annotationNames(anns []classfile.Annotation) []string {
	names := make([]string, len(anns))
	for i, a := range anns {
		names[i] = a.TypeName
	}
	return names
}

// Class looks up a ClassNode by name.
func (g *Graph) Class(name string) (*ClassNode, bool) {
	n, ok := g.classes[name]
	return n, ok
}

// Interface looks up an InterfaceNode by name.
func (g *Graph) Interface(name string) (*InterfaceNode, bool) {
	n, ok := g.interfaces[name]
	return n, ok
}

// IsFinalized reports whether Finalize has run.
func (g *Graph) IsFinalized() bool { return g.finalized }
