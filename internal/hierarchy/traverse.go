package hierarchy

import "sort"

// Finalize computes transitive closures and inverted indexes over every
// ingested fact. It is idempotent: a second call is
// a no-op.
func (g *Graph) Finalize() error {
	if g.finalized {
		return nil
	}

	g.propagateAllSupers()
	g.propagateAllSubs()
	g.propagateAllSuperInterfaces()
	g.buildInvertedIndexes()

	g.finalized = true
	return nil
}

// propagateAllSupers is a BFS from every root (a ClassNode with no direct
// super) that hands each child its parent's allSupers plus the parent
// itself.
func (g *Graph) propagateAllSupers() {
	var roots []*ClassNode
	for _, n := range g.classes {
		if n.SuperName == "" {
			roots = append(roots, n)
		}
	}

	for _, root := range roots {
		root.allSupers = map[string]struct{}{}
		queue := []*ClassNode{root}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, subName := range current.Subs {
				sub, ok := g.classes[subName]
				if !ok {
					continue
				}
				sub.allSupers = make(map[string]struct{}, len(current.allSupers)+1)
				for s := range current.allSupers {
					sub.allSupers[s] = struct{}{}
				}
				sub.allSupers[current.Name] = struct{}{}
				queue = append(queue, sub)
			}
		}
	}

	// Nodes unreachable from any root (a malformed super chain referencing
	// itself would be the only way this happens) still get an empty set
	// rather than a nil map.
	for _, n := range g.classes {
		if n.allSupers == nil {
			n.allSupers = map[string]struct{}{}
		}
	}
}

// propagateAllSubs is a DFS post-order pass: a node's allSubs is the union
// of each direct sub's own allSubs plus the sub itself, so children must be
// fully resolved before their parent.
func (g *Graph) propagateAllSubs() {
	visited := make(map[string]bool, len(g.classes))
	var visit func(n *ClassNode)
	visit = func(n *ClassNode) {
		if visited[n.Name] {
			return
		}
		visited[n.Name] = true

		n.allSubs = map[string]struct{}{}
		for _, subName := range n.Subs {
			sub, ok := g.classes[subName]
			if !ok {
				continue
			}
			visit(sub)
			n.allSubs[sub.Name] = struct{}{}
			for s := range sub.allSubs {
				n.allSubs[s] = struct{}{}
			}
		}
	}
	for _, n := range g.classes {
		visit(n)
	}
}

// propagateAllSuperInterfaces walks the direct-superinterface relation,
// which is required to be a DAG. Re-entry is guarded by
// checking whether a node's closure has already been computed, avoiding
// double visits on diamond-shaped interface hierarchies.
func (g *Graph) propagateAllSuperInterfaces() {
	inProgress := make(map[string]bool, len(g.interfaces))
	var resolve func(n *InterfaceNode) map[string]struct{}
	resolve = func(n *InterfaceNode) map[string]struct{} {
		if n.allSuperInterfaces != nil {
			return n.allSuperInterfaces
		}
		if inProgress[n.Name] {
			// A cycle means the input was malformed; treat conservatively
			// by terminating the recursion with what's known so far.
			return map[string]struct{}{}
		}
		inProgress[n.Name] = true

		closure := map[string]struct{}{}
		for _, superName := range n.SuperInterfaces {
			closure[superName] = struct{}{}
			superNode, ok := g.interfaces[superName]
			if !ok {
				continue
			}
			for s := range resolve(superNode) {
				closure[s] = struct{}{}
			}
		}
		n.allSuperInterfaces = closure
		inProgress[n.Name] = false
		return closure
	}

	for _, n := range g.interfaces {
		resolve(n)
	}
}

// buildInvertedIndexes computes the annotation->classes and
// interface->classes indexes: a class implements I iff
// I is declared directly, declared on any supertype, or reachable through
// either's superinterface closure.
func (g *Graph) buildInvertedIndexes() {
	g.annotationIndex = make(map[string]map[string]struct{})
	g.interfaceIndex = make(map[string]map[string]struct{})

	for _, n := range g.classes {
		if !n.Encountered {
			continue
		}
		for _, ann := range n.Annotations {
			g.addToIndex(g.annotationIndex, ann, n.Name)
		}

		reached := g.reachableInterfaces(n)
		for iface := range reached {
			g.addToIndex(g.interfaceIndex, iface, n.Name)
		}
	}
}

// reachableInterfaces computes the full set of interfaces class n
// implements: its own declared interfaces, every supertype's declared
// interfaces, and the superinterface closure of all of those.
func (g *Graph) reachableInterfaces(n *ClassNode) map[string]struct{} {
	result := map[string]struct{}{}

	addDeclared := func(names []string) {
		for _, name := range names {
			result[name] = struct{}{}
			if iface, ok := g.interfaces[name]; ok {
				for s := range iface.allSuperInterfaces {
					result[s] = struct{}{}
				}
			}
		}
	}

	addDeclared(n.Interfaces)
	for superName := range n.allSupers {
		if superNode, ok := g.classes[superName]; ok {
			addDeclared(superNode.Interfaces)
		}
	}
	return result
}

func (g *Graph) addToIndex(index map[string]map[string]struct{}, key, value string) {
	set, ok := index[key]
	if !ok {
		set = map[string]struct{}{}
		index[key] = set
	}
	set[value] = struct{}{}
}

// ClassesWithAnnotation returns the names of every encountered class
// bearing annotation A, per the inverted annotation index.
func (g *Graph) ClassesWithAnnotation(name string) []string {
	return setToSortedSlice(g.annotationIndex[name])
}

// ClassesImplementing returns the names of every encountered class that
// implements interface I, per the inverted interface index.
func (g *Graph) ClassesImplementing(name string) []string {
	return setToSortedSlice(g.interfaceIndex[name])
}

// EncounteredClasses returns every ClassNode with Encountered true, sorted
// by name, so a caller (e.g. internal/store) can persist a finished scan
// without needing its own parallel bookkeeping of what was ingested.
func (g *Graph) EncounteredClasses() []*ClassNode {
	var out []*ClassNode
	for _, n := range g.classes {
		if n.Encountered {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EncounteredInterfaces returns every InterfaceNode with Encountered true,
// sorted by name.
func (g *Graph) EncounteredInterfaces() []*InterfaceNode {
	var out []*InterfaceNode
	for _, n := range g.interfaces {
		if n.Encountered {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func setToSortedSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
