package pathfilter

import "strings"

// DirMatch classifies a directory's relationship to the accepted scope
// during classpath traversal. The walker prunes recursion on
// HasRejectedPrefix and NotWithinAcceptedPath.
type DirMatch int

const (
	// HasRejectedPrefix: this directory path starts with a rejected path
	// prefix. Recursion is pruned unconditionally.
	HasRejectedPrefix DirMatch = iota
	// HasAcceptedPrefix: an ancestor directory was already accepted, so
	// everything under it is in scope.
	HasAcceptedPrefix
	// AtAcceptedPath: this directory exactly matches an accepted path.
	AtAcceptedPath
	// AncestorOfAcceptedPath: this directory is not itself accepted but
	// contains an accepted path further down; recursion continues but
	// files directly in this directory are not accepted.
	AncestorOfAcceptedPath
	// AtAcceptedClassPackage: this directory corresponds to an accepted
	// Java package.
	AtAcceptedClassPackage
	// NotWithinAcceptedPath: none of the above; recursion is pruned.
	NotWithinAcceptedPath
)

// ClasspathMatcher composes the four filter seeds the core recognizes:
// accept/reject packages, paths, classes, and jars.
type ClasspathMatcher struct {
	Packages *Filter // ShapePrefix, package names in slash form ("com/x")
	Paths    *Filter // ShapePrefix, resource-relative paths
	Classes  *Filter // ShapeWholeString (globs ok), dotted class names
	Jars     *Filter // ShapeLeafname, archive file names
}

// NewClasspathMatcher builds a matcher with empty filters of the correct
// shape for each seed.
func NewClasspathMatcher() *ClasspathMatcher {
	return &ClasspathMatcher{
		Packages: NewFilter(ShapePrefix),
		Paths:    NewFilter(ShapePrefix),
		Classes:  NewFilter(ShapeWholeString),
		Jars:     NewFilter(ShapeLeafname),
	}
}

// DirMatch classifies relDirPath (slash-separated, no trailing slash; ""
// is the classpath root itself).
func (m *ClasspathMatcher) DirMatch(relDirPath string) DirMatch {
	if m.Paths.Reject.Matches(relDirPath) || m.Packages.Reject.Matches(relDirPath) {
		return HasRejectedPrefix
	}

	pathsEmpty := m.Paths.Accept.IsEmpty()
	packagesEmpty := m.Packages.Accept.IsEmpty()

	if pathsEmpty && packagesEmpty {
		return HasAcceptedPrefix
	}

	if exactMatch(m.Paths.Accept, relDirPath) {
		return AtAcceptedPath
	}
	if exactMatch(m.Packages.Accept, relDirPath) {
		return AtAcceptedClassPackage
	}
	if m.Paths.Accept.Matches(relDirPath) || m.Packages.Accept.Matches(relDirPath) {
		return HasAcceptedPrefix
	}
	if m.Paths.Accept.HasPrefix(relDirPath) || m.Packages.Accept.HasPrefix(relDirPath) {
		return AncestorOfAcceptedPath
	}
	return NotWithinAcceptedPath
}

func exactMatch(l *List, s string) bool {
	for _, lit := range l.literals {
		if lit == s {
			return true
		}
	}
	return false
}

// AcceptsClassfile reports whether a discovered ".class" resource at
// relPath (slash-separated, package directory plus file name) should be
// decoded, given the class-name and package accept/reject seeds.
func (m *ClasspathMatcher) AcceptsClassfile(relPath string) bool {
	dotted := pathToClassName(relPath)
	if !m.Classes.Test(dotted) {
		return false
	}
	dir := relPath
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		dir = relPath[:i]
	} else {
		dir = ""
	}
	return m.Packages.Test(dir)
}

// AcceptsJar reports whether an archive root's file name passes the jar
// accept/reject seeds.
func (m *ClasspathMatcher) AcceptsJar(fileName string) bool {
	return m.Jars.Test(fileName)
}

func pathToClassName(relPath string) string {
	name := strings.TrimSuffix(relPath, ".class")
	return strings.ReplaceAll(name, "/", ".")
}
