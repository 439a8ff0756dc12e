// Package walker enumerates classpath roots and feeds discovered classfiles
// and matched resources to caller-supplied handlers.
package walker

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/diagnostic"
	"github.com/corescan/jscan/internal/pathfilter"
)

// RootKind distinguishes the three classpath root shapes the core accepts.
type RootKind int

const (
	RootDirectory RootKind = iota
	RootArchive
	RootBuffer
)

// Root is one classpath entry, tagged with its enumeration index, the
// value shadowing resolution keys on.
type Root struct {
	Kind  RootKind
	Path  string   // Directory or Archive path; unused for RootBuffer
	Label string   // RootBuffer label
	Data  []byte   // RootBuffer contents
	Index int
}

// ClassHandler receives one classfile byte source plus the root index it
// came from. It must not retain src past the call.
type ClassHandler func(src *bytesource.Source, rootIndex int) error

// ResourcePattern pairs a compiled regular expression with a callback
// invoked once per matching resource path.
type ResourcePattern struct {
	Regexp   *regexp.Regexp
	Callback func(relativePath string, src *bytesource.Source) error
}

// Walker enumerates a sequence of classpath roots in order.
type Walker struct {
	Roots            []Root
	Matcher          *pathfilter.ClasspathMatcher
	ResourcePatterns []ResourcePattern
	Diagnostics      *diagnostic.Stream
}

// New creates a Walker over roots, using matcher to prune directories and
// filter classfiles/jars.
func New(roots []Root, matcher *pathfilter.ClasspathMatcher, diagnostics *diagnostic.Stream) *Walker {
	return &Walker{Roots: roots, Matcher: matcher, Diagnostics: diagnostics}
}

// Walk enumerates every root in order, invoking onClass for each accepted
// classfile and the matching resource callback for each accepted resource
// path. ctx is checked for cancellation between directory entries and
// between archive entries.
func (w *Walker) Walk(ctx context.Context, onClass ClassHandler) error {
	for _, root := range w.Roots {
		if root.Kind == RootArchive && !w.Matcher.AcceptsJar(filepath.Base(root.Path)) {
			continue
		}
		var err error
		switch root.Kind {
		case RootDirectory:
			err = w.walkDirectory(ctx, root, onClass)
		case RootArchive:
			err = w.walkArchive(ctx, root, onClass)
		case RootBuffer:
			err = w.walkBuffer(root, onClass)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkBuffer(root Root, onClass ClassHandler) error {
	src := bytesource.OpenBuffer(root.Label, root.Data)
	return onClass(src, root.Index)
}

// walkDirectory recurses depth-first. Directory traversal order is sorted
// lexically by relative path so repeated scans enumerate identically.
func (w *Walker) walkDirectory(ctx context.Context, root Root, onClass ClassHandler) error {
	return w.walkDir(ctx, root, "", onClass)
}

func (w *Walker) walkDir(ctx context.Context, root Root, relDir string, onClass ClassHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch w.Matcher.DirMatch(relDir) {
	case pathfilter.HasRejectedPrefix, pathfilter.NotWithinAcceptedPath:
		return nil
	}

	absDir := filepath.Join(root.Path, filepath.FromSlash(relDir))
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return &diagnostic.IoError{Source: absDir, Err: err}
	}

	sorted := make([]os.DirEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	for _, e := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		relPath := e.Name()
		if relDir != "" {
			relPath = relDir + "/" + e.Name()
		}

		if e.IsDir() {
			if err := w.walkDir(ctx, root, relPath, onClass); err != nil {
				return err
			}
			continue
		}

		if err := w.visitFile(root, relDir, relPath, func() (*bytesource.Source, error) {
			return bytesource.OpenFile(filepath.Join(root.Path, filepath.FromSlash(relPath)))
		}, onClass); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkArchive(ctx context.Context, root Root, onClass ClassHandler) error {
	zr, err := zip.OpenReader(root.Path)
	if err != nil {
		return &diagnostic.IoError{Source: root.Path, Err: err}
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		relPath := entry.Name
		relDir := ""
		if i := strings.LastIndex(relPath, "/"); i >= 0 {
			relDir = relPath[:i]
		}
		switch w.Matcher.DirMatch(relDir) {
		case pathfilter.HasRejectedPrefix, pathfilter.NotWithinAcceptedPath:
			continue
		}

		e := entry
		if err := w.visitFile(root, relDir, relPath, func() (*bytesource.Source, error) {
			return bytesource.OpenZipEntry(root.Path, e)
		}, onClass); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) visitFile(root Root, relDir, relPath string, open func() (*bytesource.Source, error), onClass ClassHandler) error {
	if w.Matcher.DirMatch(relDir) == pathfilter.AncestorOfAcceptedPath {
		return nil
	}
	if strings.HasSuffix(relPath, ".class") {
		if !w.Matcher.AcceptsClassfile(relPath) {
			return nil
		}
		src, err := open()
		if err != nil {
			if w.Diagnostics != nil {
				w.Diagnostics.Record(diagnostic.EventIoError, relPath, err.Error())
				return nil
			}
			return err
		}
		defer src.Close()
		return onClass(src, root.Index)
	}

	for _, rp := range w.ResourcePatterns {
		if !rp.Regexp.MatchString(relPath) {
			continue
		}
		src, err := open()
		if err != nil {
			if w.Diagnostics != nil {
				w.Diagnostics.Record(diagnostic.EventIoError, relPath, err.Error())
				return nil
			}
			return err
		}
		err = rp.Callback(relPath, src)
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
