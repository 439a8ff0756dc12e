package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corescan/jscan/internal/walker"
)

// buildRoots turns a list of command-line paths into classpath roots in
// the given order (classpath-root order is caller-supplied and
// preserved). Each path must be a directory or a .jar/.zip archive file;
// in-memory RootBuffer roots have no CLI surface (they're a library-only
// construct).
func buildRoots(paths []string) ([]walker.Root, error) {
	roots := make([]walker.Root, 0, len(paths))
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("classpath root %q: %w", p, err)
		}
		switch {
		case info.IsDir():
			roots = append(roots, walker.Root{Kind: walker.RootDirectory, Path: p, Index: i})
		case strings.HasSuffix(strings.ToLower(p), ".jar"), strings.HasSuffix(strings.ToLower(p), ".zip"):
			roots = append(roots, walker.Root{Kind: walker.RootArchive, Path: p, Index: i})
		default:
			return nil, fmt.Errorf("classpath root %q is neither a directory nor a .jar/.zip archive", p)
		}
	}
	return roots, nil
}
