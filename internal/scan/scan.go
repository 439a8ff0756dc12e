// Package scan implements the driver orchestrating walker, classfile
// decoder, hierarchy graph, and query engine into one scan.
// Concurrency follows a collector pattern:
// one walker goroutine per classpath root feeds decoded ClassFacts over a
// bounded channel to a single collector goroutine, which is the graph's
// only writer.
package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/classfile"
	"github.com/corescan/jscan/internal/diagnostic"
	"github.com/corescan/jscan/internal/hierarchy"
	"github.com/corescan/jscan/internal/pathfilter"
	"github.com/corescan/jscan/internal/query"
	"github.com/corescan/jscan/internal/walker"
)

// Options configures one scan.
type Options struct {
	Roots            []walker.Root
	Matcher          *pathfilter.ClasspathMatcher
	Decode           classfile.Options
	ResourcePatterns map[string]PatternSpec
	// Concurrency bounds how many classpath roots are walked in parallel.
	// 0 or 1 means sequential (no extra goroutines).
	Concurrency int
}

// PatternSpec is a named resource-path pattern registered with the query
// engine before the scan starts.
type PatternSpec struct {
	Regexp   string
	Callback func(relPath string, src *bytesource.Source) error
}

// Result is everything produced by a finished scan.
type Result struct {
	Graph       *hierarchy.Graph
	Engine      *query.Engine
	Diagnostics *diagnostic.Stream
}

type factEnvelope struct {
	fact *classfile.ClassFact
	err  error
	src  string
}

// Run executes one scan to completion: ingest every classpath root's
// classfiles into a hierarchy graph, finalize it, and leave the query
// engine in the Scanned state. Non-fatal per-classfile errors are recorded
// on the diagnostics stream and do not abort the scan; Fatal and
// ArgumentError propagate.
func Run(ctx context.Context, opts Options) (*Result, error) {
	diagnostics := diagnostic.NewStream()
	g := hierarchy.New(diagnostics)
	engine := query.New(g)

	for name, spec := range opts.ResourcePatterns {
		re, err := compileRegexp(spec.Regexp)
		if err != nil {
			return nil, &diagnostic.ArgumentError{Reason: fmt.Sprintf("invalid resource pattern %q: %v", name, err)}
		}
		if err := engine.RegisterResourcePattern(name, re, spec.Callback); err != nil {
			return nil, err
		}
	}

	if err := engine.EnterScanning(); err != nil {
		return nil, err
	}

	w := walker.New(opts.Roots, opts.Matcher, diagnostics)
	w.ResourcePatterns = engine.WalkerPatterns()

	if err := ingest(ctx, w, g, diagnostics, opts); err != nil {
		return nil, err
	}

	if err := g.Finalize(); err != nil {
		return nil, err
	}
	if err := engine.EnterScanned(); err != nil {
		return nil, err
	}

	return &Result{Graph: g, Engine: engine, Diagnostics: diagnostics}, nil
}

// ingest drives the walker and feeds every decoded ClassFact to the graph
// under a single-writer discipline. Decoding happens on
// the walker's own call stack (CPU-only once bytes are resident); Ingest is
// always called from this function's goroutine, so no locking is needed
// around the graph itself.
func ingest(ctx context.Context, w *walker.Walker, g *hierarchy.Graph, diagnostics *diagnostic.Stream, opts Options) error {
	if opts.Concurrency <= 1 || len(w.Roots) <= 1 {
		return w.Walk(ctx, func(src *bytesource.Source, rootIndex int) error {
			return decodeAndIngest(src, rootIndex, g, diagnostics, opts.Decode)
		})
	}
	return ingestParallel(ctx, w, g, diagnostics, opts)
}

// ingestParallel walks each classpath root on its own goroutine (bounded by
// opts.Concurrency) and serializes every decoded fact through a single
// collector goroutine that owns the graph, a channel-based
// option (a). A fact's root index travels with it so the collector's
// shadowing resolution stays correct regardless of which worker finishes
// first.
func ingestParallel(ctx context.Context, w *walker.Walker, g *hierarchy.Graph, diagnostics *diagnostic.Stream, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	facts := make(chan factEnvelope, opts.Concurrency*4)
	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	recordErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, root := range w.Roots {
		root := root
		perRoot := &walker.Walker{
			Roots:            []walker.Root{root},
			Matcher:          w.Matcher,
			ResourcePatterns: w.ResourcePatterns,
			Diagnostics:      diagnostics,
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			err := perRoot.Walk(ctx, func(src *bytesource.Source, rootIndex int) error {
				fact, decErr := classfile.Decode(src, rootIndex, opts.Decode)
				if decErr == classfile.ErrNotAClassfile {
					return nil
				}
				select {
				case facts <- factEnvelope{fact: fact, err: decErr, src: src.Label()}:
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			})
			if err != nil {
				recordErr(err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(facts)
		close(done)
	}()

	for env := range facts {
		if env.err != nil {
			if _, ok := env.err.(*diagnostic.FormatError); ok {
				diagnostics.Record(diagnostic.EventFormatError, env.src, env.err.Error())
				continue
			}
			recordErr(env.err)
			continue
		}
		if err := g.Ingest(env.fact); err != nil {
			recordErr(err)
		}
	}
	<-done

	return firstErr
}

func decodeAndIngest(src *bytesource.Source, rootIndex int, g *hierarchy.Graph, diagnostics *diagnostic.Stream, decodeOpts classfile.Options) error {
	fact, err := classfile.Decode(src, rootIndex, decodeOpts)
	if err == classfile.ErrNotAClassfile {
		return nil
	}
	if err != nil {
		if _, ok := err.(*diagnostic.FormatError); ok {
			diagnostics.Record(diagnostic.EventFormatError, src.Label(), err.Error())
			return nil
		}
		return err
	}
	return g.Ingest(fact)
}
