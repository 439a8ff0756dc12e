package cmd

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/corescan/jscan/internal/config"
	"github.com/corescan/jscan/internal/query"
	"github.com/corescan/jscan/internal/scan"
	"github.com/corescan/jscan/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Evaluate a query against a scan's type hierarchy",
}

var subclassesCmd = &cobra.Command{
	Use:   "subclasses <name> [root]...",
	Short: "List every encountered transitive subclass of a class",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubclasses,
}

var implementorsCmd = &cobra.Command{
	Use:   "implementors <interface-name> [root]...",
	Short: "List every encountered class that implements an interface",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImplementors,
}

var annotatedCmd = &cobra.Command{
	Use:   "annotated <annotation-name> [root]...",
	Short: "List every encountered class bearing an annotation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnnotated,
}

var resourcesCmd = &cobra.Command{
	Use:   "resources <regex> <root>...",
	Short: "List resource paths matching a pattern, evaluated during the walk",
	Long: `Resources are matched during the walk itself, not deferred to the
query phase, so this query always requires at least one
classpath root and never reads from the .jscan/store cache.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResources,
}

func init() {
	queryCmd.AddCommand(subclassesCmd, implementorsCmd, annotatedCmd, resourcesCmd)
	rootCmd.AddCommand(queryCmd)
}

func runSubclasses(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := resolveEngine(cmd.Context(), args[1:])
	if err != nil {
		return err
	}
	defer cleanup()

	names, err := engine.SubclassesOf(args[0])
	if err != nil {
		return err
	}
	return printNames(names)
}

func runImplementors(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := resolveEngine(cmd.Context(), args[1:])
	if err != nil {
		return err
	}
	defer cleanup()

	names, err := engine.ClassesImplementing(args[0])
	if err != nil {
		return err
	}
	return printNames(names)
}

func runAnnotated(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := resolveEngine(cmd.Context(), args[1:])
	if err != nil {
		return err
	}
	defer cleanup()

	names, err := engine.ClassesWithAnnotation(args[0])
	if err != nil {
		return err
	}
	return printNames(names)
}

func runResources(cmd *cobra.Command, args []string) error {
	re, err := regexp.Compile(args[0])
	if err != nil {
		return fmt.Errorf("invalid resource pattern %q: %w", args[0], err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	roots, err := buildRoots(args[1:])
	if err != nil {
		return err
	}
	matcher, err := cfg.BuildMatcher()
	if err != nil {
		return fmt.Errorf("build accept/reject filter: %w", err)
	}

	result, err := scan.Run(cmd.Context(), scan.Options{
		Roots:   roots,
		Matcher: matcher,
		Decode:  cfg.DecoderOptions(),
		ResourcePatterns: map[string]scan.PatternSpec{
			"cli": {Regexp: re.String()},
		},
	})
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(result.Engine.ResourceMatches()))
	for _, m := range result.Engine.ResourceMatches() {
		paths = append(paths, m.Path)
	}
	return printNames(paths)
}

// resolveEngine builds a query.Engine over a fresh scan when rootPaths is
// non-empty, or over the cached .jscan/store scan when it's empty. The
// store is an optional cache; results are always correct without it.
func resolveEngine(ctx context.Context, rootPaths []string) (*query.Engine, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if len(rootPaths) > 0 {
		result, err := runScanWithConfig(ctx, cfg, rootPaths)
		if err != nil {
			return nil, nil, err
		}
		return result.Engine, func() error { return nil }, nil
	}

	s, err := store.OpenDefault(store.Driver(cfg.Store.Driver))
	if err != nil {
		return nil, nil, fmt.Errorf("no classpath roots given and .jscan/store is unavailable: %w", err)
	}
	graph, err := s.LoadGraph()
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("load cached scan: %w", err)
	}

	engine := query.New(graph)
	if err := engine.EnterScanning(); err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := engine.EnterScanned(); err != nil {
		s.Close()
		return nil, nil, err
	}
	return engine, s.Close, nil
}

func printNames(names []string) error {
	sort.Strings(names)
	if outputFormat == "json" {
		return printJSON(names)
	}
	data, err := yaml.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
