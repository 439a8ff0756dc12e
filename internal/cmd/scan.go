package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/corescan/jscan/internal/config"
	"github.com/corescan/jscan/internal/diagnostic"
	"github.com/corescan/jscan/internal/scan"
	"github.com/corescan/jscan/internal/store"
	"github.com/spf13/cobra"
)

var (
	scanAcceptPackages []string
	scanRejectPackages []string
	scanConcurrency    int
	scanNoStore        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <root>...",
	Short: "Scan classpath roots and build the type hierarchy",
	Long: `Scan walks the given classpath roots (directories and/or .jar/.zip
archives, in the order given), decoding every accepted classfile and
materializing the subtype, superinterface, and annotation-bearer
relations. Unless --no-store is set, the finished scan is
cached under .jscan/store so a later "jscan query" can run without
re-walking the classpath.

Examples:
  jscan scan ./build/classes
  jscan scan ./build/classes libs/one.jar libs/two.jar
  jscan scan --accept-package com/example ./build/classes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanAcceptPackages, "accept-package", nil, "only descend into these packages (slash form, e.g. com/example)")
	scanCmd.Flags().StringSliceVar(&scanRejectPackages, "reject-package", nil, "never descend into these packages")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 1, "number of classpath roots walked in parallel")
	scanCmd.Flags().BoolVar(&scanNoStore, "no-store", false, "don't persist the finished scan to .jscan/store")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, p := range scanAcceptPackages {
		cfg.Filter.AcceptPackages = append(cfg.Filter.AcceptPackages, p)
	}
	for _, p := range scanRejectPackages {
		cfg.Filter.RejectPackages = append(cfg.Filter.RejectPackages, p)
	}

	result, err := runScanWithConfig(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}

	printScanSummary(result)

	if !scanNoStore && cfg.Store.Enabled {
		if err := persistScan(cfg, result, args); err != nil {
			return fmt.Errorf("persist scan to store: %w", err)
		}
		log.Printf("scan results cached under .jscan/store")
	}
	return nil
}

// runScanWithConfig is the shared entry point scan.go and query.go both
// use to turn a set of classpath root paths plus a loaded Config into a
// finished scan.Result.
func runScanWithConfig(ctx context.Context, cfg *config.Config, rootPaths []string) (*scan.Result, error) {
	roots, err := buildRoots(rootPaths)
	if err != nil {
		return nil, err
	}
	matcher, err := cfg.BuildMatcher()
	if err != nil {
		return nil, fmt.Errorf("build accept/reject filter: %w", err)
	}

	result, err := scan.Run(ctx, scan.Options{
		Roots:       roots,
		Matcher:     matcher,
		Decode:      cfg.DecoderOptions(),
		Concurrency: scanConcurrency,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func printScanSummary(result *scan.Result) {
	classes := result.Graph.EncounteredClasses()
	interfaces := result.Graph.EncounteredInterfaces()

	log.Printf("scanned %d classes, %d interfaces", len(classes), len(interfaces))
	if n := result.Diagnostics.Count(diagnostic.EventFormatError); n > 0 {
		log.Printf("%d classfile(s) skipped (format error)", n)
	}
	if n := result.Diagnostics.Count(diagnostic.EventIoError); n > 0 {
		log.Printf("%d classfile(s) skipped (io error)", n)
	}
	if n := result.Diagnostics.Count(diagnostic.EventShadowSkip); n > 0 {
		log.Printf("%d classfile(s) shadowed by an earlier classpath root", n)
	}
}

func persistScan(cfg *config.Config, result *scan.Result, rootPaths []string) error {
	s, err := store.OpenDefault(store.Driver(cfg.Store.Driver))
	if err != nil {
		return err
	}
	defer s.Close()

	scanID, err := s.SaveScan(result.Graph)
	if err != nil {
		return err
	}
	for _, p := range rootPaths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if err := s.MarkRootScanned(p, info.ModTime(), scanID); err != nil {
			return err
		}
	}
	return nil
}
