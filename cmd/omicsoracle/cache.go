package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the discovery and parsed-content caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache occupancy for both cache layers",
	RunE:  runCacheStats,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired discovery-cache entries",
	RunE:  runCacheCleanup,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear every entry in both caches",
	RunE:  runCacheClear,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <key>",
	Short: "Invalidate one discovery-cache key (or 'source|*' prefix)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInvalidate,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheCleanupCmd, cacheClearCmd, cacheInvalidateCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dstats, err := a.discoveryCache.Stats(ctx)
	if err != nil {
		return exitErrorf(4, "cache stats: %w", err)
	}
	pstats, err := a.parsedCache.Stats()
	if err != nil {
		return exitErrorf(4, "cache stats: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("discovery cache: lru=%d disk=%d expired=%d\n", dstats.LRUEntries, dstats.DiskEntries, dstats.ExpiredDiskEntries)
	green.Printf("parsed cache:    entries=%d compressed_bytes=%d\n", pstats.Entries, pstats.CompressedBytes)
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := a.discoveryCache.CleanupExpired(ctx)
	if err != nil {
		return exitErrorf(4, "cache cleanup: %w", err)
	}
	color.New(color.FgGreen).Printf("removed %d expired discovery-cache entries\n", n)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dn, err := a.discoveryCache.Invalidate(ctx, "*")
	if err != nil {
		return exitErrorf(4, "cache clear: %w", err)
	}
	pn, err := a.parsedCache.Invalidate("*")
	if err != nil {
		return exitErrorf(4, "cache clear: %w", err)
	}
	color.New(color.FgGreen).Printf("cleared %d discovery entries, %d parsed entries\n", dn, pn)
	return nil
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := a.discoveryCache.Invalidate(ctx, args[0])
	if err != nil {
		return exitErrorf(4, "cache invalidate: %w", err)
	}
	color.New(color.FgGreen).Printf("invalidated %d discovery-cache entries matching %q\n", n, args[0])
	return nil
}
