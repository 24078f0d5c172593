package cli

import (
	"errors"
	"fmt"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/spf13/cobra"
)

var errNoDiskCache = errors.New("no disk cache configured (set cache.dir)")

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk verdict cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired verdicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskCache()
		if err != nil {
			return err
		}
		n, err := disk.Prune()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired verdict(s)\n", n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached verdict",
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskCache()
		if err != nil {
			return err
		}
		if err := disk.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
		return nil
	},
}

func diskCache() (*cache.DiskCache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Dir == "" {
		return nil, errNoDiskCache
	}
	return cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL), nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
