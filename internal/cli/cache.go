package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/csr/internal/cache"
	"github.com/dshills/csr/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the model reply cache",
}

// openCache opens the configured backend even when caching is disabled, so
// that stale entries can still be inspected and removed.
func openCache() (cache.Store, config.Config, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, cfg, err
	}
	cc := cfg.Cache
	cc.Enabled = true
	store, err := cache.Open(cc)
	if err != nil {
		return nil, cfg, fmt.Errorf("opening cache: %w", err)
	}
	return store, cfg, nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached model replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openCache()
		if err != nil {
			return err
		}
		n, err := store.Clear(cmd.Context())
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openCache()
		if err != nil {
			return err
		}
		if !cfg.Cache.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled.")
		}
		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
}
