package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kmoselund/qpermute/pkg/config"
)

// appName is the application name used for directories and display.
const appName = "qpermute"

// =============================================================================
// Cache Command
// =============================================================================

// cacheOpts holds the persistent flags shared by the cache subcommands.
type cacheOpts struct {
	configPath string
	dir        string
}

// newCacheCmd creates the cache management command.
func newCacheCmd() *cobra.Command {
	opts := &cacheOpts{}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the oracle verdict cache",
		Long: `Cache manages the file-backed verdict cache. The directory comes from
--dir, from the [cache] section of a config file, or defaults to the
XDG cache directory.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a qpermute TOML config file")
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "cache directory (overrides the config file)")

	cmd.AddCommand(newCacheClearCmd(opts))
	cmd.AddCommand(newCachePathCmd(opts))

	return cmd
}

// newCacheClearCmd creates the "cache clear" subcommand.
func newCacheClearCmd(opts *cacheOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached oracle verdicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveCacheDir(opts)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return nil // Skip errors, continue walking
				}
				if path == dir {
					return nil
				}
				if !info.IsDir() {
					if err := os.Remove(path); err == nil {
						count++
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			// Clean up empty subdirectories
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil
				}
				if info.IsDir() {
					os.Remove(path)
				}
				return nil
			})

			printSuccess("Cleared %d cached verdicts", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd(opts *cacheOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveCacheDir(opts)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// =============================================================================
// Paths
// =============================================================================

// resolveCacheDir picks the cache directory: the --dir flag wins, then the
// config file's [cache] dir, then the XDG default.
func resolveCacheDir(opts *cacheOpts) (string, error) {
	if opts.dir != "" {
		return opts.dir, nil
	}
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return "", err
		}
		if cfg.Cache.Dir != "" {
			return cfg.Cache.Dir, nil
		}
	}
	return defaultCacheDir()
}

// defaultCacheDir returns the cache directory using XDG standard (~/.cache/qpermute/).
func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
