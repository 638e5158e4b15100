package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mazrik/modcat/internal/config"
	"github.com/mazrik/modcat/pkg/catalog"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// Typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the modcat CLI and returns an error if any command
// fails.
//
// The function sets up the root command with all subcommands
// (populate, cache, delete, graph), configures logging based on the
// --verbose flag, and executes the command tree under ctx.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands
// via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "modcat",
		Short:        "modcat manages a YANG module catalog over a key-value store",
		Long:         `modcat merges module and vendor metadata batches into a key-value store, maintains the flat module and hierarchical vendor aggregate caches, and serves targeted deletions against both.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("modcat %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newPopulateCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newGraphCmd())

	return root.ExecuteContext(ctx)
}

// openCatalog loads the configuration, opens the configured store
// partitions and wraps them in a catalog. The returned closer releases
// both partitions.
func openCatalog(ctx context.Context) (*catalog.Catalog, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	modules, vendors, err := cfg.OpenStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		_ = modules.Close()
		_ = vendors.Close()
	}
	return catalog.New(modules, vendors, loggerFromContext(ctx)), closer, nil
}
