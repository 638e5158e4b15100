package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the cache management command.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Rebuild and inspect the aggregate caches",
	}

	cmd.AddCommand(newCacheReloadCmd())
	cmd.AddCommand(newCacheShowCmd())

	return cmd
}

// newCacheReloadCmd creates the "cache reload" subcommand. Both
// aggregates are rebuilt from scratch by scanning their partitions; a
// stale or corrupt aggregate never survives a reload.
func newCacheReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "reload [modules|vendors|all]",
		Short:     "Rebuild the aggregate caches from the primitive records",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"modules", "vendors", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target := "all"
			if len(args) == 1 {
				target = args[0]
			}

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			spinner := newSpinnerWithContext(ctx, "Rebuilding "+target+" cache...")
			spinner.Start()

			if target == "modules" || target == "all" {
				if err := cat.RebuildModuleCache(ctx); err != nil {
					spinner.StopWithError("Module cache rebuild failed")
					return err
				}
			}
			if target == "vendors" || target == "all" {
				if err := cat.RebuildVendorCache(ctx); err != nil {
					spinner.StopWithError("Vendor cache rebuild failed")
					return err
				}
			}
			spinner.StopWithSuccess("Cache rebuilt")
			return nil
		},
	}
}

// newCacheShowCmd creates the "cache show" subcommand printing an
// aggregate as indented JSON.
func newCacheShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "show <modules|vendors>",
		Short:     "Print an aggregate cache as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"modules", "vendors"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			var data []byte
			switch args[0] {
			case "modules":
				data, err = cat.GetAllModules(ctx)
			case "vendors":
				data, err = cat.GetAllVendors(ctx)
			default:
				return fmt.Errorf("unknown aggregate: %s (available: modules, vendors)", args[0])
			}
			if err != nil {
				return err
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, data, "", "  "); err != nil {
				return err
			}
			fmt.Println(pretty.String())
			return nil
		},
	}
}
