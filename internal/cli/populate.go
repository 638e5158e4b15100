package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mazrik/modcat/pkg/catalog"
	"github.com/mazrik/modcat/pkg/errors"
)

// populateOpts holds flags shared by the populate subcommands.
type populateOpts struct {
	reload bool
}

// newPopulateCmd creates the populate command with its modules and
// vendors subcommands. Batches are JSON files produced by the ingest
// pipeline; each file is merged record by record into the store.
func newPopulateCmd() *cobra.Command {
	opts := populateOpts{}

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Merge module or vendor batch files into the catalog",
		Long: `Merge JSON batch files into the catalog store.

Module batches are arrays of module records (or an object with a
"modules" array). Vendor batches carry a "vendors" forest. Records are
merged into whatever is already stored; nothing is overwritten blindly.

Examples:
  modcat populate modules batch.json            # Merge module records
  modcat populate vendors vendors.json --reload # Merge and rebuild caches`,
	}

	cmd.PersistentFlags().BoolVar(&opts.reload, "reload", false, "rebuild the aggregate caches afterward")

	cmd.AddCommand(newPopulateModulesCmd(&opts))
	cmd.AddCommand(newPopulateVendorsCmd(&opts))

	return cmd
}

func newPopulateModulesCmd(opts *populateOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "modules <file.json>",
		Short: "Merge a module batch file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			records, err := readModuleBatch(args[0])
			if err != nil {
				return err
			}

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			prog := newProgress(loggerFromContext(ctx))
			if err := cat.PopulateModules(ctx, records); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Populated %d module records", len(records)))

			if opts.reload {
				if err := reloadCaches(ctx, cat); err != nil {
					return err
				}
			}
			printSuccess("Merged %d module records", len(records))
			return nil
		},
	}
}

func newPopulateVendorsCmd(opts *populateOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors <file.json>",
		Short: "Merge a vendor batch file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tree, err := readVendorBatch(args[0])
			if err != nil {
				return err
			}

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			prog := newProgress(loggerFromContext(ctx))
			if err := cat.PopulateVendors(ctx, tree.Vendors); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Populated %d vendor branches", len(tree.Vendors)))

			if opts.reload {
				if err := reloadCaches(ctx, cat); err != nil {
					return err
				}
			}
			printSuccess("Merged %d vendor branches", len(tree.Vendors))
			return nil
		},
	}
}

// readModuleBatch reads a module batch file: either a bare JSON array
// of module records or an object holding one under "modules".
func readModuleBatch(path string) ([]catalog.ModuleRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read batch file")
	}
	return parseModuleBatch(data)
}

func parseModuleBatch(data []byte) ([]catalog.ModuleRecord, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped struct {
			Modules []map[string]any `json:"modules"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse module batch")
		}
		raw = wrapped.Modules
	}

	records := make([]catalog.ModuleRecord, 0, len(raw))
	for _, m := range raw {
		records = append(records, catalog.ModuleRecord(m))
	}
	return records, nil
}

// readVendorBatch reads a vendor batch file carrying a "vendors"
// forest in the aggregate wire shape.
func readVendorBatch(path string) (*catalog.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read batch file")
	}
	tree, err := catalog.DecodeVendors(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse vendor batch")
	}
	return tree, nil
}

// reloadCaches rebuilds both aggregate caches behind a spinner.
func reloadCaches(ctx context.Context, cat *catalog.Catalog) error {
	spinner := newSpinnerWithContext(ctx, "Rebuilding aggregate caches...")
	spinner.Start()

	if err := cat.RebuildModuleCache(ctx); err != nil {
		spinner.StopWithError("Module cache rebuild failed")
		return err
	}
	if err := cat.RebuildVendorCache(ctx); err != nil {
		spinner.StopWithError("Vendor cache rebuild failed")
		return err
	}
	spinner.StopWithSuccess("Aggregate caches rebuilt")
	return nil
}
