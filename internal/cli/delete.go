package cli

import (
	"github.com/spf13/cobra"

	"github.com/mazrik/modcat/pkg/catalog"
)

// newDeleteCmd creates the delete command with its targeted
// subcommands.
func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove modules, vendor subtrees, and record sub-elements",
	}

	cmd.AddCommand(newDeleteModulesCmd())
	cmd.AddCommand(newDeleteVendorCmd())
	cmd.AddCommand(newDeleteDependentCmd())
	cmd.AddCommand(newDeleteImplementationCmd())
	cmd.AddCommand(newDeleteExpiresCmd())

	return cmd
}

// newDeleteModulesCmd creates the "delete modules" subcommand. Keys
// are the canonical name@revision/organization form; the module cache
// is rebuilt afterward so the aggregate does not keep deleted records.
func newDeleteModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules <name@revision/organization>...",
		Short: "Delete module records and rebuild the module cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			removed, err := cat.DeleteModules(ctx, args)
			if err != nil {
				return err
			}
			if err := cat.RebuildModuleCache(ctx); err != nil {
				return err
			}

			printSuccess("Deleted %d of %d module records", removed, len(args))
			return nil
		},
	}
}

// newDeleteVendorCmd creates the "delete vendor" subcommand. The
// fragment decides granularity: "vendorX/" removes a whole vendor,
// "vendorX/platformY/" one platform. After removing the subtree, any
// implementation references into it are purged from the module records
// and both caches are rebuilt. A fragment-scoped reconstruction then
// verifies nothing survived.
func newDeleteVendorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vendor <fragment>",
		Short: "Delete a vendor subtree and purge its implementation references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fragment := args[0]

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			removed, err := cat.DeleteVendorSubtree(ctx, fragment)
			if err != nil {
				return err
			}
			purged, err := cat.PurgeImplementations(ctx, fragment)
			if err != nil {
				return err
			}
			if err := reloadCaches(ctx, cat); err != nil {
				return err
			}

			remnant, err := cat.VendorTree(ctx, fragment)
			if err != nil {
				return err
			}
			if len(remnant.Vendors) > 0 {
				printWarning("Subtree not fully removed; %d vendor branches still match %q", len(remnant.Vendors), fragment)
			}

			printSuccess("Deleted %d vendor records", removed)
			printKeyValue("fragment", fragment)
			printDetail("Purged %d implementation references", purged)
			return nil
		},
	}
}

// newDeleteDependentCmd creates the "delete dependent" subcommand.
func newDeleteDependentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dependent <name@revision/organization> <dependent-name>",
		Short: "Remove a dependent entry from a module record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			removed, err := cat.DeleteDependent(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				printInfo("No dependent named %q under %s", args[1], args[0])
				return nil
			}
			printSuccess("Removed dependent %q from %s", args[1], args[0])
			return nil
		},
	}
}

// newDeleteImplementationCmd creates the "delete implementation"
// subcommand. The implementation is addressed by its composite
// vendor/platform/software-version/software-flavor key.
func newDeleteImplementationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "implementation <name@revision/organization> <vendor/platform/software-version/software-flavor>",
		Short: "Remove an implementation reference from a module record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			removed, err := cat.DeleteImplementation(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				printInfo("No implementation %q under %s", args[1], args[0])
				return nil
			}
			printSuccess("Removed implementation %q from %s", args[1], args[0])
			return nil
		},
	}
}

// newDeleteExpiresCmd creates the "delete expires" subcommand,
// cancelling a pending expiration on a module record.
func newDeleteExpiresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expires <name> <revision> <organization>",
		Short: "Remove the expires attribute from a module record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			record := catalog.ModuleRecord{
				catalog.FieldName:         args[0],
				catalog.FieldRevision:     args[1],
				catalog.FieldOrganization: args[2],
			}
			removed, err := cat.DeleteExpires(ctx, record)
			if err != nil {
				return err
			}
			if !removed {
				printInfo("No expires attribute on %s@%s/%s", args[0], args[1], args[2])
				return nil
			}
			printSuccess("Removed expires from %s@%s/%s", args[0], args[1], args[2])
			return nil
		},
	}
}
