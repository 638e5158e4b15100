package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/mazrik/modcat/pkg/catalog"
)

// graphOpts holds flags for the graph command.
type graphOpts struct {
	output string
	format string
}

// newGraphCmd creates the graph command rendering the module
// dependency graph from the flat module aggregate. The module cache
// must have been rebuilt at least once.
func newGraphCmd() *cobra.Command {
	opts := graphOpts{format: "dot"}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the module dependency graph",
		Long: `Render the module dependency graph from the flat module aggregate.

Each module record is a node; its dependencies are edges. Output is
Graphviz DOT by default, or SVG with --format svg.

Examples:
  modcat graph                       # DOT to stdout
  modcat graph --format svg -o m.svg # SVG to a file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, closer, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closer()

			data, err := cat.GetAllModules(ctx)
			if err != nil {
				return err
			}
			var aggregate map[string]catalog.ModuleRecord
			if err := json.Unmarshal(data, &aggregate); err != nil {
				return err
			}
			if len(aggregate) == 0 {
				printWarning("Module cache is empty; run 'modcat cache reload modules' first")
				return nil
			}

			dot := dependencyDOT(aggregate)

			var out []byte
			switch opts.format {
			case "dot":
				out = []byte(dot)
			case "svg":
				out, err = renderSVG(ctx, dot)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format: %s (available: dot, svg)", opts.format)
			}

			if opts.output == "" {
				fmt.Print(string(out))
				return nil
			}
			if err := os.WriteFile(opts.output, out, 0o644); err != nil {
				return err
			}
			printSuccess("Rendered %d modules", len(aggregate))
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format (dot, svg)")

	return cmd
}

// dependencyDOT converts the module aggregate to Graphviz DOT. Nodes
// are labeled name@revision; dependency edges point at the named
// module. Edges to modules outside the aggregate are still drawn so
// missing dependencies are visible.
func dependencyDOT(aggregate map[string]catalog.ModuleRecord) string {
	keys := make([]string, 0, len(aggregate))
	for key := range aggregate {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, key := range keys {
		record := aggregate[key]
		label := record.Name()
		if record.Revision() != "" {
			label += "\n" + record.Revision()
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", record.Name(), label)
	}

	buf.WriteString("\n")
	seen := make(map[string]bool)
	for _, key := range keys {
		record := aggregate[key]
		for _, dep := range record.Dependencies() {
			name := dependencyName(dep)
			if name == "" {
				continue
			}
			edge := record.Name() + " -> " + name
			if seen[edge] {
				continue
			}
			seen[edge] = true
			fmt.Fprintf(&buf, "  %q -> %q;\n", record.Name(), name)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dependencyName(dep any) string {
	m, ok := dep.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := m[catalog.FieldName].(string)
	return strings.TrimSpace(name)
}

// renderSVG renders a DOT graph to SVG using Graphviz.
func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
