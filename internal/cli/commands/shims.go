package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapglot/internal/cli/output"
	"github.com/leapstack-labs/leapglot/internal/fixtures"
	"github.com/spf13/cobra"
)

// NewShimsCommand creates the shims command.
func NewShimsCommand() *cobra.Command {
	var static bool

	cmd := &cobra.Command{
		Use:   "shims",
		Short: "List the prelude and fixture shims and macros",
		Long: `List every shim and predefined macro the analyzer starts with: the
prelude (unless --no-prelude) followed by each fixture file in order.

With --static, Starlark fixture files are scanned without being executed
and each declaration is listed with its line.`,
		Example: `  leapglot shims
  leapglot shims -f fixtures/io.yaml
  leapglot shims --static -f fixtures/shims.star`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if static {
				return runShimsStatic(cmd)
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return cc.Renderer.Fixtures(cc.Fixtures)
		},
	}

	cmd.Flags().BoolVar(&static, "static", false, "Scan Starlark fixtures without executing them")
	return cmd
}

type staticDeclaration struct {
	File string `json:"file"`
	fixtures.Declaration
}

func runShimsStatic(cmd *cobra.Command) error {
	cc := NewCommandContextWithoutFixtures(cmd)
	r := cc.Renderer

	var decls []staticDeclaration
	for _, path := range cc.Cfg.Fixtures {
		if filepath.Ext(path) != ".star" {
			cc.Logger.Debug("skipping non-starlark fixture", "file", path)
			continue
		}
		content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		found, err := fixtures.ScanStarlark(path, content)
		if err != nil {
			return err
		}
		for _, d := range found {
			decls = append(decls, staticDeclaration{File: path, Declaration: d})
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if decls == nil {
			decls = []staticDeclaration{}
		}
		return r.JSON(decls)
	}
	if len(decls) == 0 {
		r.Println("No Starlark declarations found.")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Name", "Location"})
	for _, d := range decls {
		t.AppendRow(table.Row{d.Kind, d.Name, fmt.Sprintf("%s:%d", relPath(cc.Cfg.ProjectRoot, d.File), d.Line)})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(t.RenderMarkdown())
	} else {
		r.Println(t.Render())
	}
	return nil
}

func relPath(root, path string) string {
	if root == "" {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
