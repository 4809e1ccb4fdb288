package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapglot/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapglot/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapglot project",
		Long: `Initialize a new leapglot project with a configuration file and a
starter fixture file.

This creates:
  - leapglot.yaml configuration file
  - fixtures/ directory with a YAML fixture file
  - .gitignore for the history database

Use --example to also add a Starlark fixture file and two sample sources
under examples/, one polyglot and one that diverges.`,
		Example: `  # Initialize in current directory
  leapglot init

  # Initialize with sample sources
  leapglot init my-project --example

  # Force overwrite existing files
  leapglot init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Add sample sources and a Starlark fixture file")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)
	for _, group := range []string{"config", "fixtures", "examples"} {
		if len(groups[group]) == 0 {
			continue
		}
		r.Header(2, output.Heading(group))
		for _, f := range groups[group] {
			r.StatusLine(f, "success", "")
		}
		r.Println("")
	}

	r.Success("leapglot project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "example" {
		r.Println("  leapglot check examples/hello.c     Check a polyglot")
		r.Println("  leapglot trace examples/diverge.c   See where the grammars part ways")
	} else {
		r.Println("  leapglot check <file>    Check a source file")
	}
	r.Println("  leapglot shims           List the loaded shims and macros")
	return nil
}
