// init.go implements "docchat init", which writes a default config.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/berth-dev/docchat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .docchat/config.yaml with defaults",
	Long: `Write a default .docchat/config.yaml to the project directory.
An existing config is left alone unless --force is given.`,
	RunE: runInit,
}

var forceFlag bool

func init() {
	initCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolving project directory: %w", err)
	}

	path := filepath.Join(config.Dir(root), "config.yaml")
	if _, statErr := os.Stat(path); statErr == nil && !forceFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists; use --force to overwrite.\n", path)
		return nil
	}

	cfg := config.DefaultConfig()
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := config.WriteConfig(root, cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Wrote"), path)
	return nil
}
