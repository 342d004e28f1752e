package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"loopbuilder/internal/config"
	"loopbuilder/internal/paths"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a run directory with source folders and a default config",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(rootDir, args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	for _, sub := range []string{cfg.Dirs.Videos, cfg.Dirs.Music, cfg.Dirs.Sounds, cfg.Dirs.Quotes} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}

	configFile := filepath.Join(dir, "loopbuilder.yaml")
	exists, err := paths.FileExists(configFile)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("config already exists at %s", configFile)
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized run directory at %s\n", dir)
	fmt.Fprintln(cmd.OutOrStdout(), "Drop clips into videos/, tracks into music/, ambient loops into sounds/ and one quote per .txt file into quotes/.")
	return nil
}

func resolveInitDir(rootFlag string, args []string) (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}
	return cwd, nil
}
