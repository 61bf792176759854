package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/samijaber1/aegis-watch/internal/config"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a monitor configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "configuration file to validate")
	return cmd
}

func runValidate(cmd *cobra.Command, path string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, errs := config.LoadFile(path)
	if len(errs) == 0 {
		fmt.Fprintf(out, "✓ Configuration is valid (%d endpoint(s), %d alert channel(s))\n",
			len(cfg.Endpoints), len(cfg.Alerting.Channels))
		return nil
	}

	// Group errors by file
	errorsByFile := make(map[string][]config.ValidationError)
	for _, err := range errs {
		errorsByFile[err.File] = append(errorsByFile[err.File], err)
	}

	var files []string
	for file := range errorsByFile {
		files = append(files, file)
	}
	sort.Strings(files)

	fmt.Fprintf(errOut, "✗ Validation failed with %d error(s):\n\n", len(errs))
	for _, file := range files {
		for _, err := range errorsByFile[file] {
			if err.Path != "" {
				fmt.Fprintf(errOut, "%s: %s: %s\n", filepath.Base(err.File), err.Path, err.Message)
			} else {
				fmt.Fprintf(errOut, "%s: %s\n", filepath.Base(err.File), err.Message)
			}
		}
	}

	return errFailed
}
