package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bookpress/bookexport"
	"github.com/hazyhaar/bookpress/shield"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigHashKeyCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Print or write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				fmt.Fprint(cmd.OutOrStdout(), bookexport.SampleConfig())
				return nil
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}
			if err := os.WriteFile(target, []byte(bookexport.SampleConfig()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination file (default: print to stdout)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and environment, then report the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := *ctx.configFlag
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(out, "Config: %s\n", path)
			rows := [][]string{
				{"export.timeout", cfg.Export.Timeout.D().String()},
				{"export.language", cfg.Export.Language},
				{"browser", browserMode(cfg.Browser.Remote, cfg.Browser.Ephemeral)},
				{"server.addr", cfg.Server.Addr},
				{"server.auth", yesNo(cfg.Server.APIKeyHash != "")},
				{"journal.path", cfg.Journal.Path},
				{"store.adapter", cfg.Store.Adapter},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, ""))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "hash-key <api-key>",
		Short:       "Print the bcrypt hash to use as server.api_key_hash",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := shield.HashAPIKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func browserMode(remote string, ephemeral bool) string {
	switch {
	case remote != "":
		return "remote " + remote
	case ephemeral:
		return "local, one per export"
	}
	return "local, shared"
}
