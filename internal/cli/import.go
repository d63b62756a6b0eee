package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/store"
)

// ImportResult summarises an import.
type ImportResult struct {
	Digest   string `json:"digest"`
	Pairs    int    `json:"pairs"`
	Tickers  int    `json:"tickers"`
	Alerts   int    `json:"alerts"`
	Replaced bool   `json:"replaced"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <snapshot>",
		Short: "Replace the stored repositories with a snapshot file",
		Long: `Replace every stored repository with the contents of a YAML or JSON
snapshot file. The file is validated in full before anything is written.

Example:
  tickerguard import --db ./tickerguard.db ./portfolio.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	snap, err := repo.DecodeSnapshot(data)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid snapshot", err)
	}
	set := repo.NewSet()
	if err := set.Restore(snap); err != nil {
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid snapshot", err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	_, prevErr := st.LastDigest(ctx)
	digest, err := st.SaveSnapshot(ctx, set.Snapshot(), time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}

	alerts := 0
	for _, list := range set.Alerts.All() {
		alerts += len(list)
	}
	result := ImportResult{
		Digest:   digest,
		Pairs:    set.Pairs.Len(),
		Tickers:  set.Tickers.Len(),
		Alerts:   alerts,
		Replaced: prevErr == nil,
	}
	formatter.VerboseLog("imported %s into %s", path, cfg.Database.Path)
	return formatter.SuccessText(result, "imported %d pairs, %d tv tickers, %d alerts (digest %s)",
		result.Pairs, result.Tickers, result.Alerts, result.Digest)
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored repositories as a snapshot",
		Long: `Write every stored repository as a snapshot document: YAML by default,
JSON with --format json. The output can be imported again.

Example:
  tickerguard export --db ./tickerguard.db -o backup.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	snap, err := st.LoadSnapshot(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}

	data, err := encodeSnapshot(snap, opts.Format)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", opts.Output)
	return nil
}

// encodeSnapshot renders snap as indented JSON or as YAML.
func encodeSnapshot(snap repo.Snapshot, format string) ([]byte, error) {
	if format == "json" {
		return json.MarshalIndent(snap, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
