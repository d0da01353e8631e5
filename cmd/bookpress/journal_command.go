package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bookpress/bookexport"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	var pathFlag string
	var limit int
	var prune time.Duration
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent exports from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := pathFlag
			if path == "" {
				path = cfg.Journal.Path
			}
			if path == "" {
				return fmt.Errorf("journal disabled: set journal.path, BOOKPRESS_JOURNAL or --path")
			}

			j, err := bookexport.OpenJournal(path)
			if err != nil {
				return err
			}
			defer j.Close()

			if prune > 0 {
				n, err := j.Prune(cmd.Context(), prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d entries older than %s\n", n, prune)
			}

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []bookexport.JournalEntry{}
				}
				return writeJSON(cmd, entries)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := e.Status
				if e.Error != "" {
					status += ": " + truncate(e.Error, 40)
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.ID,
					e.Format,
					truncate(e.Title, 30),
					status,
					strconv.Itoa(e.Bytes),
					strconv.Itoa(len(e.Omitted)),
					e.Duration.Round(time.Millisecond).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "ID", "Format", "Title", "Status", "Bytes", "Omitted", "Took"},
				rows,
				"lllllrrr",
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&pathFlag, "path", "", "Journal database (overrides journal.path)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete entries older than this before listing")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print entries as JSON")
	return cmd
}
