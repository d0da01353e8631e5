package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bookpress/bookexport"
)

func newInspectCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "inspect <file>",
		Short:       "Validate an exported file and show its structure",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			in, err := bookexport.Inspect(data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			if jsonOut {
				return writeJSON(cmd, in)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s, %d bytes\n", args[0], strings.ToUpper(string(in.Format)), in.Size)
			switch {
			case in.EPUB != nil:
				printEPUB(out, in.EPUB)
			case in.DOCX != nil:
				printDOCX(out, in.DOCX)
			case in.PDF != nil:
				printPDF(out, in.PDF, in.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the inspection as JSON")
	return cmd
}

func printEPUB(out io.Writer, pkg *bookexport.EPUBPackage) {
	fmt.Fprintf(out, "Title: %s\nCreator: %s\nLanguage: %s\nIdentifier: %s\nPackage: %s\n",
		pkg.Title, pkg.Creator, pkg.Language, pkg.Identifier, pkg.Root)

	rows := make([][]string, 0, len(pkg.Manifest))
	for _, it := range pkg.Manifest {
		id := it.ID
		if id == pkg.CoverID {
			id += " (cover)"
		}
		rows = append(rows, []string{id, it.Href, it.MediaType, it.Properties, yesNo(it.Present)})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Href", "Media type", "Properties", "Present"}, rows, ""))
	fmt.Fprintf(out, "Spine: %s\n", strings.Join(pkg.Spine, " → "))
}

func printDOCX(out io.Writer, rep *bookexport.DOCXReport) {
	fmt.Fprintf(out, "Title: %s\nMedia: %s\n", rep.Title, strings.Join(rep.Media, ", "))

	rows := make([][]string, 0, len(rep.Paragraphs))
	for i, p := range rep.Paragraphs {
		text := p.Text
		if p.Picture {
			text = "[picture]"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), p.Style, truncate(text, 60)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Style", "Text"}, rows, "r"))
}

func printPDF(out io.Writer, rep *bookexport.PDFReport, text []string) {
	fmt.Fprintf(out, "Pages: %d\nImages: %s\n", rep.Pages, yesNo(rep.HasImages))
	rows := make([][]string, 0, len(text))
	for i, t := range text {
		rows = append(rows, []string{strconv.Itoa(i + 1), truncate(t, 70)})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Page", "Text"}, rows, "r"))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
