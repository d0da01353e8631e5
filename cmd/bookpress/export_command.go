package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/bookpress/bookexport"
	"github.com/hazyhaar/bookpress/kit"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var formatFlag string
	var outPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a book request (JSON or YAML) to pdf, epub, docx or all",
		Example: `  bookpress export -i book.json -f epub -o out/
  cat book.yaml | bookpress export -i - -f all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			req, err := readRequest(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			formats, err := resolveFormats(formatFlag, req.Format)
			if err != nil {
				return err
			}
			doc, err := req.Document(cfg.Export.Language)
			if err != nil {
				return err
			}

			runCtx := kit.WithTransport(cmd.Context(), "cli")
			ex, err := bookexport.Open(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer ex.Close()

			results, err := ex.ExportAll(runCtx, doc, formats...)
			if err != nil {
				return err
			}

			written := make([]string, 0, len(results))
			for _, res := range results {
				target := outputPath(outPath, res.Filename, len(results) > 1)
				if err := writeOutput(target, res.Data); err != nil {
					return err
				}
				written = append(written, target)
			}

			if jsonOut {
				type entry struct {
					*bookexport.Result
					Path  string `json:"path"`
					Bytes int    `json:"bytes"`
				}
				out := make([]entry, len(results))
				for i, res := range results {
					out[i] = entry{Result: res, Path: written[i], Bytes: len(res.Data)}
				}
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(results))
			for i, res := range results {
				rows = append(rows, []string{
					string(res.Format),
					written[i],
					strconv.Itoa(len(res.Data)),
					strconv.Itoa(len(res.Omitted)),
					res.Stats.Duration.Round(time.Millisecond).String(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Format", "File", "Bytes", "Omitted", "Took"},
				rows,
				"llrrr",
			))
			for _, om := range results[0].Omitted {
				fmt.Fprintln(out, "omitted", om.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Request file (.json, .yaml, .yml); - reads JSON from stdin")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "pdf, epub, docx or all (default: the request's format)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file, or directory when it exists, ends with / or several formats are exported")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the results as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readRequest(stdin io.Reader, path string) (*bookexport.Request, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	var req bookexport.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("parse request %s: %w", path, err)
	}
	return &req, nil
}

// resolveFormats picks the flag, then the request's own format.
func resolveFormats(flag, fromRequest string) ([]bookexport.Format, error) {
	name := strings.TrimSpace(flag)
	if name == "" {
		name = strings.TrimSpace(fromRequest)
	}
	switch strings.ToLower(name) {
	case "":
		return nil, fmt.Errorf("no format: pass --format or set \"format\" in the request")
	case "all":
		return bookexport.Formats(), nil
	}
	f, ok := bookexport.ParseFormat(name)
	if !ok {
		return nil, &bookexport.ExportError{Kind: bookexport.ErrUnsupportedFormat, Format: bookexport.Format(name)}
	}
	return []bookexport.Format{f}, nil
}

func outputPath(out, filename string, many bool) string {
	if out == "" {
		return filename
	}
	if many || strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(os.PathSeparator)) {
		return filepath.Join(out, filename)
	}
	if st, err := os.Stat(out); err == nil && st.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
