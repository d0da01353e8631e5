// CLAUDE:SUMMARY Export Orchestrator: validates, resolves assets once under the export budget, dispatches to the PDF/EPUB/DOCX encoders, then journals and stores the result.
package bookexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/artifact"
	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/bookexport/internal/content"
	"github.com/hazyhaar/bookpress/bookexport/internal/docx"
	"github.com/hazyhaar/bookpress/bookexport/internal/epub"
	"github.com/hazyhaar/bookpress/bookexport/internal/journal"
	"github.com/hazyhaar/bookpress/bookexport/internal/pdf"
	"github.com/hazyhaar/bookpress/horosafe"
	"github.com/hazyhaar/bookpress/kit"
)

// ErrNoJournal is returned by history lookups when no journal is configured.
var ErrNoJournal = errors.New("bookexport: journal disabled")

// ErrNoArtifact is returned by Artifact when the export was not stored.
var ErrNoArtifact = errors.New("bookexport: export has no stored artifact")

const (
	storeTimeout   = 30 * time.Second
	journalTimeout = 5 * time.Second
)

// Exporter runs exports. Safe for concurrent use: every call works on its
// own resolved assets and nodes.
type Exporter struct {
	cfg      Config
	resolver *asset.Resolver
	pdf      *pdf.Encoder
	epub     *epub.Encoder
	docx     *docx.Encoder
	journal  *journal.Journal
	store    artifact.Store
	closers  []func() error
	logger   *slog.Logger
}

// New creates an Exporter, opening the journal and the store when configured.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	cfg.defaults()

	validate := horosafe.ValidateURL
	if cfg.AllowPrivateURLs {
		validate = horosafe.ValidateURLAllowPrivate
	}

	e := &Exporter{
		cfg: cfg,
		resolver: asset.NewResolver(asset.Config{
			Timeout:         cfg.AssetTimeout,
			MaxBytes:        cfg.MaxAssetBytes,
			InlineMinLength: cfg.InlineMinLength,
			Concurrency:     cfg.Concurrency,
			URLValidator:    validate,
			Client:          cfg.HTTPClient,
			Logger:          cfg.Logger,
		}),
		pdf: pdf.NewEncoder(pdf.Config{
			Renderer:    cfg.Renderer,
			LoadTimeout: cfg.Timeout,
			Logger:      cfg.Logger,
		}),
		epub:    epub.NewEncoder(epub.Config{Logger: cfg.Logger}),
		docx:    docx.NewEncoder(docx.Config{Logger: cfg.Logger}),
		journal: cfg.Journal,
		store:   cfg.Store,
		logger:  cfg.Logger,
	}

	if e.journal == nil && cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		e.journal = j
		e.closers = append(e.closers, j.Close)
	}
	if e.store == nil {
		st, err := artifact.New(ctx, cfg.StoreOptions)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.store = st
	}
	return e, nil
}

// Close releases what the Exporter opened itself.
func (e *Exporter) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Export produces one format.
func (e *Exporter) Export(ctx context.Context, doc *Document, format Format) (*Result, error) {
	results, err := e.ExportAll(ctx, doc, format)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ExportAll resolves the document's images once and encodes every requested
// format (all formats when none is given), in order. The first failure stops
// the run: the results of the formats encoded before it are returned with
// the error, and their artifacts are already in the store when one is
// configured.
func (e *Exporter) ExportAll(ctx context.Context, doc *Document, formats ...Format) ([]*Result, error) {
	if len(formats) == 0 {
		formats = Formats()
	}
	wanted := make([]Format, 0, len(formats))
	for _, f := range formats {
		pf, ok := ParseFormat(string(f))
		if !ok {
			return nil, &ExportError{Kind: ErrUnsupportedFormat, Format: f}
		}
		wanted = append(wanted, pf)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	if doc.Language == "" {
		d := *doc
		d.Language = e.cfg.Language
		doc = &d
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	set := e.resolver.ResolveAll(ctx, doc)
	if err := ctx.Err(); err != nil {
		return nil, interrupted(err, "", fmt.Errorf("resolving assets: %w", err))
	}
	nodes := content.Parse(doc.Body)

	results := make([]*Result, 0, len(wanted))
	for _, f := range wanted {
		res, err := e.encode(ctx, doc, f, nodes, set)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func validate(doc *Document) error {
	if doc == nil {
		return invalid("cover", "is required")
	}
	if strings.TrimSpace(doc.Title) == "" {
		return invalid("cover.title", "is required")
	}
	if strings.TrimSpace(doc.Body) == "" {
		return invalid("content", "is required")
	}
	return nil
}

// interrupted turns a done context into the error to return: a deadline is a
// timeout, a caller cancellation is returned as is.
func interrupted(ctxErr error, format Format, cause error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return &ExportError{Kind: ErrTimeout, Format: format, Err: cause}
	}
	return ctxErr
}

func (e *Exporter) encode(ctx context.Context, doc *Document, format Format, nodes []content.Node, set *asset.Set) (*Result, error) {
	id := e.cfg.NewID()
	ctx = kit.WithExportID(ctx, id)
	log := e.logger.With(append(kit.LogAttrs(ctx), "format", format)...)
	start := time.Now()

	res := &Result{
		ID:          id,
		Format:      format,
		ContentType: format.ContentType(),
		Filename:    horosafe.Slug(doc.Title) + "." + format.Ext(),
		Omitted:     set.Omitted(),
		Stats:       Stats{Nodes: len(nodes), Media: set.MediaCount()},
	}

	var data []byte
	var err error
	switch format {
	case FormatPDF:
		var report *pdf.Report
		data, report, err = e.pdf.Encode(ctx, doc, nodes, set)
		if report != nil {
			res.Stats.Pages = report.Pages
		}
	case FormatEPUB:
		sections := content.Segment(nodes)
		res.Stats.Sections = len(sections)
		data, err = e.epub.Encode(ctx, doc, sections, set)
	case FormatDOCX:
		data, err = e.docx.Encode(ctx, doc, nodes, set)
	}
	res.Stats.Duration = time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = interrupted(ctxErr, format, err)
		} else {
			err = classify(ctx, format, err)
		}
		log.Error("export failed", "title", doc.Title, "error", err, "duration", res.Stats.Duration)
		e.record(ctx, res, doc.Title, err)
		return nil, err
	}

	res.Data = data
	e.keep(ctx, res, log)
	e.record(ctx, res, doc.Title, nil)
	log.Info("export done",
		"title", doc.Title,
		"bytes", len(data),
		"omitted", len(res.Omitted),
		"duration", res.Stats.Duration)
	return res, nil
}

// keep stores the artifact. A store failure only costs the ArtifactKey.
func (e *Exporter) keep(ctx context.Context, res *Result, log *slog.Logger) {
	if e.store == nil {
		return
	}
	key := artifact.Key(res.ID, strings.TrimSuffix(res.Filename, "."+res.Format.Ext()), res.Format.Ext(), time.Now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := e.store.Put(ctx, key, bytes.NewReader(res.Data), res.ContentType); err != nil {
		log.Warn("artifact store failed", "key", key, "error", err)
		return
	}
	res.ArtifactKey = key
	log.Debug("artifact stored", "location", e.store.Location(key))
}

// record journals the attempt. A journal failure is logged and ignored.
func (e *Exporter) record(ctx context.Context, res *Result, title string, exportErr error) {
	if e.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:          res.ID,
		Format:      string(res.Format),
		Title:       title,
		Status:      journal.StatusOK,
		Bytes:       len(res.Data),
		Omitted:     res.Omitted,
		ArtifactKey: res.ArtifactKey,
		Duration:    res.Stats.Duration,
	}
	if exportErr != nil {
		entry.Status = journal.StatusFailed
		entry.Error = exportErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := e.journal.Record(ctx, entry); err != nil {
		e.logger.Warn("journal record failed", "export_id", res.ID, "error", err)
	}
}

// Recent lists the latest journaled exports, newest first.
func (e *Exporter) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if e.journal == nil {
		return nil, ErrNoJournal
	}
	return e.journal.Recent(ctx, limit)
}

// Artifact opens the stored file of a journaled export.
func (e *Exporter) Artifact(ctx context.Context, id string) (io.ReadCloser, *JournalEntry, error) {
	if e.journal == nil {
		return nil, nil, ErrNoJournal
	}
	entry, err := e.journal.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if entry.ArtifactKey == "" || e.store == nil {
		return nil, entry, ErrNoArtifact
	}
	rc, err := e.store.Get(ctx, entry.ArtifactKey)
	if err != nil {
		return nil, entry, err
	}
	return rc, entry, nil
}
