// CLAUDE:SUMMARY EPUB 3 encoder (EPUB 2 NCX kept): stored mimetype first, container, OPF manifest/spine, nav, per-section XHTML, media by digest.
// Package epub packages segmented sections and resolved images into an
// EPUB container. Missing images only shrink the manifest; any archive
// error is fatal and reported as ErrPackaging.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/bookexport/internal/book"
	"github.com/hazyhaar/bookpress/bookexport/internal/content"
	"github.com/hazyhaar/bookpress/idgen"
)

// ErrPackaging marks every fatal failure of the EPUB path.
var ErrPackaging = errors.New("epub: packaging failure")

const (
	MimeType = "application/epub+zip"

	ContainerPath = "META-INF/container.xml"
	PackagePath   = "OEBPS/content.opf"

	illustrationsTitle = "Illustrations"
)

// Config configures the encoder.
type Config struct {
	// NewID generates the book identifier. Default: UUIDv7.
	NewID idgen.Generator
	// Now stamps dcterms:modified. Default: time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NewID == nil {
		c.NewID = idgen.UUIDv7()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Encoder produces EPUB archives.
type Encoder struct {
	cfg Config
}

// NewEncoder creates an Encoder.
func NewEncoder(cfg Config) *Encoder {
	cfg.defaults()
	return &Encoder{cfg: cfg}
}

// chapter is one spine document.
type chapter struct {
	id    string
	href  string // relative to OEBPS/
	title string
	body  string
}

// mediaItem is one embedded image.
type mediaItem struct {
	id    string
	href  string
	mime  string
	data  []byte
	cover bool
}

// Encode builds the archive.
func (e *Encoder) Encode(ctx context.Context, doc *book.Document, sections []content.Section, set *asset.Set) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if set == nil {
		set = &asset.Set{}
	}
	if len(sections) == 0 {
		sections = []content.Section{{Title: doc.Title}}
	}

	lang := doc.Language
	if lang == "" {
		lang = "en"
	}

	var media []mediaItem
	hrefs := make(map[string]string) // file name -> href
	addMedia := func(a *asset.Asset, cover bool) string {
		name := a.FileName()
		if href, ok := hrefs[name]; ok {
			return href
		}
		href := "images/" + name
		hrefs[name] = href
		id := "img-" + a.Digest()
		if cover {
			id = "cover-image"
		}
		media = append(media, mediaItem{id: id, href: href, mime: a.MIMEType, data: a.Data, cover: cover})
		return href
	}

	var chapters []chapter
	if c := set.CoverAsset(); c != nil {
		href := addMedia(c, true)
		chapters = append(chapters, chapter{
			id:    "cover",
			href:  "text/cover.xhtml",
			title: doc.Title,
			body:  `<div class="cover"><img src="../` + esc(href) + `" alt="` + esc(doc.Title) + `"/></div>`,
		})
	}
	for i, s := range sections {
		n := strconv.Itoa(i + 1)
		chapters = append(chapters, chapter{
			id:    "section-" + n,
			href:  "text/section-" + n + ".xhtml",
			title: s.Title,
			body:  sectionBody(s),
		})
	}
	if figs := set.Resolved(); len(figs) > 0 {
		var b strings.Builder
		for _, il := range figs {
			href := addMedia(il.Asset, false)
			b.WriteString(`<figure><img src="../` + esc(href) + `" alt="` + esc(il.Caption) + `"/>`)
			if il.Caption != "" {
				b.WriteString("<figcaption>" + esc(il.Caption) + "</figcaption>")
			}
			b.WriteString("</figure>\n")
		}
		n := strconv.Itoa(len(sections) + 1)
		chapters = append(chapters, chapter{
			id:    "section-" + n,
			href:  "text/section-" + n + ".xhtml",
			title: illustrationsTitle,
			body:  b.String(),
		})
	}

	meta := metadata{
		id:       "urn:uuid:" + e.cfg.NewID(),
		title:    doc.Title,
		author:   doc.Author,
		lang:     lang,
		modified: e.cfg.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}

	var buf bytes.Buffer
	w := &archive{zw: zip.NewWriter(&buf)}
	w.store("mimetype", []byte(MimeType))
	w.add(ContainerPath, []byte(containerXML))
	w.add(PackagePath, []byte(packageDocument(meta, chapters, media)))
	w.add("OEBPS/toc.ncx", []byte(ncx(meta, chapters)))
	w.add("OEBPS/nav.xhtml", []byte(nav(meta, chapters)))
	w.add("OEBPS/style.css", []byte(stylesheet(doc.Cover.Theme.Normalized())))
	for _, m := range media {
		w.add("OEBPS/"+m.href, m.data)
	}
	for _, c := range chapters {
		w.add("OEBPS/"+c.href, []byte(xhtml(lang, c.title, c.body)))
	}
	if err := w.close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackaging, err)
	}

	e.cfg.Logger.Debug("epub: packaged", "chapters", len(chapters), "media", len(media), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// sectionBody renders the section without its title heading. Any further
// heading becomes a sub-heading.
func sectionBody(s content.Section) string {
	var b strings.Builder
	for _, n := range s.Body() {
		switch n.Kind {
		case content.Heading1:
			b.WriteString("<h2>" + esc(n.Text) + "</h2>\n")
		case content.Heading2:
			b.WriteString("<h3>" + esc(n.Text) + "</h3>\n")
		case content.Paragraph:
			b.WriteString("<p>" + esc(n.Text) + "</p>\n")
		default:
			b.WriteString("<br/>\n")
		}
	}
	return b.String()
}

// archive writes zip entries and keeps the first error.
type archive struct {
	zw  *zip.Writer
	err error
}

func (a *archive) store(name string, data []byte) {
	a.write(&zip.FileHeader{Name: name, Method: zip.Store}, data)
}

func (a *archive) add(name string, data []byte) {
	a.write(&zip.FileHeader{Name: name, Method: zip.Deflate}, data)
}

func (a *archive) write(h *zip.FileHeader, data []byte) {
	if a.err != nil {
		return
	}
	w, err := a.zw.CreateHeader(h)
	if err != nil {
		a.err = fmt.Errorf("create %s: %w", h.Name, err)
		return
	}
	if _, err := w.Write(data); err != nil {
		a.err = fmt.Errorf("write %s: %w", h.Name, err)
	}
}

func (a *archive) close() error {
	if a.err != nil {
		return a.err
	}
	return a.zw.Close()
}
