// CLAUDE:SUMMARY DOCX encoder: content nodes 1:1 to WordprocessingML paragraphs, cover and illustrations as fixed-size inline pictures.
// Package docx writes a minimal Office Open XML word-processing package.
//
// Image boxes are fixed: the cover is 5.5in x 7.5in and illustrations are
// 6in x 4in regardless of the source aspect ratio.
package docx

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
)

// ErrPackaging marks every fatal failure of the DOCX path.
var ErrPackaging = errors.New("docx: packaging failure")

const (
	DocumentPath = "word/document.xml"
	MediaDir     = "word/media/"

	emuPerInch = 914400
)

// Box is an image size in inches.
type Box struct {
	Width, Height float64
}

func (b Box) emu() (cx, cy int64) {
	return int64(b.Width * emuPerInch), int64(b.Height * emuPerInch)
}

var (
	CoverBox        = Box{Width: 5.5, Height: 7.5}
	IllustrationBox = Box{Width: 6, Height: 4}
)

// Config configures the encoder.
type Config struct {
	// Now stamps docProps/core.xml. Default: time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Encoder produces DOCX packages.
type Encoder struct {
	cfg Config
}

// NewEncoder creates an Encoder.
func NewEncoder(cfg Config) *Encoder {
	cfg.defaults()
	return &Encoder{cfg: cfg}
}

// media tracks embedded files and their relationship ids.
type media struct {
	rels  []rel
	files []file
	byKey map[string]string // file name -> rId
	exts  map[string]string // ext -> content type
}

type rel struct {
	id, target string
}

type file struct {
	name string
	data []byte
}

func (m *media) embed(a *asset.Asset) string {
	name := a.FileName()
	if id, ok := m.byKey[name]; ok {
		return id
	}
	id := "rId" + strconv.Itoa(len(m.rels)+2) // rId1 is the styles part
	m.byKey[name] = id
	m.rels = append(m.rels, rel{id: id, target: "media/" + name})
	m.files = append(m.files, file{name: MediaDir + name, data: a.Data})
	m.exts[a.Ext()] = a.MIMEType
	return id
}

// Encode builds the package.
func (e *Encoder) Encode(ctx context.Context, doc *book.Document, nodes []content.Node, set *asset.Set) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if set == nil {
		set = &asset.Set{}
	}

	m := &media{byKey: map[string]string{}, exts: map[string]string{}}
	var body strings.Builder
	pic := 0

	if c := set.CoverAsset(); c != nil {
		pic++
		body.WriteString(picture(m.embed(c), pic, c.FileName(), CoverBox))
	}
	for _, n := range nodes {
		body.WriteString(paragraph(n))
	}
	for _, il := range set.Resolved() {
		pic++
		body.WriteString(picture(m.embed(il.Asset), pic, il.Asset.FileName(), IllustrationBox))
		if il.Caption != "" {
			body.WriteString(styled("Caption", il.Caption))
		}
	}

	var buf bytes.Buffer
	w := &archive{zw: zip.NewWriter(&buf)}
	w.add("[Content_Types].xml", contentTypes(m.exts))
	w.add("_rels/.rels", packageRels)
	w.add(DocumentPath, documentXML(body.String()))
	w.add("word/styles.xml", stylesXML)
	w.add("word/_rels/document.xml.rels", documentRels(m.rels))
	w.add("docProps/core.xml", coreXML(doc, e.cfg.Now()))
	for _, f := range m.files {
		w.addBytes(f.name, f.data)
	}
	if err := w.close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackaging, err)
	}

	e.cfg.Logger.Debug("docx: packaged", "paragraphs", len(nodes), "media", len(m.files), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// paragraph maps one node to one w:p. Blank lines stay as empty paragraphs.
func paragraph(n content.Node) string {
	switch n.Kind {
	case content.Heading1:
		return styled("Title", n.Text)
	case content.Heading2:
		return styled("Heading1", n.Text)
	case content.Paragraph:
		return "<w:p>" + run(n.Text) + "</w:p>"
	}
	return "<w:p/>"
}

func styled(style, text string) string {
	return `<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>` + run(text) + "</w:p>"
}

func run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + esc(text) + "</w:t></w:r>"
}

func picture(relID string, n int, name string, box Box) string {
	cx, cy := box.emu()
	ext := `cx="` + strconv.FormatInt(cx, 10) + `" cy="` + strconv.FormatInt(cy, 10) + `"`
	id := strconv.Itoa(n)
	return `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>` +
		`<wp:inline distT="0" distB="0" distL="0" distR="0">` +
		`<wp:extent ` + ext + `/>` +
		`<wp:docPr id="` + id + `" name="Picture ` + id + `"/>` +
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="` + id + `" name="` + esc(name) + `"/><pic:cNvPicPr/></pic:nvPicPr>` +
		`<pic:blipFill><a:blip r:embed="` + relID + `"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext ` + ext + `/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`
}

// archive writes zip entries and keeps the first error.
type archive struct {
	zw  *zip.Writer
	err error
}

func (a *archive) add(name, data string) {
	a.addBytes(name, []byte(data))
}

func (a *archive) addBytes(name string, data []byte) {
	if a.err != nil {
		return
	}
	w, err := a.zw.Create(name)
	if err != nil {
		a.err = fmt.Errorf("create %s: %w", name, err)
		return
	}
	if _, err := w.Write(data); err != nil {
		a.err = fmt.Errorf("write %s: %w", name, err)
	}
}

func (a *archive) close() error {
	if a.err != nil {
		return a.err
	}
	return a.zw.Close()
}
