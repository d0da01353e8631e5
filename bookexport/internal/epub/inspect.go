// CLAUDE:SUMMARY Reads an EPUB back: checks the stored mimetype entry, follows container.xml, lists manifest and spine via xmlquery.
package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"

	"github.com/antchfx/xmlquery"
)

// Item is one manifest entry.
type Item struct {
	ID         string `json:"id"`
	Href       string `json:"href"`
	MediaType  string `json:"media_type"`
	Properties string `json:"properties,omitempty"`
	// Present reports whether the archive holds the referenced file.
	Present bool `json:"present"`
}

// Package is the parsed structure of an EPUB archive.
type Package struct {
	Root       string   `json:"root"`
	Identifier string   `json:"identifier"`
	Title      string   `json:"title"`
	Creator    string   `json:"creator,omitempty"`
	Language   string   `json:"language"`
	CoverID    string   `json:"cover_id,omitempty"`
	Manifest   []Item   `json:"manifest"`
	Spine      []string `json:"spine"`
	Entries    []string `json:"entries"`
}

// Item returns the manifest entry with the given id.
func (p *Package) Item(id string) (Item, bool) {
	for _, it := range p.Manifest {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Inspect opens data as an EPUB and parses its package document.
func Inspect(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("epub: open archive: %w", err)
	}
	if len(zr.File) == 0 || zr.File[0].Name != "mimetype" {
		return nil, fmt.Errorf("epub: mimetype is not the first entry")
	}
	if zr.File[0].Method != zip.Store {
		return nil, fmt.Errorf("epub: mimetype entry is compressed")
	}
	mt, err := readEntry(zr.File[0])
	if err != nil {
		return nil, err
	}
	if string(mt) != MimeType {
		return nil, fmt.Errorf("epub: unexpected mimetype %q", mt)
	}

	files := make(map[string]*zip.File, len(zr.File))
	pkg := &Package{}
	for _, f := range zr.File {
		files[f.Name] = f
		pkg.Entries = append(pkg.Entries, f.Name)
	}

	container, err := parseEntry(files, ContainerPath)
	if err != nil {
		return nil, err
	}
	rootfile := xmlquery.FindOne(container, "//rootfile")
	if rootfile == nil || rootfile.SelectAttr("full-path") == "" {
		return nil, fmt.Errorf("epub: container has no rootfile")
	}
	pkg.Root = rootfile.SelectAttr("full-path")

	opf, err := parseEntry(files, pkg.Root)
	if err != nil {
		return nil, err
	}
	if n := xmlquery.FindOne(opf, "//metadata/*[local-name()='identifier']"); n != nil {
		pkg.Identifier = n.InnerText()
	}
	if n := xmlquery.FindOne(opf, "//metadata/*[local-name()='title']"); n != nil {
		pkg.Title = n.InnerText()
	}
	if n := xmlquery.FindOne(opf, "//metadata/*[local-name()='creator']"); n != nil {
		pkg.Creator = n.InnerText()
	}
	if n := xmlquery.FindOne(opf, "//metadata/*[local-name()='language']"); n != nil {
		pkg.Language = n.InnerText()
	}
	if n := xmlquery.FindOne(opf, "//metadata/meta[@name='cover']"); n != nil {
		pkg.CoverID = n.SelectAttr("content")
	}

	base := path.Dir(pkg.Root)
	for _, n := range xmlquery.Find(opf, "//manifest/item") {
		it := Item{
			ID:         n.SelectAttr("id"),
			Href:       n.SelectAttr("href"),
			MediaType:  n.SelectAttr("media-type"),
			Properties: n.SelectAttr("properties"),
		}
		_, it.Present = files[path.Join(base, it.Href)]
		pkg.Manifest = append(pkg.Manifest, it)
	}
	for _, n := range xmlquery.Find(opf, "//spine/itemref") {
		pkg.Spine = append(pkg.Spine, n.SelectAttr("idref"))
	}
	if len(pkg.Spine) == 0 {
		return nil, fmt.Errorf("epub: empty spine")
	}
	return pkg, nil
}

func parseEntry(files map[string]*zip.File, name string) (*xmlquery.Node, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("epub: missing %s", name)
	}
	data, err := readEntry(f)
	if err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("epub: parse %s: %w", name, err)
	}
	return doc, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("epub: read %s: %w", f.Name, err)
	}
	return data, nil
}
