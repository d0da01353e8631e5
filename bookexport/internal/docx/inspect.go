// CLAUDE:SUMMARY Reads a DOCX back: paragraph styles and text from word/document.xml, media entries, picture count.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Paragraph is one w:p of the main document.
type Paragraph struct {
	Style   string `json:"style,omitempty"`
	Text    string `json:"text"`
	Picture bool   `json:"picture,omitempty"`
}

// Report is the parsed structure of a DOCX package.
type Report struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Media      []string    `json:"media"`
	Entries    []string    `json:"entries"`
}

// Pictures counts the image paragraphs.
func (r *Report) Pictures() int {
	n := 0
	for _, p := range r.Paragraphs {
		if p.Picture {
			n++
		}
	}
	return n
}

// Inspect opens data as a DOCX and walks its main document.
func Inspect(data []byte) (*Report, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: open archive: %w", err)
	}

	rep := &Report{}
	var docFile *zip.File
	for _, f := range zr.File {
		rep.Entries = append(rep.Entries, f.Name)
		switch {
		case f.Name == DocumentPath:
			docFile = f
		case strings.HasPrefix(f.Name, MediaDir):
			rep.Media = append(rep.Media, f.Name)
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("docx: %s not found in archive", DocumentPath)
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("docx: open document.xml: %w", err)
	}
	defer rc.Close()

	paras, err := paragraphs(rc)
	if err != nil {
		return nil, err
	}
	rep.Paragraphs = paras
	for _, p := range paras {
		if p.Style == "Title" && p.Text != "" {
			rep.Title = p.Text
			break
		}
	}
	return rep, nil
}

func paragraphs(r io.Reader) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)
	var out []Paragraph
	var cur *Paragraph
	var text strings.Builder
	var inText bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("docx: parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				cur = &Paragraph{}
				text.Reset()
			case cur == nil:
			case t.Name.Local == "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						cur.Style = attr.Value
					}
				}
			case t.Name.Local == "drawing":
				cur.Picture = true
			case t.Name.Local == "t":
				inText = true
			}
		case xml.CharData:
			if cur != nil && inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if cur != nil {
					cur.Text = text.String()
					out = append(out, *cur)
					cur = nil
				}
			}
		}
	}
}
