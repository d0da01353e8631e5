// CLAUDE:SUMMARY Composes the printable HTML page flow (cover, body, illustrations) from a document, its nodes and resolved assets.
package pdf

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/bookexport/internal/book"
	"github.com/hazyhaar/bookpress/bookexport/internal/content"
)

var pageTmpl = template.Must(template.New("book").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<section class="cover">
{{- if .CoverSrc}}
<img class="cover-image" src="{{.CoverSrc}}" alt="">
{{- end}}
<div class="cover-overlay">
<div class="cover-title">{{.Title}}</div>
{{- if .Subtitle}}
<div class="cover-subtitle">{{.Subtitle}}</div>
{{- end}}
{{- if .Author}}
<div class="cover-author">{{.Author}}</div>
{{- end}}
</div>
</section>
<main class="body">
{{- range .Blocks}}
{{if eq .Tag "br"}}<br>{{else if eq .Tag "h1"}}<h1>{{.Text}}</h1>{{else if eq .Tag "h2"}}<h2>{{.Text}}</h2>{{else}}<p>{{.Text}}</p>{{end}}
{{- end}}
</main>
{{- if .Figures}}
<section class="illustrations">
<h1>Illustrations</h1>
{{- range .Figures}}
<figure>
<img src="{{.Src}}" alt="{{.Caption}}">
{{- if .Caption}}
<figcaption>{{.Caption}}</figcaption>
{{- end}}
</figure>
{{- end}}
</section>
{{- end}}
</body>
</html>
`))

type block struct {
	Tag  string
	Text string
}

type figure struct {
	Src     template.URL
	Caption string
}

type page struct {
	Lang     string
	Title    string
	Subtitle string
	Author   string
	CSS      template.CSS
	CoverSrc template.URL
	Blocks   []block
	Figures  []figure
}

// ComposeMarkup builds the HTML document printed by the renderer. Text is
// escaped by html/template; images are embedded as data: URIs so the page
// never needs the network.
func ComposeMarkup(doc *book.Document, nodes []content.Node, set *asset.Set) (string, error) {
	p := page{
		Lang:     doc.Language,
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Author:   doc.Author,
		CSS:      template.CSS(stylesheet(doc.Cover.Theme.Normalized(), doc.Cover.Transform.Normalized())),
		Blocks:   blocks(nodes),
	}
	if p.Lang == "" {
		p.Lang = "en"
	}
	if set != nil {
		if a := set.CoverAsset(); a != nil {
			p.CoverSrc = template.URL(a.DataURI())
		}
		for _, il := range set.Resolved() {
			p.Figures = append(p.Figures, figure{Src: template.URL(il.Asset.DataURI()), Caption: il.Caption})
		}
	}

	var sb strings.Builder
	if err := pageTmpl.Execute(&sb, p); err != nil {
		return "", fmt.Errorf("pdf: execute template: %w", err)
	}
	return sb.String(), nil
}

func blocks(nodes []content.Node) []block {
	out := make([]block, 0, len(nodes))
	for _, n := range nodes {
		switch n.Kind {
		case content.Heading1:
			out = append(out, block{Tag: "h1", Text: n.Text})
		case content.Heading2:
			out = append(out, block{Tag: "h2", Text: n.Text})
		case content.Paragraph:
			out = append(out, block{Tag: "p", Text: n.Text})
		default:
			out = append(out, block{Tag: "br"})
		}
	}
	return out
}

// stylesheet only interpolates validated colors and numbers.
func stylesheet(th book.Theme, tr book.Transform) string {
	pos := pct(tr.X) + " " + pct(tr.Y)
	return `
@page { size: A4; margin: 0; }
* { box-sizing: border-box; }
html, body { margin: 0; padding: 0; }
body { font-family: Georgia, "Times New Roman", serif; font-size: 12pt; line-height: 1.5; color: #111; }
.cover { position: relative; width: 210mm; height: 297mm; overflow: hidden; page-break-after: always; break-after: page; background-color: ` + th.Background + `; }
.cover-image { position: absolute; inset: 0; width: 100%; height: 100%; object-fit: cover; object-position: ` + pos + `; transform: scale(` + strconv.FormatFloat(tr.Scale, 'f', -1, 64) + `); transform-origin: ` + pos + `; }
.cover-overlay { position: absolute; left: 0; right: 0; bottom: 0; padding: 24mm 18mm; color: ` + th.Text + `; background: linear-gradient(to top, rgba(0,0,0,0.55), rgba(0,0,0,0)); }
.cover-title { font-size: 34pt; font-weight: bold; line-height: 1.15; }
.cover-subtitle { font-size: 18pt; margin-top: 4mm; }
.cover-author { font-size: 14pt; margin-top: 10mm; color: ` + th.Accent + `; letter-spacing: 0.05em; }
.body, .illustrations { padding: 22mm 20mm; }
h1 { font-size: 22pt; margin: 0 0 6mm; page-break-before: always; break-before: page; color: ` + th.Background + `; }
.body > h1:first-child { page-break-before: auto; break-before: auto; }
h2 { font-size: 15pt; margin: 8mm 0 3mm; color: ` + th.Background + `; }
p { margin: 0 0 3mm; text-align: justify; white-space: pre-wrap; }
.illustrations { page-break-before: always; break-before: page; }
.illustrations h1 { page-break-before: auto; break-before: auto; }
figure { margin: 0 0 10mm; text-align: center; page-break-inside: avoid; break-inside: avoid; }
figure img { max-width: 100%; max-height: 200mm; }
figcaption { font-style: italic; font-size: 10pt; margin-top: 2mm; color: #444; }
`
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
