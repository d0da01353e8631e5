package epub

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/hazyhaar/bookpress/bookexport/internal/book"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + PackagePath + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

type metadata struct {
	id       string
	title    string
	author   string
	lang     string
	modified string
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func packageDocument(m metadata, chapters []chapter, media []mediaItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="BookId" xml:lang="` + esc(m.lang) + `">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="BookId">` + esc(m.id) + `</dc:identifier>
    <dc:title>` + esc(m.title) + `</dc:title>
`)
	if m.author != "" {
		b.WriteString("    <dc:creator>" + esc(m.author) + "</dc:creator>\n")
	}
	b.WriteString("    <dc:language>" + esc(m.lang) + "</dc:language>\n")
	b.WriteString(`    <meta property="dcterms:modified">` + m.modified + "</meta>\n")
	for _, md := range media {
		if md.cover {
			b.WriteString(`    <meta name="cover" content="` + md.id + `"/>` + "\n")
		}
	}
	b.WriteString("  </metadata>\n  <manifest>\n")
	b.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	b.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
	b.WriteString(`    <item id="style" href="style.css" media-type="text/css"/>` + "\n")
	for _, md := range media {
		b.WriteString(`    <item id="` + md.id + `" href="` + esc(md.href) + `" media-type="` + esc(md.mime) + `"`)
		if md.cover {
			b.WriteString(` properties="cover-image"`)
		}
		b.WriteString("/>\n")
	}
	for _, c := range chapters {
		b.WriteString(`    <item id="` + c.id + `" href="` + c.href + `" media-type="application/xhtml+xml"/>` + "\n")
	}
	b.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for _, c := range chapters {
		b.WriteString(`    <itemref idref="` + c.id + `"/>` + "\n")
	}
	b.WriteString("  </spine>\n</package>\n")
	return b.String()
}

func ncx(m metadata, chapters []chapter) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="` + esc(m.id) + `"/>
    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
  <docTitle><text>` + esc(m.title) + `</text></docTitle>
  <navMap>
`)
	for i, c := range chapters {
		n := strconv.Itoa(i + 1)
		b.WriteString(`    <navPoint id="nav-` + n + `" playOrder="` + n + `">
      <navLabel><text>` + esc(c.title) + `</text></navLabel>
      <content src="` + c.href + `"/>
    </navPoint>
`)
	}
	b.WriteString("  </navMap>\n</ncx>\n")
	return b.String()
}

func nav(m metadata, chapters []chapter) string {
	var items strings.Builder
	for _, c := range chapters {
		items.WriteString(`      <li><a href="` + c.href + `">` + esc(c.title) + "</a></li>\n")
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="` + esc(m.lang) + `" xml:lang="` + esc(m.lang) + `">
<head>
  <title>` + esc(m.title) + `</title>
  <link rel="stylesheet" type="text/css" href="style.css"/>
</head>
<body>
  <nav epub:type="toc" id="toc">
    <h1>Contents</h1>
    <ol>
` + items.String() + `    </ol>
  </nav>
</body>
</html>
`
}

func xhtml(lang, title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="` + esc(lang) + `" xml:lang="` + esc(lang) + `">
<head>
  <title>` + esc(title) + `</title>
  <link rel="stylesheet" type="text/css" href="../style.css"/>
</head>
<body>
<section epub:type="chapter">
` + body + `</section>
</body>
</html>
`
}

func stylesheet(th book.Theme) string {
	return `body { font-family: serif; margin: 1em; line-height: 1.6; }
h1, h2, h3 { font-family: sans-serif; color: ` + th.Accent + `; }
p { text-indent: 1.5em; margin: 0.5em 0; }
.cover { text-align: center; margin: 0; padding: 0; background-color: ` + th.Background + `; }
.cover img { max-width: 100%; max-height: 100%; }
figure { margin: 1em 0; text-align: center; }
figure img { max-width: 100%; }
figcaption { font-style: italic; font-size: 0.9em; }
`
}
