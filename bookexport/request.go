package bookexport

import (
	"strings"

	"github.com/hazyhaar/bookpress/bookexport/internal/content"
)

// Request is the wire schema accepted by the HTTP and MCP surfaces and by
// the CLI input file.
type Request struct {
	Format        string                `json:"format,omitempty" yaml:"format,omitempty"`
	Cover         *CoverRequest         `json:"cover" yaml:"cover"`
	Content       string                `json:"content" yaml:"content"`
	ContentType   string                `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Illustrations []IllustrationRequest `json:"illustrations,omitempty" yaml:"illustrations,omitempty"`
	Language      string                `json:"language,omitempty" yaml:"language,omitempty"`
}

// CoverRequest carries the cover fields.
type CoverRequest struct {
	Title       string     `json:"title" yaml:"title"`
	Subtitle    string     `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Author      string     `json:"author,omitempty" yaml:"author,omitempty"`
	ImageBase64 string     `json:"image_base64,omitempty" yaml:"image_base64,omitempty"`
	ImageURL    string     `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	ShowImage   bool       `json:"show_image" yaml:"show_image"`
	Transform   *Transform `json:"transform,omitempty" yaml:"transform,omitempty"`
	Theme       *Theme     `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// IllustrationRequest is one illustration reference.
type IllustrationRequest struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty" yaml:"image_base64,omitempty"`
	Caption     string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Document validates r and builds the Document. defaultLang applies when
// the request names no language. HTML bodies are normalized to heading-marked
// text lines.
func (r *Request) Document(defaultLang string) (*Document, error) {
	if r == nil || r.Cover == nil {
		return nil, invalid("cover", "is required")
	}
	title := strings.TrimSpace(r.Cover.Title)
	if title == "" {
		return nil, invalid("cover.title", "is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return nil, invalid("content", "is required")
	}

	var kind content.BodyKind
	switch strings.ToLower(strings.TrimSpace(r.ContentType)) {
	case "", "text", "text/plain", "markdown":
		kind = content.BodyText
	case "html", "text/html":
		kind = content.BodyHTML
	case "auto":
		kind = content.BodyAuto
	default:
		return nil, invalid("content_type", "must be text, html or auto")
	}
	body, err := content.Normalize(r.Content, kind)
	if err != nil {
		return nil, invalid("content", err.Error())
	}
	if strings.TrimSpace(body) == "" {
		return nil, invalid("content", "has no text")
	}

	lang := strings.TrimSpace(r.Language)
	if lang == "" {
		lang = defaultLang
	}

	doc := &Document{
		Title:    title,
		Subtitle: strings.TrimSpace(r.Cover.Subtitle),
		Author:   strings.TrimSpace(r.Cover.Author),
		Language: lang,
		Body:     body,
	}

	doc.Cover.ShowImage = r.Cover.ShowImage
	if ref := (AssetRef{Data: r.Cover.ImageBase64, URL: r.Cover.ImageURL}); !ref.IsZero() {
		doc.Cover.Image = &ref
	}
	doc.Cover.Transform = DefaultTransform()
	if r.Cover.Transform != nil {
		doc.Cover.Transform = r.Cover.Transform.Normalized()
	}
	doc.Cover.Theme = DefaultTheme()
	if r.Cover.Theme != nil {
		doc.Cover.Theme = r.Cover.Theme.Normalized()
	}

	for _, il := range r.Illustrations {
		doc.Illustrations = append(doc.Illustrations, Illustration{
			Source:  AssetRef{Data: il.ImageBase64, URL: strings.TrimSpace(il.URL)},
			Caption: strings.TrimSpace(il.Caption),
		})
	}
	return doc, nil
}
