// CLAUDE:SUMMARY Resolved image payload (Asset) and the two-variant resolution outcome consumed by every encoder.
package asset

import (
	"encoding/base64"
	"encoding/hex"
	"strconv"

	"github.com/zeebo/blake3"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"

	// DefaultMIME is the raster type assumed when nothing better is known.
	DefaultMIME = MIMEPNG
)

// Role tells which part of the document an asset belongs to.
type Role string

const (
	RoleCover        Role = "cover"
	RoleIllustration Role = "illustration"
)

// Asset is an embeddable image. Never mutated after creation.
type Asset struct {
	MIMEType string
	Data     []byte
	Origin   string // "inline" or the source URL
}

// DataURI renders the payload as a data: URI for markup targets.
func (a *Asset) DataURI() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Ext returns the file extension matching MIMEType.
func (a *Asset) Ext() string {
	if a.MIMEType == MIMEJPEG {
		return "jpg"
	}
	return "png"
}

// Digest is a short content hash used to name media entries, so the same
// payload always lands under the same archive path.
func (a *Asset) Digest() string {
	sum := blake3.Sum256(a.Data)
	return hex.EncodeToString(sum[:8])
}

// FileName is Digest plus extension.
func (a *Asset) FileName() string {
	return a.Digest() + "." + a.Ext()
}

// Outcome is the result of resolving one reference: either Asset is set
// (resolved) or it is nil and Reason says why the asset is absent.
type Outcome struct {
	Asset  *Asset
	Reason string
	Source string
}

// Resolved reports whether the outcome carries an embeddable asset.
func (o Outcome) Resolved() bool { return o.Asset != nil }

func absent(source, reason string) Outcome {
	return Outcome{Source: source, Reason: reason}
}

// Omission describes one asset that was dropped from the output.
type Omission struct {
	Role   Role   `json:"role"`
	Index  int    `json:"index"`
	Source string `json:"source,omitempty"`
	Reason string `json:"reason"`
}

func (o Omission) String() string {
	s := string(o.Role)
	if o.Role == RoleIllustration {
		s += "[" + strconv.Itoa(o.Index) + "]"
	}
	return s + ": " + o.Reason
}

// Illustrated pairs a resolved illustration with its caption.
type Illustrated struct {
	Asset   *Asset
	Caption string
}

// Set is the resolution of every image of one document.
type Set struct {
	Cover         Outcome
	Illustrations []Outcome
	Captions      []string
	requested     bool
}

// CoverAsset returns the resolved cover or nil.
func (s *Set) CoverAsset() *Asset { return s.Cover.Asset }

// Resolved returns the resolved illustrations in document order, dropping
// the absent ones.
func (s *Set) Resolved() []Illustrated {
	var out []Illustrated
	for i, o := range s.Illustrations {
		if !o.Resolved() {
			continue
		}
		var caption string
		if i < len(s.Captions) {
			caption = s.Captions[i]
		}
		out = append(out, Illustrated{Asset: o.Asset, Caption: caption})
	}
	return out
}

// Omitted lists every requested asset that did not resolve.
func (s *Set) Omitted() []Omission {
	var out []Omission
	if s.requested && !s.Cover.Resolved() {
		out = append(out, Omission{Role: RoleCover, Source: s.Cover.Source, Reason: s.Cover.Reason})
	}
	for i, o := range s.Illustrations {
		if !o.Resolved() {
			out = append(out, Omission{Role: RoleIllustration, Index: i, Source: o.Source, Reason: o.Reason})
		}
	}
	return out
}

// MediaCount is the number of distinct payloads an archive would embed.
func (s *Set) MediaCount() int {
	seen := make(map[string]bool)
	if a := s.CoverAsset(); a != nil {
		seen[a.FileName()] = true
	}
	for _, il := range s.Resolved() {
		seen[il.Asset.FileName()] = true
	}
	return len(seen)
}
