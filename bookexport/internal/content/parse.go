// CLAUDE:SUMMARY Structural parser: one typed node (heading 1/2, paragraph, blank) per physical line of body text.
// Package content turns raw body text into ordered content nodes and groups
// them into titled sections for the e-book encoder.
package content

import "strings"

// Kind tags a content node.
type Kind int

const (
	Blank Kind = iota
	Heading1
	Heading2
	Paragraph
)

func (k Kind) String() string {
	switch k {
	case Heading1:
		return "heading1"
	case Heading2:
		return "heading2"
	case Paragraph:
		return "paragraph"
	}
	return "blank"
}

// Node is one parsed line. Text is empty for Blank nodes, the marker-stripped
// heading text for headings, and the raw line for paragraphs. Escaping is the
// encoder's job.
type Node struct {
	Kind Kind
	Text string
}

// IsHeading reports whether the node opens a section.
func (n Node) IsHeading() bool {
	return n.Kind == Heading1 || n.Kind == Heading2
}

// Parse splits raw into physical lines and classifies each one. The result
// has exactly one node per line, in source order. No merging, no inline
// markup.
func Parse(raw string) []Node {
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	nodes := make([]Node, 0, len(lines))
	for _, line := range lines {
		nodes = append(nodes, parseLine(strings.TrimSuffix(line, "\r")))
	}
	return nodes
}

func parseLine(line string) Node {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "## "):
		return Node{Kind: Heading2, Text: strings.TrimSpace(trimmed[3:])}
	case strings.HasPrefix(trimmed, "# "):
		return Node{Kind: Heading1, Text: strings.TrimSpace(trimmed[2:])}
	case trimmed == "":
		return Node{Kind: Blank}
	}
	return Node{Kind: Paragraph, Text: line}
}

// Stats counts nodes per kind.
type Stats struct {
	Headings   int `json:"headings"`
	Paragraphs int `json:"paragraphs"`
	Blanks     int `json:"blanks"`
}

// Count summarises a node sequence.
func Count(nodes []Node) Stats {
	var s Stats
	for _, n := range nodes {
		switch n.Kind {
		case Heading1, Heading2:
			s.Headings++
		case Paragraph:
			s.Paragraphs++
		default:
			s.Blanks++
		}
	}
	return s
}
