package content

import "strconv"

// Section is a titled, contiguous run of nodes.
type Section struct {
	Title string
	Nodes []Node
}

// Lead reports whether the section's first node is the heading that titles
// it. Encoders skip that node in the body since the title is carried as
// chapter metadata.
func (s Section) Lead() bool {
	return len(s.Nodes) > 0 && s.Nodes[0].IsHeading()
}

// Body returns the nodes to render inside the section, without the leading
// title heading.
func (s Section) Body() []Node {
	if s.Lead() {
		return s.Nodes[1:]
	}
	return s.Nodes
}

// Segment partitions nodes into sections. Every heading starts a new section
// titled by its text; nodes before the first heading form "Section 1".
// Concatenating the sections' nodes gives back the input exactly.
func Segment(nodes []Node) []Section {
	var sections []Section
	var cur *Section

	for _, n := range nodes {
		if n.IsHeading() || cur == nil {
			sections = append(sections, Section{})
			cur = &sections[len(sections)-1]
			if n.IsHeading() {
				cur.Title = n.Text
			}
		}
		cur.Nodes = append(cur.Nodes, n)
	}

	for i := range sections {
		if sections[i].Title == "" {
			sections[i].Title = "Section " + strconv.Itoa(i+1)
		}
	}
	return sections
}
