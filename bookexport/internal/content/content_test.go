package content

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse_Example(t *testing.T) {
	got := Parse("# Chapter One\nHello.")
	want := []Node{
		{Kind: Heading1, Text: "Chapter One"},
		{Kind: Paragraph, Text: "Hello."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %+v, want %+v", got, want)
	}
}

func TestParse_LineKinds(t *testing.T) {
	tests := []struct {
		line string
		want Node
	}{
		{"## Part", Node{Kind: Heading2, Text: "Part"}},
		{"   # Indented title  ", Node{Kind: Heading1, Text: "Indented title"}},
		{"", Node{Kind: Blank}},
		{"   \t", Node{Kind: Blank}},
		{"#hashtag", Node{Kind: Paragraph, Text: "#hashtag"}},
		{"### Deep", Node{Kind: Paragraph, Text: "### Deep"}},
		{"  keep <raw> & spaces ", Node{Kind: Paragraph, Text: "  keep <raw> & spaces "}},
	}
	for _, tt := range tests {
		got := parseLine(tt.line)
		if got != tt.want {
			t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParse_OneNodePerLine(t *testing.T) {
	// WHAT: Node count equals physical line count, CRLF included.
	// WHY: No merging means no silently lost or reordered content.
	raw := "# A\r\nfirst\r\n\r\nsecond\n## B\nthird"
	nodes := Parse(raw)
	if len(nodes) != strings.Count(raw, "\n")+1 {
		t.Fatalf("nodes = %d, want %d", len(nodes), strings.Count(raw, "\n")+1)
	}
	if nodes[1].Text != "first" {
		t.Fatalf("CR not stripped: %q", nodes[1].Text)
	}
	if nodes[2].Kind != Blank {
		t.Fatalf("expected blank, got %v", nodes[2].Kind)
	}
}

func TestParse_Empty(t *testing.T) {
	if nodes := Parse(""); len(nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(nodes))
	}
}

func TestSegment_SingleHeading(t *testing.T) {
	sections := Segment(Parse("# Chapter One\nHello."))
	if len(sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(sections))
	}
	if sections[0].Title != "Chapter One" {
		t.Fatalf("title = %q", sections[0].Title)
	}
	if !sections[0].Lead() || len(sections[0].Body()) != 1 {
		t.Fatalf("body = %+v", sections[0].Body())
	}
}

func TestSegment_NoHeadings(t *testing.T) {
	// WHAT: Three blank-separated paragraphs without headings form one section.
	nodes := Parse("One.\n\nTwo.\n\nThree.")
	sections := Segment(nodes)
	if len(sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(sections))
	}
	if sections[0].Title != "Section 1" {
		t.Fatalf("title = %q", sections[0].Title)
	}
	var paras []string
	for _, n := range sections[0].Nodes {
		if n.Kind == Paragraph {
			paras = append(paras, n.Text)
		}
	}
	if !reflect.DeepEqual(paras, []string{"One.", "Two.", "Three."}) {
		t.Fatalf("paragraphs = %v", paras)
	}
	if sections[0].Lead() {
		t.Fatal("untitled section has no lead heading")
	}
}

func TestSegment_Preamble(t *testing.T) {
	sections := Segment(Parse("intro\n# First\na\n## Sub\nb"))
	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}
	want := []string{"Section 1", "First", "Sub"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
}

func TestSegment_Partition(t *testing.T) {
	// WHAT: Concatenated sections reproduce the node sequence exactly once.
	inputs := []string{
		"",
		"plain",
		"# A",
		"# A\n# B\n\n## C\ntext\n\n",
		"pre\n\n# A\nx\n## B\ny\n# C",
	}
	for _, raw := range inputs {
		nodes := Parse(raw)
		var joined []Node
		for _, s := range Segment(nodes) {
			if len(s.Nodes) == 0 {
				t.Fatalf("%q: empty section %q", raw, s.Title)
			}
			joined = append(joined, s.Nodes...)
		}
		if len(joined) != len(nodes) {
			t.Fatalf("%q: joined %d nodes, want %d", raw, len(joined), len(nodes))
		}
		for i := range nodes {
			if joined[i] != nodes[i] {
				t.Fatalf("%q: node %d differs", raw, i)
			}
		}
	}
}

func TestCount(t *testing.T) {
	s := Count(Parse("# A\nx\n\n## B\ny"))
	if s.Headings != 2 || s.Paragraphs != 2 || s.Blanks != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestNormalize_Text(t *testing.T) {
	got, err := Normalize("a\r\nb < c", BodyAuto)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a\nb < c" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_HTML(t *testing.T) {
	// WHAT: HTML bodies are sanitised then mapped to heading lines.
	// WHY: Generators sometimes answer in HTML; the parser only knows "# " lines.
	body := `<h1>Chapter One</h1><script>alert(1)</script><p>Hello.</p><h2>Later</h2>`
	got, err := Normalize(body, BodyAuto)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "alert") {
		t.Fatalf("script survived: %q", got)
	}
	nodes := Parse(got)
	if len(nodes) == 0 || nodes[0] != (Node{Kind: Heading1, Text: "Chapter One"}) {
		t.Fatalf("nodes = %+v", nodes)
	}
	var sawPara, sawH2 bool
	for _, n := range nodes {
		if n.Kind == Paragraph && n.Text == "Hello." {
			sawPara = true
		}
		if n.Kind == Heading2 && n.Text == "Later" {
			sawH2 = true
		}
	}
	if !sawPara || !sawH2 {
		t.Fatalf("nodes = %+v", nodes)
	}
}

func TestNormalize_AutoKeepsProseWithTags(t *testing.T) {
	// WHY: a text body that mentions a tag must keep one line per node.
	body := "# Chapter One\nShe typed <p> into the editor.\n\nThe end."
	got, err := Normalize(body, BodyAuto)
	if err != nil {
		t.Fatal(err)
	}
	if got != body {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_ForcedText(t *testing.T) {
	body := "<p>kept literally</p>"
	got, err := Normalize(body, BodyText)
	if err != nil {
		t.Fatal(err)
	}
	if got != body {
		t.Fatalf("got %q", got)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := map[string]bool{
		"<p>x</p>":                                 true,
		"<div><p>a</p></div>\n<h2>b</h2>\n":        true,
		"line one<br>two":                          false,
		"5 < 6 and 7 > 3":                          false,
		"plain text":                               false,
		"<b>bold only</b> ok":                      false,
		"<h1>A</h1>trailing words":                 false,
		"# Chapter One\nShe typed <p> into it.\n": false,
	}
	for in, want := range tests {
		if got := LooksLikeHTML(in); got != want {
			t.Errorf("LooksLikeHTML(%q) = %v, want %v", in, got, want)
		}
	}
}
