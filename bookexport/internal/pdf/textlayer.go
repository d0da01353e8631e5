package pdf

import (
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

type tokKind int

const (
	tokNumber tokKind = iota
	tokString
	tokName
	tokOp
	tokArray
	tokDict
)

// token is one content-stream operand or operator. Strings hold raw bytes,
// hex strings already decoded.
type token struct {
	kind  tokKind
	num   float64
	data  []byte
	items []token
}

type lexer struct {
	buf []byte
	pos int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return token{kind: tokString, data: l.literal()}, true
		case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
			l.pos += 2
			return token{kind: tokOp, data: l.buf[l.pos-2 : l.pos]}, true
		case c == '<':
			return token{kind: tokString, data: l.hexString()}, true
		case c == '[', c == ']', c == '{', c == '}':
			l.pos++
			return token{kind: tokOp, data: l.buf[l.pos-1 : l.pos]}, true
		case c == '/':
			l.pos++
			return token{kind: tokName, data: l.word()}, true
		case isDelim(c):
			l.pos++
		default:
			w := l.word()
			if n, err := strconv.ParseFloat(string(w), 64); err == nil {
				return token{kind: tokNumber, num: n}, true
			}
			return token{kind: tokOp, data: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.buf) {
		return l.buf[l.pos+off]
	}
	return 0
}

func (l *lexer) word() []byte {
	start := l.pos
	for l.pos < len(l.buf) && !isSpace(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
	return l.buf[start:l.pos]
}

func (l *lexer) literal() []byte {
	l.pos++
	var out []byte
	depth := 1
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return out
			}
		case '\\':
			if l.pos >= len(l.buf) {
				return out
			}
			e := l.buf[l.pos]
			l.pos++
			switch e {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				if l.peek(0) == '\n' {
					l.pos++
				}
				continue
			case '\n':
				continue
			default:
				if e < '0' || e > '7' {
					c = e
					break
				}
				v := int(e - '0')
				for k := 0; k < 2 && l.peek(0) >= '0' && l.peek(0) <= '7'; k++ {
					v = v*8 + int(l.buf[l.pos]-'0')
					l.pos++
				}
				c = byte(v)
			}
		}
		out = append(out, c)
	}
	return out
}

func (l *lexer) hexString() []byte {
	l.pos++
	var digits []byte
	for l.pos < len(l.buf) && l.buf[l.pos] != '>' {
		if c := l.buf[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil
	}
	return out
}

// skipInlineImage moves past the binary data that follows an ID operator.
func (l *lexer) skipInlineImage() {
	for i := l.pos + 1; i+1 < len(l.buf); i++ {
		if l.buf[i] == 'E' && l.buf[i+1] == 'I' && isSpace(l.buf[i-1]) &&
			(i+2 == len(l.buf) || isSpace(l.buf[i+2])) {
			l.pos = i
			return
		}
	}
	l.pos = len(l.buf)
}

// operators calls fn for every operator of a content stream or CMap with
// the operands that precede it. Arrays and dictionaries arrive as single
// operands. args is only valid during the call.
func operators(data []byte, fn func(op string, args []token)) {
	l := &lexer{buf: data}
	var args []token
	var marks []int
	for {
		tok, ok := l.next()
		if !ok {
			return
		}
		if tok.kind != tokOp {
			args = append(args, tok)
			continue
		}
		switch op := string(tok.data); op {
		case "[", "<<":
			marks = append(marks, len(args))
		case "]", ">>":
			if len(marks) == 0 {
				continue
			}
			m := marks[len(marks)-1]
			marks = marks[:len(marks)-1]
			kind := tokArray
			if op == ">>" {
				kind = tokDict
			}
			items := append([]token(nil), args[m:]...)
			args = append(args[:m], token{kind: kind, items: items})
		default:
			if len(marks) > 0 {
				args = append(args, tok)
				continue
			}
			if op == "ID" {
				l.skipInlineImage()
			}
			fn(op, args)
			args = args[:0]
		}
	}
}

func code(b []byte) uint32 {
	var c uint32
	for _, x := range b {
		c = c<<8 | uint32(x)
	}
	return c
}

func utf16BE(b []byte, offset uint32) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	if len(units) == 0 {
		return ""
	}
	units[len(units)-1] += uint16(offset)
	return string(utf16.Decode(units))
}

// cmap is a parsed ToUnicode map.
type cmap struct {
	codeLen int
	chars   map[uint32]string
}

const maxRange = 0xFFFF

func parseCMap(data []byte) *cmap {
	m := &cmap{chars: map[uint32]string{}}
	operators(data, func(op string, args []token) {
		switch op {
		case "endcodespacerange":
			if len(args) > 0 && args[0].kind == tokString && m.codeLen == 0 {
				m.codeLen = len(args[0].data)
			}
		case "endbfchar":
			for i := 0; i+1 < len(args); i += 2 {
				if args[i].kind == tokString && args[i+1].kind == tokString {
					m.chars[code(args[i].data)] = utf16BE(args[i+1].data, 0)
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(args); i += 3 {
				lo, hi, dst := code(args[i].data), code(args[i+1].data), args[i+2]
				if hi < lo || hi-lo > maxRange {
					continue
				}
				for c := lo; c <= hi; c++ {
					switch {
					case dst.kind == tokString:
						m.chars[c] = utf16BE(dst.data, c-lo)
					case dst.kind == tokArray && int(c-lo) < len(dst.items) && dst.items[c-lo].kind == tokString:
						m.chars[c] = utf16BE(dst.items[c-lo].data, 0)
					}
				}
			}
		}
	})
	return m
}

// font decodes shown strings. A nil font reads bytes as Latin-1, which is
// right for the standard 14 fonts.
type font struct {
	codeLen int
	uni     map[uint32]string
}

func (f *font) decode(b []byte) string {
	var sb strings.Builder
	if f == nil {
		for _, c := range b {
			sb.WriteRune(rune(c))
		}
		return sb.String()
	}
	n := max(f.codeLen, 1)
	for i := 0; i+n <= len(b); i += n {
		c := code(b[i : i+n])
		if s, ok := f.uni[c]; ok {
			sb.WriteString(s)
		} else if n == 1 {
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

const maxFormDepth = 8

// textWalker runs page content streams, collecting the text layer and
// counting painted images (XObjects and inline).
type textWalker struct {
	ctx    *model.Context
	fonts  map[int]*font
	text   strings.Builder
	images int

	y, lastY float64
	shown    bool
	brk      bool
}

func newTextWalker(ctx *model.Context) *textWalker {
	return &textWalker{ctx: ctx, fonts: map[int]*font{}}
}

func (w *textWalker) reset() {
	w.text.Reset()
	w.shown, w.brk = false, false
}

func (w *textWalker) page(nr int) error {
	d, _, attrs, err := w.ctx.PageDict(nr, false)
	if err != nil {
		return err
	}
	data, err := w.ctx.PageContent(d, nr)
	if err != nil && !errors.Is(err, model.ErrNoContent) {
		return err
	}
	var res types.Dict
	if attrs != nil {
		res = attrs.Resources
	}
	w.run(data, res, 0)
	return nil
}

func num(args []token, i int) float64 {
	if i >= 0 && i < len(args) && args[i].kind == tokNumber {
		return args[i].num
	}
	return 0
}

func (w *textWalker) run(data []byte, res types.Dict, depth int) {
	fonts := w.fontsOf(res)
	var cur *font
	var lineY float64
	last := func(args []token, kind tokKind) (token, bool) {
		if len(args) > 0 && args[len(args)-1].kind == kind {
			return args[len(args)-1], true
		}
		return token{}, false
	}

	operators(data, func(op string, args []token) {
		switch op {
		case "BT":
			lineY, w.y = 0, 0
		case "Tf":
			if len(args) >= 2 && args[len(args)-2].kind == tokName {
				cur = fonts[string(args[len(args)-2].data)]
			}
		case "Tm":
			lineY = num(args, len(args)-1)
			w.y = lineY
		case "Td", "TD":
			lineY += num(args, len(args)-1)
			w.y = lineY
		case "T*":
			w.brk = true
		case "Tj":
			if s, ok := last(args, tokString); ok {
				w.show(cur.decode(s.data))
			}
		case "'", `"`:
			w.brk = true
			if s, ok := last(args, tokString); ok {
				w.show(cur.decode(s.data))
			}
		case "TJ":
			arr, ok := last(args, tokArray)
			if !ok {
				return
			}
			for _, it := range arr.items {
				switch {
				case it.kind == tokString:
					w.show(cur.decode(it.data))
				case it.kind == tokNumber && it.num < -200 && w.shown:
					w.text.WriteByte(' ')
				}
			}
		case "ID":
			w.images++
		case "Do":
			if name, ok := last(args, tokName); ok {
				w.xobject(res, string(name.data), depth)
			}
		}
	})
}

// show appends text, starting a new line when the baseline moved.
func (w *textWalker) show(s string) {
	if s == "" {
		return
	}
	if w.shown && (w.brk || math.Abs(w.y-w.lastY) > 0.5) {
		w.text.WriteByte('\n')
	}
	w.text.WriteString(s)
	w.shown, w.brk, w.lastY = true, false, w.y
}

func (w *textWalker) xobject(res types.Dict, name string, depth int) {
	xobjs := w.dict(res, "XObject")
	obj, ok := xobjs.Find(name)
	if !ok {
		return
	}
	sd, _, err := w.ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return
	}
	sub := sd.NameEntry("Subtype")
	switch {
	case sub == nil:
	case *sub == "Image":
		w.images++
	case *sub == "Form" && depth < maxFormDepth:
		if err := sd.Decode(); err != nil {
			return
		}
		inner := w.dict(sd.Dict, "Resources")
		if inner == nil {
			inner = res
		}
		w.run(sd.Content, inner, depth+1)
	}
}

func (w *textWalker) dict(d types.Dict, key string) types.Dict {
	if d == nil || w.ctx == nil {
		return nil
	}
	obj, ok := d.Find(key)
	if !ok {
		return nil
	}
	sub, err := w.ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return sub
}

func (w *textWalker) fontsOf(res types.Dict) map[string]*font {
	out := map[string]*font{}
	for name, obj := range w.dict(res, "Font") {
		key := -1
		if ref, ok := obj.(types.IndirectRef); ok {
			key = ref.ObjectNumber.Value()
			if f, cached := w.fonts[key]; cached {
				out[name] = f
				continue
			}
		}
		f := w.loadFont(obj)
		if key >= 0 {
			w.fonts[key] = f
		}
		out[name] = f
	}
	return out
}

// loadFont reads the code width and the ToUnicode map of a font. Composite
// fonts default to two-byte codes, as Chrome's Identity-H fonts use.
func (w *textWalker) loadFont(obj types.Object) *font {
	d, err := w.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return nil
	}
	f := &font{codeLen: 1}
	if sub := d.NameEntry("Subtype"); sub != nil && *sub == "Type0" {
		f.codeLen = 2
	}
	tu, ok := d.Find("ToUnicode")
	if !ok {
		return f
	}
	sd, _, err := w.ctx.DereferenceStreamDict(tu)
	if err != nil || sd == nil || sd.Decode() != nil {
		return f
	}
	cm := parseCMap(sd.Content)
	f.uni = cm.chars
	if cm.codeLen > 0 {
		f.codeLen = cm.codeLen
	}
	return f
}

// tidy folds whitespace runs into single spaces and drops control runes.
func tidy(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case !unicode.IsPrint(r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
