// Package inline provides the format handler for the inline token-positioned
// (con) annotation format. Each record carries the concept text, a start and
// end token position in line:token coordinates, and the concept label:
//
//	c="blood pressure" 2:3 2:4||t="problem"
//
// Line numbers are 1-based, token numbers are 0-based, and tokens are
// whitespace-delimited. Positions only become character offsets against the
// raw source text, so parsing requires it.
package inline

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
)

// Handler implements annotation.Handler for the inline format.
type Handler struct{}

// Register registers this handler with the format registry.
func Register() {
	annotation.RegisterHandler(&Handler{})
}

// init automatically registers this handler when the package is imported.
func init() {
	Register()
}

// Tag implements annotation.Handler.
func (h *Handler) Tag() string { return annotation.FormatCon }

// RequiresSource implements annotation.Handler. Token positions cannot be
// resolved without the raw source text.
func (h *Handler) RequiresSource() bool { return true }

// conRecord is the participle grammar for one record line.
//
//nolint:govet // participle grammar tags are not standard struct tags
type conRecord struct {
	Text  string   `parser:"\"c\" \"=\" @String"`
	Start tokenPos `parser:"@@"`
	End   tokenPos `parser:"@@"`
	Label string   `parser:"\"|\" \"|\" \"t\" \"=\" @String"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tokenPos struct {
	Line  int `parser:"@Int"`
	Token int `parser:"\":\" @Int"`
}

var conLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[ct]`},
	{Name: "Punct", Pattern: `[=:|]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var conParser = participle.MustBuild[conRecord](
	participle.Lexer(conLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse implements annotation.Handler.
func (h *Handler) Parse(in annotation.ParseInput) (*annotation.Annotations, error) {
	if !in.HasSource {
		return nil, errors.NewNotFound("source text", "")
	}

	opts := []annotation.Option{annotation.WithSourceText(in.SourceText)}
	if in.Permissive {
		opts = append(opts, annotation.Permissive())
	}
	a := annotation.NewModel(opts...)

	doc := newDocIndex(in.SourceText)

	for i, line := range strings.Split(string(in.Data), "\n") {
		lineNo := i + 1
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, err := conParser.ParseString("", line)
		if err != nil {
			return nil, errors.NewAnnotation(annotation.FormatCon, in.Path, lineNo, fmt.Sprintf("malformed record %q", line))
		}

		start, err := doc.offsetOf(record.Start, false)
		if err != nil {
			return nil, errors.NewAnnotation(annotation.FormatCon, in.Path, lineNo, err.Error())
		}
		end, err := doc.offsetOf(record.End, true)
		if err != nil {
			return nil, errors.NewAnnotation(annotation.FormatCon, in.Path, lineNo, err.Error())
		}
		if start >= end {
			return nil, errors.NewAnnotation(annotation.FormatCon, in.Path, lineNo,
				fmt.Sprintf("end position %d:%d does not follow start position %d:%d",
					record.End.Line, record.End.Token, record.Start.Line, record.Start.Token))
		}

		resolved := in.SourceText[start:end]
		if !textMatches(record.Text, resolved) {
			return nil, errors.NewAnnotation(annotation.FormatCon, in.Path, lineNo,
				fmt.Sprintf("concept text %q does not match source text %q at [%d,%d)", record.Text, resolved, start, end))
		}

		// Entity text is the exact source substring, so the model's
		// text-versus-source invariant holds regardless of the record's
		// casing.
		if _, err := a.AddEntity(record.Label, start, end, resolved); err != nil {
			return nil, errors.NewAnnotation(annotation.FormatCon, in.Path, lineNo, err.Error())
		}
	}

	return a, nil
}

// Emit implements annotation.Handler. The inline format is read-only;
// models serialize through the standoff format.
func (h *Handler) Emit(a *annotation.Annotations) ([]byte, error) {
	return nil, errors.NewUnsupported("con emission", "inline format is read-only")
}

// docIndex resolves line:token coordinates to absolute character offsets.
type docIndex struct {
	lines      []string
	lineStarts []int
	tokens     [][]tokenSpan
}

// tokenSpan is a token's [start, end) offsets within its line.
type tokenSpan struct {
	start int
	end   int
}

func newDocIndex(text string) *docIndex {
	lines := strings.Split(text, "\n")
	idx := &docIndex{
		lines:      lines,
		lineStarts: make([]int, len(lines)),
		tokens:     make([][]tokenSpan, len(lines)),
	}
	offset := 0
	for i, line := range lines {
		idx.lineStarts[i] = offset
		idx.tokens[i] = tokenize(line)
		offset += len(line) + 1 // the split newline
	}
	return idx
}

// tokenize returns the whitespace-delimited token spans of one line.
func tokenize(line string) []tokenSpan {
	var spans []tokenSpan
	start := -1
	for i, r := range line {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				spans = append(spans, tokenSpan{start: start, end: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, tokenSpan{start: start, end: len(line)})
	}
	return spans
}

// offsetOf resolves a token position to an absolute character offset: the
// token's start offset, or its end offset when atEnd is set.
func (d *docIndex) offsetOf(pos tokenPos, atEnd bool) (int, error) {
	if pos.Line < 1 || pos.Line > len(d.lines) {
		return 0, fmt.Errorf("line %d out of range (document has %d lines)", pos.Line, len(d.lines))
	}
	tokens := d.tokens[pos.Line-1]
	if pos.Token < 0 || pos.Token >= len(tokens) {
		return 0, fmt.Errorf("token %d out of range (line %d has %d tokens)", pos.Token, pos.Line, len(tokens))
	}
	tok := tokens[pos.Token]
	if atEnd {
		return d.lineStarts[pos.Line-1] + tok.end, nil
	}
	return d.lineStarts[pos.Line-1] + tok.start, nil
}

// textMatches compares a recorded concept text against the resolved source
// substring, ignoring case and collapsing runs of whitespace. The inline
// format conventionally lowercases concept text.
func textMatches(recorded, resolved string) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return normalize(recorded) == normalize(resolved)
}
