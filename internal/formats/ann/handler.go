// Package ann provides the format handler for the line-oriented standoff
// annotation format: one entity record per line (surrogate ID, label,
// offset range, literal text) followed by one relation record per relation.
//
//	T1	Drug 0 7	aspirin
//	T2	Dose 8 12	81mg
//	R1	Dose-Drug Arg1:T2 Arg2:T1
package ann

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
)

// Handler implements annotation.Handler for the standoff format.
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
func (h *Handler) Tag() string { return annotation.FormatAnn }

// RequiresSource implements annotation.Handler. The standoff format carries
// its own literal text, so the source text is optional (when supplied it is
// validated against).
func (h *Handler) RequiresSource() bool { return false }

// spanField is the participle grammar for the middle field of an entity
// record: a label followed by one or more offset ranges.
// Examples: "Drug 0 7", "Drug 0 7;9 12"
//
//nolint:govet // participle grammar tags are not standard struct tags
type spanField struct {
	Label  string      `parser:"@Ident"`
	Ranges []spanRange `parser:"@@ ( \";\" @@ )*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type spanRange struct {
	Start int `parser:"@Int"`
	End   int `parser:"@Int"`
}

// relationField is the participle grammar for the body of a relation
// record. Example: "Dose-Drug Arg1:T2 Arg2:T1"
//
//nolint:govet // participle grammar tags are not standard struct tags
type relationField struct {
	Label string `parser:"@Ident"`
	Arg1  string `parser:"\"Arg1\" \":\" @Ident"`
	Arg2  string `parser:"\"Arg2\" \":\" @Ident"`
}

// standoffLexer covers both record bodies: labels and argument references
// are Ident tokens, offsets are Int tokens.
var standoffLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.-]*`},
	{Name: "Punct", Pattern: `[;:]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var spanParser = participle.MustBuild[spanField](
	participle.Lexer(standoffLexer),
	participle.Elide("Whitespace"),
)

var relationParser = participle.MustBuild[relationField](
	participle.Lexer(standoffLexer),
	participle.Elide("Whitespace"),
)

// pendingRelation defers relation insertion until all entities are in the
// arena, so records may reference entities declared later in the file.
type pendingRelation struct {
	key   int
	label string
	arg1  int
	arg2  int
	line  int
}

// Parse implements annotation.Handler.
func (h *Handler) Parse(in annotation.ParseInput) (*annotation.Annotations, error) {
	var opts []annotation.Option
	if in.HasSource {
		opts = append(opts, annotation.WithSourceText(in.SourceText))
	}
	if in.Permissive {
		opts = append(opts, annotation.Permissive())
	}
	a := annotation.NewModel(opts...)

	var relations []pendingRelation

	for i, line := range strings.Split(string(in.Data), "\n") {
		lineNo := i + 1
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		id := fields[0]
		switch {
		case strings.HasPrefix(id, "T"):
			if len(fields) < 3 {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, "entity record needs ID, span, and text fields")
			}
			key, err := strconv.Atoi(id[1:])
			if err != nil || key < 0 {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, fmt.Sprintf("malformed entity ID %q", id))
			}
			span, err := spanParser.ParseString("", fields[1])
			if err != nil {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, fmt.Sprintf("malformed span field %q", fields[1]))
			}
			if len(span.Ranges) > 1 {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, "discontiguous spans are not supported")
			}
			r := span.Ranges[0]
			entity := annotation.Entity{Label: span.Label, Start: r.Start, End: r.End, Text: fields[2]}
			if err := a.PutEntity(key, entity); err != nil {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, err.Error())
			}

		case strings.HasPrefix(id, "R"):
			if len(fields) < 2 {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, "relation record needs ID and body fields")
			}
			key, err := strconv.Atoi(id[1:])
			if err != nil || key < 0 {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, fmt.Sprintf("malformed relation ID %q", id))
			}
			rel, err := relationParser.ParseString("", fields[1])
			if err != nil {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, fmt.Sprintf("malformed relation body %q", fields[1]))
			}
			arg1, err := entityRef(rel.Arg1)
			if err != nil {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, err.Error())
			}
			arg2, err := entityRef(rel.Arg2)
			if err != nil {
				return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, err.Error())
			}
			relations = append(relations, pendingRelation{key: key, label: rel.Label, arg1: arg1, arg2: arg2, line: lineNo})

		default:
			return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, lineNo, fmt.Sprintf("unrecognized record %q", id))
		}
	}

	for _, r := range relations {
		if err := a.PutRelation(r.key, r.label, r.arg1, r.arg2); err != nil {
			return nil, errors.NewAnnotation(annotation.FormatAnn, in.Path, r.line, err.Error())
		}
	}

	return a, nil
}

// entityRef parses a T<number> entity reference.
func entityRef(ref string) (int, error) {
	if !strings.HasPrefix(ref, "T") {
		return 0, fmt.Errorf("malformed entity reference %q", ref)
	}
	key, err := strconv.Atoi(ref[1:])
	if err != nil || key < 0 {
		return 0, fmt.Errorf("malformed entity reference %q", ref)
	}
	return key, nil
}

// Emit implements annotation.Handler. Output is deterministic for a fixed
// model: entities in insertion order under their arena keys, then relations.
func (h *Handler) Emit(a *annotation.Annotations) ([]byte, error) {
	var sb strings.Builder

	for _, key := range a.EntityKeys() {
		e, _ := a.EntityByKey(key)
		if strings.ContainsAny(e.Text, "\t\n") {
			return nil, errors.NewValidation("text", fmt.Sprintf("entity T%d text contains a tab or newline", key))
		}
		fmt.Fprintf(&sb, "T%d\t%s %d %d\t%s\n", key, e.Label, e.Start, e.End, e.Text)
	}

	for _, r := range a.Relations() {
		fmt.Fprintf(&sb, "R%d\t%s Arg1:T%d Arg2:T%d\n", r.Key, r.Label, r.Arg1, r.Arg2)
	}

	return []byte(sb.String()), nil
}
