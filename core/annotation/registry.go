package annotation

import (
	"github.com/medtext/annotate/core/errors"
)

// Format tags accepted by FromFile and WithFormat.
const (
	// FormatAnn is the line-oriented standoff format.
	FormatAnn = "ann"
	// FormatCon is the inline bracket/token-positioned format.
	FormatCon = "con"
)

// ParseInput carries everything a format handler needs to parse one file.
type ParseInput struct {
	// Data is the raw annotation file content.
	Data []byte

	// Path is the origin of Data, used only for error context.
	Path string

	// SourceText is the raw document text, valid only if HasSource is true.
	SourceText string

	// HasSource reports whether SourceText is bound.
	HasSource bool

	// Permissive disables text-versus-source validation on the resulting model.
	Permissive bool
}

// Handler parses one annotation format into the canonical model and,
// where the format supports it, emits a model back out. Handlers register
// themselves at init; the two grammars are never unified.
type Handler interface {
	// Tag returns the format tag this handler serves ("ann", "con").
	Tag() string

	// RequiresSource reports whether parsing needs the raw source text.
	RequiresSource() bool

	// Parse turns raw file content into a populated model. It returns an
	// AnnotationError identifying the offending line on malformed input.
	Parse(in ParseInput) (*Annotations, error)

	// Emit serializes a model into this format. Handlers for read-only
	// formats return an UnsupportedError.
	Emit(a *Annotations) ([]byte, error)
}

// handlerRegistry holds all registered format handlers, keyed by tag.
var handlerRegistry = make(map[string]Handler)

// RegisterHandler registers a format handler by its tag.
func RegisterHandler(h Handler) {
	if h != nil && h.Tag() != "" {
		handlerRegistry[h.Tag()] = h
	}
}

// GetHandler returns the handler for a format tag.
func GetHandler(tag string) (Handler, error) {
	h, ok := handlerRegistry[tag]
	if !ok {
		return nil, errors.NewUnsupported("annotation format", tag)
	}
	return h, nil
}

// ListFormats returns the tags of all registered handlers.
func ListFormats() []string {
	tags := make([]string, 0, len(handlerRegistry))
	for tag := range handlerRegistry {
		tags = append(tags, tag)
	}
	return tags
}

// ResetHandlers clears the registry. For tests only.
func ResetHandlers() {
	handlerRegistry = make(map[string]Handler)
}
