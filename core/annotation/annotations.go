package annotation

import (
	"fmt"
	"os"

	"github.com/medtext/annotate/core/errors"
	"github.com/medtext/annotate/internal/logging"
)

// Annotations is the canonical model of one annotated document. Entities
// live in an arena indexed by monotonically assigned integer keys; the keys
// double as the surrogate IDs used for serialization and relation
// references, and carry no semantic meaning. Insertion order is preserved
// and drives "first match" semantics in comparisons.
type Annotations struct {
	entities   map[int]Entity
	order      []int
	relations  []Relation
	relKeys    map[int]bool
	sourceText string
	hasSource  bool
	nextKey    int
	nextRelKey int
	permissive bool
}

// config collects construction options.
type config struct {
	format     string
	sourcePath string
	sourceText string
	hasSource  bool
	permissive bool
}

// Option configures model construction.
type Option func(*config)

// WithFormat selects the format tag used when constructing from a path.
func WithFormat(tag string) Option {
	return func(c *config) { c.format = tag }
}

// WithSourceTextPath binds the raw document text read from the given path.
// Mandatory for the con format; optional for ann.
func WithSourceTextPath(path string) Option {
	return func(c *config) { c.sourcePath = path }
}

// WithSourceText binds an in-memory raw document text.
func WithSourceText(text string) Option {
	return func(c *config) {
		c.sourceText = text
		c.hasSource = true
	}
}

// Permissive disables text-versus-source validation on entity insertion.
// The default is strict: whenever a source text is bound, every entity's
// text must equal the source slice at its offsets.
func Permissive() Option {
	return func(c *config) { c.permissive = true }
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewModel returns an empty model. Entities and relations are added through
// the mutation API.
func NewModel(opts ...Option) *Annotations {
	cfg := newConfig(opts)
	return newFromConfig(cfg)
}

func newFromConfig(cfg *config) *Annotations {
	return &Annotations{
		entities:   make(map[int]Entity),
		relKeys:    make(map[int]bool),
		sourceText: cfg.sourceText,
		hasSource:  cfg.hasSource,
		permissive: cfg.permissive,
	}
}

// New constructs a model from a file path or an in-memory dictionary.
// A string is treated as a path to an annotation file (format selected with
// WithFormat, default ann); a map[string]any is treated as the dictionary
// exchange shape. Any other argument type is rejected with a TypeError.
func New(source any, opts ...Option) (*Annotations, error) {
	switch v := source.(type) {
	case string:
		format := newConfig(opts).format
		if format == "" {
			format = FormatAnn
		}
		return FromFile(v, format, opts...)
	case map[string]any:
		return FromDict(v, opts...)
	case nil:
		return nil, errors.NewType("nil", "file path string or dictionary")
	default:
		return nil, errors.NewType(fmt.Sprintf("%T", source), "file path string or dictionary")
	}
}

// FromFile constructs a model by parsing the annotation file at path with
// the handler registered for the format tag. The file must exist before any
// parsing begins; for formats that require it, the raw source text must be
// bound via WithSourceTextPath or WithSourceText. Construction is atomic:
// on any error no model is returned.
func FromFile(path, format string, opts ...Option) (*Annotations, error) {
	cfg := newConfig(opts)

	h, err := GetHandler(format)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("annotation file", path)
		}
		return nil, errors.NewIO("stat", path, err)
	}

	sourceText, hasSource := cfg.sourceText, cfg.hasSource
	if !hasSource && cfg.sourcePath != "" {
		raw, err := os.ReadFile(cfg.sourcePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewNotFound("source text", cfg.sourcePath)
			}
			return nil, errors.NewIO("read", cfg.sourcePath, err)
		}
		sourceText, hasSource = string(raw), true
	}
	if h.RequiresSource() && !hasSource {
		return nil, errors.NewNotFound("source text", cfg.sourcePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	a, err := h.Parse(ParseInput{
		Data:       data,
		Path:       path,
		SourceText: sourceText,
		HasSource:  hasSource,
		Permissive: cfg.permissive,
	})
	if err != nil {
		logging.ParseError(format, path, err)
		return nil, err
	}

	logging.ParseEvent(format, path, a.Len(), a.RelationCount())
	return a, nil
}

// AddEntity appends a new entity with a fresh surrogate key and returns the
// key. The label must be non-empty and start must be less than end; when a
// source text is bound and the model is strict, text must equal the source
// slice at [start, end).
func (a *Annotations) AddEntity(label string, start, end int, text string) (int, error) {
	key := a.nextKey
	if err := a.PutEntity(key, Entity{Label: label, Start: start, End: end, Text: text}); err != nil {
		return 0, err
	}
	return key, nil
}

// PutEntity inserts an entity under an explicit arena key. Used by format
// handlers to preserve file surrogate IDs; AddEntity is the append API.
func (a *Annotations) PutEntity(key int, e Entity) error {
	if key < 0 {
		return errors.NewValidation("entity", fmt.Sprintf("negative key T%d", key))
	}
	if _, exists := a.entities[key]; exists {
		return errors.NewValidation("entity", fmt.Sprintf("duplicate key T%d", key))
	}
	if err := a.checkEntity(e); err != nil {
		return err
	}
	a.entities[key] = e
	a.order = append(a.order, key)
	if key >= a.nextKey {
		a.nextKey = key + 1
	}
	return nil
}

// AddRelation appends a new relation with a fresh surrogate key and returns
// the key. Both arguments must resolve to entities already in the arena.
func (a *Annotations) AddRelation(label string, arg1, arg2 int) (int, error) {
	key := a.nextRelKey
	if err := a.PutRelation(key, label, arg1, arg2); err != nil {
		return 0, err
	}
	return key, nil
}

// PutRelation inserts a relation under an explicit key, preserving file
// surrogate IDs the way PutEntity does for entities.
func (a *Annotations) PutRelation(key int, label string, arg1, arg2 int) error {
	if key < 0 {
		return errors.NewValidation("relation", fmt.Sprintf("negative key R%d", key))
	}
	if a.relKeys[key] {
		return errors.NewValidation("relation", fmt.Sprintf("duplicate key R%d", key))
	}
	if label == "" {
		return errors.NewValidation("relation", fmt.Sprintf("R%d has empty label", key))
	}
	if _, ok := a.entities[arg1]; !ok {
		return errors.NewValidation("relation", fmt.Sprintf("R%d references unknown entity T%d", key, arg1))
	}
	if _, ok := a.entities[arg2]; !ok {
		return errors.NewValidation("relation", fmt.Sprintf("R%d references unknown entity T%d", key, arg2))
	}
	a.relations = append(a.relations, Relation{Key: key, Label: label, Arg1: arg1, Arg2: arg2})
	a.relKeys[key] = true
	if key >= a.nextRelKey {
		a.nextRelKey = key + 1
	}
	return nil
}

// checkEntity enforces the entity invariants against the model's validation mode.
func (a *Annotations) checkEntity(e Entity) error {
	if e.Label == "" {
		return errors.NewValidation("label", "must not be empty")
	}
	if e.Start < 0 {
		return errors.NewValidation("start", fmt.Sprintf("offset %d must not be negative", e.Start))
	}
	if e.Start >= e.End {
		return errors.NewValidation("start", fmt.Sprintf("start %d must be less than end %d", e.Start, e.End))
	}
	if a.hasSource && !a.permissive {
		if e.End > len(a.sourceText) {
			return errors.NewValidation("end", fmt.Sprintf("offset %d past end of source text (length %d)", e.End, len(a.sourceText)))
		}
		if got := a.sourceText[e.Start:e.End]; got != e.Text {
			return errors.NewValidation("text", fmt.Sprintf("%q does not match source text %q at [%d,%d)", e.Text, got, e.Start, e.End))
		}
	}
	return nil
}

// Entities returns the entities in insertion order.
func (a *Annotations) Entities() []Entity {
	result := make([]Entity, 0, len(a.order))
	for _, key := range a.order {
		result = append(result, a.entities[key])
	}
	return result
}

// EntityKeys returns the arena keys in insertion order.
func (a *Annotations) EntityKeys() []int {
	keys := make([]int, len(a.order))
	copy(keys, a.order)
	return keys
}

// EntityByKey returns the entity stored under an arena key.
func (a *Annotations) EntityByKey(key int) (Entity, bool) {
	e, ok := a.entities[key]
	return e, ok
}

// EntityDict returns a copy of the arena as a key-to-entity map.
func (a *Annotations) EntityDict() map[int]Entity {
	result := make(map[int]Entity, len(a.entities))
	for key, e := range a.entities {
		result[key] = e
	}
	return result
}

// Relations returns the relations in insertion order.
func (a *Annotations) Relations() []Relation {
	result := make([]Relation, len(a.relations))
	copy(result, a.relations)
	return result
}

// SourceText returns the bound raw document text, if any.
func (a *Annotations) SourceText() (string, bool) {
	return a.sourceText, a.hasSource
}

// Len returns the number of entities in the model.
func (a *Annotations) Len() int {
	return len(a.order)
}

// RelationCount returns the number of relations in the model.
func (a *Annotations) RelationCount() int {
	return len(a.relations)
}

// IsPermissive reports whether text-versus-source validation is disabled.
func (a *Annotations) IsPermissive() bool {
	return a.permissive
}
