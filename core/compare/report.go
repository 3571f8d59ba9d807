package compare

import (
	"github.com/google/uuid"

	"github.com/medtext/annotate/core/annotation"
)

// Report is the descriptive summary of one annotation model.
type Report struct {
	// ID is a generated identifier for this report.
	ID string `json:"id"`

	// EntityCounts maps each label to the number of entities bearing it.
	EntityCounts map[string]int `json:"entity_counts"`

	// EntityTotal is the total number of entities.
	EntityTotal int `json:"entity_total"`

	// RelationTotal is the total number of relations.
	RelationTotal int `json:"relation_total"`

	// SourceFingerprint is the BLAKE3 hash of the bound source text
	// (empty when no source text is bound).
	SourceFingerprint string `json:"source_fingerprint,omitempty"`
}

// Stats builds the descriptive summary of a model: aggregate counts per
// label, total entity count, and total relation count.
func Stats(a *annotation.Annotations) *Report {
	return &Report{
		ID:                uuid.New().String(),
		EntityCounts:      Counts(a),
		EntityTotal:       a.Len(),
		RelationTotal:     a.RelationCount(),
		SourceFingerprint: a.SourceFingerprint(),
	}
}

// Comparison is the combined result of comparing two models.
type Comparison struct {
	// ID is a generated identifier for this comparison.
	ID string `json:"id"`

	// OnlyInA holds a's entities with no identical match in b.
	OnlyInA []annotation.Entity `json:"only_in_a"`

	// OnlyInB holds b's entities with no identical match in a.
	OnlyInB []annotation.Entity `json:"only_in_b"`

	// CommonCount is the size of the identity intersection.
	CommonCount int `json:"common_count"`

	// Ambiguous holds a's entities whose span matches an entity of b
	// under a different label.
	Ambiguous []annotation.Entity `json:"ambiguous"`
}

// Option configures Compare.
type Option func(*compareConfig)

type compareConfig struct {
	checkCompatible bool
}

// WithCompatibilityCheck makes Compare fail when the two models carry
// source texts with differing fingerprints. The default is permissive:
// cross-document comparisons are the caller's responsibility.
func WithCompatibilityCheck() Option {
	return func(c *compareConfig) { c.checkCompatible = true }
}

// Compare runs the full comparison between two models.
func Compare(a, b *annotation.Annotations, opts ...Option) (*Comparison, error) {
	cfg := &compareConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.checkCompatible {
		if err := CheckCompatible(a, b); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		ID:          uuid.New().String(),
		OnlyInA:     Difference(a, b),
		OnlyInB:     Difference(b, a),
		CommonCount: len(Intersection(a, b)),
		Ambiguous:   Ambiguity(a, b),
	}, nil
}
