package annotation

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/medtext/annotate/core/errors"
)

// FromDict constructs a model from the dictionary exchange shape:
//
//	{
//	  "entities":  { "T1": {"label": ..., "start": ..., "end": ..., "text": ...}, ... },
//	  "relations": [ {"id": "R1", "label": ..., "entity_1": "T1", "entity_2": "T2"}, ... ],
//	}
//
// Both top-level keys are required. Entities are inserted in ascending key
// order so construction is deterministic; relations follow their sequence
// order. A mapping missing required structure yields an AnnotationError
// naming the offending key.
func FromDict(dict map[string]any, opts ...Option) (*Annotations, error) {
	cfg := newConfig(opts)

	rawEntities, ok := dict["entities"]
	if !ok {
		return nil, errors.NewAnnotationUnit("dict", "entities", "missing required key")
	}
	rawRelations, ok := dict["relations"]
	if !ok {
		return nil, errors.NewAnnotationUnit("dict", "relations", "missing required key")
	}

	entities, err := dictEntities(rawEntities)
	if err != nil {
		return nil, err
	}
	relations, err := dictRelations(rawRelations)
	if err != nil {
		return nil, err
	}

	a := newFromConfig(cfg)

	keys := make([]int, 0, len(entities))
	for key := range entities {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, key := range keys {
		if err := a.PutEntity(key, entities[key]); err != nil {
			return nil, &errors.AnnotationError{
				Format:  "dict",
				Unit:    fmt.Sprintf("T%d", key),
				Message: err.Error(),
				Err:     err,
			}
		}
	}

	for _, r := range relations {
		if err := a.PutRelation(r.Key, r.Label, r.Arg1, r.Arg2); err != nil {
			return nil, &errors.AnnotationError{
				Format:  "dict",
				Unit:    fmt.Sprintf("R%d", r.Key),
				Message: err.Error(),
				Err:     err,
			}
		}
	}

	return a, nil
}

// dictEntities decodes the "entities" mapping.
func dictEntities(raw any) (map[int]Entity, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.NewAnnotationUnit("dict", "entities", fmt.Sprintf("want a mapping of id to entity fields, got %T", raw))
	}

	result := make(map[int]Entity, len(fields))
	for id, rawEntity := range fields {
		key, err := parseSurrogate(id, 'T')
		if err != nil {
			return nil, errors.NewAnnotationUnit("dict", id, "entity id must be T<number> or a number")
		}
		entity, err := dictEntity(id, rawEntity)
		if err != nil {
			return nil, err
		}
		result[key] = entity
	}
	return result, nil
}

// dictEntity decodes one entity value.
func dictEntity(id string, raw any) (Entity, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return Entity{}, errors.NewAnnotationUnit("dict", id, fmt.Sprintf("want entity fields mapping, got %T", raw))
	}

	label, ok := asString(fields["label"])
	if !ok {
		return Entity{}, errors.NewAnnotationUnit("dict", id, "missing or non-string label")
	}
	start, ok := asInt(fields["start"])
	if !ok {
		return Entity{}, errors.NewAnnotationUnit("dict", id, "missing or non-integer start")
	}
	end, ok := asInt(fields["end"])
	if !ok {
		return Entity{}, errors.NewAnnotationUnit("dict", id, "missing or non-integer end")
	}
	text, ok := asString(fields["text"])
	if !ok {
		return Entity{}, errors.NewAnnotationUnit("dict", id, "missing or non-string text")
	}

	return Entity{Label: label, Start: start, End: end, Text: text}, nil
}

// dictRelations decodes the "relations" sequence.
func dictRelations(raw any) ([]Relation, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.NewAnnotationUnit("dict", "relations", fmt.Sprintf("want a sequence of relations, got %T", raw))
	}

	result := make([]Relation, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, errors.NewAnnotationUnit("dict", fmt.Sprintf("relations[%d]", i), fmt.Sprintf("want relation fields mapping, got %T", item))
		}

		id, ok := asString(fields["id"])
		if !ok {
			return nil, errors.NewAnnotationUnit("dict", fmt.Sprintf("relations[%d]", i), "missing or non-string id")
		}
		key, err := parseSurrogate(id, 'R')
		if err != nil {
			return nil, errors.NewAnnotationUnit("dict", id, "relation id must be R<number> or a number")
		}
		label, ok := asString(fields["label"])
		if !ok {
			return nil, errors.NewAnnotationUnit("dict", id, "missing or non-string label")
		}
		arg1, err := dictEntityRef(fields["entity_1"])
		if err != nil {
			return nil, errors.NewAnnotationUnit("dict", id, fmt.Sprintf("entity_1: %v", err))
		}
		arg2, err := dictEntityRef(fields["entity_2"])
		if err != nil {
			return nil, errors.NewAnnotationUnit("dict", id, fmt.Sprintf("entity_2: %v", err))
		}

		result = append(result, Relation{Key: key, Label: label, Arg1: arg1, Arg2: arg2})
	}
	return result, nil
}

// dictEntityRef decodes an entity reference ("T3" or a number).
func dictEntityRef(raw any) (int, error) {
	switch v := raw.(type) {
	case string:
		return parseSurrogate(v, 'T')
	case nil:
		return 0, fmt.Errorf("missing entity reference")
	default:
		if n, ok := asInt(raw); ok {
			return n, nil
		}
		return 0, fmt.Errorf("want T<number> or a number, got %T", v)
	}
}

// parseSurrogate parses a surrogate ID of the form "<prefix><number>" or a
// bare number string.
func parseSurrogate(id string, prefix byte) (int, error) {
	if id == "" {
		return 0, fmt.Errorf("empty surrogate id")
	}
	digits := id
	if id[0] == prefix {
		digits = id[1:]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed surrogate id %q", id)
	}
	return n, nil
}

// asString extracts a string value.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asInt extracts an integer value, accepting the numeric types JSON decoding
// produces.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
