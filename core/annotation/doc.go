// Package annotation defines the canonical in-memory representation of a
// single annotated document: an ordered arena of labeled entity spans plus
// the relations linking them, with an optional bound source text.
//
// Models are constructed from a file (via a registered format handler), from
// an in-memory dictionary, or empty. After construction a model is immutable
// except for appending new entities and relations. One model corresponds to
// one document; models share no state.
package annotation
