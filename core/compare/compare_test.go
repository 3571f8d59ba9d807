package compare

import (
	"testing"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
)

func model(t *testing.T, entities ...annotation.Entity) *annotation.Annotations {
	t.Helper()
	a := annotation.NewModel()
	for _, e := range entities {
		if _, err := a.AddEntity(e.Label, e.Start, e.End, e.Text); err != nil {
			t.Fatalf("AddEntity(%v) failed: %v", e, err)
		}
	}
	return a
}

func TestDifference(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
		annotation.Entity{Label: "Dose", Start: 6, End: 10, Text: "81mg"},
	)
	b := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
	)

	diff := Difference(a, b)
	if len(diff) != 1 {
		t.Fatalf("Difference returned %d entities, want 1", len(diff))
	}
	want := annotation.Entity{Label: "Dose", Start: 6, End: 10, Text: "81mg"}
	if diff[0] != want {
		t.Errorf("diff[0] = %v, want %v", diff[0], want)
	}

	// The reverse direction is empty: b is a subset of a.
	if rev := Difference(b, a); len(rev) != 0 {
		t.Errorf("Difference(b, a) = %v, want empty", rev)
	}
}

func TestDifferenceSelfIsEmpty(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
		annotation.Entity{Label: "Dose", Start: 6, End: 10, Text: "81mg"},
	)
	if diff := Difference(a, a); len(diff) != 0 {
		t.Errorf("Difference(a, a) = %v, want empty", diff)
	}
}

func TestDifferenceIdentityFields(t *testing.T) {
	base := annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"}

	// Any single differing field breaks identity.
	variants := []annotation.Entity{
		{Label: "Dose", Start: 0, End: 5, Text: "Aspi"},
		{Label: "Drug", Start: 1, End: 5, Text: "Aspi"},
		{Label: "Drug", Start: 0, End: 6, Text: "Aspi"},
		{Label: "Drug", Start: 0, End: 5, Text: "Aspo"},
	}
	for _, v := range variants {
		a := model(t, base)
		b := model(t, v)
		if diff := Difference(a, b); len(diff) != 1 {
			t.Errorf("Difference with variant %v = %v, want the base entity", v, diff)
		}
	}
}

func TestIntersection(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
		annotation.Entity{Label: "Dose", Start: 6, End: 10, Text: "81mg"},
	)
	b := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
	)

	common := Intersection(a, b)
	if len(common) != 1 {
		t.Fatalf("Intersection size = %d, want 1", len(common))
	}
	if !common.Contains(annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"}) {
		t.Error("Intersection missing the shared entity")
	}

	// Intersection is symmetric.
	if rev := Intersection(b, a); len(rev) != 1 {
		t.Errorf("Intersection(b, a) size = %d, want 1", len(rev))
	}
}

func TestAmbiguity(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 7, Text: "aspirin"},
		annotation.Entity{Label: "Dose", Start: 8, End: 12, Text: "81mg"},
	)
	b := model(t,
		annotation.Entity{Label: "Treatment", Start: 0, End: 7, Text: "aspirin"},
		annotation.Entity{Label: "Dose", Start: 8, End: 12, Text: "81mg"},
	)

	amb := Ambiguity(a, b)
	if len(amb) != 1 {
		t.Fatalf("Ambiguity returned %d entities, want 1", len(amb))
	}
	if amb[0].Label != "Drug" {
		t.Errorf("ambiguous entity = %v, want the Drug span", amb[0])
	}

	// Identical models have no ambiguity.
	if amb := Ambiguity(a, a); len(amb) != 0 {
		t.Errorf("Ambiguity(a, a) = %v, want empty", amb)
	}

	// Disjoint spans are additions, not ambiguity.
	c := model(t, annotation.Entity{Label: "Form", Start: 20, End: 25, Text: "daily"})
	if amb := Ambiguity(a, c); len(amb) != 0 {
		t.Errorf("Ambiguity with disjoint spans = %v, want empty", amb)
	}
}

func TestConfusionMatrix(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 7, Text: "aspirin"},
		annotation.Entity{Label: "Dose", Start: 8, End: 12, Text: "81mg"},
	)
	b := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 7, Text: "aspirin"},
		annotation.Entity{Label: "Drug", Start: 8, End: 12, Text: "81mg"},
	)

	labels := []string{"Drug", "Dose"}
	matrix := ConfusionMatrix(a, b, labels)

	if len(matrix) != 2 || len(matrix[0]) != 2 {
		t.Fatalf("matrix shape = %dx%d, want 2x2", len(matrix), len(matrix[0]))
	}
	// a's Drug overlaps b's first Drug; a's Dose overlaps b's second Drug.
	if matrix[0][0] != 1 {
		t.Errorf("matrix[Drug][Drug] = %d, want 1", matrix[0][0])
	}
	if matrix[1][0] != 1 {
		t.Errorf("matrix[Dose][Drug] = %d, want 1", matrix[1][0])
	}
	if matrix[0][1] != 0 || matrix[1][1] != 0 {
		t.Errorf("Dose column = [%d %d], want zeros", matrix[0][1], matrix[1][1])
	}
}

func TestConfusionMatrixUnknownLabels(t *testing.T) {
	a := model(t, annotation.Entity{Label: "Drug", Start: 0, End: 7, Text: "aspirin"})
	b := model(t, annotation.Entity{Label: "Drug", Start: 0, End: 7, Text: "aspirin"})

	matrix := ConfusionMatrix(a, b, []string{"Problem", "Test"})
	for i, row := range matrix {
		for j, v := range row {
			if v != 0 {
				t.Errorf("matrix[%d][%d] = %d, want 0", i, j, v)
			}
		}
	}
}

func TestCounts(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
		annotation.Entity{Label: "Dose", Start: 6, End: 10, Text: "81mg"},
	)

	counts := Counts(a)
	if len(counts) != 2 || counts["Drug"] != 1 || counts["Dose"] != 1 {
		t.Errorf("Counts = %v, want map[Dose:1 Drug:1]", counts)
	}

	if counts := Counts(annotation.NewModel()); len(counts) != 0 {
		t.Errorf("Counts of empty model = %v, want empty", counts)
	}
}

func TestStats(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 7, Text: "aspirin"},
		annotation.Entity{Label: "Drug", Start: 20, End: 27, Text: "aspirin"},
		annotation.Entity{Label: "Dose", Start: 8, End: 12, Text: "81mg"},
	)

	report := Stats(a)
	if report.ID == "" {
		t.Error("report has no ID")
	}
	if report.EntityTotal != 3 {
		t.Errorf("EntityTotal = %d, want 3", report.EntityTotal)
	}
	if report.RelationTotal != 0 {
		t.Errorf("RelationTotal = %d, want 0", report.RelationTotal)
	}
	if report.EntityCounts["Drug"] != 2 || report.EntityCounts["Dose"] != 1 {
		t.Errorf("EntityCounts = %v", report.EntityCounts)
	}
	if report.SourceFingerprint != "" {
		t.Errorf("SourceFingerprint = %q, want empty without source text", report.SourceFingerprint)
	}

	b := Stats(a)
	if b.ID == report.ID {
		t.Error("two reports share an ID")
	}
}

func TestCheckCompatible(t *testing.T) {
	same1 := annotation.NewModel(annotation.WithSourceText("shared document"))
	same2 := annotation.NewModel(annotation.WithSourceText("shared document"))
	other := annotation.NewModel(annotation.WithSourceText("different document"))
	unbound := annotation.NewModel()

	if err := CheckCompatible(same1, same2); err != nil {
		t.Errorf("same source rejected: %v", err)
	}
	if err := CheckCompatible(same1, unbound); err != nil {
		t.Errorf("unbound source rejected: %v", err)
	}
	if err := CheckCompatible(unbound, unbound); err != nil {
		t.Errorf("both unbound rejected: %v", err)
	}

	err := CheckCompatible(same1, other)
	if err == nil {
		t.Fatal("differing sources accepted, want error")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error %v does not wrap ErrInvalidInput", err)
	}
}

func TestCompare(t *testing.T) {
	a := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
		annotation.Entity{Label: "Dose", Start: 6, End: 10, Text: "81mg"},
	)
	b := model(t,
		annotation.Entity{Label: "Drug", Start: 0, End: 5, Text: "Aspi"},
		annotation.Entity{Label: "Form", Start: 11, End: 16, Text: "daily"},
	)

	result, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.ID == "" {
		t.Error("comparison has no ID")
	}
	if len(result.OnlyInA) != 1 || result.OnlyInA[0].Label != "Dose" {
		t.Errorf("OnlyInA = %v", result.OnlyInA)
	}
	if len(result.OnlyInB) != 1 || result.OnlyInB[0].Label != "Form" {
		t.Errorf("OnlyInB = %v", result.OnlyInB)
	}
	if result.CommonCount != 1 {
		t.Errorf("CommonCount = %d, want 1", result.CommonCount)
	}
	if len(result.Ambiguous) != 0 {
		t.Errorf("Ambiguous = %v, want empty", result.Ambiguous)
	}
}

func TestCompareCompatibilityCheck(t *testing.T) {
	a := annotation.NewModel(annotation.WithSourceText("document one"))
	b := annotation.NewModel(annotation.WithSourceText("document two"))

	// Permissive by default.
	if _, err := Compare(a, b); err != nil {
		t.Errorf("default Compare rejected cross-document models: %v", err)
	}

	if _, err := Compare(a, b, WithCompatibilityCheck()); err == nil {
		t.Error("WithCompatibilityCheck accepted differing sources, want error")
	}
}
