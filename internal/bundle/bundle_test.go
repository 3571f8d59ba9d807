package bundle

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
	_ "github.com/medtext/annotate/internal/embedded"
)

const sourceText = "Patient admitted with chest pain .\nStarted on aspirin 81mg daily .\n"

func writeBundle(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.tar.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating bundle: %v", err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, content := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatalf("writing header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing entry %s: %v", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeBundle(t, map[string]string{
		"corpus/record-2.ann": "T1\tDrug 46 53\taspirin\n",
		"corpus/record-2.txt": sourceText,
		"corpus/record-1.con": "c=\"chest pain\" 1:3 1:4||t=\"problem\"\n",
		"corpus/record-1.txt": sourceText,
		"corpus/README":       "not an annotation entry\n",
	})

	docs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Load returned %d documents, want 2", len(docs))
	}

	// Sorted by name.
	if docs[0].Name != "record-1" || docs[1].Name != "record-2" {
		t.Errorf("names = %s, %s", docs[0].Name, docs[1].Name)
	}
	if docs[0].Format != "con" || docs[1].Format != "ann" {
		t.Errorf("formats = %s, %s", docs[0].Format, docs[1].Format)
	}
	for _, doc := range docs {
		if !doc.HasSource {
			t.Errorf("document %s has no paired source text", doc.Name)
		}
	}
}

func TestLoadUnpairedAnnotation(t *testing.T) {
	path := writeBundle(t, map[string]string{
		"record-1.ann": "T1\tDrug 46 53\taspirin\n",
		"orphan.txt":   "source text with no annotations\n",
	})

	docs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Load returned %d documents, want 1", len(docs))
	}
	if docs[0].Name != "record-1" || docs[0].HasSource {
		t.Errorf("document = %+v", docs[0])
	}
}

func TestIterateBundleStops(t *testing.T) {
	path := writeBundle(t, map[string]string{
		"record-1.ann": "T1\tDrug 46 53\taspirin\n",
		"record-2.ann": "T1\tDrug 46 53\taspirin\n",
		"record-3.ann": "T1\tDrug 46 53\taspirin\n",
	})

	var visited int
	err := IterateBundle(path, func(header *tar.Header, content io.Reader) (bool, error) {
		visited++
		return true, nil
	})
	if err != nil {
		t.Fatalf("IterateBundle failed: %v", err)
	}
	if visited != 1 {
		t.Errorf("visitor ran %d times after requesting stop, want 1", visited)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.zip")
	if err := os.WriteFile(path, []byte("not a bundle"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of unsupported extension succeeded, want error")
	}
}

func TestModels(t *testing.T) {
	path := writeBundle(t, map[string]string{
		"record-1.ann": "T1\tDrug 46 53\taspirin\nT2\tDose 54 58\t81mg\n",
		"record-1.txt": sourceText,
		"record-2.con": "c=\"chest pain\" 1:3 1:4||t=\"problem\"\n",
		"record-2.txt": sourceText,
	})

	models, err := Models(path)
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("Models returned %d models, want 2", len(models))
	}

	if a := models["record-1"]; a == nil || a.Len() != 2 {
		t.Errorf("record-1 model = %v", a)
	}
	a := models["record-2"]
	if a == nil || a.Len() != 1 {
		t.Fatalf("record-2 model = %v", a)
	}
	want := annotation.Entity{Label: "problem", Start: 22, End: 32, Text: "chest pain"}
	if got := a.Entities()[0]; got != want {
		t.Errorf("record-2 entity = %v, want %v", got, want)
	}
}

func TestModelsConWithoutSource(t *testing.T) {
	path := writeBundle(t, map[string]string{
		"record-1.con": "c=\"chest pain\" 1:3 1:4||t=\"problem\"\n",
	})

	_, err := Models(path)
	if err == nil {
		t.Fatal("Models on con document without source succeeded, want error")
	}
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error %v does not wrap ErrNotFound", err)
	}
}

func TestModelsPermissive(t *testing.T) {
	// The text field disagrees with the source at those offsets.
	path := writeBundle(t, map[string]string{
		"record-1.ann": "T1\tDrug 46 53\tibuprofen\n",
		"record-1.txt": sourceText,
	})

	if _, err := Models(path); err == nil {
		t.Fatal("strict Models accepted mismatching text, want error")
	}

	models, err := Models(path, annotation.Permissive())
	if err != nil {
		t.Fatalf("permissive Models failed: %v", err)
	}
	if models["record-1"].Len() != 1 {
		t.Errorf("record-1 = %v", models["record-1"])
	}
}
