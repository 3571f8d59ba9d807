// Command annot is the CLI tool for the annotate toolkit. It converts
// annotation files between formats, compares annotation sets, prints
// descriptive statistics, and maintains a SQLite annotation corpus.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/compare"
	"github.com/medtext/annotate/internal/annotdb"
	"github.com/medtext/annotate/internal/bundle"
	"github.com/medtext/annotate/internal/logging"

	// Import embedded handlers registry to register all format handlers
	_ "github.com/medtext/annotate/internal/embedded"
)

const version = "0.1.0"

// CLI defines the command-line interface for annot.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"json,text" help:"Log output format"`

	Convert ConvertCmd `cmd:"" help:"Convert an annotation file to the standoff format"`
	Diff    DiffCmd    `cmd:"" help:"Compare two annotation files"`
	Stats   StatsCmd   `cmd:"" help:"Print descriptive statistics for an annotation file"`
	Matrix  MatrixCmd  `cmd:"" help:"Print a label confusion matrix for two annotation files"`
	Bundle  BundleGrp  `cmd:"" help:"Corpus bundle operations"`
	DB      DBGroup    `cmd:"" name:"db" help:"Corpus database operations"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// loadModel constructs a model from CLI file arguments.
func loadModel(path, format, sourcePath string, permissive bool) (*annotation.Annotations, error) {
	var opts []annotation.Option
	if sourcePath != "" {
		opts = append(opts, annotation.WithSourceTextPath(sourcePath))
	}
	if permissive {
		opts = append(opts, annotation.Permissive())
	}
	return annotation.FromFile(path, format, opts...)
}

// formatForPath guesses a format tag from a file extension, defaulting to ann.
func formatForPath(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if strings.EqualFold(filepath.Ext(path), ".con") {
		return annotation.FormatCon
	}
	return annotation.FormatAnn
}

// ConvertCmd converts an annotation file to the standoff format.
type ConvertCmd struct {
	In         string `arg:"" help:"Input annotation file" type:"existingfile"`
	Out        string `arg:"" help:"Output standoff (.ann) file"`
	Format     string `help:"Input format tag (ann or con; default from extension)" enum:",ann,con" default:""`
	Source     string `help:"Raw source text file (mandatory for con input)" type:"existingfile" optional:""`
	Permissive bool   `help:"Skip text-versus-source validation"`
}

// Run executes the convert command.
func (c *ConvertCmd) Run() error {
	a, err := loadModel(c.In, formatForPath(c.In, c.Format), c.Source, c.Permissive)
	if err != nil {
		return err
	}
	if err := a.ToAnn(c.Out); err != nil {
		return err
	}
	fmt.Printf("Wrote %d entities and %d relations to %s\n", a.Len(), a.RelationCount(), c.Out)
	return nil
}

// DiffCmd compares two annotation files.
type DiffCmd struct {
	A          string `arg:"" help:"First annotation file" type:"existingfile"`
	B          string `arg:"" help:"Second annotation file" type:"existingfile"`
	Format     string `help:"Format tag for both files (default from extension)" enum:",ann,con" default:""`
	SourceA    string `name:"source-a" help:"Source text for the first file" type:"existingfile" optional:""`
	SourceB    string `name:"source-b" help:"Source text for the second file" type:"existingfile" optional:""`
	Check      bool   `help:"Fail when the two files cover different source documents"`
	JSON       bool   `help:"Emit the comparison as JSON"`
	Permissive bool   `help:"Skip text-versus-source validation"`
}

// Run executes the diff command.
func (c *DiffCmd) Run() error {
	a, err := loadModel(c.A, formatForPath(c.A, c.Format), c.SourceA, c.Permissive)
	if err != nil {
		return err
	}
	b, err := loadModel(c.B, formatForPath(c.B, c.Format), c.SourceB, c.Permissive)
	if err != nil {
		return err
	}

	var opts []compare.Option
	if c.Check {
		opts = append(opts, compare.WithCompatibilityCheck())
	}
	result, err := compare.Compare(a, b, opts...)
	if err != nil {
		return err
	}

	if c.JSON {
		return printJSON(result)
	}

	fmt.Printf("Comparison %s\n", result.ID)
	fmt.Printf("  only in %s: %d\n", c.A, len(result.OnlyInA))
	for _, e := range result.OnlyInA {
		fmt.Printf("    %s\n", e)
	}
	fmt.Printf("  only in %s: %d\n", c.B, len(result.OnlyInB))
	for _, e := range result.OnlyInB {
		fmt.Printf("    %s\n", e)
	}
	fmt.Printf("  common: %d\n", result.CommonCount)
	fmt.Printf("  label disagreements on identical spans: %d\n", len(result.Ambiguous))
	for _, e := range result.Ambiguous {
		fmt.Printf("    %s\n", e)
	}
	return nil
}

// StatsCmd prints descriptive statistics for an annotation file.
type StatsCmd struct {
	In         string `arg:"" help:"Annotation file" type:"existingfile"`
	Format     string `help:"Format tag (default from extension)" enum:",ann,con" default:""`
	Source     string `help:"Raw source text file" type:"existingfile" optional:""`
	JSON       bool   `help:"Emit the report as JSON"`
	Permissive bool   `help:"Skip text-versus-source validation"`
}

// Run executes the stats command.
func (c *StatsCmd) Run() error {
	a, err := loadModel(c.In, formatForPath(c.In, c.Format), c.Source, c.Permissive)
	if err != nil {
		return err
	}

	report := compare.Stats(a)
	if c.JSON {
		return printJSON(report)
	}

	fmt.Printf("Report %s\n", report.ID)
	fmt.Printf("  entities:  %d\n", report.EntityTotal)
	fmt.Printf("  relations: %d\n", report.RelationTotal)
	for _, label := range sortedKeys(report.EntityCounts) {
		fmt.Printf("  %-20s %d\n", label, report.EntityCounts[label])
	}
	return nil
}

// MatrixCmd prints a label confusion matrix for two annotation files.
type MatrixCmd struct {
	A          string   `arg:"" help:"First annotation file" type:"existingfile"`
	B          string   `arg:"" help:"Second annotation file" type:"existingfile"`
	Labels     []string `help:"Ordered labels indexing the matrix" required:""`
	Format     string   `help:"Format tag for both files (default from extension)" enum:",ann,con" default:""`
	SourceA    string   `name:"source-a" help:"Source text for the first file" type:"existingfile" optional:""`
	SourceB    string   `name:"source-b" help:"Source text for the second file" type:"existingfile" optional:""`
	Permissive bool     `help:"Skip text-versus-source validation"`
}

// Run executes the matrix command.
func (c *MatrixCmd) Run() error {
	a, err := loadModel(c.A, formatForPath(c.A, c.Format), c.SourceA, c.Permissive)
	if err != nil {
		return err
	}
	b, err := loadModel(c.B, formatForPath(c.B, c.Format), c.SourceB, c.Permissive)
	if err != nil {
		return err
	}

	matrix := compare.ConfusionMatrix(a, b, c.Labels)

	fmt.Printf("%-20s", "")
	for _, label := range c.Labels {
		fmt.Printf(" %12s", label)
	}
	fmt.Println()
	for i, row := range matrix {
		fmt.Printf("%-20s", c.Labels[i])
		for _, n := range row {
			fmt.Printf(" %12d", n)
		}
		fmt.Println()
	}
	return nil
}

// BundleGrp contains corpus bundle operations.
type BundleGrp struct {
	List BundleListCmd `cmd:"" help:"List the documents in a corpus bundle"`
}

// BundleListCmd lists the documents in a corpus bundle.
type BundleListCmd struct {
	Path string `arg:"" help:"Bundle path (.tar.gz or .tar.xz)" type:"existingfile"`
}

// Run executes the bundle list command.
func (c *BundleListCmd) Run() error {
	docs, err := bundle.Load(c.Path)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		source := "no source"
		if doc.HasSource {
			source = "with source"
		}
		fmt.Printf("%-30s %s (%s)\n", doc.Name, doc.Format, source)
	}
	fmt.Printf("%d documents\n", len(docs))
	return nil
}

// DBGroup contains corpus database operations.
type DBGroup struct {
	Import       DBImportCmd       `cmd:"" help:"Import annotation files into the corpus database"`
	ImportBundle DBImportBundleCmd `cmd:"" name:"import-bundle" help:"Import every document of a corpus bundle"`
	Counts       DBCountsCmd       `cmd:"" help:"Print corpus-wide entity counts per label"`
}

// DBImportCmd imports annotation files into the corpus database.
type DBImportCmd struct {
	DB         string   `help:"Corpus database path" required:""`
	Files      []string `arg:"" help:"Standoff annotation files" type:"existingfile"`
	Permissive bool     `help:"Skip text-versus-source validation"`
}

// Run executes the db import command.
func (c *DBImportCmd) Run() error {
	store, err := annotdb.Open(c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range c.Files {
		a, err := loadModel(path, formatForPath(path, ""), "", c.Permissive)
		if err != nil {
			return err
		}
		docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := store.SaveDocument(docID, a); err != nil {
			return err
		}
		fmt.Printf("Imported %s (%d entities, %d relations)\n", docID, a.Len(), a.RelationCount())
	}
	return nil
}

// DBImportBundleCmd imports every document of a corpus bundle.
type DBImportBundleCmd struct {
	DB     string `help:"Corpus database path" required:""`
	Bundle string `arg:"" help:"Bundle path (.tar.gz or .tar.xz)" type:"existingfile"`
}

// Run executes the db import-bundle command.
func (c *DBImportBundleCmd) Run() error {
	store, err := annotdb.Open(c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	models, err := bundle.Models(c.Bundle)
	if err != nil {
		return err
	}
	for _, name := range sortedModelNames(models) {
		if err := store.SaveDocument(name, models[name]); err != nil {
			return err
		}
		fmt.Printf("Imported %s (%d entities)\n", name, models[name].Len())
	}
	return nil
}

// DBCountsCmd prints corpus-wide entity counts per label.
type DBCountsCmd struct {
	DB string `help:"Corpus database path" required:"" type:"existingfile"`
}

// Run executes the db counts command.
func (c *DBCountsCmd) Run() error {
	store, err := annotdb.Open(c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.LabelCounts()
	if err != nil {
		return err
	}
	for _, label := range sortedKeys(counts) {
		fmt.Printf("%-20s %d\n", label, counts[label])
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("annot %s\n", version)
	return nil
}

// printJSON writes a value to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// sortedKeys returns the keys of a count map in lexical order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedModelNames(m map[string]*annotation.Annotations) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("annot"),
		kong.Description("Clinical annotation toolkit - convert, compare, and catalog standoff annotations"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

func logFormat(name string) logging.Format {
	if name == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
