// Package pdfparser defines the PDFParser external collaborator: the
// third-party PDF text/section/table/metadata extractor named only via
// its interface, per the out-of-scope boundary — AnalysisPipeline
// depends on this surface and nothing more concrete.
package pdfparser

import "context"

// DocumentMetadata is the structured metadata PDFParser is responsible
// for extracting alongside the raw text: the contracting parties as a
// proper list (never a delimited string — a party name may itself
// contain a comma), plus the optional effective date and contract type
// a real extractor may or may not recognize. Extra carries any other
// key/value pairs the parser surfaces.
type DocumentMetadata struct {
	Parties       []string
	EffectiveDate string
	ContractType  string
	Extra         map[string]string
}

// Table is one parsed tabular region, rows of cell text in document
// order. PDFParser implementations that don't detect tables return nil.
type Table struct {
	Caption string
	Rows    [][]string
}

// ParsedDocument is PDFParser's output: the full extracted text, an
// ordered mapping of section name to section content, any detected
// tables, and structured metadata. Absent sections are acceptable — an
// empty map, not an error.
type ParsedDocument struct {
	Text     string
	Sections map[string]string
	Tables   []Table
	Metadata DocumentMetadata
}

// Parser is the PDFParser collaborator surface. filename is passed
// alongside the raw bytes since some extractors use it to pick a
// format-specific code path or to populate metadata the bytes alone
// don't carry (e.g. a filename-embedded contract type).
type Parser interface {
	Parse(ctx context.Context, pdfBytes []byte, filename string) (ParsedDocument, error)
}
