package pdfparser

import (
	"context"

	"contractintel/internal/apperrors"
)

// Fake is a fixture-backed Parser for tests and the demo entrypoint: it
// returns a pre-recorded ParsedDocument keyed by the input bytes'
// string form, so callers can seed fixtures without a real PDF.
type Fake struct {
	Fixtures map[string]ParsedDocument
	Err      error
}

// NewFake constructs a Fake with no fixtures registered.
func NewFake() *Fake {
	return &Fake{Fixtures: make(map[string]ParsedDocument)}
}

// WithFixture registers the ParsedDocument to return when pdfBytes,
// interpreted as a string, equals key.
func (f *Fake) WithFixture(key string, doc ParsedDocument) *Fake {
	f.Fixtures[key] = doc
	return f
}

func (f *Fake) Parse(_ context.Context, pdfBytes []byte, _ string) (ParsedDocument, error) {
	if f.Err != nil {
		return ParsedDocument{}, apperrors.New("pdfparser.parse", apperrors.KindFatal, f.Err)
	}
	key := string(pdfBytes)
	if doc, ok := f.Fixtures[key]; ok {
		return doc, nil
	}
	return ParsedDocument{Text: key, Sections: map[string]string{}}, nil
}
