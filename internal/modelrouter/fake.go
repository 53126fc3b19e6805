package modelrouter

import (
	"context"

	"contractintel/internal/apperrors"
)

// FakeProvider is a deterministic Provider test double driven by an
// injected fault stream — the same shape seed test 6 describes: a caller
// queues up a sequence of outcomes ([Transient, Transient, OK, ...]) and
// each call to Generate consumes the next one.
type FakeProvider struct {
	Faults  []Fault
	calls   int
	Default ProviderResult
}

// Fault describes one queued outcome for FakeProvider.
type Fault struct {
	Kind   apperrors.Kind // empty means success
	Result ProviderResult
}

// OK queues a successful call returning result.
func OK(result ProviderResult) Fault { return Fault{Result: result} }

// Fail queues a failing call classified as kind.
func Fail(kind apperrors.Kind) Fault { return Fault{Kind: kind} }

func (f *FakeProvider) Generate(ctx context.Context, req ProviderRequest) (ProviderResult, error) {
	var fault Fault
	if f.calls < len(f.Faults) {
		fault = f.Faults[f.calls]
	} else {
		fault = OK(f.Default)
	}
	f.calls++

	if fault.Kind != "" {
		return ProviderResult{}, apperrors.New("provider.generate", fault.Kind, nil)
	}
	return fault.Result, nil
}

// Calls reports how many times Generate has been invoked.
func (f *FakeProvider) Calls() int { return f.calls }

// FakeEmbedder is a deterministic Embedder test double, hashing byte
// 3-grams into a fixed-size vector, so ModelRouter.Embed has an
// in-process collaborator for tests.
type FakeEmbedder struct {
	Dim int
}

func (f *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	dim := f.Dim
	if dim <= 0 {
		dim = 32
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t, dim)
	}
	return out, nil
}

func hashEmbed(s string, dim int) []float32 {
	v := make([]float32, dim)
	b := []byte(s)
	if len(b) < 3 {
		addGram(b, v)
		return v
	}
	for i := 0; i <= len(b)-3; i++ {
		addGram(b[i:i+3], v)
	}
	return v
}

func addGram(gram []byte, v []float32) {
	var h uint64 = 1469598103934665603
	for _, c := range gram {
		h ^= uint64(c)
		h *= 1099511628211
	}
	idx := int(h % uint64(len(v)))
	w := float32(int32(h>>32)) / float32(1<<31)
	v[idx] += w
}
