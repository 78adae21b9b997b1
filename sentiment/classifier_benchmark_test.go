package sentiment

import (
	"strings"
	"testing"
)

// buildBenchmarkCorpus creates a labeled corpus large enough to exercise the
// term-count maps.
func buildBenchmarkCorpus() []Document {
	return []Document{
		{Text: strings.Repeat("great fast friendly delivery excellent ", 50), Label: Positive},
		{Text: strings.Repeat("terrible slow rude broken refund ", 50), Label: Negative},
		{Text: strings.Repeat("arrived package ordered tuesday invoice ", 50), Label: Neutral},
	}
}

// BenchmarkFit benchmarks a full model rebuild.
func BenchmarkFit(b *testing.B) {
	corpus := buildBenchmarkCorpus()
	classifier := NewClassifier()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		classifier.Fit(corpus)
	}
}

// BenchmarkPredict benchmarks scoring against a fitted model.
func BenchmarkPredict(b *testing.B) {
	classifier := NewClassifier()
	classifier.Fit(buildBenchmarkCorpus())
	sample := "delivery was slow but the refund arrived fast"

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = classifier.Predict(sample)
	}
}

// BenchmarkTokenize benchmarks normalization of a typical feedback snippet.
func BenchmarkTokenize(b *testing.B) {
	sample := strings.Repeat("The delivery was FAST, the app... not so much! ", 10)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Tokenize(sample)
	}
}
