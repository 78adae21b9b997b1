package sentiment

import (
	"reflect"
	"testing"
)

func TestTokenizeNormalizesAndFilters(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "punctuation and short tokens", text: "Great! App is ok.", want: []string{"great", "app"}},
		{name: "mixed case and digits", text: "Version 2024 WORKS Fine", want: []string{"version", "2024", "works", "fine"}},
		{name: "duplicates kept in order", text: "slow slow slow app", want: []string{"slow", "slow", "slow", "app"}},
		{name: "empty", text: "", want: nil},
		{name: "only noise", text: "!! ?? a b c", want: nil},
		{name: "whitespace runs", text: "  fast\t\tcheap \n delivery ", want: []string{"fast", "cheap", "delivery"}},
		{name: "embedded punctuation stripped in place", text: "don't worry, be-happy", want: []string{"dont", "worry", "behappy"}},
		{name: "unicode letters survive", text: "Déjà venue très vite", want: []string{"déjà", "venue", "très", "vite"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected terms: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTokenizeIsDeterministic(t *testing.T) {
	text := "The delivery was FAST, the app... not so much!"

	first := Tokenize(text)
	second := Tokenize(text)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical sequences, got %v then %v", first, second)
	}
}

func TestStemmingTokenizerReducesTerms(t *testing.T) {
	tokenize := StemmingTokenizer("english")

	got := tokenize("Running quickly jumped")
	want := []string{"run", "quick", "jump"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected stemmed terms: got %v, want %v", got, want)
	}
}

func TestStemmingTokenizerUnknownLanguageFallsBack(t *testing.T) {
	tokenize := StemmingTokenizer("klingon")

	got := tokenize("Great! App is ok.")
	want := []string{"great", "app"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected unstemmed terms for unknown language: got %v, want %v", got, want)
	}
}
