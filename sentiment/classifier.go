package sentiment

import "math"

// Document is a labeled text sample used to fit the model.
type Document struct {
	Text  string
	Label Category
}

// Prediction is the outcome of classifying one piece of text: the winning
// category and the log-probability score of every category, winners and
// losers alike, so callers can rank or render confidence.
type Prediction struct {
	Label  Category             `json:"label"`
	Scores map[Category]float64 `json:"scores"`
}

// priorFloor keeps the prior finite when a category has no training documents.
const priorFloor = 0.1

// model holds the statistics of the most recent fit.
type model struct {
	termFreq  map[Category]map[string]int
	docCount  map[Category]int
	vocab     map[string]struct{}
	totalDocs int
}

func newModel() model {
	m := model{
		termFreq: make(map[Category]map[string]int, len(Categories())),
		docCount: make(map[Category]int, len(Categories())),
		vocab:    make(map[string]struct{}),
	}
	for _, cat := range Categories() {
		m.termFreq[cat] = make(map[string]int)
	}
	return m
}

// Classifier assigns sentiment categories to text samples using multinomial
// naive Bayes over bag-of-words counts. Fit and Predict are synchronous pure
// computations; a Classifier is not safe for concurrent use and callers must
// serialize access to a shared instance.
type Classifier struct {
	tokenize func(string) []string
	model    model
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTokenizer replaces the default tokenizer. A nil tokenizer is ignored.
func WithTokenizer(tokenize func(string) []string) Option {
	return func(c *Classifier) {
		if tokenize != nil {
			c.tokenize = tokenize
		}
	}
}

// NewClassifier returns a classifier with an empty model.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		tokenize: Tokenize,
		model:    newModel(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fit replaces all model state with statistics computed from docs. Nothing
// from a previous fit survives; fitting an empty corpus leaves an empty model
// that still predicts. The result does not depend on document order. Labels
// are used as-is; passing a label outside the fixed category set is a caller
// error whose counts are stored but never scored.
func (c *Classifier) Fit(docs []Document) {
	next := newModel()
	for _, doc := range docs {
		next.docCount[doc.Label]++
		next.totalDocs++

		freq := next.termFreq[doc.Label]
		if freq == nil {
			freq = make(map[string]int)
			next.termFreq[doc.Label] = freq
		}
		for _, term := range c.tokenize(doc.Text) {
			freq[term]++
			next.vocab[term] = struct{}{}
		}
	}
	c.model = next
}

// Predict scores text against every category and returns the winner along
// with the full score map. It never fails and never mutates the model: empty
// text, an empty model, and unseen terms all degrade to smoothed scores. The
// running best starts at Neutral with an infinitely low score and only a
// strictly greater score replaces it, so exact ties go to whichever category
// scored first in Categories() order.
func (c *Classifier) Predict(text string) Prediction {
	terms := c.tokenize(text)
	scores := make(map[Category]float64, len(Categories()))

	best := Neutral
	bestScore := math.Inf(-1)
	for _, cat := range Categories() {
		score := c.model.score(cat, terms)
		scores[cat] = score
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}

	return Prediction{Label: best, Scores: scores}
}

// score computes the log-space naive Bayes score for one category: a floored
// log prior plus a Laplace-smoothed log likelihood per term occurrence.
func (m model) score(cat Category, terms []string) float64 {
	prior := math.Max(float64(m.docCount[cat]), priorFloor) / math.Max(float64(m.totalDocs), 1)
	score := math.Log(prior)

	tally := 0
	for _, count := range m.termFreq[cat] {
		tally += count
	}
	denominator := math.Max(float64(tally+len(m.vocab)), 1)

	for _, term := range terms {
		score += math.Log((float64(m.termFreq[cat][term]) + 1) / denominator)
	}
	return score
}

// VocabularySize reports the number of distinct terms in the current model.
func (c *Classifier) VocabularySize() int {
	return len(c.model.vocab)
}

// DocumentCounts reports the training document count of every category.
func (c *Classifier) DocumentCounts() map[Category]int {
	counts := make(map[Category]int, len(Categories()))
	for _, cat := range Categories() {
		counts[cat] = c.model.docCount[cat]
	}
	return counts
}

// TotalDocuments reports the number of documents in the most recent fit.
func (c *Classifier) TotalDocuments() int {
	return c.model.totalDocs
}
