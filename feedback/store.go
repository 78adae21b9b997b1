package feedback

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentimentd/sentimentd/sentiment"
)

var (
	// ErrNotFound is returned when no entry carries the requested id.
	ErrNotFound = errors.New("feedback: entry not found")
	// ErrInvalidCategory is returned when a label is outside the category set.
	ErrInvalidCategory = errors.New("feedback: invalid category")
	// ErrEmptyText is returned when a feedback text is empty or blank.
	ErrEmptyText = errors.New("feedback: empty text")
)

// Entry is one stored piece of customer feedback.
type Entry struct {
	ID      string
	Text    string
	Label   sentiment.Category
	Labeled bool // the label came from a person rather than the model
	// Scores carries the per-category prediction for machine-labeled
	// entries; human-labeled entries carry none.
	Scores    map[sentiment.Category]float64
	CreatedAt time.Time
}

// Info is a point-in-time summary of the corpus and the fitted model.
type Info struct {
	Entries        int
	Labeled        int
	DocumentCounts map[sentiment.Category]int
	TotalDocuments int
	VocabularySize int
}

// Store owns the feedback corpus and the classifier fitted from it. Only
// human-labeled entries form the training corpus; any change to them re-fits
// the model from the complete corpus and re-scores every machine-labeled
// entry, so corrections feed straight back into future classifications. All
// classifier access is serialized here; the classifier itself is unsynchronized.
type Store struct {
	mu         sync.RWMutex
	classifier *sentiment.Classifier
	entries    map[string]*Entry
	order      []string

	now   func() time.Time
	newID func() string
}

// NewStore returns an empty store around classifier. A nil classifier gets
// replaced with a default one.
func NewStore(classifier *sentiment.Classifier) *Store {
	if classifier == nil {
		classifier = sentiment.NewClassifier()
	}
	return &Store{
		classifier: classifier,
		entries:    make(map[string]*Entry),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Add classifies text against the current model and stores it under the
// predicted label.
func (s *Store) Add(text string) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prediction := s.classifier.Predict(text)
	entry := &Entry{
		ID:        s.newID(),
		Text:      text,
		Label:     prediction.Label,
		Scores:    prediction.Scores,
		CreatedAt: s.now(),
	}
	s.insertLocked(entry)
	return cloneEntry(entry), nil
}

// AddLabeled stores text under a human-supplied label and re-fits the model
// from the updated corpus.
func (s *Store) AddLabeled(text string, label sentiment.Category) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, ErrEmptyText
	}
	if _, ok := sentiment.ParseCategory(string(label)); !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidCategory, label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{
		ID:        s.newID(),
		Text:      text,
		Label:     label,
		Labeled:   true,
		CreatedAt: s.now(),
	}
	s.insertLocked(entry)
	s.refitLocked()
	return cloneEntry(entry), nil
}

// Relabel corrects an entry's label, promotes it into the training corpus,
// and re-fits the model so the correction affects every later prediction.
func (s *Store) Relabel(id string, label sentiment.Category) (Entry, error) {
	if _, ok := sentiment.ParseCategory(string(label)); !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidCategory, label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	entry.Label = label
	entry.Labeled = true
	entry.Scores = nil
	s.refitLocked()
	return cloneEntry(entry), nil
}

// Remove deletes an entry. Removing a human-labeled entry re-fits the model
// without it.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if entry.Labeled {
		s.refitLocked()
	}
	return nil
}

// ImportDocuments bulk-adds human-labeled documents with a single re-fit.
// The batch is validated up front; an invalid document imports nothing.
func (s *Store) ImportDocuments(docs []sentiment.Document) (int, error) {
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			return 0, ErrEmptyText
		}
		if _, ok := sentiment.ParseCategory(string(doc.Label)); !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, doc.Label)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.insertLocked(&Entry{
			ID:        s.newID(),
			Text:      doc.Text,
			Label:     doc.Label,
			Labeled:   true,
			CreatedAt: s.now(),
		})
	}
	if len(docs) > 0 {
		s.refitLocked()
	}
	return len(docs), nil
}

// Classify scores text against the current model without storing anything.
func (s *Store) Classify(text string) sentiment.Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier.Predict(text)
}

// Get returns a copy of the entry with the given id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return cloneEntry(entry), nil
}

// Entries returns copies of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, cloneEntry(s.entries[id]))
	}
	return entries
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush drops every entry and resets the model to its empty state.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry)
	s.order = nil
	s.classifier.Fit(nil)
}

// Info summarizes the corpus and the current model statistics.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labeled := 0
	for _, entry := range s.entries {
		if entry.Labeled {
			labeled++
		}
	}
	return Info{
		Entries:        len(s.entries),
		Labeled:        labeled,
		DocumentCounts: s.classifier.DocumentCounts(),
		TotalDocuments: s.classifier.TotalDocuments(),
		VocabularySize: s.classifier.VocabularySize(),
	}
}

func (s *Store) insertLocked(entry *Entry) {
	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)
}

// refitLocked rebuilds the model from the complete labeled corpus and
// re-scores every machine-labeled entry against it.
func (s *Store) refitLocked() {
	docs := make([]sentiment.Document, 0, len(s.order))
	for _, id := range s.order {
		entry := s.entries[id]
		if entry.Labeled {
			docs = append(docs, sentiment.Document{Text: entry.Text, Label: entry.Label})
		}
	}
	s.classifier.Fit(docs)

	for _, id := range s.order {
		entry := s.entries[id]
		if entry.Labeled {
			continue
		}
		prediction := s.classifier.Predict(entry.Text)
		entry.Label = prediction.Label
		entry.Scores = prediction.Scores
	}
}

func cloneEntry(entry *Entry) Entry {
	clone := *entry
	if entry.Scores != nil {
		clone.Scores = make(map[sentiment.Category]float64, len(entry.Scores))
		for cat, score := range entry.Scores {
			clone.Scores[cat] = score
		}
	}
	return clone
}
