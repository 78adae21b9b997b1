package main

import (
	"time"

	"github.com/sentimentd/sentimentd/feedback"
	"github.com/sentimentd/sentimentd/sentiment"
)

// EntryResponse is the API shape of one stored feedback entry.
type EntryResponse struct {
	ID        string
	Text      string
	Label     sentiment.Category
	Labeled   bool
	Scores    map[sentiment.Category]float64 `json:",omitempty"`
	CreatedAt time.Time
}

// NewEntryResponse gets an assembled instance of EntryResponse.
func NewEntryResponse(entry feedback.Entry) EntryResponse {
	return EntryResponse{
		ID:        entry.ID,
		Text:      entry.Text,
		Label:     entry.Label,
		Labeled:   entry.Labeled,
		Scores:    entry.Scores,
		CreatedAt: entry.CreatedAt,
	}
}

// NewEntryListResponse maps stored entries onto their API shape.
func NewEntryListResponse(entries []feedback.Entry) []EntryResponse {
	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewEntryResponse(entry))
	}
	return responses
}

// InfoResponse reports corpus and model statistics.
type InfoResponse struct {
	Entries        int
	Labeled        int
	Documents      map[sentiment.Category]int
	TotalDocuments int
	VocabularySize int
}

// NewInfoResponse gets an assembled instance of InfoResponse.
func NewInfoResponse(info feedback.Info) InfoResponse {
	return InfoResponse{
		Entries:        info.Entries,
		Labeled:        info.Labeled,
		Documents:      info.DocumentCounts,
		TotalDocuments: info.TotalDocuments,
		VocabularySize: info.VocabularySize,
	}
}

// ImportResponse reports the outcome of a bulk import.
type ImportResponse struct {
	Imported int
	Info     InfoResponse
}

// DraftResponse carries a reply drafted by the assist collaborator.
type DraftResponse struct {
	Draft string
}
