package zhihu

import (
	"encoding/json"
	"fmt"
)

// PageResponse is one page of the answer listing. Items are kept as raw
// JSON so snapshots hold exactly the bytes the API sent.
type PageResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging Paging            `json:"paging"`
}

// Paging carries the listing's pagination metadata
type Paging struct {
	// Totals is nil when the field is absent from the response
	Totals   *int   `json:"totals"`
	IsEnd    bool   `json:"is_end"`
	IsStart  bool   `json:"is_start"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

// Answer is the part of an answer record the crawler reads
type Answer struct {
	Author Author `json:"author"`
}

// Author identifies who wrote an answer
type Author struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	URLToken  string `json:"url_token"`
}

// TotalCount returns paging.totals and whether it was present
func (r *PageResponse) TotalCount() (int, bool) {
	if r == nil || r.Paging.Totals == nil {
		return 0, false
	}
	return *r.Paging.Totals, true
}

// DecodeAnswers parses a snapshot document, a JSON array of answer records
func DecodeAnswers(data []byte) ([]Answer, error) {
	var answers []Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return answers, nil
}
