package entrez

import (
	"encoding/json"
	"fmt"
)

// esearchResponse is the JSON shape of esearch.fcgi?retmode=json.
type esearchResponse struct {
	Result *esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	IDList []string `json:"idlist"`
}

// Record is one nuccore document summary.
type Record struct {
	UID string

	// AccessionVersion is the versioned accession (e.g. "PP478410.1").
	AccessionVersion string

	// Title is the record's descriptive title; strain names appear in it
	// slash-delimited.
	Title string
}

// esummaryResponse is the JSON shape of esummary.fcgi?retmode=json: a
// "result" object keyed by UID, plus a "uids" index list.
type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type docSummary struct {
	AccessionVersion string `json:"accessionversion"`
	Title            string `json:"title"`
}

// parseSummary extracts the record for uid from an esummary body.
// Any shape violation maps to ErrUnexpectedPayload.
func parseSummary(body []byte, uid string) (*Record, error) {
	var payload esummaryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: esummary: %v", ErrUnexpectedPayload, err)
	}
	if payload.Result == nil {
		return nil, fmt.Errorf("%w: esummary response missing result", ErrUnexpectedPayload)
	}

	raw, ok := payload.Result[uid]
	if !ok {
		return nil, fmt.Errorf("%w: esummary result missing entry for uid %s", ErrUnexpectedPayload, uid)
	}

	var doc docSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: esummary entry for uid %s: %v", ErrUnexpectedPayload, uid, err)
	}

	return &Record{
		UID:              uid,
		AccessionVersion: doc.AccessionVersion,
		Title:            doc.Title,
	}, nil
}
