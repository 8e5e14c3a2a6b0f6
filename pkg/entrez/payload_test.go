package entrez

import (
	"errors"
	"testing"
)

func TestParseSummary(t *testing.T) {
	body := []byte(`{
		"header": {"type": "esummary", "version": "0.3"},
		"result": {
			"uids": ["2713407330"],
			"2713407330": {
				"uid": "2713407330",
				"accessionversion": "PP478410.1",
				"title": "Severe acute respiratory syndrome coronavirus 2 isolate SARS-CoV-2/human/USA/WA-PHL-007327/2024, complete genome"
			}
		}
	}`)

	rec, err := parseSummary(body, "2713407330")
	if err != nil {
		t.Fatalf("parseSummary() error = %v", err)
	}

	if rec.AccessionVersion != "PP478410.1" {
		t.Errorf("AccessionVersion = %q, want PP478410.1", rec.AccessionVersion)
	}
	if rec.UID != "2713407330" {
		t.Errorf("UID = %q, want 2713407330", rec.UID)
	}
}

func TestParseSummary_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		uid  string
	}{
		{
			name: "not json",
			body: `<?xml version="1.0"?><eSummaryResult/>`,
			uid:  "1",
		},
		{
			name: "missing result",
			body: `{"header": {}}`,
			uid:  "1",
		},
		{
			name: "missing uid entry",
			body: `{"result": {"uids": ["1"]}}`,
			uid:  "1",
		},
		{
			name: "entry wrong type",
			body: `{"result": {"1": "not an object"}}`,
			uid:  "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSummary([]byte(tt.body), tt.uid)
			if !errors.Is(err, ErrUnexpectedPayload) {
				t.Errorf("parseSummary() error = %v, want ErrUnexpectedPayload", err)
			}
		})
	}
}

func TestParseSummary_AbsentAccessionIsNotShapeError(t *testing.T) {
	// A well-formed docsum without an accession still parses; the
	// resolver decides what an empty accession means.
	body := []byte(`{"result": {"uids": ["9"], "9": {"uid": "9", "title": "something"}}}`)

	rec, err := parseSummary(body, "9")
	if err != nil {
		t.Fatalf("parseSummary() error = %v", err)
	}
	if rec.AccessionVersion != "" {
		t.Errorf("AccessionVersion = %q, want empty", rec.AccessionVersion)
	}
}

func TestBodyRateLimit(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "rate limit error",
			body: `{"error":"API rate limit exceeded","api-key":"1.2.3.4","count":"11"}`,
			want: true,
		},
		{
			name: "other error field",
			body: `{"error":"something else"}`,
			want: false,
		},
		{
			name: "normal search result",
			body: `{"esearchresult":{"idlist":["1"]}}`,
			want: false,
		},
		{
			name: "non-object body",
			body: `[1,2,3]`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := bodyRateLimit([]byte(tt.body))
			if got != tt.want {
				t.Errorf("bodyRateLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}
