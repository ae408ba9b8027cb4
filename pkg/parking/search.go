package parking

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	// hourlyRatePattern matches "$12/hr" or "$12.50/hr".
	hourlyRatePattern = regexp.MustCompile(`\$(\d+(?:\.\d{1,2})?)/hr`)

	// hoursPattern matches the word "Open" followed by a run of word
	// characters, spaces, hyphens and colons.
	hoursPattern = regexp.MustCompile(`\bOpen\b([\w\s\-:]+)`)
)

// ExtractHourlyRate returns the first "$<amount>/hr" figure in snippet, or
// nil. It is a heuristic: rates written any other way ("12 dollars an hour",
// "$5 per hour") are not found.
func ExtractHourlyRate(snippet string) *float64 {
	m := hourlyRatePattern.FindStringSubmatch(snippet)
	if m == nil {
		return nil
	}
	rate, err := strconv.ParseFloat(m[1], 64)
	if err != nil || rate < 0 {
		return nil
	}
	return &rate
}

// ExtractHours returns the text following the first "Open" in snippet, up to
// the first character outside the hours alphabet, or nil. Matching is case
// sensitive.
func ExtractHours(snippet string) *string {
	m := hoursPattern.FindStringSubmatch(snippet)
	if m == nil {
		return nil
	}
	hours := strings.TrimSpace(m[1])
	if hours == "" {
		return nil
	}
	return &hours
}

type searchResponse struct {
	Results json.RawMessage `json:"results"`
}

type searchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

func (r searchResult) text() string {
	switch {
	case r.Content != "":
		return r.Content
	case r.Snippet != "":
		return r.Snippet
	}
	return r.Description
}

// NormalizeSearchResults converts a web-search response into parking
// candidates for neighborhood. A payload without results is Ok and empty;
// results without a URL are skipped.
func NormalizeSearchResults(raw []byte, neighborhood string) ParseResult[[]Candidate] {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Malformed[[]Candidate]("decode search response: %v", err)
	}

	// A missing or non-array results field means "no results".
	var results []json.RawMessage
	if len(resp.Results) > 0 {
		if err := json.Unmarshal(resp.Results, &results); err != nil {
			slog.Debug("search results field is not an array", "error", err)
			results = nil
		}
	}

	out := make([]Candidate, 0, len(results))
	for i, rawResult := range results {
		var r searchResult
		if err := json.Unmarshal(rawResult, &r); err != nil {
			slog.Debug("skipping undecodable search result", "index", i, "error", err)
			continue
		}
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}

		text := r.text()
		out = append(out, Candidate{
			Name:         strings.TrimSpace(r.Title),
			Address:      strings.TrimSpace(r.Address),
			HourlyRate:   ExtractHourlyRate(text),
			Hours:        ExtractHours(text),
			Neighborhood: neighborhood,
			SourceURL:    url,
		})
	}
	return Ok(out)
}
