// Package parser extracts structured fields from free-text LLM responses.
//
// The model is asked to emit fixed marker strings ("Choice:",
// "Explanation:", "My updated self-introduction:", ...) and this package
// slices the response around them. A missing marker is reported as a
// *MalformedResponseError rather than an index panic, so the training loop
// can treat it as a per-step failure and move on.
package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker strings the prompts instruct the model to emit. The parsers and
// the prompt templates must agree on these exactly.
const (
	MarkerChoice      = "Choice:"
	MarkerExplanation = "Explanation:"
	MarkerUserUpdate  = "My updated self-introduction:"
	MarkerDeduced     = "My deduced preference:"
	MarkerFirstItem   = "The updated description of the first item is:"
	MarkerSecondItem  = "The updated description of the second item is:"
	MarkerRank        = "Rank:"
)

// MalformedResponseError reports a response that does not contain an
// expected marker. The snippet is truncated for log readability.
type MalformedResponseError struct {
	Marker  string
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("parser: response missing marker %q (got: %s)", e.Marker, e.Snippet)
}

func malformed(marker, response string) *MalformedResponseError {
	snippet := strings.TrimSpace(response)
	if len(snippet) > 120 {
		snippet = snippet[:120] + "..."
	}
	return &MalformedResponseError{Marker: marker, Snippet: snippet}
}

// ParseChoice extracts the selected item title and the model's explanation
// from a binary-choice response. The title is the remainder of the line
// carrying the "Choice:" marker; the explanation is everything after the
// last "Explanation:" marker.
func ParseChoice(response string) (selectedTitle, explanation string, err error) {
	idx := strings.Index(response, MarkerChoice)
	if idx < 0 {
		return "", "", malformed(MarkerChoice, response)
	}
	rest := response[idx+len(MarkerChoice):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	selectedTitle = strings.TrimSpace(rest)
	if selectedTitle == "" {
		return "", "", malformed(MarkerChoice, response)
	}

	eIdx := strings.LastIndex(response, MarkerExplanation)
	if eIdx < 0 {
		return "", "", malformed(MarkerExplanation, response)
	}
	explanation = strings.TrimSpace(response[eIdx+len(MarkerExplanation):])
	return selectedTitle, explanation, nil
}

// ParseUserUpdate extracts the rewritten self-introduction: everything after
// the last "My updated self-introduction:" marker.
func ParseUserUpdate(response string) (string, error) {
	return afterLastMarker(response, MarkerUserUpdate)
}

// ParseCrossDomainUpdate extracts the merged cross-domain preference:
// everything after the last "My deduced preference:" marker.
func ParseCrossDomainUpdate(response string) (string, error) {
	return afterLastMarker(response, MarkerDeduced)
}

// ParseItemUpdate extracts the two revised item descriptions. The first
// item in the prompt is the negative candidate, the second the positive, so
// the return order is (negative, positive).
func ParseItemUpdate(response string) (negDesc, posDesc string, err error) {
	firstIdx := strings.Index(response, MarkerFirstItem)
	if firstIdx < 0 {
		return "", "", malformed(MarkerFirstItem, response)
	}
	secondIdx := strings.Index(response, MarkerSecondItem)
	if secondIdx < 0 {
		return "", "", malformed(MarkerSecondItem, response)
	}
	if secondIdx < firstIdx {
		return "", "", malformed(MarkerFirstItem, response)
	}

	negDesc = strings.TrimSpace(response[firstIdx+len(MarkerFirstItem) : secondIdx])
	posDesc = strings.TrimSpace(response[secondIdx+len(MarkerSecondItem):])
	if negDesc == "" || posDesc == "" {
		return "", "", malformed(MarkerSecondItem, response)
	}
	return negDesc, posDesc, nil
}

// rankedLine matches a numbered ranking line and captures the title after
// the last "N." occurrence.
var rankedLine = regexp.MustCompile(`\d\.`)

// ParseRanking reconstructs a ranked title list from an evaluation
// response. Lines after the last "Rank:" marker that begin with a digit are
// treated as ranking entries; the title is whatever follows the final "N."
// on the line. A list of unexpected length is the caller's concern (it
// reissues the prompt), so no error is returned for short output.
func ParseRanking(response string) []string {
	section := response
	if idx := strings.LastIndex(response, MarkerRank); idx >= 0 {
		section = response[idx+len(MarkerRank):]
	}

	var titles []string
	for _, line := range strings.Split(section, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] < '0' || line[0] > '9' {
			continue
		}
		parts := rankedLine.Split(line, -1)
		titles = append(titles, strings.TrimSpace(parts[len(parts)-1]))
	}
	return titles
}

func afterLastMarker(response, marker string) (string, error) {
	idx := strings.LastIndex(response, marker)
	if idx < 0 {
		return "", malformed(marker, response)
	}
	out := strings.TrimSpace(response[idx+len(marker):])
	if out == "" {
		return "", malformed(marker, response)
	}
	return out, nil
}
