package prompts

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// encoding lazily loads the tokenizer. Loading can fail offline (the BPE
// ranks are fetched on first use); callers fall back to a byte heuristic.
func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens returns the token count of s under the ranking model's
// encoding, or a 4-bytes-per-token estimate when the tokenizer is
// unavailable.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(s, nil, nil))
	}
	return (len(s) + 3) / 4
}

// TruncateHead trims s to at most budget tokens, dropping content from the
// front so the most recent part of a chronological block survives. A budget
// of zero or less yields the empty string.
func TruncateHead(s string, budget int) string {
	if s == "" || budget <= 0 {
		if budget <= 0 {
			return ""
		}
		return s
	}

	e := encoding()
	if e == nil {
		max := budget * 4
		if len(s) <= max {
			return s
		}
		return s[len(s)-max:]
	}

	tokens := e.Encode(s, nil, nil)
	if len(tokens) <= budget {
		return s
	}
	return e.Decode(tokens[len(tokens)-budget:])
}
