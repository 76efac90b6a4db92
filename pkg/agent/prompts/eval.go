package prompts

import (
	"fmt"
	"strings"
)

// EvalBuilder constructs the evaluation ranking prompt. The basic strategy
// uses only the user description and the candidate list; history, retrieved
// long-term memory, and group memory are optional blocks layered on top.
type EvalBuilder struct {
	userDescription string
	candidateNum    int
	candidateList   string
	history         string
	retrieved       string
	groupMemory     string
	tokenBudget     int
}

// NewEvalBuilder creates a builder for one ranking call.
func NewEvalBuilder(userDescription string, candidateNum int, candidateList string) *EvalBuilder {
	return &EvalBuilder{
		userDescription: userDescription,
		candidateNum:    candidateNum,
		candidateList:   candidateList,
	}
}

// WithHistory adds the user's historical interactions block (B+H strategy).
func (eb *EvalBuilder) WithHistory(history string) *EvalBuilder {
	eb.history = history
	return eb
}

// WithRetrieved adds the most similar long-term memory entry (B+R strategy).
func (eb *EvalBuilder) WithRetrieved(memory string) *EvalBuilder {
	eb.retrieved = memory
	return eb
}

// WithGroupMemory adds the shared interest-group block.
func (eb *EvalBuilder) WithGroupMemory(groupMemory string) *EvalBuilder {
	eb.groupMemory = groupMemory
	return eb
}

// WithTokenBudget caps the history and group memory blocks so the prompt
// stays within the given token count. Zero disables truncation.
func (eb *EvalBuilder) WithTokenBudget(tokens int) *EvalBuilder {
	eb.tokenBudget = tokens
	return eb
}

// Build assembles the complete ranking prompt.
func (eb *EvalBuilder) Build() string {
	history := eb.history
	groupMemory := eb.groupMemory
	if eb.tokenBudget > 0 {
		// The fixed blocks always ship whole; only the open-ended blocks
		// are trimmed, oldest content first.
		fixed := CountTokens(eb.userDescription) + CountTokens(eb.candidateList) + CountTokens(eb.retrieved)
		remaining := eb.tokenBudget - fixed
		if remaining < 0 {
			remaining = 0
		}
		history = TruncateHead(history, remaining/2)
		groupMemory = TruncateHead(groupMemory, remaining-CountTokens(history))
	}

	var b strings.Builder
	b.WriteString("My self-introduction:\n")
	b.WriteString(strings.TrimSpace(eb.userDescription))
	b.WriteString("\n")

	if eb.retrieved != "" {
		b.WriteString("\nA relevant earlier version of my self-introduction:\n")
		b.WriteString(strings.TrimSpace(eb.retrieved))
		b.WriteString("\n")
	}

	if history != "" {
		b.WriteString("\nProducts I have interacted with before:\n")
		b.WriteString(strings.TrimSpace(history))
		b.WriteString("\n")
	}

	if groupMemory != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(groupMemory))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nThe %d candidate products:\n", eb.candidateNum)
	b.WriteString(eb.candidateList)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, evalRankInstructions, eb.candidateNum, eb.candidateNum)
	return b.String()
}
