// Package prompts builds the text prompts for every LLM call the trainer
// and evaluator make. All builders are pure templating over memory strings
// and metadata; no network or disk I/O happens here.
//
// Two prompt families exist: "forward" (the binary choice and the
// evaluation ranking) and "backward" (the memory updates), the backward
// family with reinforcing/corrective variants depending on whether the
// forward choice was judged correct.
package prompts

import (
	"fmt"
	"strings"
)

// ItemLine formats one item's title and memory for a candidate list. The
// description is the item's current self-description, not catalog text.
func ItemLine(title, memory string) string {
	return fmt.Sprintf("title:%s. description:%s", strings.TrimSpace(title), strings.TrimSpace(memory))
}

// CandidateList joins item lines for presentation, one per line. The
// trainer lists the negative item first, then the positive; ordering is
// fixed so the backward prompts can refer to "the first item" and "the
// second item".
func CandidateList(lines []string) string {
	return strings.Join(lines, "\n")
}

// Choice builds the forward binary-choice prompt.
func Choice(userDescription, candidateList string) string {
	var b strings.Builder
	b.WriteString("My self-introduction:\n")
	b.WriteString(strings.TrimSpace(userDescription))
	b.WriteString("\n\nThe two candidate products:\n")
	b.WriteString(candidateList)
	b.WriteString("\n\n")
	b.WriteString(choiceInstructions)
	return b.String()
}

// UserUpdate builds the backward prompt that rewrites the user's
// self-introduction. The wording differs by correctness: a wrong choice
// gets corrective framing, a right choice reinforcing framing.
func UserUpdate(userDescription, candidateList, posTitle, negTitle, explanation string, choiceRight bool) string {
	var b strings.Builder
	b.WriteString("My self-introduction:\n")
	b.WriteString(strings.TrimSpace(userDescription))
	b.WriteString("\n\nThe two candidate products were:\n")
	b.WriteString(candidateList)
	b.WriteString("\n\nThe product actually purchased: ")
	b.WriteString(strings.TrimSpace(posTitle))
	b.WriteString("\nThe other product: ")
	b.WriteString(strings.TrimSpace(negTitle))
	b.WriteString("\nThe explanation given for the choice: ")
	b.WriteString(strings.TrimSpace(explanation))
	b.WriteString("\n\n")
	if choiceRight {
		b.WriteString(userUpdateReinforcing)
	} else {
		b.WriteString(userUpdateCorrective)
	}
	return b.String()
}

// ItemUpdate builds the backward prompt that rewrites both candidate item
// descriptions. userDescription is the chooser's memory (the cross-domain
// preference in the cross-domain variant).
func ItemUpdate(userDescription, candidateList, posTitle, negTitle, explanation string, choiceRight bool) string {
	var b strings.Builder
	b.WriteString("The buyer's self-introduction:\n")
	b.WriteString(strings.TrimSpace(userDescription))
	b.WriteString("\n\nThe two candidate products:\n")
	b.WriteString(candidateList)
	b.WriteString("\n\nThe product actually purchased: ")
	b.WriteString(strings.TrimSpace(posTitle))
	b.WriteString("\nThe other product: ")
	b.WriteString(strings.TrimSpace(negTitle))
	if !choiceRight {
		b.WriteString("\nThe explanation given for the wrong choice: ")
		b.WriteString(strings.TrimSpace(explanation))
	}
	b.WriteString("\n\n")
	if choiceRight {
		b.WriteString(itemUpdateReinforcing)
	} else {
		b.WriteString(itemUpdateCorrective)
	}
	return b.String()
}

// CrossDomainMerge builds the prompt that folds the user's per-domain
// private descriptions into an updated cross-domain preference for the
// given domain.
func CrossDomainMerge(currentPreference, privateDescriptions, domain string) string {
	var b strings.Builder
	b.WriteString("My current cross-domain preference:\n")
	b.WriteString(strings.TrimSpace(currentPreference))
	b.WriteString("\n\nMy preferences in each domain:\n")
	b.WriteString(strings.TrimSpace(privateDescriptions))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, crossDomainMerge, domain)
	return b.String()
}

// CrossDomainUserDescription assembles the choice-time user description for
// the cross-domain variant: the in-domain private memory plus the inferred
// cross-domain preference.
func CrossDomainUserDescription(domain, privateMemory, crossPreference string) string {
	return fmt.Sprintf("My preferences in the type of goods in %s: %s\nMoreover, %s",
		domain, privateMemory, crossPreference)
}
