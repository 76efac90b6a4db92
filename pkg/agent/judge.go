package agent

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// ChoiceRight judges whether the model's selected title refers to the
// positive candidate. Model output rarely repeats a title byte-for-byte, so
// the judgment is a fuzzy-ratio comparison against both candidates, case
// folded. Strict > means ties and near-ties resolve toward "incorrect".
func ChoiceRight(selectedTitle, posTitle, negTitle string) bool {
	selected := strings.ToLower(selectedTitle)
	posScore := fuzzy.Ratio(selected, strings.ToLower(posTitle))
	negScore := fuzzy.Ratio(selected, strings.ToLower(negTitle))
	return posScore > negScore
}
