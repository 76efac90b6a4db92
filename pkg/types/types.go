// Package types defines the core value types shared across rankforge
// packages: interaction records, catalog items, and per-step outcomes.
package types

// Variant selects the memory layout used for a run.
type Variant string

const (
	// VariantBase keeps a single free-text self-introduction per user.
	VariantBase Variant = "base"

	// VariantCrossDomain keeps a private in-domain description and an
	// inferred cross-domain preference per (user, domain) pair.
	VariantCrossDomain Variant = "crossdomain"
)

// Strategy selects how the evaluation prompt is assembled.
type Strategy string

const (
	// StrategyBasic ranks candidates against the current user memory only.
	StrategyBasic Strategy = "B"

	// StrategyHistory additionally lists the user's other held-out
	// interactions as historical context.
	StrategyHistory Strategy = "B+H"

	// StrategyRetrieval additionally injects the long-memory entry most
	// similar to the candidate descriptions.
	StrategyRetrieval Strategy = "B+R"
)

// Interaction is one observed user-item event from the interaction feed.
// Records are immutable and must be processed in ascending timestamp order;
// memory state depends on everything that came before.
type Interaction struct {
	UserID    string
	ItemID    string
	Timestamp int64
	Rating    float64
}

// Item is one row of the item catalog.
type Item struct {
	ID           string
	Title        string
	Subtitle     string
	MainCategory string
	Categories   string
	Price        string
}

// StepOutcome captures what a single training step decided and wrote. It is
// ephemeral: the trainer persists the memory strings and discards the rest,
// save for the audit log.
type StepOutcome struct {
	UserID        string
	PosItemID     string
	NegItemID     string
	Domain        string
	SelectedTitle string
	Explanation   string
	ChoiceRight   bool

	NewUserMemory  string
	NewCrossDomain string
	NewPosMemory   string
	NewNegMemory   string
}
