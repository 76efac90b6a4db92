// Package agent drives the memory update loop: one step per observed
// interaction, strictly in feed order, with per-step fault isolation. A
// step that fails for any reason is logged and skipped; the run itself
// never aborts on a step failure.
package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/entrhq/rankforge/pkg/agent/memory"
	"github.com/entrhq/rankforge/pkg/agent/prompts"
	"github.com/entrhq/rankforge/pkg/config"
	"github.com/entrhq/rankforge/pkg/dataset"
	"github.com/entrhq/rankforge/pkg/llm"
	"github.com/entrhq/rankforge/pkg/llm/parser"
	"github.com/entrhq/rankforge/pkg/logging"
	"github.com/entrhq/rankforge/pkg/types"
)

// RunStats summarizes a training run.
type RunStats struct {
	Total     int
	Done      int
	Skipped   int
	Snapshots int
}

// Trainer owns one experiment's training run: it reads memory, builds
// prompts, calls the LLM, parses the responses, and persists updated state.
// Processing is single-threaded; one interaction is fully resolved before
// the next begins, so the store never sees two writers.
type Trainer struct {
	cfg      *config.Config
	store    *memory.Store
	catalog  *dataset.Catalog
	sampler  *dataset.Sampler
	resolver *dataset.Resolver
	provider llm.Provider
	log      *logging.Logger
	audit    *AuditLog
}

// NewTrainer wires a trainer from its collaborators. audit may be nil; it
// is only consulted in the cross-domain variant.
func NewTrainer(cfg *config.Config, store *memory.Store, catalog *dataset.Catalog,
	sampler *dataset.Sampler, resolver *dataset.Resolver, provider llm.Provider,
	log *logging.Logger, audit *AuditLog) *Trainer {
	return &Trainer{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		sampler:  sampler,
		resolver: resolver,
		provider: provider,
		log:      log,
		audit:    audit,
	}
}

// Run processes the interaction feed in order. Every 10% of the feed the
// whole memory namespace is snapshotted to a ratio-suffixed copy, so
// intermediate checkpoints can be evaluated without rerunning. Run returns
// early only on context cancellation.
func (t *Trainer) Run(ctx context.Context, feed []types.Interaction) (*RunStats, error) {
	stats := &RunStats{Total: len(feed)}
	saveInterval := len(feed) / 10

	for i, inter := range feed {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if saveInterval > 0 && i%saveInterval == 0 && i != 0 {
			suffix := strconv.Itoa(i / saveInterval)
			if err := t.store.Snapshot(suffix); err != nil {
				t.log.Warnf("snapshot %s failed: %v", suffix, err)
			} else {
				stats.Snapshots++
			}
		}

		outcome, err := t.step(ctx, inter)
		if err != nil {
			// Fault isolation: the step either never wrote or is safe to
			// redo, so the failure costs one interaction at most.
			t.log.Errorf("step failed for user %s item %s: %v", inter.UserID, inter.ItemID, err)
			stats.Skipped++
			continue
		}
		stats.Done++
		t.log.Infof("user %s item %s done (neg %s, right=%t)",
			outcome.UserID, outcome.PosItemID, outcome.NegItemID, outcome.ChoiceRight)
	}
	return stats, nil
}

// step runs the per-interaction state machine: LoadState, SampleNegative,
// BuildChoicePrompt, Judge, BuildFeedbackPrompts, Persist.
func (t *Trainer) step(ctx context.Context, inter types.Interaction) (*types.StepOutcome, error) {
	if t.cfg.Variant == types.VariantCrossDomain {
		return t.stepCrossDomain(ctx, inter)
	}
	return t.stepBase(ctx, inter)
}

// loadPair resolves the positive item and samples a negative from the same
// domain's candidate pool, loading both memory strings.
type candidatePair struct {
	domain   string
	posItem  types.Item
	posMem   string
	negID    string
	negTitle string
	negMem   string
	list     string
}

func (t *Trainer) loadPair(inter types.Interaction) (*candidatePair, error) {
	posItem, ok := t.catalog.Item(inter.ItemID)
	if !ok {
		return nil, fmt.Errorf("item %s not in catalog", inter.ItemID)
	}

	domain, err := t.resolver.Domain(posItem.MainCategory)
	if err != nil {
		return nil, err
	}

	posMem, err := t.store.ReadItem(posItem.ID)
	if err != nil {
		return nil, err
	}

	negID, err := t.sampler.Sample(posItem.MainCategory, inter.UserID)
	if err != nil {
		return nil, err
	}
	negMem, err := t.store.ReadItem(negID)
	if err != nil {
		return nil, err
	}
	negTitle := t.catalog.Title(negID)

	// Fixed presentation order: negative first, positive second. The
	// backward prompts depend on it.
	list := prompts.CandidateList([]string{
		prompts.ItemLine(negTitle, negMem),
		prompts.ItemLine(posItem.Title, posMem),
	})

	return &candidatePair{
		domain:   domain,
		posItem:  posItem,
		posMem:   posMem,
		negID:    negID,
		negTitle: negTitle,
		negMem:   negMem,
		list:     list,
	}, nil
}

// choose runs the forward choice call and the correctness judgment.
func (t *Trainer) choose(ctx context.Context, userDescription string, pair *candidatePair) (selected, explanation string, right bool, err error) {
	response, err := t.provider.Complete(ctx, prompts.Choice(userDescription, pair.list))
	if err != nil {
		return "", "", false, err
	}
	selected, explanation, err = parser.ParseChoice(response)
	if err != nil {
		return "", "", false, err
	}
	return selected, explanation, ChoiceRight(selected, pair.posItem.Title, pair.negTitle), nil
}

// updateItems runs the backward item call and persists both descriptions.
func (t *Trainer) updateItems(ctx context.Context, userDescription string, pair *candidatePair,
	explanation string, right bool) (newPos, newNeg string, err error) {
	itemPrompt := prompts.ItemUpdate(userDescription, pair.list, pair.posItem.Title, pair.negTitle, explanation, right)
	response, err := t.provider.Complete(ctx, itemPrompt)
	if err != nil {
		return "", "", err
	}
	newNeg, newPos, err = parser.ParseItemUpdate(response)
	if err != nil {
		return "", "", err
	}
	if err := t.store.WriteItem(pair.posItem.ID, newPos); err != nil {
		return "", "", err
	}
	if err := t.store.WriteItem(pair.negID, newNeg); err != nil {
		return "", "", err
	}
	return newPos, newNeg, nil
}

// stepBase is the single-memory variant: three LLM calls per interaction
// (choice, user update, item update).
func (t *Trainer) stepBase(ctx context.Context, inter types.Interaction) (*types.StepOutcome, error) {
	pair, err := t.loadPair(inter)
	if err != nil {
		return nil, err
	}

	userMem, err := t.store.ReadUser(inter.UserID)
	if err != nil {
		return nil, err
	}

	selected, explanation, right, err := t.choose(ctx, userMem, pair)
	if err != nil {
		return nil, err
	}

	userPrompt := prompts.UserUpdate(userMem, pair.list, pair.posItem.Title, pair.negTitle, explanation, right)
	response, err := t.provider.Complete(ctx, userPrompt)
	if err != nil {
		return nil, err
	}
	newUserMem, err := parser.ParseUserUpdate(response)
	if err != nil {
		return nil, err
	}
	if err := t.store.WriteUser(inter.UserID, newUserMem); err != nil {
		return nil, err
	}
	if err := t.store.AppendLongMemory(inter.UserID, newUserMem); err != nil {
		return nil, err
	}

	newPos, newNeg, err := t.updateItems(ctx, userMem, pair, explanation, right)
	if err != nil {
		return nil, err
	}

	return &types.StepOutcome{
		UserID:        inter.UserID,
		PosItemID:     pair.posItem.ID,
		NegItemID:     pair.negID,
		Domain:        pair.domain,
		SelectedTitle: selected,
		Explanation:   explanation,
		ChoiceRight:   right,
		NewUserMemory: newUserMem,
		NewPosMemory:  newPos,
		NewNegMemory:  newNeg,
	}, nil
}

// stepCrossDomain is the four-call variant: the user's memory is split into
// a per-domain private description and an inferred cross-domain preference,
// and an extra merge call folds the private descriptions back into the
// preference after each update.
func (t *Trainer) stepCrossDomain(ctx context.Context, inter types.Interaction) (*types.StepOutcome, error) {
	pair, err := t.loadPair(inter)
	if err != nil {
		return nil, err
	}

	privateMem, err := t.store.ReadPrivate(inter.UserID, pair.domain)
	if err != nil {
		return nil, err
	}
	crossPref, err := t.store.ReadCrossDomain(inter.UserID, pair.domain)
	if err != nil {
		return nil, err
	}

	if t.audit != nil {
		t.audit.Before(inter.UserID, pair.posItem.ID, pair.domain, privateMem, crossPref, pair.posMem)
	}

	// The forward choice is made from the cross-domain preference; the
	// backward user update rewrites the in-domain private description.
	selected, explanation, right, err := t.choose(ctx, crossPref, pair)
	if err != nil {
		return nil, err
	}

	userPrompt := prompts.UserUpdate(privateMem, pair.list, pair.posItem.Title, pair.negTitle, explanation, right)
	response, err := t.provider.Complete(ctx, userPrompt)
	if err != nil {
		return nil, err
	}
	newPrivate, err := parser.ParseUserUpdate(response)
	if err != nil {
		return nil, err
	}
	if err := t.store.WritePrivate(inter.UserID, pair.domain, newPrivate); err != nil {
		return nil, err
	}

	privateAll, err := t.store.ConcatPrivate(inter.UserID)
	if err != nil {
		return nil, err
	}
	mergePrompt := prompts.CrossDomainMerge(crossPref, privateAll, pair.domain)
	response, err = t.provider.Complete(ctx, mergePrompt)
	if err != nil {
		return nil, err
	}
	newCross, err := parser.ParseCrossDomainUpdate(response)
	if err != nil {
		return nil, err
	}
	if err := t.store.WriteCrossDomain(inter.UserID, pair.domain, newCross); err != nil {
		return nil, err
	}

	// The item update sees the freshly merged preference.
	mergedPref, err := t.store.ReadCrossDomain(inter.UserID, pair.domain)
	if err != nil {
		return nil, err
	}
	newPos, newNeg, err := t.updateItems(ctx, mergedPref, pair, explanation, right)
	if err != nil {
		return nil, err
	}

	if t.audit != nil {
		t.audit.After(inter.UserID, pair.posItem.ID, pair.domain, newPrivate, privateAll, newCross, newPos)
	}

	return &types.StepOutcome{
		UserID:         inter.UserID,
		PosItemID:      pair.posItem.ID,
		NegItemID:      pair.negID,
		Domain:         pair.domain,
		SelectedTitle:  selected,
		Explanation:    explanation,
		ChoiceRight:    right,
		NewUserMemory:  newPrivate,
		NewCrossDomain: newCross,
		NewPosMemory:   newPos,
		NewNegMemory:   newNeg,
	}, nil
}
