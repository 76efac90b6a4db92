package eval

import (
	"context"
	"fmt"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/entrhq/rankforge/pkg/agent/memory"
	"github.com/entrhq/rankforge/pkg/agent/prompts"
	"github.com/entrhq/rankforge/pkg/config"
	"github.com/entrhq/rankforge/pkg/dataset"
	"github.com/entrhq/rankforge/pkg/llm"
	"github.com/entrhq/rankforge/pkg/llm/parser"
	"github.com/entrhq/rankforge/pkg/logging"
	"github.com/entrhq/rankforge/pkg/types"
)

// maxRankRetries bounds how often a ranking prompt is reissued when the
// model returns a list of the wrong length. The regenerated list's content
// is not otherwise validated.
const maxRankRetries = 3

// promptTokenBudget caps the open-ended blocks (history, group memory) in
// the ranking prompt.
const promptTokenBudget = 6000

// Summary holds the aggregate metrics of one evaluation run.
type Summary struct {
	NDCG1     float64
	NDCG5     float64
	NDCG10    float64
	MRR       float64
	Evaluated int
	Skipped   int
}

// Evaluator replays the held-out feed and scores LLM rankings against the
// ground-truth next item.
type Evaluator struct {
	cfg      *config.Config
	store    *memory.Store
	catalog  *dataset.Catalog
	sampler  *dataset.Sampler
	resolver *dataset.Resolver
	provider llm.Provider
	log      *logging.Logger
	results  *logging.ResultLog
	groups   *dataset.GroupTable
}

// NewEvaluator wires an evaluator. groups may be nil to disable the group
// memory block; results may be nil to skip the aggregate log.
func NewEvaluator(cfg *config.Config, store *memory.Store, catalog *dataset.Catalog,
	sampler *dataset.Sampler, resolver *dataset.Resolver, provider llm.Provider,
	log *logging.Logger, results *logging.ResultLog, groups *dataset.GroupTable) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		sampler:  sampler,
		resolver: resolver,
		provider: provider,
		log:      log,
		results:  results,
		groups:   groups,
	}
}

// Run evaluates every held-out interaction, averaging NDCG@{1,5,10} and MRR
// across all ranking attempts, and appends the aggregates to the result
// log. Failed interactions are logged and skipped; only context
// cancellation stops the run.
func (e *Evaluator) Run(ctx context.Context, feed []types.Interaction) (*Summary, error) {
	var ndcg1, ndcg5, ndcg10, mrr []float64
	summary := &Summary{}

	for _, inter := range feed {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ranks, err := e.evaluateOne(ctx, feed, inter)
		if err != nil {
			e.log.Errorf("evaluation failed for user %s item %s: %v", inter.UserID, inter.ItemID, err)
			summary.Skipped++
			continue
		}
		for _, relevance := range ranks {
			ndcg10 = append(ndcg10, NDCG(relevance.scores, 10))
			ndcg5 = append(ndcg5, NDCG(relevance.scores, 5))
			ndcg1 = append(ndcg1, NDCG(relevance.scores, 1))
			mrr = append(mrr, ReciprocalRank(relevance.rank))
		}
		summary.Evaluated++
	}

	summary.NDCG1 = mean(ndcg1)
	summary.NDCG5 = mean(ndcg5)
	summary.NDCG10 = mean(ndcg10)
	summary.MRR = mean(mrr)

	if e.results != nil {
		block := fmt.Sprintf("%s:\nPrompt strategy: %s\nNDCG@10:  %v\nNDCG@5:  %v\nNDCG@1:  %v\nMRR:  %v\n\n",
			e.cfg.ExperimentName(), e.cfg.PromptStrategy, summary.NDCG10, summary.NDCG5, summary.NDCG1, summary.MRR)
		if err := e.results.Append(block); err != nil {
			e.log.Warnf("result log append failed: %v", err)
		}
	}
	return summary, nil
}

// rankedAttempt is one scored ranking: the 0/1 relevance list in rank order
// and the target's 1-indexed rank (0 when absent).
type rankedAttempt struct {
	scores []float64
	rank   int
}

// evaluateOne builds the ranking prompt for one interaction and runs it
// evaluation_times times to damp output randomness.
func (e *Evaluator) evaluateOne(ctx context.Context, feed []types.Interaction, inter types.Interaction) ([]rankedAttempt, error) {
	target, ok := e.catalog.Item(inter.ItemID)
	if !ok {
		return nil, fmt.Errorf("item %s not in catalog", inter.ItemID)
	}
	domain, err := e.resolver.Domain(target.MainCategory)
	if err != nil {
		return nil, err
	}

	negIDs, err := e.sampler.SampleN(target.MainCategory, inter.UserID, e.cfg.CandidateNum-1)
	if err != nil {
		return nil, err
	}
	candidates := append(negIDs, target.ID)
	e.sampler.Shuffle(candidates)

	userDescription, err := e.userDescription(inter.UserID, domain)
	if err != nil {
		return nil, err
	}

	// Unreadable candidate memory degrades to a placeholder rather than
	// aborting; one bad candidate shouldn't discard the interaction.
	lines := make([]string, 0, len(candidates))
	memories := make([]string, 0, len(candidates))
	for _, id := range candidates {
		mem, err := e.store.ReadItem(id)
		if err != nil {
			e.log.Warnf("candidate %s memory unreadable: %v", id, err)
			mem = "nan"
		}
		memories = append(memories, mem)
		lines = append(lines, prompts.ItemLine(e.catalog.Title(id), mem))
	}
	candidateList := prompts.CandidateList(lines)

	builder := prompts.NewEvalBuilder(userDescription, e.cfg.CandidateNum, candidateList).
		WithTokenBudget(promptTokenBudget)

	switch e.cfg.PromptStrategy {
	case types.StrategyHistory:
		builder.WithHistory(e.historyBlock(feed, inter))
	case types.StrategyRetrieval:
		retrieved, err := e.retrievedMemory(inter.UserID, memories)
		if err != nil {
			return nil, err
		}
		builder.WithRetrieved(retrieved)
	}

	if e.groups != nil {
		builder.WithGroupMemory(groupMemoryText(e.store, e.groups, inter.UserID, domain, e.cfg.GroupMemLength))
	}
	prompt := builder.Build()

	attempts := make([]rankedAttempt, 0, e.cfg.EvaluationTimes)
	for i := 0; i < e.cfg.EvaluationTimes; i++ {
		attempt, err := e.rankWithRetry(ctx, prompt, target.Title)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// userDescription reads the user memory for the prompt, shaped by variant.
func (e *Evaluator) userDescription(userID, domain string) (string, error) {
	if e.cfg.Variant != types.VariantCrossDomain {
		return e.store.ReadUser(userID)
	}

	crossPref, err := e.store.ReadCrossDomain(userID, domain)
	if err != nil {
		return "", err
	}
	if !e.cfg.UseIntermediateNode {
		return fmt.Sprintf("===My preferences in the type of goods in %s:===\n%s", domain, crossPref), nil
	}
	privateMem, err := e.store.ReadPrivate(userID, domain)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("===My preferences in the type of goods in %s:===\n%s\n===Moreover: ===\n%s",
		domain, privateMem, crossPref), nil
}

// historyBlock lists the user's other held-out items with their current
// memory. Unreadable entries are dropped.
func (e *Evaluator) historyBlock(feed []types.Interaction, current types.Interaction) string {
	var b strings.Builder
	for _, inter := range feed {
		if inter.UserID != current.UserID || inter.ItemID == current.ItemID {
			continue
		}
		mem, err := e.store.ReadItem(inter.ItemID)
		if err != nil {
			continue
		}
		b.WriteString(prompts.ItemLine(e.catalog.Title(inter.ItemID), mem))
		b.WriteString("\n")
	}
	return b.String()
}

// retrievedMemory picks the long-memory entry most similar to the candidate
// descriptions. The newest entry is the current short-term memory and is
// excluded unless it is all there is.
func (e *Evaluator) retrievedMemory(userID string, candidateMemories []string) (string, error) {
	longMem, err := e.store.ReadLongMemory(userID)
	if err != nil {
		return "", err
	}
	entries := strings.Split(longMem, memory.LongMemorySeparator)
	if len(entries) > 1 {
		entries = entries[:len(entries)-1]
	}

	query := strings.Join(candidateMemories, " ")
	idx := MostSimilar(entries, query)
	if idx < 0 {
		return "", nil
	}
	return entries[idx], nil
}

// rankWithRetry issues the ranking prompt, rescoring until the ranked list
// has the expected length or the retry bound is hit.
func (e *Evaluator) rankWithRetry(ctx context.Context, prompt, targetTitle string) (rankedAttempt, error) {
	attempt, err := e.rankOnce(ctx, prompt, targetTitle)
	if err != nil {
		return rankedAttempt{}, err
	}

	retries := 0
	for len(attempt.scores) != e.cfg.CandidateNum && retries < maxRankRetries {
		retries++
		e.log.Warnf("ranked list had %d entries, want %d; retry %d", len(attempt.scores), e.cfg.CandidateNum, retries)
		attempt, err = e.rankOnce(ctx, prompt, targetTitle)
		if err != nil {
			return rankedAttempt{}, err
		}
	}
	if len(attempt.scores) != e.cfg.CandidateNum {
		return rankedAttempt{}, fmt.Errorf("eval: ranked list length %d after %d retries, want %d",
			len(attempt.scores), maxRankRetries, e.cfg.CandidateNum)
	}
	return attempt, nil
}

// rankOnce asks for one ranking and converts it to a relevance list: the
// ranked title most similar to the target gets relevance 1, everything else
// 0. The target's rank is that position, 1-indexed.
func (e *Evaluator) rankOnce(ctx context.Context, prompt, targetTitle string) (rankedAttempt, error) {
	response, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		return rankedAttempt{}, err
	}
	titles := parser.ParseRanking(response)

	best, bestScore := -1, -1
	for i, title := range titles {
		score := fuzzy.Ratio(strings.ToLower(title), strings.ToLower(targetTitle))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	scores := make([]float64, len(titles))
	rank := 0
	if best >= 0 {
		scores[best] = 1.0
		rank = best + 1
	}
	return rankedAttempt{scores: scores, rank: rank}, nil
}
