package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/rankforge/pkg/agent/memory"
	"github.com/entrhq/rankforge/pkg/config"
	"github.com/entrhq/rankforge/pkg/dataset"
	"github.com/entrhq/rankforge/pkg/logging"
	"github.com/entrhq/rankforge/pkg/types"
)

// scriptProvider replays a fixed sequence of responses and records the
// prompts it was asked.
type scriptProvider struct {
	responses []string
	prompts   []string
}

func (p *scriptProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.prompts) > len(p.responses) {
		return "", errors.New("script exhausted")
	}
	return p.responses[len(p.prompts)-1], nil
}

func (p *scriptProvider) Model() string { return "script" }

type trainerFixture struct {
	cfg      *config.Config
	store    *memory.Store
	catalog  *dataset.Catalog
	sampler  *dataset.Sampler
	resolver *dataset.Resolver
	logger   *logging.Logger
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTrainerFixture builds a two-item world: positive b1 and negative b2,
// both in the Books domain, with u1's pool containing only b2 so the
// sampled negative is deterministic.
func newTrainerFixture(t *testing.T, variant types.Variant) *trainerFixture {
	t.Helper()

	cfg := &config.Config{
		Name:            "test",
		Variant:         variant,
		Domains:         []string{"Books", "Movies_and_TV", "Video_Games"},
		CandidateNum:    10,
		EvaluationTimes: 1,
		PromptStrategy:  types.StrategyBasic,
		Seed:            1,
	}

	catalogPath := writeFixture(t, "catalog.csv",
		"parent_asin,title,main_category\n"+
			"b1,The Silent Sea,Books\n"+
			"b2,Desert Storm,Books\n")
	catalog, err := dataset.LoadCatalog(catalogPath)
	require.NoError(t, err)

	poolPath := writeFixture(t, "pool.csv", "user_id,item_0\nu1,b2\n")
	pool, err := dataset.LoadCandidatePool(poolPath)
	require.NoError(t, err)

	resolver := dataset.NewResolver(cfg.Domains, cfg.MainCategory)
	sampler := dataset.NewSampler(resolver, map[string]*dataset.CandidatePool{"Books": pool}, cfg.Seed)

	store := memory.NewStore(t.TempDir(), "test")
	require.NoError(t, store.WriteItem("b1", "a sea novel"))
	require.NoError(t, store.WriteItem("b2", "a war novel"))

	logger, err := logging.NewLogger(t.TempDir(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	return &trainerFixture{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		sampler:  sampler,
		resolver: resolver,
		logger:   logger,
	}
}

func (f *trainerFixture) trainer(provider *scriptProvider, audit *AuditLog) *Trainer {
	return NewTrainer(f.cfg, f.store, f.catalog, f.sampler, f.resolver, provider, f.logger, audit)
}

func TestTrainerBaseStep(t *testing.T) {
	f := newTrainerFixture(t, types.VariantBase)
	require.NoError(t, f.store.WriteUser("u1", "I enjoy sea stories."))

	provider := &scriptProvider{responses: []string{
		"Choice: The Silent Sea\nExplanation: I love the ocean.",
		"My updated self-introduction: I am drawn to maritime fiction.",
		"The updated description of the first item is: a war novel for action fans\n" +
			"The updated description of the second item is: a contemplative sea novel",
	}}

	stats, err := f.trainer(provider, nil).Run(context.Background(),
		[]types.Interaction{{UserID: "u1", ItemID: "b1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Done)
	assert.Equal(t, 0, stats.Skipped)
	require.Len(t, provider.prompts, 3)

	// The choice prompt lists the negative first, the positive second.
	negIdx := strings.Index(provider.prompts[0], "Desert Storm")
	posIdx := strings.Index(provider.prompts[0], "The Silent Sea")
	require.Greater(t, negIdx, -1)
	require.Greater(t, posIdx, -1)
	assert.Less(t, negIdx, posIdx)

	userMem, err := f.store.ReadUser("u1")
	require.NoError(t, err)
	assert.Equal(t, "I am drawn to maritime fiction.", userMem)

	// The superseded introduction lands in the long-memory log.
	longMem, err := f.store.ReadLongMemory("u1")
	require.NoError(t, err)
	assert.Contains(t, longMem, "I am drawn to maritime fiction.")

	posMem, err := f.store.ReadItem("b1")
	require.NoError(t, err)
	assert.Equal(t, "a contemplative sea novel", posMem)

	negMem, err := f.store.ReadItem("b2")
	require.NoError(t, err)
	assert.Equal(t, "a war novel for action fans", negMem)
}

func TestTrainerBaseStepWrongChoice(t *testing.T) {
	f := newTrainerFixture(t, types.VariantBase)
	require.NoError(t, f.store.WriteUser("u1", "I enjoy war stories."))

	provider := &scriptProvider{responses: []string{
		"Choice: Desert Storm\nExplanation: war stories are my thing.",
		"My updated self-introduction: My taste is broader than I thought.",
		"The updated description of the first item is: n\n" +
			"The updated description of the second item is: p",
	}}

	stats, err := f.trainer(provider, nil).Run(context.Background(),
		[]types.Interaction{{UserID: "u1", ItemID: "b1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Done)

	// A wrong choice steers the backward prompts to the corrective wording.
	assert.Contains(t, provider.prompts[1], "wrong product")
	assert.Contains(t, provider.prompts[2], "not the chosen one")
}

func TestTrainerSkipsFailedStep(t *testing.T) {
	f := newTrainerFixture(t, types.VariantBase)
	require.NoError(t, f.store.WriteUser("u1", "original introduction"))

	provider := &scriptProvider{responses: []string{
		"no markers in this response at all",
	}}

	stats, err := f.trainer(provider, nil).Run(context.Background(),
		[]types.Interaction{{UserID: "u1", ItemID: "b1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Done)
	assert.Equal(t, 1, stats.Skipped)

	// Nothing was persisted.
	userMem, err := f.store.ReadUser("u1")
	require.NoError(t, err)
	assert.Equal(t, "original introduction", userMem)
}

func TestTrainerSkipsUnknownItem(t *testing.T) {
	f := newTrainerFixture(t, types.VariantBase)
	require.NoError(t, f.store.WriteUser("u1", "intro"))

	provider := &scriptProvider{}
	stats, err := f.trainer(provider, nil).Run(context.Background(),
		[]types.Interaction{{UserID: "u1", ItemID: "missing"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, provider.prompts)
}

func TestTrainerStopsOnCancel(t *testing.T) {
	f := newTrainerFixture(t, types.VariantBase)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.trainer(&scriptProvider{}, nil).Run(ctx,
		[]types.Interaction{{UserID: "u1", ItemID: "b1"}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTrainerCrossDomainStep(t *testing.T) {
	f := newTrainerFixture(t, types.VariantCrossDomain)
	require.NoError(t, f.store.WritePrivate("u1", "Books", "I read thrillers."))
	require.NoError(t, f.store.WriteCrossDomain("u1", "Books", "I prefer tense stories."))

	provider := &scriptProvider{responses: []string{
		"Choice: The Silent Sea\nExplanation: tension at sea.",
		"My updated self-introduction: I read slow-burn thrillers.",
		"My deduced preference: Across domains I want suspense.",
		"The updated description of the first item is: plain war novel\n" +
			"The updated description of the second item is: suspenseful sea novel",
	}}

	auditPath := filepath.Join(t.TempDir(), "case_study.txt")
	audit, err := NewAuditLog(auditPath)
	require.NoError(t, err)

	stats, err := f.trainer(provider, audit).Run(context.Background(),
		[]types.Interaction{{UserID: "u1", ItemID: "b1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Done)
	require.Len(t, provider.prompts, 4)

	// The forward choice reads the cross-domain preference, not the
	// private description.
	assert.Contains(t, provider.prompts[0], "I prefer tense stories.")

	private, err := f.store.ReadPrivate("u1", "Books")
	require.NoError(t, err)
	assert.Equal(t, "I read slow-burn thrillers.", private)

	cross, err := f.store.ReadCrossDomain("u1", "Books")
	require.NoError(t, err)
	assert.Equal(t, "Across domains I want suspense.", cross)

	// The item update sees the freshly merged preference.
	assert.Contains(t, provider.prompts[3], "Across domains I want suspense.")

	posMem, err := f.store.ReadItem("b1")
	require.NoError(t, err)
	assert.Equal(t, "suspenseful sea novel", posMem)

	// Both phases of the step landed in the audit log.
	raw, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "===before update===")
	assert.Contains(t, string(raw), "===after update===")
}
