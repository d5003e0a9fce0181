// Package reflective implements the reflective-mutation proposer from
// spec component J: execute, reflect, propose new text, verify.
package reflective

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// Proposer runs one reflective-mutation attempt per Propose call. It never
// admits programs itself — the engine decides acceptance and calls
// state.Admit; it only records its evaluations via State.AddEvaluations.
type Proposer[ID comparable, D any, T any, R any] struct {
	Adapter           ports.Adapter[D, T, R]
	CandidateSelector ports.CandidateSelector[ID]
	ComponentSelector ports.ComponentSelector[ID]
	BatchSampler      ports.BatchSampler[ID]
	LM                ports.ReflectionLM // used only if Adapter doesn't implement ports.TextProposer

	PerfectScore     float64
	SkipPerfectScore bool

	// Logger defaults to slog.Default() when nil; struct literals built
	// by the wiring layer are not required to set it.
	Logger *slog.Logger
}

func (p *Proposer[ID, D, T, R]) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Propose returns (nil, nil) when no proposal should be made (the perfect-
// score gate tripped, or the component selector chose no components), and
// (nil, err) on any adapter/LM/sampler failure.
func (p *Proposer[ID, D, T, R]) Propose(ctx context.Context, s *state.State[ID], loader ports.DataLoader[ID, D], rng *rand.Rand) (*core.Proposal[ID], error) {
	parentIdx, err := p.CandidateSelector.Select(s, rng)
	if err != nil {
		return nil, err
	}
	parentCandidate := s.Candidate(parentIdx)

	batchIDs := p.BatchSampler.Next(loader.AllIDs())
	if len(batchIDs) == 0 {
		return nil, domain.NewGEPAError(domain.ErrAdapter, "batch sampler produced an empty minibatch")
	}
	batch, err := loader.Fetch(batchIDs)
	if err != nil {
		return nil, domain.WrapAdapterError(err)
	}

	evalBefore, err := p.Adapter.Evaluate(ctx, batch, parentCandidate, true)
	if err != nil {
		return nil, domain.WrapAdapterError(err)
	}
	s.AddEvaluations(len(batchIDs))

	if p.SkipPerfectScore && allAtLeast(evalBefore.Scores, p.PerfectScore) {
		p.logger().Debug("skipping reflective mutation, minibatch already perfect", "parent", parentIdx)
		return nil, nil
	}

	componentsToUpdate := p.ComponentSelector.Select(s, parentIdx, parentCandidate)
	if len(componentsToUpdate) == 0 {
		p.logger().Debug("skipping reflective mutation, no components selected", "parent", parentIdx)
		return nil, nil
	}

	reflectiveDataset, err := p.Adapter.MakeReflectiveDataset(ctx, parentCandidate, evalBefore, componentsToUpdate)
	if err != nil {
		return nil, domain.WrapAdapterError(err)
	}

	newTexts, err := p.proposeNewTexts(ctx, parentCandidate, reflectiveDataset, componentsToUpdate)
	if err != nil {
		return nil, err
	}
	for _, c := range componentsToUpdate {
		if _, ok := newTexts[c]; !ok {
			return nil, domain.WrapProposalError(errMissingComponent(c))
		}
	}

	childCandidate := parentCandidate.Clone()
	for c, text := range newTexts {
		childCandidate[c] = text
	}

	evalAfter, err := p.Adapter.Evaluate(ctx, batch, childCandidate, false)
	if err != nil {
		return nil, domain.WrapAdapterError(err)
	}
	s.AddEvaluations(len(batchIDs))

	p.logger().Info("reflective mutation proposed",
		"parent", parentIdx,
		"components", componentsToUpdate,
		"score_before", core.SumFloat64(evalBefore.Scores),
		"score_after", core.SumFloat64(evalAfter.Scores))

	return &core.Proposal[ID]{
		Child:        childCandidate,
		ParentIDs:    core.ParentIDs{parentIdx},
		IDs:          batchIDs,
		ScoresBefore: evalBefore.Scores,
		ScoresAfter:  evalAfter.Scores,
		Tag:          "reflective_mutation",
	}, nil
}

func (p *Proposer[ID, D, T, R]) proposeNewTexts(ctx context.Context, candidate core.Candidate, reflectiveDataset map[string][]map[string]any, componentsToUpdate []string) (map[string]string, error) {
	if tp, ok := any(p.Adapter).(ports.TextProposer); ok {
		return tp.ProposeNewTexts(ctx, candidate, reflectiveDataset, componentsToUpdate)
	}
	if p.LM == nil {
		return nil, domain.NewGEPAError(domain.ErrInvalidConfiguration, "no reflection_lm configured and adapter has no propose_new_texts hook")
	}
	out := make(map[string]string, len(componentsToUpdate))
	for _, c := range componentsToUpdate {
		prompt, err := RenderPrompt(candidate[c], reflectiveDataset[c])
		if err != nil {
			return nil, err
		}
		reply, err := p.LM.Prompt(ctx, prompt)
		if err != nil {
			return nil, domain.WrapAdapterError(err)
		}
		text, err := ExtractFencedBlock(reply)
		if err != nil {
			return nil, err
		}
		out[c] = text
	}
	return out, nil
}

func allAtLeast(scores []float64, threshold float64) bool {
	if len(scores) == 0 {
		return false
	}
	for _, s := range scores {
		if s < threshold {
			return false
		}
	}
	return true
}

type missingComponentError string

func (e missingComponentError) Error() string {
	return "proposal routine returned no text for component " + string(e)
}

func errMissingComponent(name string) error {
	return missingComponentError(name)
}
