// Package merge implements the merge proposer from spec component K:
// dominator pair selection, common-ancestor discovery, three-way textual
// merge, and stratified subsample verification.
package merge

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/genealogy"
	"github.com/gepa-run/gepa-engine/internal/gepa/pareto"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

type tripletKey struct {
	id1, id2, ancestor core.ProgramIdx
}

type descriptorKey struct {
	id1, id2   core.ProgramIdx
	descriptor string
}

// Proposer holds the scheduling counters and dedup log the engine consults
// across iterations. It is not safe for concurrent use — the engine drives
// it from its single-threaded loop.
type Proposer[ID comparable, D any, T any, R any] struct {
	Adapter             ports.Adapter[D, T, R]
	UseMerge            bool
	MaxMergeInvocations int
	ValOverlapFloor     int // default 5
	MaxAttempts         int // default 10

	mergesDue               int
	totalMergesTested       int
	lastIterFoundNewProgram bool

	triedTriplets    map[tripletKey]struct{}
	triedDescriptors map[descriptorKey]struct{}

	// Logger defaults to slog.Default() when nil.
	Logger *slog.Logger
}

func (p *Proposer[ID, D, T, R]) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func New[ID comparable, D any, T any, R any](adapter ports.Adapter[D, T, R], useMerge bool, maxInvocations, valOverlapFloor int) *Proposer[ID, D, T, R] {
	if valOverlapFloor <= 0 {
		valOverlapFloor = 5
	}
	return &Proposer[ID, D, T, R]{
		Adapter:             adapter,
		UseMerge:            useMerge,
		MaxMergeInvocations: maxInvocations,
		ValOverlapFloor:     valOverlapFloor,
		MaxAttempts:         10,
		triedTriplets:       make(map[tripletKey]struct{}),
		triedDescriptors:    make(map[descriptorKey]struct{}),
	}
}

// Schedule is called by the engine after a successful reflective mutation:
// it schedules a future merge attempt if the budget allows.
func (p *Proposer[ID, D, T, R]) Schedule() {
	if p.UseMerge && p.totalMergesTested < p.MaxMergeInvocations {
		p.mergesDue++
	}
	p.lastIterFoundNewProgram = true
}

// CanPropose reports whether the three scheduling preconditions hold.
func (p *Proposer[ID, D, T, R]) CanPropose() bool {
	return p.UseMerge && p.lastIterFoundNewProgram && p.mergesDue > 0
}

func (p *Proposer[ID, D, T, R]) TotalMergesTested() int { return p.totalMergesTested }
func (p *Proposer[ID, D, T, R]) MergesDue() int          { return p.mergesDue }

// Propose attempts one merge. It returns (nil, nil) when no proposal can
// be produced — fewer than two programs in the pool, too few dominators,
// no desirable triplet found within MaxAttempts, insufficient validation
// overlap, or a merge descriptor already tried for the pair.
func (p *Proposer[ID, D, T, R]) Propose(ctx context.Context, s *state.State[ID], valLoader ports.DataLoader[ID, D], rng *rand.Rand) (*core.Proposal[ID], error) {
	defer func() {
		if p.mergesDue > 0 {
			p.mergesDue--
		}
	}()

	n := s.PoolSize()
	if n < 2 {
		return nil, nil
	}

	aggregate := make(map[core.ProgramIdx]float64, n)
	for i := 0; i < n; i++ {
		if v, ok := s.AggregateScore(core.ProgramIdx(i)); ok {
			aggregate[core.ProgramIdx(i)] = v
		}
	}
	fronts := s.Fronts()
	dominators := pareto.FindDominatorPrograms(fronts, aggregate)
	if len(dominators) < 2 {
		p.logger().Debug("merge skipped, fewer than two surviving dominators", "dominators", len(dominators))
		return nil, nil
	}
	pool := dominators.Slice()

	genGraph := genealogy.Graph(s.Genealogy())

	var id1, id2, ancestorIdx core.ProgramIdx
	found := false

attempts:
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		a, b := pickPair(pool, rng)

		if genGraph.IsAncestor(a, b) || genGraph.IsAncestor(b, a) {
			continue
		}

		common := genGraph.CommonAncestors(a, b)
		candidates := make([]core.ProgramIdx, 0, len(common))
		for anc := range common {
			candidates = append(candidates, anc)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

		var filtered []core.ProgramIdx
		aAgg, aOK := aggregate[a]
		bAgg, bOK := aggregate[b]
		for _, anc := range candidates {
			if _, used := p.triedTriplets[tripletKey{a, b, anc}]; used {
				continue
			}
			ancAgg, ancOK := s.AggregateScore(anc)
			if !ancOK || !aOK || !bOK {
				continue
			}
			if ancAgg > aAgg || ancAgg > bAgg {
				continue
			}
			ancCand, aCand, bCand := s.Candidate(anc), s.Candidate(a), s.Candidate(b)
			if !genealogy.IsDesirableTriplet(ancCand, aCand, bCand) {
				continue
			}
			filtered = append(filtered, anc)
		}
		if len(filtered) == 0 {
			continue
		}

		// Pick weighted by aggregate score: highest score wins, ties
		// broken by ProgramIdx.
		best := filtered[0]
		bestScore, _ := s.AggregateScore(best)
		for _, anc := range filtered[1:] {
			score, _ := s.AggregateScore(anc)
			if score > bestScore || (score == bestScore && anc < best) {
				best, bestScore = anc, score
			}
		}
		id1, id2, ancestorIdx = a, b, best
		found = true
		break attempts
	}
	if !found {
		p.logger().Debug("merge skipped, no desirable triplet found within attempt budget", "attempts", p.MaxAttempts)
		return nil, nil
	}
	p.triedTriplets[tripletKey{id1, id2, ancestorIdx}] = struct{}{}

	scores1 := s.Scores(id1)
	scores2 := s.Scores(id2)
	overlap := make(map[ID]struct{})
	for id := range scores1 {
		if _, ok := scores2[id]; ok {
			overlap[id] = struct{}{}
		}
	}
	if len(overlap) < p.ValOverlapFloor {
		p.logger().Debug("merge skipped, insufficient validation overlap", "id1", id1, "id2", id2, "overlap", len(overlap), "floor", p.ValOverlapFloor)
		return nil, nil
	}

	id1Cand, id2Cand, ancestorCand := s.Candidate(id1), s.Candidate(id2), s.Candidate(ancestorIdx)
	id1Agg, _ := s.AggregateScore(id1)
	id2Agg, _ := s.AggregateScore(id2)
	child, descriptor := threeWayMerge(ancestorCand, id1Cand, id2Cand, id1Agg, id2Agg)

	dkey := descriptorKey{id1, id2, descriptor}
	if _, used := p.triedDescriptors[dkey]; used {
		return nil, nil
	}
	p.triedDescriptors[dkey] = struct{}{}

	overlapOrdered := orderByLoader(valLoader.AllIDs(), overlap)
	subsampleIDs := stratifiedSubsample(overlapOrdered, scores1, scores2, rng)

	batch, err := valLoader.Fetch(subsampleIDs)
	if err != nil {
		return nil, domain.WrapAdapterError(err)
	}
	evalResult, err := p.Adapter.Evaluate(ctx, batch, child, false)
	if err != nil {
		return nil, domain.WrapAdapterError(err)
	}
	s.AddEvaluations(len(subsampleIDs))
	p.totalMergesTested++

	p.logger().Info("merge proposed", "id1", id1, "id2", id2, "ancestor", ancestorIdx, "subsample_size", len(subsampleIDs))

	sumID1, sumID2 := 0.0, 0.0
	for _, id := range subsampleIDs {
		sumID1 += scores1[id]
		sumID2 += scores2[id]
	}

	return &core.Proposal[ID]{
		Child:        child,
		ParentIDs:    core.ParentIDs{id1, id2},
		IDs:          subsampleIDs,
		ScoresBefore: []float64{sumID1, sumID2},
		ScoresAfter:  evalResult.Scores,
		Tag:          "merge",
		Metadata:     map[string]any{"ancestor": int(ancestorIdx)},
	}, nil
}

func pickPair(pool []core.ProgramIdx, rng *rand.Rand) (core.ProgramIdx, core.ProgramIdx) {
	i := rng.Intn(len(pool))
	j := rng.Intn(len(pool))
	for j == i && len(pool) > 1 {
		j = rng.Intn(len(pool))
	}
	return pool[i], pool[j]
}

// threeWayMerge implements spec 4.K step 5. It also returns a descriptor
// string recording, per component (in sorted order), which source
// ("ancestor", "id1", "id2") supplied the child's value — used for the
// merge-descriptor dedup log.
func threeWayMerge(ancestor, id1, id2 core.Candidate, id1Agg, id2Agg float64) (core.Candidate, string) {
	child := make(core.Candidate, len(id1))
	descriptor := ""
	for _, c := range id1.ComponentNames() {
		a, v1, v2 := ancestor[c], id1[c], id2[c]
		eqA1 := a == v1
		eqA2 := a == v2
		var value, source string
		switch {
		case v1 == v2:
			value, source = v1, "id1"
		case eqA1 != eqA2:
			if eqA1 {
				value, source = v2, "id2"
			} else {
				value, source = v1, "id1"
			}
		case !eqA1 && !eqA2:
			switch {
			case id1Agg > id2Agg:
				value, source = v1, "id1"
			case id2Agg > id1Agg:
				value, source = v2, "id2"
			default:
				value, source = v1, "id1"
			}
		default:
			value, source = v1, "id1"
		}
		child[c] = value
		descriptor += c + "=" + source + ";"
	}
	return child, descriptor
}

func orderByLoader[ID comparable](allIDs []ID, overlap map[ID]struct{}) []ID {
	out := make([]ID, 0, len(overlap))
	for _, id := range allIDs {
		if _, ok := overlap[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// stratifiedSubsample implements spec 4.K step 7: bucket by which parent
// scores higher, take up to ceil(5/3) per bucket, pad deterministically
// from the remaining common ids, and allow seeded repeats if the universe
// has fewer than 5 ids.
func stratifiedSubsample[ID comparable](overlapOrdered []ID, scores1, scores2 map[ID]float64, rng *rand.Rand) []ID {
	const targetSize = 5
	const perBucket = 2 // ceil(5/3)

	var id1Better, id2Better, tied []ID
	for _, id := range overlapOrdered {
		s1, s2 := scores1[id], scores2[id]
		switch {
		case s1 > s2:
			id1Better = append(id1Better, id)
		case s2 > s1:
			id2Better = append(id2Better, id)
		default:
			tied = append(tied, id)
		}
	}

	var out []ID
	used := make(map[ID]struct{})
	remaining := targetSize
	for _, bucket := range [][]ID{id1Better, id2Better, tied} {
		take := perBucket
		if take > remaining {
			take = remaining
		}
		if take > len(bucket) {
			take = len(bucket)
		}
		for i := 0; i < take; i++ {
			out = append(out, bucket[i])
			used[bucket[i]] = struct{}{}
		}
		remaining -= take
	}

	if remaining > 0 {
		var leftover []ID
		for _, id := range overlapOrdered {
			if _, ok := used[id]; !ok {
				leftover = append(leftover, id)
			}
		}
		shuffled := append([]ID{}, leftover...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		take := remaining
		if take > len(shuffled) {
			take = len(shuffled)
		}
		out = append(out, shuffled[:take]...)
		remaining -= take
	}

	for remaining > 0 && len(overlapOrdered) > 0 {
		out = append(out, overlapOrdered[rng.Intn(len(overlapOrdered))])
		remaining--
	}

	return out
}

