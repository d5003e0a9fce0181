package state

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/pareto"
)

// snapshotV2 is the current on-disk shape: sparse scores keyed directly by
// validation DataId.
type snapshotV2[ID comparable] struct {
	ValidationIDs    []ID
	Candidates       []map[string]string
	Genealogy        [][]int
	SparseScores     []map[ID]float64
	Cursors          []int
	DiscoveryBudget  []int64
	NumComponents    int
	Iteration        int64
	TotalEvaluations int64
	FullValEvalCount int64
}

// legacySnapshotV1 is the schema this engine inherited from an earlier
// revision: sparse scores were a slice positionally aligned with
// ValidationIDs, with a NaN sentinel marking "not yet evaluated". It exists
// solely as a migration source; new snapshots are never written in this
// shape.
type legacySnapshotV1[ID comparable] struct {
	ValidationIDs    []ID
	Candidates       []map[string]string
	Genealogy        [][]int
	SparseScoresList [][]float64
	Cursors          []int
	DiscoveryBudget  []int64
	NumComponents    int
	Iteration        int64
	TotalEvaluations int64
	FullValEvalCount int64
}

func (s *State[ID]) toSnapshot() snapshotV2[ID] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	validIDs := make([]ID, 0, len(s.validIDs))
	for id := range s.validIDs {
		validIDs = append(validIDs, id)
	}
	candidates := make([]map[string]string, len(s.candidates))
	for i, c := range s.candidates {
		candidates[i] = map[string]string(c.Clone())
	}
	genealogy := make([][]int, len(s.genealogy))
	for i, g := range s.genealogy {
		row := make([]int, len(g))
		for j, p := range g {
			row[j] = int(p)
		}
		genealogy[i] = row
	}
	scores := make([]map[ID]float64, len(s.sparseScores))
	for i, sc := range s.sparseScores {
		scores[i] = cloneScores(sc)
	}
	cursors := append([]int{}, s.cursors...)
	budgets := append([]int64{}, s.discoveryBud...)

	return snapshotV2[ID]{
		ValidationIDs:    validIDs,
		Candidates:       candidates,
		Genealogy:        genealogy,
		SparseScores:     scores,
		Cursors:          cursors,
		DiscoveryBudget:  budgets,
		NumComponents:    s.numComponents,
		Iteration:        s.iteration,
		TotalEvaluations: s.totalEvaluations,
		FullValEvalCount: s.fullValEvalCount,
	}
}

func fromSnapshot[ID comparable](snap snapshotV2[ID]) *State[ID] {
	s := &State[ID]{
		candidates:    make([]core.Candidate, len(snap.Candidates)),
		genealogy:     make([]core.ParentIDs, len(snap.Genealogy)),
		sparseScores:  snap.SparseScores,
		cursors:       snap.Cursors,
		discoveryBud:  snap.DiscoveryBudget,
		fronts:        rebuildFronts(snap.SparseScores),
		numComponents: snap.NumComponents,
		validIDs:      make(map[ID]struct{}, len(snap.ValidationIDs)),

		iteration:        snap.Iteration,
		totalEvaluations: snap.TotalEvaluations,
		fullValEvalCount: snap.FullValEvalCount,
	}
	for i, c := range snap.Candidates {
		s.candidates[i] = core.Candidate(c)
	}
	for i, g := range snap.Genealogy {
		row := make(core.ParentIDs, len(g))
		for j, p := range g {
			row[j] = core.ProgramIdx(p)
		}
		s.genealogy[i] = row
	}
	for _, id := range snap.ValidationIDs {
		s.validIDs[id] = struct{}{}
	}
	return s
}

func rebuildFronts[ID comparable](scores []map[ID]float64) *pareto.Fronts[ID] {
	f := pareto.NewFronts[ID]()
	for idx, sc := range scores {
		for id, score := range sc {
			pareto.UpdateFront(f, id, score, core.ProgramIdx(idx))
		}
	}
	return f
}

// Save encodes the state as a schema-versioned blob: a leading byte giving
// the schema version, followed by a msgpack-encoded snapshot of that
// version's shape. New snapshots are always written in the current schema.
func (s *State[ID]) Save() ([]byte, error) {
	payload, err := msgpack.Marshal(s.toSnapshot())
	if err != nil {
		return nil, domain.NewGEPAError(domain.ErrPersistence, "encode state: "+err.Error())
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(CurrentSchemaVersion))
	out = append(out, payload...)
	return out, nil
}

// Load decodes a blob produced by Save, migrating forward from any older
// known schema version. It rejects blobs whose version is newer than
// CurrentSchemaVersion.
func Load[ID comparable](data []byte) (*State[ID], error) {
	if len(data) < 1 {
		return nil, domain.NewGEPAError(domain.ErrPersistence, "empty state blob")
	}
	version := int(data[0])
	payload := data[1:]

	switch version {
	case CurrentSchemaVersion:
		var snap snapshotV2[ID]
		if err := msgpack.Unmarshal(payload, &snap); err != nil {
			return nil, domain.NewGEPAError(domain.ErrPersistence, "decode state: "+err.Error())
		}
		return fromSnapshot(snap), nil
	case 1:
		var legacy legacySnapshotV1[ID]
		if err := msgpack.Unmarshal(payload, &legacy); err != nil {
			return nil, domain.NewGEPAError(domain.ErrMigrationFailed, "decode legacy v1 state: "+err.Error())
		}
		snap, err := migrateV1ToV2(legacy)
		if err != nil {
			return nil, err
		}
		return fromSnapshot(*snap), nil
	default:
		return nil, domain.NewGEPAErrorWithCode(domain.ErrSchemaTooNew, "unsupported state schema version", "schema_too_new")
	}
}
