package state

import "math"

// migrateV1ToV2 converts the legacy list-indexed sparse-score encoding
// (a slice positionally aligned with ValidationIDs, NaN marking "not yet
// evaluated") into the current map-keyed encoding. This is the one
// migration the format currently defines.
func migrateV1ToV2[ID comparable](legacy legacySnapshotV1[ID]) (*snapshotV2[ID], error) {
	scores := make([]map[ID]float64, len(legacy.SparseScoresList))
	for i, row := range legacy.SparseScoresList {
		m := make(map[ID]float64)
		for j, v := range row {
			if j >= len(legacy.ValidationIDs) {
				break
			}
			if math.IsNaN(v) {
				continue
			}
			m[legacy.ValidationIDs[j]] = v
		}
		scores[i] = m
	}
	return &snapshotV2[ID]{
		ValidationIDs:    legacy.ValidationIDs,
		Candidates:       legacy.Candidates,
		Genealogy:        legacy.Genealogy,
		SparseScores:     scores,
		Cursors:          legacy.Cursors,
		DiscoveryBudget:  legacy.DiscoveryBudget,
		NumComponents:    legacy.NumComponents,
		Iteration:        legacy.Iteration,
		TotalEvaluations: legacy.TotalEvaluations,
		FullValEvalCount: legacy.FullValEvalCount,
	}, nil
}
