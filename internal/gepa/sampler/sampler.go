// Package sampler implements the training-data batch samplers from spec
// component H: a simple circular window and a deterministic
// epoch-shuffled window.
package sampler

import "math/rand"

// SimpleCircular emits consecutive windows of size M over the id universe,
// wrapping around when it reaches the end.
type SimpleCircular[ID any] struct {
	M   int
	pos int
}

func NewSimpleCircular[ID any](minibatchSize int) *SimpleCircular[ID] {
	return &SimpleCircular[ID]{M: minibatchSize}
}

func (s *SimpleCircular[ID]) Next(allIDs []ID) []ID {
	n := len(allIDs)
	if n == 0 || s.M <= 0 {
		return nil
	}
	batch := make([]ID, s.M)
	for i := 0; i < s.M; i++ {
		batch[i] = allIDs[(s.pos+i)%n]
	}
	s.pos = (s.pos + s.M) % n
	return batch
}

// EpochShuffled generates a deterministic permutation of all training ids
// at the start of each epoch, keyed by (base seed, epoch number), and
// emits consecutive windows of size M through it. Two instances with the
// same base seed and minibatch size emit pointwise-equal sequences.
type EpochShuffled[ID any] struct {
	BaseSeed int64
	M        int

	epoch int
	perm  []ID
	pos   int
}

func NewEpochShuffled[ID any](baseSeed int64, minibatchSize int) *EpochShuffled[ID] {
	return &EpochShuffled[ID]{BaseSeed: baseSeed, M: minibatchSize}
}

func (s *EpochShuffled[ID]) Next(allIDs []ID) []ID {
	if s.M <= 0 || len(allIDs) == 0 {
		return nil
	}
	if s.perm == nil || s.pos >= len(s.perm) {
		s.perm = shuffledCopy(allIDs, s.BaseSeed, s.epoch)
		s.epoch++
		s.pos = 0
	}
	batch := make([]ID, 0, s.M)
	for len(batch) < s.M {
		end := s.pos + (s.M - len(batch))
		if end > len(s.perm) {
			end = len(s.perm)
		}
		batch = append(batch, s.perm[s.pos:end]...)
		s.pos = end
		if len(batch) < s.M {
			// This epoch's permutation ran out mid-window; the remainder
			// comes from a freshly-shuffled next epoch rather than
			// truncating the batch short of M.
			s.perm = shuffledCopy(allIDs, s.BaseSeed, s.epoch)
			s.epoch++
			s.pos = 0
		}
	}
	return batch
}

// shuffledCopy derives its RNG seed deterministically from (baseSeed,
// epoch) so sampler determinism (spec 8, "Sampler determinism") holds
// across independently constructed instances.
func shuffledCopy[ID any](ids []ID, baseSeed int64, epoch int) []ID {
	seed := baseSeed*1_000_003 + int64(epoch) + 1
	rng := rand.New(rand.NewSource(seed))
	out := append([]ID{}, ids...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
