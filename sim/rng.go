package sim

import (
	"hash/fnv"
	"math/rand"
)

// Random streams drawn by World. Each stream has its own generator, so the number of draws
// taken from one never changes what another produces.
const (
	// SubsystemSpawn places and jitters cells in SpawnRandom. It is seeded with the world
	// seed itself, so a given --seed always yields the same starting layout.
	SubsystemSpawn = "spawn"

	// SubsystemMutation perturbs genome parameters in MutateGenome.
	SubsystemMutation = "mutation"
)

// PartitionedRNG owns one lazily created generator per named stream, all derived from a
// single world seed. It is not safe for concurrent use; World draws from it between steps.
type PartitionedRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns an RNG with no streams created yet.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Seed is the world seed every stream derives from.
func (p *PartitionedRNG) Seed() int64 { return p.seed }

// ForSubsystem returns the generator for name, creating it on first use. Later calls with
// the same name continue the same sequence.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	r, ok := p.streams[name]
	if !ok {
		r = rand.New(rand.NewSource(streamSeed(p.seed, name)))
		p.streams[name] = r
	}
	return r
}

// streamSeed mixes the stream name into the world seed. Spawn keeps the raw seed.
func streamSeed(seed int64, name string) int64 {
	if name == SubsystemSpawn {
		return seed
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return seed ^ int64(h.Sum64())
}
