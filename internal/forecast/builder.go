package forecast

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"

	"github.com/shem-project/shem/internal/models"
)

// Builder owns the current model and refits only when the history changes.
// It is safe for concurrent use.
type Builder struct {
	mu          sync.Mutex
	model       *Model
	rows        int
	fingerprint uint64
	fits        int
}

// NewBuilder returns a Builder holding an unfitted model.
func NewBuilder() *Builder {
	return &Builder{model: &Model{}}
}

// Rebuild fits history unless it matches the history of the current model.
func (b *Builder) Rebuild(history []models.AggregatedPeriod) *Model {
	fp := fingerprint(history)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fits > 0 && b.rows == len(history) && b.fingerprint == fp {
		return b.model
	}
	b.model = Fit(history)
	b.rows = len(history)
	b.fingerprint = fp
	b.fits++
	return b.model
}

// Current returns the last built model.
func (b *Builder) Current() *Model {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

// Fits counts how many times a model was actually fitted.
func (b *Builder) Fits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fits
}

func fingerprint(history []models.AggregatedPeriod) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, row := range history {
		h.Write([]byte(row.PeriodKey))
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(row.TotalUsage))
		h.Write(buf[:])
	}
	return h.Sum64()
}
