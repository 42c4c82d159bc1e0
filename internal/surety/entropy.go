package surety

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"flight_surety/internal/models"
)

// IndexSource supplies the pseudo-random numbers used to assign oracle
// indexes and to open status requests. Intn returns a value in [0, n).
type IndexSource interface {
	Intn(n int) (int, error)
}

// CryptoSource draws indexes from crypto/rand
type CryptoSource struct{}

func (CryptoSource) Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// SequenceSource replays a fixed sequence of values, cycling when exhausted.
// Values are reduced modulo n.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	pos    int
}

func NewSequenceSource(values ...int) *SequenceSource {
	return &SequenceSource{values: values}
}

func (s *SequenceSource) Intn(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0, fmt.Errorf("sequence source is empty")
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	if v < 0 {
		v = -v
	}
	return v % n, nil
}

// maxDrawAttempts bounds rejection sampling so a degenerate source cannot spin forever
const maxDrawAttempts = 64

// drawIndexes picks OracleIndexCount distinct indexes in [0, OracleIndexRange)
func drawIndexes(src IndexSource) (models.OracleIndexes, error) {
	var out models.OracleIndexes
	n := 0
	for attempt := 0; n < models.OracleIndexCount; attempt++ {
		if attempt >= maxDrawAttempts {
			return out, fmt.Errorf("index source produced too few distinct values")
		}
		v, err := src.Intn(models.OracleIndexRange)
		if err != nil {
			return out, fmt.Errorf("failed to draw index: %w", err)
		}
		idx := uint8(v)
		if containsIndex(out[:n], idx) {
			continue
		}
		out[n] = idx
		n++
	}
	return out, nil
}

func containsIndex(set []uint8, idx uint8) bool {
	for _, v := range set {
		if v == idx {
			return true
		}
	}
	return false
}
