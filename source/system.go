package source

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/aead/serpent"
	"github.com/seehuhn/fortuna"

	"github.com/quantumrand/entropyd/log"
)

const seedSize = 64 // bytes drawn from the os for (re)seeding

// SystemConfig configures the os-backed fallback source.
type SystemConfig struct {
	// Cipher returns the block cipher for the Fortuna generator, "aes" or
	// "serpent". Evaluated on construction and reseed.
	Cipher func() string

	// ReseedAfter is the time budget after which the generator is
	// reseeded from the os.
	ReseedAfter time.Duration

	// ReseedAfterBytes is the output volume after which the generator is
	// reseeded from the os.
	ReseedAfterBytes int64
}

// SystemSource wraps the operating system CSPRNG in a Fortuna generator.
// It only fails if the os generator itself fails, which is catastrophic.
type SystemSource struct {
	cfg SystemConfig

	mu          sync.Mutex
	gen         *fortuna.Generator
	seededAt    time.Time
	servedBytes int64
}

// NewSystemSource creates and seeds the os-backed source.
func NewSystemSource(cfg SystemConfig) (*SystemSource, error) {
	s := &SystemSource{cfg: cfg}

	s.gen = fortuna.NewGenerator(s.newCipher)
	if err := s.reseed(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SystemSource) newCipher(key []byte) (cipher.Block, error) {
	name := "aes"
	if s.cfg.Cipher != nil {
		name = s.cfg.Cipher()
	}
	switch name {
	case "aes":
		return aes.NewCipher(key)
	case "serpent":
		return serpent.NewCipher(key)
	default:
		return nil, fmt.Errorf("unknown or unsupported cipher: %s", name)
	}
}

// Type implements Source.
func (s *SystemSource) Type() Type {
	return SystemRandom
}

// Harvest returns max bytes from the Fortuna generator, reseeding from the
// os when the time or volume budget is exceeded.
func (s *SystemSource) Harvest(max int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reseedNeeded := time.Since(s.seededAt) > s.cfg.ReseedAfter ||
		s.servedBytes > s.cfg.ReseedAfterBytes
	if reseedNeeded {
		if err := s.reseed(); err != nil {
			return nil, err
		}
	}

	data := s.gen.PseudoRandomData(uint(max))
	s.servedBytes += int64(len(data))
	return data, nil
}

// reseed draws fresh seed material from the os. Caller must hold s.mu or
// be the constructor.
func (s *SystemSource) reseed() error {
	seed := make([]byte, seedSize)
	n, err := rand.Read(seed)
	if err != nil {
		return fmt.Errorf("%w: os csprng failed: %s", ErrSourceUnavailable, err)
	}
	if n != seedSize {
		return fmt.Errorf("%w: os csprng returned only %d of %d seed bytes", ErrSourceUnavailable, n, seedSize)
	}

	s.gen.Reseed(seed)
	s.seededAt = time.Now()
	s.servedBytes = 0
	log.Debug("source: reseeded system generator from os")
	return nil
}
