package rand

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mathext/prng"
)

// DefaultSource is the name of the source used when none is configured.
const DefaultSource = "numpy"

// sources maps source names to constructors.
var sources = map[string]func(seed uint64) mathrand.Source{
	// NumPy RandomState stream; NumPy seeds are 32 bits wide.
	"numpy": func(seed uint64) mathrand.Source {
		return NewMT19937(uint32(seed))
	},
	"mt19937": func(seed uint64) mathrand.Source {
		src := prng.NewMT19937()
		src.Seed(seed)
		return src
	},
	"xoshiro": func(seed uint64) mathrand.Source {
		return prng.NewXoshiro256starstar(seed)
	},
	"splitmix": func(seed uint64) mathrand.Source {
		return prng.NewSplitMix64(seed)
	},
	"pcg": func(seed uint64) mathrand.Source {
		return mathrand.NewPCG(seed, seed^0xda3e39cb94b95bdb)
	},
}

// NewSource returns the named source seeded with seed.
func NewSource(name string, seed uint64) (mathrand.Source, error) {
	ctor, ok := sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown random source %q (known: %s)", name, strings.Join(SourceNames(), ", "))
	}
	return ctor(seed), nil
}

// Constructor returns the constructor for the named source.
func Constructor(name string) (func(seed uint64) mathrand.Source, bool) {
	ctor, ok := sources[name]
	return ctor, ok
}

// SourceNames returns the registered source names in sorted order.
func SourceNames() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
