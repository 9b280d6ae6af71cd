package registry

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Generator produces candidate room ids. It needs no synchronisation:
// uniqueness is enforced by the registry, not the generator.
type Generator func() string

// Digits returns a generator of fixed-width decimal tokens without a leading
// zero, e.g. Digits(4) yields 1000..9999.
func Digits(width int) Generator {
	if width < 1 {
		width = 1
	}
	lo := pow10(width - 1)
	if width == 1 {
		lo = 0
	}
	span := pow10(width) - lo

	return func() string {
		return fmt.Sprintf("%d", lo+randomInt(span))
	}
}

// Words returns a generator joining one word from each list with sep.
// It panics when given no lists or an empty one: such a generator could only
// ever produce a single id, and CreateRoom would spin once that id is taken.
func Words(sep string, lists ...[]string) Generator {
	if len(lists) == 0 {
		panic("registry: Words needs at least one word list")
	}
	for i, l := range lists {
		if len(l) == 0 {
			panic(fmt.Sprintf("registry: Words list %d is empty", i))
		}
	}
	return func() string {
		parts := make([]string, 0, len(lists))
		for _, l := range lists {
			parts = append(parts, l[randomInt(int64(len(l)))])
		}
		return strings.Join(parts, sep)
	}
}

// StateAnimal yields tokens like "ohio-otter".
func StateAnimal() Generator {
	return Words("-", states, animals)
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func randomInt(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic("registry: crypto/rand failed: " + err.Error())
	}
	return n.Int64()
}
