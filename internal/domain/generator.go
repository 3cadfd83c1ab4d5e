package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// AccentPalette is the set of accent colors handed to new nodes
var AccentPalette = []Color{"#9B59B6", "#F39C12", "#27AE60", "#4A90E2", "#E74C3C", "#16A085"}

// Generator supplies fresh identifiers and display defaults
type Generator interface {
	NewID() string
	AccentColor() Color
	Position() Position
}

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 7
)

// RandomGenerator draws ids, colors and positions from a seeded PCG source.
// It is not safe for concurrent use; the Graph that owns it serialises calls.
type RandomGenerator struct {
	rng *rand.Rand
}

// NewRandomGenerator creates a generator with a fixed seed
func NewRandomGenerator(seed uint64) *RandomGenerator {
	return &RandomGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededGenerator creates a generator seeded from the clock
func NewTimeSeededGenerator() *RandomGenerator {
	return NewRandomGenerator(uint64(time.Now().UnixNano()))
}

// NewID returns a 7 character base36 id
func (g *RandomGenerator) NewID() string {
	var b strings.Builder
	b.Grow(idLength)
	for range idLength {
		b.WriteByte(idAlphabet[g.rng.IntN(len(idAlphabet))])
	}
	return b.String()
}

// AccentColor picks a color from AccentPalette
func (g *RandomGenerator) AccentColor() Color {
	return AccentPalette[g.rng.IntN(len(AccentPalette))]
}

// Position picks a spot inside the default drop area
func (g *RandomGenerator) Position() Position {
	return Position{
		X: float64(100 + g.rng.IntN(901)),
		Y: float64(80 + g.rng.IntN(401)),
	}
}

// maxIDAttempts bounds the retries when a generated id collides
const maxIDAttempts = 64

// freshID draws ids until one is not taken. After maxIDAttempts collisions
// it appends a counter to the last draw.
func freshID(gen Generator, prefix string, taken func(string) bool) string {
	var id string
	for range maxIDAttempts {
		id = prefix + gen.NewID()
		if !taken(id) {
			return id
		}
	}
	base := id
	for i := 1; ; i++ {
		id = base + "-" + strconv.Itoa(i)
		if !taken(id) {
			return id
		}
	}
}
