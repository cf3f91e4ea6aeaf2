package services

import (
	"math/rand"
	"strings"
	"time"
)

// Session codes are short enough to read out across a boathouse, so the
// alphabet drops the characters people misread: I, O, 0 and 1.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

type CodeGenerator struct {
	rng *rand.Rand
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededCodeGenerator returns a generator with a fixed seed, for callers
// that need reproducible codes.
func NewSeededCodeGenerator(seed int64) *CodeGenerator {
	return &CodeGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *CodeGenerator) Generate() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[g.rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}
