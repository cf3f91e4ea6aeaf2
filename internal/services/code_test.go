package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeShape(t *testing.T) {
	g := NewCodeGenerator()

	for i := 0; i < 200; i++ {
		code := g.Generate()
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "code %q contains %q", code, r)
		}
	}
}

func TestGenerateCodeExcludesConfusableCharacters(t *testing.T) {
	for _, banned := range "IO01" {
		assert.False(t, strings.ContainsRune(codeAlphabet, banned))
	}
	assert.Len(t, codeAlphabet, 32)
}

func TestSeededGeneratorIsDeterministic(t *testing.T) {
	a := NewSeededCodeGenerator(42)
	b := NewSeededCodeGenerator(42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestGeneratorProducesVariedCodes(t *testing.T) {
	g := NewSeededCodeGenerator(7)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[g.Generate()] = true
	}
	assert.Greater(t, len(seen), 95)
}
