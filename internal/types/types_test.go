package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIDDeterministic(t *testing.T) {
	t.Parallel()

	first := DeriveID("ResolucaoBCB", "407")
	second := DeriveID("ResolucaoBCB", "407")

	assert.Equal(t, "ResolucaoBCB-407", first)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, DeriveID("ResolucaoBCB", "408"))
	assert.NotEqual(t, first, DeriveID("InstrucaoNormativaBCB", "407"))
}
