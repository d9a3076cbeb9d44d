package template

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	out := substitute("SPP {plan} untuk {name}", map[string]string{"plan": "Tahfizh", "name": "Ahmad"})
	require.Equal(t, "SPP Tahfizh untuk Ahmad", out)
}

func TestSubstitute_UnknownTokenLeftLiteral(t *testing.T) {
	out := substitute("Halo {name}, tagihan {amount}", map[string]string{"name": "Ahmad"})
	require.Equal(t, "Halo Ahmad, tagihan {amount}", out)
}

func TestMissingVariables(t *testing.T) {
	missing := missingVariables([]string{"b", "a", "c"}, map[string]string{"b": "x"})
	require.Equal(t, []string{"a", "c"}, missing)

	require.Empty(t, missingVariables([]string{"a"}, map[string]string{"a": ""}))
	require.Empty(t, missingVariables(nil, nil))
}

func TestLeftoverTokens(t *testing.T) {
	tokens := leftoverTokens("Halo {name}, {amount} dan {name} lagi")
	require.Equal(t, []string{"amount", "name"}, tokens)

	require.Empty(t, leftoverTokens("no tokens here"))
}
