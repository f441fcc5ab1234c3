package protocols

import (
	"testing"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_AreValid(t *testing.T) {
	all := All()
	require.Len(t, all, 5)

	seen := map[string]bool{}
	for _, p := range all {
		t.Run(p.ProtocolID, func(t *testing.T) {
			require.NoError(t, p.Validate())
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.Duration)
			assert.GreaterOrEqual(t, p.Len(), 5)
			assert.LessOrEqual(t, p.Len(), 8)
		})
		assert.False(t, seen[p.ProtocolID], "duplicate id %s", p.ProtocolID)
		seen[p.ProtocolID] = true
	}
}

func TestAll_ReturnsFreshCopies(t *testing.T) {
	a := All()[0]
	a.Steps[0].Title = "changed"
	assert.NotEqual(t, "changed", All()[0].Steps[0].Title)
}

func TestCognitiveRestructuring_Shape(t *testing.T) {
	p := cognitiveRestructuring()
	require.Equal(t, 8, p.Len())

	var names []string
	for _, step := range p.Steps {
		for _, f := range step.Fields {
			names = append(names, f.Name)
		}
	}
	assert.Equal(t, []string{
		"situation", "thoughts", "emotions", "evidenceFor", "evidenceAgainst",
		"distortions", "alternativeThought", "emotionsAfter",
	}, names)

	values := domain.InitialValues(p)
	emotions, _ := values.Get("emotions")
	assert.Equal(t, []string{"anxiety", "sadness", "anger", "shame", "other", "otherName"}, emotions.(*domain.Values).Keys())
	after, _ := values.Get("emotionsAfter")
	assert.Equal(t, []string{"anxiety", "sadness", "anger", "shame", "other"}, after.(*domain.Values).Keys())

	distortions, ok := p.Field("distortions")
	require.True(t, ok)
	assert.Len(t, distortions.Options, 10)

	rerate, _ := p.Field("emotionsAfter")
	assert.Equal(t, "emotions.otherName", rerate.Other.LabelRef)

	final, _ := p.Step(8)
	assert.True(t, final.Terminal)
	assert.Empty(t, final.Fields)
}
