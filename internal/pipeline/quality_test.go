package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mesopotato/enrich-justice/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// words returns n cl100k tokens: "the" followed by " the" repeated.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("the ", n))
}

func sequence(outputs ...string) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		out := outputs[calls%len(outputs)]
		calls++
		return out, nil
	}, &calls
}

func TestQualityGateAcceptsFirstInRange(t *testing.T) {
	gen, calls := sequence(words(5))
	text, tokens, err := QualityGate{MinTokens: 3, MaxTokens: 10, MaxAttempts: 4}.Generate(context.Background(), llm.FieldSummary, gen)
	require.NoError(t, err)
	assert.Equal(t, 5, tokens)
	assert.Equal(t, words(5), text)
	assert.Equal(t, 1, *calls)
}

func TestQualityGateRetriesUntilInRange(t *testing.T) {
	gen, calls := sequence(words(1), words(20), words(4))
	_, tokens, err := QualityGate{MinTokens: 3, MaxTokens: 10, MaxAttempts: 4}.Generate(context.Background(), llm.FieldFacts, gen)
	require.NoError(t, err)
	assert.Equal(t, 4, tokens)
	assert.Equal(t, 3, *calls)
}

func TestQualityGateBoundedAndTyped(t *testing.T) {
	gen, calls := sequence(words(1), words(2))
	text, tokens, err := QualityGate{MinTokens: 3, MaxTokens: 10, MaxAttempts: 5}.Generate(context.Background(), llm.FieldRuling, gen)
	require.Error(t, err)
	assert.Equal(t, 5, *calls)
	assert.True(t, errors.Is(err, ErrQualityGate))

	var gateErr *QualityGateError
	require.True(t, errors.As(err, &gateErr))
	assert.Equal(t, llm.FieldRuling, gateErr.Field)
	assert.Equal(t, 5, gateErr.Attempts)
	assert.Equal(t, 1, gateErr.LastTokens)
	assert.Equal(t, words(1), text, "best-effort text is the last generated one")
	assert.Equal(t, 1, tokens)
}

func TestQualityGateGenerationErrors(t *testing.T) {
	boom := errors.New("llm unavailable")
	calls := 0
	_, _, err := QualityGate{MinTokens: 1, MaxTokens: 10, MaxAttempts: 3}.Generate(context.Background(), llm.FieldLegalBasis,
		func(context.Context) (string, error) { calls++; return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrQualityGate))
	assert.Equal(t, 3, calls)
}

func TestQualityGateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := QualityGate{MinTokens: 1, MaxTokens: 10, MaxAttempts: 10}.Generate(ctx, llm.FieldSummary,
		func(ctx context.Context) (string, error) { calls++; cancel(); return "", ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
