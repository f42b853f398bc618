package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesopotato/enrich-justice/pkg/llm"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// ErrQualityGate marks generated text that never reached the accepted length.
var ErrQualityGate = errors.New("quality gate not met")

// QualityGateError reports the field that stayed outside [Min, Max] tokens after
// Attempts generations. LastTokens is the length of the text that was kept.
type QualityGateError struct {
	Field      llm.Field
	Attempts   int
	LastTokens int
	Min, Max   int
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("%s: %d tokens after %d attempts, want %d..%d: %v",
		e.Field, e.LastTokens, e.Attempts, e.Min, e.Max, ErrQualityGate)
}

func (e *QualityGateError) Unwrap() error { return ErrQualityGate }

// QualityGate regenerates text until its token count lies within [MinTokens, MaxTokens],
// at most MaxAttempts times.
type QualityGate struct {
	MinTokens   int
	MaxTokens   int
	MaxAttempts int
}

// Generate calls gen until the result passes the gate. When every attempt misses, the
// last generated text is returned together with a *QualityGateError. Generation errors
// use up an attempt; if no attempt produced text the last generation error is returned.
func (g QualityGate) Generate(ctx context.Context, field llm.Field, gen func(context.Context) (string, error)) (string, int, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		text    string
		tokens  int
		haveOne bool
		lastErr error
	)
	for i := 1; i <= attempts; i++ {
		out, err := gen(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", 0, ctxErr
			}
			lastErr = err
			log.Warnf("[QualityGate] %s attempt %d/%d failed: %v", field, i, attempts, err)
			continue
		}
		text, tokens, haveOne = out, llm.CountTokens(out), true
		if tokens >= g.MinTokens && tokens <= g.MaxTokens {
			return text, tokens, nil
		}
		log.Infof("[QualityGate] retrying %s: %d tokens outside %d..%d (attempt %d/%d)", field, tokens, g.MinTokens, g.MaxTokens, i, attempts)
	}
	if !haveOne {
		return "", 0, fmt.Errorf("generate %s: %w", field, lastErr)
	}
	return text, tokens, &QualityGateError{Field: field, Attempts: attempts, LastTokens: tokens, Min: g.MinTokens, Max: g.MaxTokens}
}
