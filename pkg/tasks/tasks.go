// Package tasks defines the enrichment jobs sent through Kafka.
package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind selects what an EnrichmentTask processes.
type Kind string

const (
	// KindJudgment extracts, stores and embeds the fields of one parsed decision.
	KindJudgment Kind = "judgment"
	// KindArticles embeds every statute paragraph and article without a vector.
	KindArticles Kind = "articles"
	// KindSummaryVectors embeds stored summaries that still lack a field vector.
	KindSummaryVectors Kind = "summary_vectors"
)

// EnrichmentTask is one unit of work for the enrichment consumer.
type EnrichmentTask struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	ParsedID   int64     `json:"parsed_id,omitempty"`
	Model      string    `json:"model,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJudgmentTask creates a task for the parsed decision parsedID.
func NewJudgmentTask(parsedID int64, model string) EnrichmentTask {
	return EnrichmentTask{ID: uuid.NewString(), Kind: KindJudgment, ParsedID: parsedID, Model: model, EnqueuedAt: time.Now().UTC()}
}

// NewArticlesTask creates a task that embeds pending statute text.
func NewArticlesTask() EnrichmentTask {
	return EnrichmentTask{ID: uuid.NewString(), Kind: KindArticles, EnqueuedAt: time.Now().UTC()}
}

// NewSummaryVectorsTask creates a task that backfills missing summary vectors.
func NewSummaryVectorsTask() EnrichmentTask {
	return EnrichmentTask{ID: uuid.NewString(), Kind: KindSummaryVectors, EnqueuedAt: time.Now().UTC()}
}

// AttemptKey identifies the work of a task across redeliveries and re-enqueues.
func (t EnrichmentTask) AttemptKey() string {
	if t.Kind == KindJudgment {
		return fmt.Sprintf("judgment:%d:%s", t.ParsedID, t.Model)
	}
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}
