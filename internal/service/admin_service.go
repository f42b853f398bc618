package service

import (
	"context"
	"time"

	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/mesopotato/enrich-justice/pkg/tasks"
)

// publishBatch bounds the number of tasks written to Kafka per call.
const publishBatch = 500

// TaskPublisher sends enrichment tasks to the queue.
type TaskPublisher interface {
	Publish(ctx context.Context, ts ...tasks.EnrichmentTask) error
}

// PendingFinder lists parsed decisions still waiting for a summary.
type PendingFinder interface {
	FindPendingParsedIDs(ctx context.Context, language string, maxTokens int, model string) ([]int64, error)
}

// AdminService triggers the enrichment jobs.
type AdminService interface {
	// EnqueuePendingJudgments publishes one task per parsed decision not yet summarized
	// by modelName; an empty modelName uses the configured model.
	EnqueuePendingJudgments(ctx context.Context, modelName string) (*model.EnqueueResponseDTO, error)
	EnqueueArticleEmbedding(ctx context.Context) (*model.EnqueueResponseDTO, error)
	EnqueueSummaryVectors(ctx context.Context) (*model.EnqueueResponseDTO, error)
}

type adminService struct {
	publisher TaskPublisher
	pending   PendingFinder
	cfg       config.EnrichmentConfig
}

// NewAdminService creates an AdminService.
func NewAdminService(publisher TaskPublisher, pending PendingFinder, cfg config.EnrichmentConfig) AdminService {
	return &adminService{publisher: publisher, pending: pending, cfg: cfg}
}

func (s *adminService) EnqueuePendingJudgments(ctx context.Context, modelName string) (*model.EnqueueResponseDTO, error) {
	if modelName == "" {
		modelName = s.cfg.Model
	}
	ids, err := s.pending.FindPendingParsedIDs(ctx, s.cfg.Language, s.cfg.MaxSourceTokens, modelName)
	if err != nil {
		return nil, err
	}
	ts := make([]tasks.EnrichmentTask, 0, len(ids))
	for _, id := range ids {
		ts = append(ts, tasks.NewJudgmentTask(id, modelName))
	}
	log.Infof("[AdminService] enqueueing %d judgments for model %s", len(ts), modelName)
	return s.publish(ctx, ts)
}

func (s *adminService) EnqueueArticleEmbedding(ctx context.Context) (*model.EnqueueResponseDTO, error) {
	return s.publish(ctx, []tasks.EnrichmentTask{tasks.NewArticlesTask()})
}

func (s *adminService) EnqueueSummaryVectors(ctx context.Context) (*model.EnqueueResponseDTO, error) {
	return s.publish(ctx, []tasks.EnrichmentTask{tasks.NewSummaryVectorsTask()})
}

func (s *adminService) publish(ctx context.Context, ts []tasks.EnrichmentTask) (*model.EnqueueResponseDTO, error) {
	out := &model.EnqueueResponseDTO{TaskIDs: make([]string, 0, len(ts)), EnqueuedAt: model.LocalTime(time.Now())}
	for start := 0; start < len(ts); start += publishBatch {
		end := start + publishBatch
		if end > len(ts) {
			end = len(ts)
		}
		if err := s.publisher.Publish(ctx, ts[start:end]...); err != nil {
			log.Errorf("[AdminService] publishing tasks %d..%d failed: %v", start, end, err)
			return nil, err
		}
		for _, t := range ts[start:end] {
			out.TaskIDs = append(out.TaskIDs, t.ID)
		}
	}
	out.Tasks = len(out.TaskIDs)
	return out, nil
}
