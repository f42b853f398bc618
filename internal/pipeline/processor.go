// Package pipeline turns parsed court decisions and statute text into summaries and vectors.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/repository"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/pkg/embedding"
	"github.com/mesopotato/enrich-justice/pkg/llm"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/mesopotato/enrich-justice/pkg/storage"
	"github.com/mesopotato/enrich-justice/pkg/tasks"
)

// summaryBatch is the page size used when backfilling summary vectors.
const summaryBatch = 100

// Completer is the part of the LLM client used for field extraction.
type Completer interface {
	Chat(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error)
}

// TextExtractor turns a stored source file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// VectorMirror receives every vector written to MySQL so a native vector backend stays in sync.
type VectorMirror interface {
	MirrorSummary(ctx context.Context, sum *model.Summary, vectors map[search.Category][]float32) error
	MirrorArticle(ctx context.Context, id int64, ref search.ArticleRef, vector []float32) error
}

// Processor executes enrichment tasks.
type Processor struct {
	judgments repository.JudgmentRepository
	articles  repository.ArticleRepository
	llm       Completer
	embedder  embedding.Client
	objects   storage.ObjectStore
	extractor TextExtractor
	mirror    VectorMirror
	gate      QualityGate
	cfg       config.EnrichmentConfig
	dims      int
}

// NewProcessor creates a Processor. objects, extractor and mirror may be nil: without the
// first two, documents lacking cleaned text fail; without a mirror only MySQL is written.
func NewProcessor(
	judgments repository.JudgmentRepository,
	articles repository.ArticleRepository,
	completer Completer,
	embedder embedding.Client,
	objects storage.ObjectStore,
	extractor TextExtractor,
	mirror VectorMirror,
	cfg config.EnrichmentConfig,
	dims int,
) *Processor {
	return &Processor{
		judgments: judgments,
		articles:  articles,
		llm:       completer,
		embedder:  embedder,
		objects:   objects,
		extractor: extractor,
		mirror:    mirror,
		gate:      QualityGate{MinTokens: cfg.MinTokens, MaxTokens: cfg.MaxTokens, MaxAttempts: cfg.MaxAttempts},
		cfg:       cfg,
		dims:      dims,
	}
}

// Process dispatches a task by kind.
func (p *Processor) Process(ctx context.Context, task tasks.EnrichmentTask) error {
	switch task.Kind {
	case tasks.KindJudgment:
		return p.processJudgment(ctx, task)
	case tasks.KindArticles:
		return p.processArticles(ctx)
	case tasks.KindSummaryVectors:
		return p.processSummaryVectors(ctx)
	}
	return fmt.Errorf("unknown task kind %q", task.Kind)
}

var fieldCategories = map[llm.Field]search.Category{
	llm.FieldSummary:    search.CategorySummary,
	llm.FieldFacts:      search.CategoryFacts,
	llm.FieldRuling:     search.CategoryRuling,
	llm.FieldLegalBasis: search.CategoryLegalBasis,
}

func (p *Processor) processJudgment(ctx context.Context, task tasks.EnrichmentTask) error {
	modelName := task.Model
	if modelName == "" {
		modelName = p.cfg.Model
	}
	log.Infof("[Processor] enriching parsed_id %d with model %s", task.ParsedID, modelName)

	// 1. idempotency
	done, err := p.judgments.IsSummarized(ctx, task.ParsedID, modelName)
	if err != nil {
		return err
	}
	if done {
		log.Infof("[Processor] skipping parsed_id %d: already summarized with model %s", task.ParsedID, modelName)
		return nil
	}

	// 2. source text
	doc, err := p.judgments.FindParsed(ctx, task.ParsedID)
	if err != nil {
		return fmt.Errorf("load parsed document %d: %w", task.ParsedID, err)
	}
	text, err := p.sourceText(ctx, doc)
	if err != nil {
		return err
	}
	originalTokens := llm.CountTokens(text)
	if p.cfg.MaxSourceTokens > 0 && originalTokens >= p.cfg.MaxSourceTokens {
		log.Warnf("[Processor] skipping parsed_id %d: %d tokens exceed the model context", task.ParsedID, originalTokens)
		return nil
	}

	// 3. field extraction
	sum := &model.Summary{ParsedID: task.ParsedID, Model: modelName, TokenCountOriginal: originalTokens}
	for _, field := range llm.Fields() {
		out, tokens, err := p.extract(ctx, field, text, modelName)
		var gateErr *QualityGateError
		switch {
		case errors.As(err, &gateErr):
			log.Warnf("[Processor] parsed_id %d: keeping best-effort %s: %v", task.ParsedID, field, gateErr)
		case err != nil:
			return fmt.Errorf("parsed_id %d: %w", task.ParsedID, err)
		}
		setField(sum, field, out, tokens)
	}

	// 4. store
	if err := p.judgments.CreateSummary(ctx, sum); err != nil {
		return err
	}
	log.Infof("[Processor] stored summary %d for parsed_id %d", sum.ID, task.ParsedID)

	// 5. vectors
	return p.embedSummary(ctx, sum)
}

// sourceText returns the cleaned text of doc, extracting it from the stored file first
// when the parsed row has none.
func (p *Processor) sourceText(ctx context.Context, doc *model.ParsedDocument) (string, error) {
	if doc.TextCleaned != nil && strings.TrimSpace(*doc.TextCleaned) != "" {
		return *doc.TextCleaned, nil
	}
	if p.objects == nil || p.extractor == nil {
		return "", fmt.Errorf("parsed_id %d has no cleaned text and no object store is configured", doc.ID)
	}
	objectName := doc.FilePath
	if objectName == "" {
		objectName = doc.FileName
	}
	log.Infof("[Processor] parsed_id %d has no cleaned text, extracting %s", doc.ID, objectName)

	obj, err := p.objects.Open(ctx, objectName)
	if err != nil {
		return "", fmt.Errorf("open source file of parsed_id %d: %w", doc.ID, err)
	}
	defer obj.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(obj); err != nil {
		return "", fmt.Errorf("read source file of parsed_id %d: %w", doc.ID, err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("source file of parsed_id %d is empty", doc.ID)
	}

	text, err := p.extractor.ExtractText(ctx, bytes.NewReader(buf.Bytes()), objectName)
	if err != nil {
		return "", fmt.Errorf("extract text of parsed_id %d: %w", doc.ID, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text extracted for parsed_id %d", doc.ID)
	}
	if err := p.judgments.UpdateParsedText(ctx, doc.ID, text, llm.CountTokens(text)); err != nil {
		return "", err
	}
	return text, nil
}

func (p *Processor) extract(ctx context.Context, field llm.Field, text, modelName string) (string, int, error) {
	messages, err := llm.FieldMessages(field, text)
	if err != nil {
		return "", 0, err
	}
	params := &llm.GenerationParams{Model: modelName}
	return p.gate.Generate(ctx, field, func(ctx context.Context) (string, error) {
		return p.llm.Chat(ctx, messages, params)
	})
}

func setField(sum *model.Summary, field llm.Field, text string, tokens int) {
	switch field {
	case llm.FieldSummary:
		sum.SummaryText, sum.TokenCountSummary = text, tokens
	case llm.FieldFacts:
		sum.Sachverhalt, sum.TokenCountSachverhalt = text, tokens
	case llm.FieldRuling:
		sum.Entscheid, sum.TokenCountEntscheid = text, tokens
	case llm.FieldLegalBasis:
		sum.Grundlagen, sum.TokenCountGrundlagen = text, tokens
	}
}

func fieldText(sum *model.Summary, field llm.Field) string {
	switch field {
	case llm.FieldSummary:
		return sum.SummaryText
	case llm.FieldFacts:
		return sum.Sachverhalt
	case llm.FieldRuling:
		return sum.Entscheid
	case llm.FieldLegalBasis:
		return sum.Grundlagen
	}
	return ""
}

// embedSummary writes one vector per field and mirrors them.
func (p *Processor) embedSummary(ctx context.Context, sum *model.Summary) error {
	vectors := make(map[search.Category][]float32, len(fieldCategories))
	for _, field := range llm.Fields() {
		category := fieldCategories[field]
		vec := p.embed(ctx, fieldText(sum, field), fmt.Sprintf("summary %d %s", sum.ID, field))
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.judgments.UpdateVector(ctx, sum.ID, category, search.EncodeVector(vec)); err != nil {
			return err
		}
		vectors[category] = vec
	}
	if p.mirror != nil {
		if err := p.mirror.MirrorSummary(ctx, sum, vectors); err != nil {
			log.Errorf("[Processor] mirroring summary %d failed: %v", sum.ID, err)
		}
	}
	return nil
}

// embed returns the vector of text, or a zero vector when the embedding call fails.
func (p *Processor) embed(ctx context.Context, text, what string) []float32 {
	vec, err := p.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		log.Warnf("[Processor] embedding %s failed, storing zero vector: %v", what, err)
		return make([]float32, p.dims)
	}
	return vec
}

func (p *Processor) processSummaryVectors(ctx context.Context) error {
	total := 0
	for {
		batch, err := p.judgments.FindSummariesMissingVectors(ctx, summaryBatch)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			log.Infof("[Processor] backfilled vectors of %d summaries", total)
			return nil
		}
		for i := range batch {
			if err := p.embedSummary(ctx, &batch[i]); err != nil {
				return err
			}
		}
		total += len(batch)
	}
}

func (p *Processor) processArticles(ctx context.Context) error {
	for _, schema := range search.ArticleSchemas() {
		paragraphs, err := p.articles.FindUnembeddedParagraphs(ctx, schema)
		if err != nil {
			return err
		}
		if err := p.embedArticles(ctx, paragraphs); err != nil {
			return err
		}
		whole, err := p.articles.FindUnembeddedArticles(ctx, schema)
		if err != nil {
			return err
		}
		if err := p.embedArticles(ctx, whole); err != nil {
			return err
		}
		log.Infof("[Processor] %s: embedded %d paragraphs and %d articles", schema.Table(), len(paragraphs), len(whole))
	}
	return nil
}

func (p *Processor) embedArticles(ctx context.Context, items []repository.ArticleText) error {
	for _, item := range items {
		vec := p.embed(ctx, item.Text, item.Ref.String())
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := p.articles.InsertVector(ctx, item.Ref, search.EncodeVector(vec))
		if err != nil {
			return err
		}
		if p.mirror != nil {
			if err := p.mirror.MirrorArticle(ctx, id, item.Ref, vec); err != nil {
				log.Errorf("[Processor] mirroring %s failed: %v", item.Ref, err)
			}
		}
	}
	return nil
}
