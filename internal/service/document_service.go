package service

import (
	"context"
	"fmt"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/pkg/storage"
)

// DecisionLookup resolves a summary to the parsed document holding its file location.
type DecisionLookup interface {
	FindSummary(ctx context.Context, id int64) (*model.Summary, error)
	FindParsed(ctx context.Context, id int64) (*model.ParsedDocument, error)
}

// DocumentService gives access to judgment source files.
type DocumentService interface {
	GenerateDownloadURL(ctx context.Context, summaryID int64) (*model.DownloadInfoDTO, error)
}

type documentService struct {
	lookup  DecisionLookup
	objects storage.ObjectStore
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(lookup DecisionLookup, objects storage.ObjectStore) DocumentService {
	return &documentService{lookup: lookup, objects: objects}
}

func (s *documentService) GenerateDownloadURL(ctx context.Context, summaryID int64) (*model.DownloadInfoDTO, error) {
	sum, err := s.lookup.FindSummary(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	doc, err := s.lookup.FindParsed(ctx, sum.ParsedID)
	if err != nil {
		return nil, err
	}
	objectName := doc.FilePath
	if objectName == "" {
		objectName = doc.FileName
	}
	if objectName == "" {
		return nil, fmt.Errorf("summary %d has no source file: %w", summaryID, search.ErrNotFound)
	}
	url, err := s.objects.PresignedURL(ctx, objectName)
	if err != nil {
		return nil, err
	}
	return &model.DownloadInfoDTO{SummaryID: summaryID, FileName: doc.FileName, DownloadURL: url}, nil
}
