package service

import (
	"context"
	"io"
	"testing"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	summaries map[int64]*model.Summary
	parsed    map[int64]*model.ParsedDocument
}

func (f fakeLookup) FindSummary(_ context.Context, id int64) (*model.Summary, error) {
	if s, ok := f.summaries[id]; ok {
		return s, nil
	}
	return nil, search.ErrNotFound
}

func (f fakeLookup) FindParsed(_ context.Context, id int64) (*model.ParsedDocument, error) {
	if d, ok := f.parsed[id]; ok {
		return d, nil
	}
	return nil, search.ErrNotFound
}

type fakeObjectStore struct{ presigned []string }

func (f *fakeObjectStore) Open(context.Context, string) (io.ReadCloser, error) { return nil, nil }

func (f *fakeObjectStore) PresignedURL(_ context.Context, name string) (string, error) {
	f.presigned = append(f.presigned, name)
	return "https://minio.local/judgments/" + name + "?sig=x", nil
}

func TestGenerateDownloadURL(t *testing.T) {
	objects := &fakeObjectStore{}
	lookup := fakeLookup{
		summaries: map[int64]*model.Summary{1: {ID: 1, ParsedID: 10}, 2: {ID: 2, ParsedID: 20}},
		parsed: map[int64]*model.ParsedDocument{
			10: {ID: 10, FileName: "ZK_1.pdf", FilePath: "2021/ZK_1.pdf"},
			20: {ID: 20},
		},
	}
	svc := NewDocumentService(lookup, objects)

	info, err := svc.GenerateDownloadURL(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ZK_1.pdf", info.FileName)
	assert.Contains(t, info.DownloadURL, "2021/ZK_1.pdf")
	assert.Equal(t, []string{"2021/ZK_1.pdf"}, objects.presigned)

	_, err = svc.GenerateDownloadURL(context.Background(), 2)
	assert.ErrorIs(t, err, search.ErrNotFound)
	_, err = svc.GenerateDownloadURL(context.Background(), 3)
	assert.ErrorIs(t, err, search.ErrNotFound)
}
