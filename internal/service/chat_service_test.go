package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct{ frames []map[string]interface{} }

func (r *recordingWriter) WriteMessage(_ int, data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	r.frames = append(r.frames, m)
	return nil
}

type fakeStreamer struct{ messages []llm.Message }

func (f *fakeStreamer) StreamChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, w llm.MessageWriter) error {
	f.messages = messages
	_ = w.WriteMessage(websocket.TextMessage, []byte("Gemäss "))
	return w.WriteMessage(websocket.TextMessage, []byte("Art. 41 OR"))
}

func TestStreamAnswer(t *testing.T) {
	streamer := &fakeStreamer{}
	w := &recordingWriter{}
	results := &model.SearchResponseDTO{
		Documents: []model.JudgmentResultDTO{{SummaryID: 1, FileName: "ZK_1.pdf", Summary: "Haftung", Entscheid: "gutgeheissen"}},
		Articles:  []model.ArticleResultDTO{{ArtID: "41", ShortName: "OR", FullArticle: "Wer einem andern"}},
	}

	require.NoError(t, NewChatService(streamer).StreamAnswer(context.Background(), "Wer haftet?", results, w, nil))
	require.Len(t, w.frames, 3)
	assert.Equal(t, "chunk", w.frames[0]["type"])
	assert.Equal(t, "Art. 41 OR", w.frames[1]["chunk"])
	assert.Equal(t, "completion", w.frames[2]["type"])

	system := streamer.messages[0].Content
	assert.Contains(t, system, "[1] (ZK_1.pdf) Haftung gutgeheissen")
	assert.Contains(t, system, "[2] (Art. 41 OR) Wer einem andern")
}

func TestStreamAnswerStops(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewChatService(&fakeStreamer{}).StreamAnswer(context.Background(), "q", nil, w, func() bool { return true }))
	require.Len(t, w.frames, 1)
	assert.Equal(t, "completion", w.frames[0]["type"])
}

func TestSnippetTruncatesRunes(t *testing.T) {
	long := make([]rune, maxSnippetLen+5)
	for i := range long {
		long[i] = 'ä'
	}
	assert.Len(t, []rune(snippet(string(long))), maxSnippetLen+1)
}
