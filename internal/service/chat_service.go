package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/pkg/llm"
)

// ChatService streams an LLM answer grounded in search results.
type ChatService interface {
	StreamAnswer(ctx context.Context, question string, results *model.SearchResponseDTO, w llm.MessageWriter, shouldStop func() bool) error
}

// Streamer is the part of the LLM client used for answers.
type Streamer interface {
	StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error
}

type chatService struct {
	llmClient Streamer
}

// NewChatService creates a ChatService.
func NewChatService(llmClient Streamer) ChatService {
	return &chatService{llmClient: llmClient}
}

// maxSnippetLen bounds each source in the prompt, in runes.
const maxSnippetLen = 1000

func (s *chatService) StreamAnswer(ctx context.Context, question string, results *model.SearchResponseDTO, w llm.MessageWriter, shouldStop func() bool) error {
	messages := llm.AnswerMessages(question, buildContextText(results))
	interceptor := &wsWriterInterceptor{conn: w, shouldStop: shouldStop}
	if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		return err
	}
	sendCompletion(w)
	return nil
}

func buildContextText(results *model.SearchResponseDTO) string {
	if results == nil || (len(results.Documents) == 0 && len(results.Articles) == 0) {
		return "(keine Treffer)"
	}
	var b strings.Builder
	n := 1
	for _, d := range results.Documents {
		label := d.FileName
		if label == "" {
			label = fmt.Sprintf("Entscheid %d", d.SummaryID)
		}
		fmt.Fprintf(&b, "[%d] (%s) %s\n", n, label, snippet(d.Summary+" "+d.Entscheid))
		n++
	}
	for _, a := range results.Articles {
		label := strings.TrimSpace(fmt.Sprintf("Art. %s %s", a.ArtID, a.ShortName))
		fmt.Fprintf(&b, "[%d] (%s) %s\n", n, label, snippet(a.FullArticle))
		n++
	}
	return b.String()
}

func snippet(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > maxSnippetLen {
		return string(r[:maxSnippetLen]) + "…"
	}
	return string(r)
}

// wsWriterInterceptor wraps streamed chunks as {"type":"chunk","chunk":...}.
type wsWriterInterceptor struct {
	conn       llm.MessageWriter
	shouldStop func() bool
}

func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		return nil
	}
	b, _ := json.Marshal(map[string]string{"type": "chunk", "chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}

func sendCompletion(w llm.MessageWriter) {
	b, _ := json.Marshal(map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	})
	_ = w.WriteMessage(websocket.TextMessage, b)
}
