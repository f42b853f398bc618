package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SearchSocketHandler streams query progress over a websocket. Each request frame is
// answered with one "state" frame per pipeline state, then a "result" or "error" frame,
// then, when asked for, the chunks of an LLM answer grounded in the result.
type SearchSocketHandler struct {
	searchService service.SearchService
	chatService   service.ChatService
}

// NewSearchSocketHandler creates the handler. chatService may be nil to disable answers.
func NewSearchSocketHandler(searchService service.SearchService, chatService service.ChatService) *SearchSocketHandler {
	return &SearchSocketHandler{searchService: searchService, chatService: chatService}
}

type socketRequest struct {
	Query  string `json:"query"`
	TopN   int    `json:"topN"`
	Answer bool   `json:"answer"`
}

// lockedConn serialises writes; gorilla connections allow one concurrent writer.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedConn) WriteMessage(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(messageType, data)
}

func (l *lockedConn) writeJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.WriteMessage(websocket.TextMessage, b)
}

// Handle upgrades the connection and serves request frames until the client leaves.
func (h *SearchSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[SearchSocket] websocket upgrade failed", err)
		return
	}
	defer conn.Close()
	ws := &lockedConn{conn: conn}
	ctx := c.Request.Context()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Debugf("[SearchSocket] connection closed: %v", err)
			return
		}

		var req socketRequest
		if err := json.Unmarshal(message, &req); err != nil {
			_ = ws.writeJSON(gin.H{"type": "error", "code": http.StatusBadRequest, "message": "invalid request frame"})
			continue
		}

		observe := func(s search.State) {
			_ = ws.writeJSON(gin.H{"type": "state", "state": s.String()})
		}
		res, err := h.searchService.Search(ctx, req.Query, req.TopN, observe)
		if err != nil {
			status, msg := statusOf(err)
			log.Errorf("[SearchSocket] search failed: %v", err)
			_ = ws.writeJSON(gin.H{"type": "error", "code": status, "message": msg})
			continue
		}
		if err := ws.writeJSON(gin.H{"type": "result", "data": res}); err != nil {
			return
		}

		if req.Answer && h.chatService != nil {
			if err := h.chatService.StreamAnswer(ctx, res.Query, res, ws, nil); err != nil {
				log.Errorf("[SearchSocket] answer failed: %v", err)
				_ = ws.writeJSON(gin.H{"type": "error", "code": http.StatusBadGateway, "message": "answer service unavailable"})
			}
		}
	}
}
