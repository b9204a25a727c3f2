package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/pkg/answer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Extension pages connect from arbitrary origins, same policy as
	// the REST CORS layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the frame format in both directions. Inbound frames
// carry a chat query in Content and an optional mode; outbound frames
// carry the answer text plus its status tag.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
		s.handleChatFrame(c, conn, msg)
	}
}

func (s *Server) handleChatFrame(c *gin.Context, conn *websocket.Conn, msg wsMessage) {
	mode, err := models.ParseAnswerMode(msg.Mode)
	if err != nil {
		s.sendFrame(conn, wsMessage{Type: "error", Content: err.Error()})
		return
	}

	result, err := s.deps.Retriever.Retrieve(c.Request.Context(), msg.Content, mode)
	if err != nil {
		s.sendFrame(conn, wsMessage{
			Type:    "response",
			Content: "Retrieval failed: " + err.Error(),
			Status:  string(answer.StatusError),
		})
		return
	}

	a := s.deps.Synthesizer.Synthesize(c.Request.Context(), msg.Content, mode, result)
	s.sendFrame(conn, wsMessage{
		Type:    "response",
		Content: a.Text,
		Status:  string(a.Status),
	})
}

func (s *Server) sendFrame(conn *websocket.Conn, msg wsMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		slog.Warn("websocket write failed", "error", err)
	}
}
