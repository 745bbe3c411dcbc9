package app

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"intranet_chat/internal/chat/domain"
	memberdomain "intranet_chat/internal/member/domain"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/middlewares"
	"intranet_chat/pkg/validate"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const pingInterval = 10 * time.Minute

// MemberProfileDirectory 重新驗證與取得顯示名稱
type MemberProfileDirectory interface {
	Authenticator
	FindMember(ctx context.Context, param *memberdomain.MemberQuery) (*memberdomain.Member, error)
}

// ChatWebsocketHandler 每條連線建立一個 Session
type ChatWebsocketHandler struct {
	deps    SessionDeps
	members MemberProfileDirectory
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(deps SessionDeps, members MemberProfileDirectory) *ChatWebsocketHandler {
	if deps.Auth == nil {
		deps.Auth = members
	}
	return &ChatWebsocketHandler{deps: deps, members: members}
}

// wsWriter websocket 不允許同時寫入，ping 與 effect 共用同一把鎖
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(mt int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(mt, data)
}

func (w *wsWriter) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal websocket response", zap.String("action", resp.Action), zap.Error(err))
		return
	}
	if err := w.write(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

// Emit implements EffectSink
func (w *wsWriter) Emit(effect domain.Action, payload map[string]interface{}) {
	w.send(domain.WSResponse{Action: string(effect), Success: true, Payload: payload})
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenMember := conn.Locals(middlewares.TokenMemberID)
	memberID, ok := tokenMember.(string)
	logger.Log.Info("websocket handle memberID", zap.String("userID", memberID), zap.String("ok", strconv.FormatBool(ok)))
	if !ok || memberID == "" {
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "missing member")
		return
	}

	writer := &wsWriter{conn: conn}
	session := NewSession(memberID, h.displayName(ctx, memberID), h.deps, writer)

	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)

	defer func() {
		ticker.Stop()
		session.Close(context.Background())
		logger.Log.Info("websocket close", zap.String("userID", memberID))
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("Received PONG", zap.String("userID", memberID))
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		writer.mu.Lock()
		defer writer.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	if err := session.Start(ctxClose); err != nil {
		logger.Log.Warn("session start", zap.String("userID", memberID), zap.Error(err))
	}
	writer.send(domain.WSResponse{Action: string(domain.GetSnapshot), Success: true, Payload: map[string]interface{}{
		"snapshot": session.Snapshot(),
	}})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := writer.write(websocket.PingMessage, []byte("ping message")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("Connection closed", zap.String("userID", memberID))
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}

		switch mt {
		case websocket.TextMessage:
			writer.send(h.textMessageAction(ctxClose, session, message))
		default:
			writer.send(errorResponse("unsupported message type"))
		}
	}
}

func (h *ChatWebsocketHandler) displayName(ctx context.Context, memberID string) string {
	if h.members == nil {
		return ""
	}
	m, err := h.members.FindMember(ctx, &memberdomain.MemberQuery{MemberID: &memberID})
	if err != nil {
		logger.Log.Warn("find member display name", zap.String("userID", memberID), zap.Error(err))
		return ""
	}
	return m.DisplayName
}

// textMessageAction 解析並驗證 request 後交給 session，錯誤已由 session 轉成 toast
func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, session *Session, msg []byte) domain.WSResponse {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse("invalid json")
	}
	if err := validate.Struct("websocket request", req); err != nil {
		return domain.WSResponse{Action: req.Action, Error: err.Error()}
	}

	resp := domain.WSResponse{Action: req.Action, Payload: map[string]interface{}{}}
	var err error

	switch domain.Action(req.Action) {
	case domain.OpenLauncher:
		session.OpenLauncher(ctx)
	case domain.ClosePanel:
		session.ClosePanel(ctx)
	case domain.SelectConversation:
		err = session.SelectConversation(ctx, req.ConversationID, req.Label)
		resp.Payload["conversation_id"] = req.ConversationID
	case domain.Minimize:
		err = session.Minimize(ctx)
	case domain.ReopenPill:
		err = session.ReopenPill(ctx, req.ConversationID)
	case domain.CloseConversation:
		session.CloseConversation(ctx, req.ConversationID)
	case domain.SetTabHidden:
		session.SetTabHidden(ctx, req.Hidden)

	case domain.SendMessage:
		var m domain.Message
		m, err = session.SendMessage(ctx, SendRequest{
			ConversationID: req.ConversationID,
			RecipientID:    req.RecipientID,
			Text:           req.Text,
			ClientID:       req.ClientID,
		})
		resp.Payload["message_id"] = m.ID
		resp.Payload["client_id"] = req.ClientID
	case domain.SendAttachment:
		var m domain.Message
		m, err = session.SendAttachment(ctx, req.ConversationID, req.RecipientID, req.AttachmentURL, req.ClientID)
		resp.Payload["message_id"] = m.ID
		resp.Payload["client_id"] = req.ClientID
	case domain.LoadOlder:
		var page []domain.Message
		page, err = session.LoadOlder(ctx, req.ConversationID)
		resp.Payload["conversation_id"] = req.ConversationID
		resp.Payload["count"] = len(page)
	case domain.DeleteMessage:
		err = session.DeleteMessage(ctx, req.MessageID, req.Password)
		resp.Payload["message_id"] = req.MessageID
	case domain.DeleteConversation:
		err = session.DeleteConversation(ctx, req.ConversationID, req.Password)
		resp.Payload["conversation_id"] = req.ConversationID

	case domain.ListConversations:
		var list []domain.Conversation
		list, err = session.ListConversations(ctx)
		resp.Payload["conversations"] = list
	case domain.SearchConversations:
		resp.Payload["conversations"] = session.SearchConversations(req.Query)
	case domain.GetSnapshot:
		resp.Payload["snapshot"] = session.Snapshot()

	default:
		return errorResponse("unknown action")
	}

	if err != nil {
		resp.Error = err.Error()
		logger.Log.Warn("websocket action failed", zap.String("MemberID", session.UserID()), zap.String("Action", req.Action), zap.Error(err))
		return resp
	}
	resp.Success = true
	return resp
}

func errorResponse(errorMsg string) domain.WSResponse {
	return domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Errorf("Failed to send CloseMessage: %v", err)
	}
	conn.Close()
}
