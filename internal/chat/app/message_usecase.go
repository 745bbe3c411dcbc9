package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"intranet_chat/internal/chat/domain"
	"intranet_chat/internal/chat/repository"
	notifdomain "intranet_chat/internal/notification/domain"
	notifrepo "intranet_chat/internal/notification/repository"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/metrics"
	"intranet_chat/pkg/sanitize"
	"intranet_chat/pkg/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const snippetLength = 80

// SendInput 送出訊息參數
type SendInput struct {
	SenderID       string `validate:"required"`
	SenderName     string `validate:"max=128"`
	ConversationID string `validate:"omitempty,max=128"`
	RecipientID    string `validate:"omitempty,max=64"`
	Text           string `validate:"max=4000"`
	AttachmentURL  string `validate:"omitempty,url"`
	ClientID       string `validate:"omitempty,max=64"`
}

// MessageService session 使用的訊息操作
type MessageService interface {
	Send(ctx context.Context, in SendInput) (domain.Message, error)
	Delete(ctx context.Context, userID, messageID string) (domain.Message, error)
	ClearConversation(ctx context.Context, userID, conversationID string) error
	MarkRead(ctx context.Context, msg domain.Message, userID string) error
	MarkConversationRead(ctx context.Context, conversationID, userID string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
	Latest(ctx context.Context, conversationID string, limit int64) ([]domain.Message, error)
	Before(ctx context.Context, conversationID string, before time.Time, limit int64) ([]domain.Message, error)
	Unread(ctx context.Context, userID string, limit int64) ([]domain.Message, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
}

// MemberDirectory 快速聊天室的成員來源
type MemberDirectory interface {
	ListActiveMemberIDs(ctx context.Context) ([]string, error)
}

// MessageUseCase 負責寫入訊息並透過 pub/sub 同步
type MessageUseCase struct {
	msgRepo    repository.MessageRepository
	convRepo   repository.ConversationRepository
	feed       repository.EventFeed
	triggers   notifrepo.TriggerPublisher
	members    MemberDirectory
	quickRooms domain.QuickRooms
	now        func() time.Time
}

// NewMessageUseCase init create message use case
// triggers 可為 nil；members 為 nil 時快速聊天室只送給摘要內的成員
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	feed repository.EventFeed,
	triggers notifrepo.TriggerPublisher,
	members MemberDirectory,
	quickRooms domain.QuickRooms,
) *MessageUseCase {
	return &MessageUseCase{
		msgRepo:    msgRepo,
		convRepo:   convRepo,
		feed:       feed,
		triggers:   triggers,
		members:    members,
		quickRooms: quickRooms,
		now:        time.Now,
	}
}

// ValidateSend 不碰 db 的檢查：空訊息、缺少收件者
func ValidateSend(in SendInput, quickRooms domain.QuickRooms) (string, error) {
	if err := validate.Struct("send message", in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Text) == "" && in.AttachmentURL == "" {
		return "", errprocess.Validation("send message", "message is empty")
	}

	if quickRooms.Has(in.ConversationID) {
		return in.ConversationID, nil
	}
	if in.RecipientID == "" {
		return "", errprocess.Validation("send message", "recipient is required")
	}
	if in.RecipientID == in.SenderID {
		return "", errprocess.Validation("send message", "cannot message yourself")
	}

	id := domain.DirectConversationID(in.SenderID, in.RecipientID)
	if in.ConversationID != "" && in.ConversationID != id {
		return "", errprocess.Validation("send message", "conversation does not match recipient")
	}
	return id, nil
}

// Send 寫入訊息、更新摘要、發布給聊天室與每個收件者，最後送出 kafka 觸發事件
func (uc *MessageUseCase) Send(ctx context.Context, in SendInput) (domain.Message, error) {
	convID, err := ValidateSend(in, uc.quickRooms)
	if err != nil {
		return domain.Message{}, err
	}
	group := uc.quickRooms.Has(convID)

	text := sanitize.Text(in.Text)
	if text == "" && in.AttachmentURL == "" {
		return domain.Message{}, errprocess.Validation("send message", "message is empty")
	}

	msg := domain.Message{
		ID:             uuid.New().String(),
		ClientID:       in.ClientID,
		ConversationID: convID,
		SenderID:       in.SenderID,
		Text:           text,
		AttachmentURL:  in.AttachmentURL,
		CreatedAt:      uc.now().UTC(),
		ReadBy:         []string{in.SenderID},
	}
	if !group {
		msg.RecipientID = in.RecipientID
	}

	recipients, err := uc.recipients(ctx, convID, group, msg)
	if err != nil {
		return domain.Message{}, err
	}

	if err := uc.msgRepo.Insert(ctx, &msg); err != nil {
		return domain.Message{}, errprocess.Classify("insert message", err)
	}

	conv := domain.Conversation{
		ID:           convID,
		Participants: []string{in.SenderID},
		Group:        group,
		LastMessage:  summaryText(msg),
	}
	if !group {
		conv.Participants = append(conv.Participants, in.RecipientID)
	} else if uc.members != nil {
		conv.Participants = append(conv.Participants, recipients...)
	}
	if err := uc.convRepo.TouchOnSend(ctx, conv, msg, recipients); err != nil {
		return domain.Message{}, errprocess.Classify("touch conversation", err)
	}

	// pub/sub 失敗不影響已寫入的訊息，收件者下次連線由 backlog 補上
	if err := uc.feed.Publish(ctx, repository.RoomChannel(convID), domain.EventMessageAdded, msg); err != nil {
		logger.Log.Warn("publish room message", zap.String("conversation_id", convID), zap.Error(err))
	}
	for _, r := range recipients {
		if err := uc.feed.Publish(ctx, repository.UserChannel(r), domain.EventMessageAdded, msg); err != nil {
			logger.Log.Warn("publish user message", zap.String("recipient_id", r), zap.Error(err))
		}
	}

	uc.publishTrigger(ctx, msg, in.SenderName, group, recipients)
	metrics.ChatEvent("message_sent")
	return msg, nil
}

func (uc *MessageUseCase) recipients(ctx context.Context, convID string, group bool, msg domain.Message) ([]string, error) {
	if !group {
		return []string{msg.RecipientID}, nil
	}
	if uc.members != nil {
		ids, err := uc.members.ListActiveMemberIDs(ctx)
		if err != nil {
			return nil, errprocess.Classify("list room members", err)
		}
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != msg.SenderID {
				out = append(out, id)
			}
		}
		return out, nil
	}

	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, errprocess.ErrNotFound) {
			return nil, nil
		}
		return nil, errprocess.Classify("find conversation", err)
	}
	return conv.Recipients(msg.SenderID), nil
}

func (uc *MessageUseCase) publishTrigger(ctx context.Context, msg domain.Message, senderName string, group bool, recipients []string) {
	if uc.triggers == nil || len(recipients) == 0 {
		return
	}
	body := summaryText(msg)
	ev := notifdomain.TriggerEvent{
		Kind:           notifdomain.TriggerMessageCreated,
		ActorID:        msg.SenderID,
		ActorName:      senderName,
		ConversationID: msg.ConversationID,
		Group:          group,
		EntityID:       msg.ConversationID,
		Recipients:     recipients,
		Text:           body,
		OccurredAt:     msg.CreatedAt,
	}
	if err := uc.triggers.Publish(ctx, ev); err != nil {
		logger.Log.Error("publish message trigger", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

// Delete 只有寄件者可以刪除
func (uc *MessageUseCase) Delete(ctx context.Context, userID, messageID string) (domain.Message, error) {
	if messageID == "" {
		return domain.Message{}, errprocess.Validation("delete message", "message id is required")
	}

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return domain.Message{}, errprocess.Classify("find message", err)
	}
	if msg.SenderID != userID {
		return domain.Message{}, errprocess.Wrap(errprocess.ErrPermissionDenied, "delete message", nil)
	}

	if err := uc.msgRepo.Delete(ctx, messageID); err != nil {
		return domain.Message{}, errprocess.Classify("delete message", err)
	}

	convID := msg.ResolveConversationID()
	ref := domain.MessageRef{ConversationID: convID, ID: messageID}
	if err := uc.feed.Publish(ctx, repository.RoomChannel(convID), domain.EventMessageRemoved, ref); err != nil {
		logger.Log.Warn("publish message removed", zap.String("message_id", messageID), zap.Error(err))
	}
	metrics.ChatEvent("message_deleted")
	return *msg, nil
}

// ClearConversation 刪除所有訊息但保留摘要，再通知聊天室
func (uc *MessageUseCase) ClearConversation(ctx context.Context, userID, conversationID string) error {
	if conversationID == "" {
		return errprocess.Validation("clear conversation", "conversation id is required")
	}
	if !uc.quickRooms.Has(conversationID) && !isDirectParticipant(conversationID, userID) {
		return errprocess.Wrap(errprocess.ErrPermissionDenied, "clear conversation", nil)
	}

	n, err := uc.msgRepo.DeleteByConversation(ctx, conversationID)
	if err != nil {
		return errprocess.Classify("delete messages", err)
	}
	if err := uc.convRepo.ClearSummary(ctx, conversationID); err != nil {
		return errprocess.Classify("clear summary", err)
	}
	logger.Log.Info("conversation cleared", zap.String("conversation_id", conversationID), zap.Int64("deleted", n))

	cleared := domain.ConversationCleared{ConversationID: conversationID, ClearedBy: userID}
	if err := uc.feed.Publish(ctx, repository.RoomChannel(conversationID), domain.EventConversationCleared, cleared); err != nil {
		logger.Log.Warn("publish conversation cleared", zap.String("conversation_id", conversationID), zap.Error(err))
	}
	return nil
}

// MarkRead 單則已讀，並發布 message.modified 讓寄件者看到已讀
func (uc *MessageUseCase) MarkRead(ctx context.Context, msg domain.Message, userID string) error {
	if err := uc.msgRepo.MarkRead(ctx, msg.ID, userID); err != nil {
		return errprocess.Classify("mark read", err)
	}
	if msg.IsReadBy(userID) {
		return nil
	}
	msg.ReadBy = append(append([]string{}, msg.ReadBy...), userID)
	msg.Pending = false
	if err := uc.feed.Publish(ctx, repository.RoomChannel(msg.ResolveConversationID()), domain.EventMessageModified, msg); err != nil {
		logger.Log.Warn("publish read receipt", zap.String("message_id", msg.ID), zap.Error(err))
	}
	return nil
}

// MarkConversationRead 整個聊天室已讀
func (uc *MessageUseCase) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	n, err := uc.msgRepo.MarkConversationRead(ctx, conversationID, userID)
	if err != nil {
		return errprocess.Classify("mark conversation read", err)
	}
	logger.Log.Debug("mark conversation read", zap.String("conversation_id", conversationID), zap.Int64("updated", n))
	return nil
}

// ResetUnread implements UnreadResetter
func (uc *MessageUseCase) ResetUnread(ctx context.Context, conversationID, userID string) error {
	return errprocess.Classify("reset unread", uc.convRepo.ResetUnread(ctx, conversationID, userID))
}

// Latest 最新一頁
func (uc *MessageUseCase) Latest(ctx context.Context, conversationID string, limit int64) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.FindLatest(ctx, conversationID, limit)
	return msgs, errprocess.Classify("load messages", err)
}

// Before 往前翻頁
func (uc *MessageUseCase) Before(ctx context.Context, conversationID string, before time.Time, limit int64) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.FindBefore(ctx, conversationID, before, limit)
	return msgs, errprocess.Classify("load older messages", err)
}

// Unread 寄給自己且未讀的訊息
func (uc *MessageUseCase) Unread(ctx context.Context, userID string, limit int64) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.FindUnreadFor(ctx, userID, limit)
	return msgs, errprocess.Classify("load unread", err)
}

// ListConversations 自己參與的聊天室
func (uc *MessageUseCase) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	list, err := uc.convRepo.ListForUser(ctx, userID)
	return list, errprocess.Classify("list conversations", err)
}

// summaryText 摘要與通知內容，純附件顯示為 [attachment]
func summaryText(msg domain.Message) string {
	if msg.Text == "" && msg.AttachmentURL != "" {
		return "[attachment]"
	}
	return sanitize.Snippet(msg.Text, snippetLength)
}

func isDirectParticipant(conversationID, userID string) bool {
	for _, p := range strings.Split(conversationID, "_") {
		if p == userID {
			return true
		}
	}
	return false
}
