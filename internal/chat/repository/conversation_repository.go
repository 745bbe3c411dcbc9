package repository

import (
	"context"
	"time"

	"intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository 聊天室摘要
type ConversationRepository interface {
	// TouchOnSend 每次送訊息時 upsert 摘要，並將每個 recipient 的 unread +1
	TouchOnSend(ctx context.Context, conv domain.Conversation, msg domain.Message, recipients []string) error
	// ResetUnread 將 unread.<userID> 設為 0
	ResetUnread(ctx context.Context, conversationID, userID string) error
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	// ClearSummary 清空最後訊息與 unread，保留摘要本身
	ClearSummary(ctx context.Context, conversationID string) error
}

type mongoConversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *mongoConversationRepository) TouchOnSend(ctx context.Context, conv domain.Conversation, msg domain.Message, recipients []string) error {
	set := bson.M{
		"last_message":    conv.LastMessage,
		"last_message_at": msg.CreatedAt,
		"last_sender_id":  msg.SenderID,
		"group":           conv.Group,
	}
	inc := bson.M{}
	for _, rcpt := range recipients {
		inc["unread."+rcpt] = 1
	}

	update := bson.M{
		"$set":      set,
		"$addToSet": bson.M{"participants": bson.M{"$each": conv.Participants}},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": conv.ID}, update, options.Update().SetUpsert(true))
	return errprocess.Classify("touch conversation", err)
}

func (r *mongoConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread." + userID: 0}},
	)
	return errprocess.Classify("reset unread", err)
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv); err != nil {
		return nil, errprocess.Classify("find conversation", err)
	}
	return &conv, nil
}

func (r *mongoConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, errprocess.Classify("list conversations", err)
	}

	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, errprocess.Classify("list conversations", err)
	}
	return convs, nil
}

func (r *mongoConversationRepository) ClearSummary(ctx context.Context, conversationID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{
			"last_message":    "",
			"last_message_at": time.Time{},
			"last_sender_id":  "",
			"unread":          bson.M{},
		}},
	)
	return errprocess.Classify("clear conversation", err)
}
