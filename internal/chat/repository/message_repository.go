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

// MessageRepository 聊天訊息
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// FindLatest 最新 limit 筆，依時間由舊到新
	FindLatest(ctx context.Context, conversationID string, limit int64) ([]domain.Message, error)
	// FindBefore 以 created_at 為 cursor 往前翻頁，依時間由舊到新
	FindBefore(ctx context.Context, conversationID string, before time.Time, limit int64) ([]domain.Message, error)
	// FindUnreadFor 寄給 userID 且尚未讀取的訊息
	FindUnreadFor(ctx context.Context, userID string, limit int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID, userID string) error
	MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error)
	Delete(ctx context.Context, messageID string) error
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
}

type mongoMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *mongoMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}
	_, err := r.coll.InsertOne(ctx, msg)
	return errprocess.Classify("insert message", err)
}

func (r *mongoMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg); err != nil {
		return nil, errprocess.Classify("find message", err)
	}
	return &msg, nil
}

func (r *mongoMessageRepository) FindLatest(ctx context.Context, conversationID string, limit int64) ([]domain.Message, error) {
	return r.findDesc(ctx, bson.M{"conversation_id": conversationID}, limit)
}

func (r *mongoMessageRepository) FindBefore(ctx context.Context, conversationID string, before time.Time, limit int64) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"created_at":      bson.M{"$lt": before},
	}
	return r.findDesc(ctx, filter, limit)
}

func (r *mongoMessageRepository) FindUnreadFor(ctx context.Context, userID string, limit int64) ([]domain.Message, error) {
	filter := bson.M{
		"recipient_id": userID,
		"read_by":      bson.M{"$ne": userID},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.Classify("find unread", err)
	}

	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errprocess.Classify("find unread", err)
	}
	return msgs, nil
}

// findDesc 先倒序取 limit 筆再反轉
func (r *mongoMessageRepository) findDesc(ctx context.Context, filter bson.M, limit int64) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.Classify("find messages", err)
	}

	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errprocess.Classify("find messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, messageID, userID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	return errprocess.Classify("mark read", err)
}

func (r *mongoMessageRepository) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": userID},
			"read_by":         bson.M{"$ne": userID},
		},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return 0, errprocess.Classify("mark conversation read", err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoMessageRepository) Delete(ctx context.Context, messageID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": messageID})
	return errprocess.Classify("delete message", err)
}

func (r *mongoMessageRepository) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, errprocess.Classify("clear conversation messages", err)
	}
	return res.DeletedCount, nil
}
