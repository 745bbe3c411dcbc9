package repository

import (
	"context"
	"time"

	"intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository 通知存取
type NotificationRepository interface {
	// Upsert 以 key 為 _id 建立或合併，回傳是否為新建
	Upsert(ctx context.Context, key string, in domain.Input, read bool, now time.Time) (bool, error)
	List(ctx context.Context, recipientID string, limit, offset int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	MarkEntityRead(ctx context.Context, recipientID string, t domain.Type, entityID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

type mongoNotificationRepository struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepository create a NotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{
		coll: db.Collection("notifications"),
	}
}

func (r *mongoNotificationRepository) Upsert(ctx context.Context, key string, in domain.Input, read bool, now time.Time) (bool, error) {
	update := bson.M{
		"$set": bson.M{
			"sender_id":  in.SenderID,
			"title":      in.Title,
			"body":       in.Body,
			"route":      in.Route,
			"read":       read,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"recipient_id": in.RecipientID,
			"type":         in.Type,
			"entity_id":    in.EntityID,
			"created_at":   now,
		},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, errprocess.Classify("upsert notification", err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *mongoNotificationRepository) List(ctx context.Context, recipientID string, limit, offset int64) ([]domain.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, bson.M{"recipient_id": recipientID}, opts)
	if err != nil {
		return nil, errprocess.Classify("list notifications", err)
	}
	var out []domain.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, errprocess.Classify("list notifications", err)
	}
	return out, nil
}

func (r *mongoNotificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return errprocess.Classify("mark notification read", err)
	}
	if res.MatchedCount == 0 {
		return errprocess.Wrap(errprocess.ErrNotFound, "mark notification read", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *mongoNotificationRepository) MarkEntityRead(ctx context.Context, recipientID string, t domain.Type, entityID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": domain.Key(recipientID, t, entityID)},
		bson.M{"$set": bson.M{"read": true}},
	)
	return errprocess.Classify("mark entity read", err)
}

func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, errprocess.Classify("mark all read", err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
	return n, errprocess.Classify("count unread notifications", err)
}
