package implementation

import (
	"context"
	"fmt"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/mapper"
	"tarik-chat-be/internal/model"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionDocumentMongoRepository struct {
	col    *mongo.Collection
	mapper *mapper.SessionMapper
	now    func() entity.Instant
}

func NewSessionDocumentMongoRepository(db *mongo.Database) contract.SessionDocumentRepository {
	return &SessionDocumentMongoRepository{
		col:    db.Collection(database.SessionsCollection),
		mapper: mapper.NewSessionMapper(),
		now:    entity.Now,
	}
}

func (r *SessionDocumentMongoRepository) List(ctx context.Context, ownerID string) ([]*entity.ChatSession, error) {
	if ownerID == "" {
		return nil, chaterr.ErrUnauthorized
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []model.SessionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*entity.ChatSession, 0, len(docs))
	for i := range docs {
		out = append(out, r.mapper.DocumentToEntity(&docs[i]))
	}
	return out, nil
}

func (r *SessionDocumentMongoRepository) Create(ctx context.Context, ownerID string, session *entity.ChatSession) (string, error) {
	if ownerID == "" {
		return "", chaterr.ErrUnauthorized
	}

	doc := r.mapper.EntityToDocument(session)
	doc.ID = primitive.NilObjectID
	doc.UserID = ownerID
	now := primitive.DateTime(r.now())
	if doc.CreatedAt == 0 {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt == 0 {
		doc.UpdatedAt = now
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert session: unexpected id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (r *SessionDocumentMongoRepository) Update(ctx context.Context, ownerID, sessionID string, fields entity.SessionFields) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return chaterr.ErrNotFound
	}

	set := bson.M{}
	if fields.Name != nil {
		set["name"] = *fields.Name
	}
	if fields.Messages != nil {
		set["messages"] = r.mapper.EntitiesToMessageDocuments(*fields.Messages)
	}
	if fields.UpdatedAt != nil {
		set["updated_at"] = primitive.DateTime(*fields.UpdatedAt)
	} else {
		set["updated_at"] = primitive.DateTime(r.now())
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "user_id": ownerID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return chaterr.ErrNotFound
	}
	return nil
}

func (r *SessionDocumentMongoRepository) Delete(ctx context.Context, ownerID, sessionID string) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil
	}
	_, err = r.col.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	return err
}
