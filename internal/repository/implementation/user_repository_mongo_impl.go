package implementation

import (
	"context"
	"errors"
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/mapper"
	"tarik-chat-be/internal/model"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserMongoRepository struct {
	col    *mongo.Collection
	mapper *mapper.UserMapper
}

func NewUserMongoRepository(db *mongo.Database) contract.UserRepository {
	return &UserMongoRepository{
		col:    db.Collection(database.UsersCollection),
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserMongoRepository) Create(ctx context.Context, user *entity.User) error {
	if _, err := r.col.InsertOne(ctx, r.mapper.ToDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return chaterr.Validation("email already registered")
		}
		return err
	}
	return nil
}

func (r *UserMongoRepository) FindById(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserMongoRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserMongoRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc model.UserDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&doc), nil
}

func (r *UserMongoRepository) UpdateProfile(ctx context.Context, id string, displayName, country *string) error {
	set := bson.M{}
	if displayName != nil {
		set["display_name"] = *displayName
	}
	if country != nil {
		set["country"] = *country
	}
	if len(set) == 0 {
		return nil
	}

	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return chaterr.ErrNotFound
	}
	return nil
}

func (r *UserMongoRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"password_hash": passwordHash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return chaterr.ErrNotFound
	}
	return nil
}
