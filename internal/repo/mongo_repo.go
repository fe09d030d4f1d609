package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	dom "todoweb/internal/domain"
	"todoweb/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	todosCollection = "todos"
)

type mongoUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (u mongoUser) toDomain() dom.User {
	return dom.User{
		ID:           u.ID.Hex(),
		Username:     u.Username,
		PasswordHash: u.Password,
		CreatedAt:    u.CreatedAt,
	}
}

type mongoTodo struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	Owner       primitive.ObjectID `bson:"owner"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (t mongoTodo) toDomain() dom.Todo {
	return dom.Todo{
		ID:          t.ID.Hex(),
		Description: t.Description,
		Completed:   t.Completed,
		Owner:       t.Owner.Hex(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// EnsureMongoIndexes creates the unique username index and the owner index.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	_, err = db.Collection(todosCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo todos index: %w", err)
	}
	return nil
}

// MongoUserRepo implements UserRepo with MongoDB.
type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	var u mongoUser
	err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return dom.User{}, dom.ErrNotFound
		}
		return dom.User{}, fmt.Errorf("mongo user repo: get by username: %w", err)
	}
	return u.toDomain(), nil
}

func (r *MongoUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	u := mongoUser{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if utils.IsMongoDuplicateKey(err) {
			return dom.User{}, dom.ErrDuplicate
		}
		return dom.User{}, fmt.Errorf("mongo user repo: create: %w", err)
	}
	return u.toDomain(), nil
}

// MongoTodoRepo implements TodoRepo with MongoDB.
type MongoTodoRepo struct {
	coll *mongo.Collection
}

func NewMongoTodoRepo(db *mongo.Database) *MongoTodoRepo {
	return &MongoTodoRepo{coll: db.Collection(todosCollection)}
}

func (r *MongoTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	owner, err := primitive.ObjectIDFromHex(t.Owner)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("mongo todo repo: owner id %q: %w", t.Owner, err)
	}
	now := time.Now().UTC()
	doc := mongoTodo{
		ID:          primitive.NewObjectID(),
		Description: t.Description,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return dom.Todo{}, fmt.Errorf("mongo todo repo: create: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoTodoRepo) ListByOwner(ctx context.Context, owner string) ([]dom.Todo, error) {
	list := make([]dom.Todo, 0)
	oid, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return list, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"owner": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo todo repo: list: %w", err)
	}
	var docs []mongoTodo
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo todo repo: list decode: %w", err)
	}
	for _, d := range docs {
		list = append(list, d.toDomain())
	}
	return list, nil
}

// Toggle uses an update pipeline so the flip happens server-side in one write.
func (r *MongoTodoRepo) Toggle(ctx context.Context, owner, id string) (dom.Todo, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return dom.Todo{}, dom.ErrNotFound
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoTodo
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return dom.Todo{}, dom.ErrNotFound
		}
		return dom.Todo{}, fmt.Errorf("mongo todo repo: toggle: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoTodoRepo) Delete(ctx context.Context, owner, id string) error {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return dom.ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("mongo todo repo: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return dom.ErrNotFound
	}
	return nil
}

// ownedFilter matches a todo by id and owner. Malformed ids can never match.
func ownedFilter(owner, id string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "owner": ownerID}, true
}
