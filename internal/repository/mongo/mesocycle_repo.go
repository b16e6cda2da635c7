// internal/repository/mongo/mesocycle_repo.go
package mongo

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mesocycleCollectionName = "mesocycles"

// mongoMesocycleRepository implements repository.MesocycleRepository
type mongoMesocycleRepository struct {
	collection *mongo.Collection
}

// NewMongoMesocycleRepository creates a new Mesocycle repository.
func NewMongoMesocycleRepository(db *mongo.Database) repository.MesocycleRepository {
	return &mongoMesocycleRepository{
		collection: db.Collection(mesocycleCollectionName),
	}
}

// Create inserts a new mesocycle. Microcycles without an ID get one.
func (r *mongoMesocycleRepository) Create(ctx context.Context, meso *domain.Mesocycle) (primitive.ObjectID, error) {
	if meso.CoachID == primitive.NilObjectID || meso.Name == "" {
		return primitive.NilObjectID, errors.New("mesocycle requires coachId and name")
	}
	meso.ID = primitive.NewObjectID()
	for i := range meso.Microcycles {
		if meso.Microcycles[i].ID.IsZero() {
			meso.Microcycles[i].ID = primitive.NewObjectID()
		}
	}
	if meso.Microcycles == nil {
		meso.Microcycles = []domain.Microcycle{}
	}
	now := time.Now().UTC()
	meso.CreatedAt = now
	meso.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, meso)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted mesocycle ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single mesocycle by its ID.
func (r *mongoMesocycleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error) {
	var meso domain.Mesocycle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&meso)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &meso, nil
}

// GetByCoachID retrieves all mesocycles of a coach, ordered by block number.
func (r *mongoMesocycleRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error) {
	mesos := []domain.Mesocycle{}
	findOptions := options.Find().SetSort(bson.D{{Key: "blockNumber", Value: 1}, {Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"coachId": coachID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &mesos); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return mesos, nil
}

// Delete removes a mesocycle owned by the coach. Its training days are removed by the service.
func (r *mongoMesocycleRepository) Delete(ctx context.Context, id primitive.ObjectID, coachID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "coachId": coachID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMesocycleIndexes creates necessary indexes. Call during startup.
func EnsureMesocycleIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "blockNumber", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
}
