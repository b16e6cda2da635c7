// internal/repository/mongo/training_day_repo.go
package mongo

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/reorder"
	"alcyxob/coach-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trainingDayCollectionName = "training_days"

// mongoTrainingDayRepository implements repository.TrainingDayRepository.
// Day exercises are embedded in their day, so a reorder is one document write and a
// cross-day move is a two-document transaction.
type mongoTrainingDayRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoTrainingDayRepository creates a new TrainingDay repository.
// MoveExercise needs a replica set (or sharded cluster) for transactions.
func NewMongoTrainingDayRepository(db *mongo.Database) repository.TrainingDayRepository {
	return &mongoTrainingDayRepository{
		client:     db.Client(),
		collection: db.Collection(trainingDayCollectionName),
	}
}

// Create inserts a new training day. Exercises get IDs and contiguous order indexes.
func (r *mongoTrainingDayRepository) Create(ctx context.Context, day *domain.TrainingDay) (primitive.ObjectID, error) {
	if day.MesocycleID == primitive.NilObjectID || day.MicrocycleID == primitive.NilObjectID || day.CoachID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("training day requires mesocycleId, microcycleId, and coachId")
	}
	day.ID = primitive.NewObjectID()
	for i := range day.Exercises {
		if day.Exercises[i].ID.IsZero() {
			day.Exercises[i].ID = primitive.NewObjectID()
		}
	}
	list := reorder.New(day.Exercises)
	list.Heal()
	day.Exercises = list.Items()

	now := time.Now().UTC()
	day.CreatedAt = now
	day.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, day)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted training day ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single training day.
func (r *mongoTrainingDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	return r.get(ctx, id)
}

// GetByMesocycleID retrieves all training days of a mesocycle ordered by day number.
// Embedded exercises come back in stored order; callers sort by order index.
func (r *mongoTrainingDayRepository) GetByMesocycleID(ctx context.Context, mesocycleID primitive.ObjectID) ([]domain.TrainingDay, error) {
	days := []domain.TrainingDay{}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"mesocycleId": mesocycleID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// DeleteByMesocycleID removes every training day of a mesocycle.
func (r *mongoTrainingDayRepository) DeleteByMesocycleID(ctx context.Context, mesocycleID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"mesocycleId": mesocycleID})
	return err
}

// AddExercise appends a day exercise at the end of the day.
func (r *mongoTrainingDayRepository) AddExercise(ctx context.Context, dayID primitive.ObjectID, exercise domain.DayExercise) (*domain.DayExercise, error) {
	day, err := r.get(ctx, dayID)
	if err != nil {
		return nil, err
	}
	list := reorder.New(day.Exercises)
	list.Heal()

	exercise.ID = primitive.NewObjectID()
	if err := list.Insert(exercise, list.Len()); err != nil {
		return nil, err
	}
	if err := r.save(ctx, day, list.Items()); err != nil {
		return nil, err
	}
	added, _ := list.Get(exercise.ID.Hex())
	return &added, nil
}

// UpdateExerciseParams replaces the prescription of one day exercise. Order is untouched.
func (r *mongoTrainingDayRepository) UpdateExerciseParams(ctx context.Context, dayID, itemID primitive.ObjectID, params domain.ExerciseParams) error {
	filter := bson.M{"_id": dayID, "exercises._id": itemID}
	update := bson.M{
		"$set": bson.M{
			"exercises.$.params": params,
			"updatedAt":          time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveExercise deletes one day exercise and renumbers the rest.
func (r *mongoTrainingDayRepository) RemoveExercise(ctx context.Context, dayID, itemID primitive.ObjectID) error {
	day, err := r.get(ctx, dayID)
	if err != nil {
		return err
	}
	list := reorder.New(day.Exercises)
	list.Heal()
	if _, err := list.Remove(itemID.Hex()); err != nil {
		return repository.ErrNotFound
	}
	return r.save(ctx, day, list.Items())
}

// ReorderExercises stores the day's exercises in the given order.
func (r *mongoTrainingDayRepository) ReorderExercises(ctx context.Context, dayID primitive.ObjectID, orderedIDs []primitive.ObjectID) error {
	day, err := r.get(ctx, dayID)
	if err != nil {
		return err
	}
	list := reorder.New(day.Exercises)
	list.Heal()
	if err := list.Arrange(hexIDs(orderedIDs)); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return r.save(ctx, day, list.Items())
}

// MoveExercise removes itemID from one day and inserts it into another at index, in one
// transaction. An index past the end appends.
func (r *mongoTrainingDayRepository) MoveExercise(ctx context.Context, itemID, fromDayID, toDayID primitive.ObjectID, index int) error {
	if fromDayID == toDayID {
		return fmt.Errorf("%w: source and destination day are the same", repository.ErrConflict)
	}
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		from, err := r.get(sc, fromDayID)
		if err != nil {
			return nil, err
		}
		to, err := r.get(sc, toDayID)
		if err != nil {
			return nil, err
		}
		if from.MesocycleID != to.MesocycleID {
			return nil, fmt.Errorf("%w: days belong to different mesocycles", repository.ErrConflict)
		}

		source := reorder.New(from.Exercises)
		source.Heal()
		dest := reorder.New(to.Exercises)
		dest.Heal()

		item, err := source.Remove(itemID.Hex())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		if err := dest.Insert(item, index); err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		if err := r.save(sc, from, source.Items()); err != nil {
			return nil, err
		}
		return nil, r.save(sc, to, dest.Items())
	})
	return err
}

func (r *mongoTrainingDayRepository) get(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	var day domain.TrainingDay
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// save writes the exercise list back, failing with ErrConflict when the day changed since it was read.
func (r *mongoTrainingDayRepository) save(ctx context.Context, day *domain.TrainingDay, exercises []domain.DayExercise) error {
	result, err := r.collection.UpdateOne(ctx, versionFilter(day), saveUpdate(exercises, time.Now().UTC()))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

// versionFilter matches day only while it still has the version it was read at. Days stored
// before versions existed have no field and count as version 0.
func versionFilter(day *domain.TrainingDay) bson.M {
	if day.Version == 0 {
		return bson.M{"_id": day.ID, "version": bson.M{"$in": bson.A{int64(0), nil}}}
	}
	return bson.M{"_id": day.ID, "version": day.Version}
}

func saveUpdate(exercises []domain.DayExercise, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"exercises": exercises,
			"updatedAt": now,
		},
		"$inc": bson.M{"version": 1},
	}
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// EnsureTrainingDayIndexes creates necessary indexes. Call during startup.
func EnsureTrainingDayIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mesocycleId", Value: 1}, {Key: "dayNumber", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "exercises._id", Value: 1}},
			Options: options.Index(),
		},
	})
}
