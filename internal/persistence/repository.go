// Package persistence holds the commit targets of the editor: the local training day
// repository and a remote backend reached over HTTP.
package persistence

import (
	"context"
	"fmt"

	"alcyxob/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RepositoryAdapter commits editor changes straight to the training day repository.
type RepositoryAdapter struct {
	days repository.TrainingDayRepository
}

func NewRepositoryAdapter(days repository.TrainingDayRepository) *RepositoryAdapter {
	return &RepositoryAdapter{days: days}
}

func (a *RepositoryAdapter) CommitReorder(ctx context.Context, dayID string, orderedIDs []string) error {
	day, err := primitive.ObjectIDFromHex(dayID)
	if err != nil {
		return fmt.Errorf("day id %q: %w", dayID, err)
	}
	ids := make([]primitive.ObjectID, len(orderedIDs))
	for i, raw := range orderedIDs {
		if ids[i], err = primitive.ObjectIDFromHex(raw); err != nil {
			return fmt.Errorf("exercise id %q: %w", raw, err)
		}
	}
	return a.days.ReorderExercises(ctx, day, ids)
}

func (a *RepositoryAdapter) CommitMove(ctx context.Context, itemID, fromDayID, toDayID string, index int) error {
	var ids [3]primitive.ObjectID
	for i, raw := range []string{itemID, fromDayID, toDayID} {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return fmt.Errorf("id %q: %w", raw, err)
		}
		ids[i] = id
	}
	return a.days.MoveExercise(ctx, ids[0], ids[1], ids[2], index)
}
