package service

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/repository"
	"alcyxob/coach-app/internal/storage"
	"context"
	"errors"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExerciseAccessDenied = errors.New("access denied to modify or delete this exercise")
	ErrValidationFailed     = errors.New("exercise validation failed")
	ErrUploadURLError       = errors.New("failed to generate upload URL")
	ErrDownloadURLError     = errors.New("failed to generate download URL")
	ErrVideoKeyMismatch     = errors.New("object key does not belong to this exercise")
	ErrNoVideo              = errors.New("exercise has no demo video")
)

// ExerciseInput carries the editable catalog fields.
type ExerciseInput struct {
	Name        string
	Description string
	MuscleGroup string
	Equipment   []string
	Difficulty  string
	Technique   string
}

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key the client reports back on confirm
}

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, coachID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	GetExerciseByID(ctx context.Context, coachID, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	GetExercisesByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, coachID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, coachID, exerciseID primitive.ObjectID) error

	// Demo video upload
	RequestVideoUploadURL(ctx context.Context, coachID, exerciseID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmVideoUpload(ctx context.Context, coachID, exerciseID primitive.ObjectID, objectKey string) (*domain.Exercise, error)
	GetVideoURL(ctx context.Context, coachID, exerciseID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	fileStorage  storage.FileStorage
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository, fileStorage storage.FileStorage) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		fileStorage:  fileStorage,
	}
}

// CreateExercise adds an entry to the coach's catalog.
func (s *exerciseService) CreateExercise(ctx context.Context, coachID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrValidationFailed
	}
	if coachID == primitive.NilObjectID {
		return nil, errors.New("coach ID is required to create an exercise")
	}

	exercise := &domain.Exercise{CoachID: coachID}
	applyExerciseInput(exercise, in)

	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		return nil, err
	}
	exercise.ID = exerciseID
	return exercise, nil
}

// GetExerciseByID retrieves a single exercise owned by the coach.
func (s *exerciseService) GetExerciseByID(ctx context.Context, coachID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if exercise.CoachID != coachID {
		return nil, ErrExerciseAccessDenied
	}
	return exercise, nil
}

// GetExercisesByCoach retrieves the coach's catalog.
func (s *exerciseService) GetExercisesByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Exercise, error) {
	if coachID == primitive.NilObjectID {
		return nil, errors.New("coach ID cannot be nil")
	}
	return s.exerciseRepo.GetByCoachID(ctx, coachID)
}

// UpdateExercise handles updating an existing exercise, ensuring ownership.
func (s *exerciseService) UpdateExercise(ctx context.Context, coachID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrValidationFailed
	}

	existing, err := s.GetExerciseByID(ctx, coachID, exerciseID)
	if err != nil {
		return nil, err
	}
	applyExerciseInput(existing, in)

	if err := s.exerciseRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return existing, nil
}

// DeleteExercise removes an exercise and its demo video, ensuring ownership.
func (s *exerciseService) DeleteExercise(ctx context.Context, coachID, exerciseID primitive.ObjectID) error {
	existing, err := s.GetExerciseByID(ctx, coachID, exerciseID)
	if err != nil {
		return err
	}
	if err := s.exerciseRepo.Delete(ctx, exerciseID, coachID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	if existing.VideoObjectKey != "" {
		// The catalog entry is gone either way; a leftover object is only storage.
		if err := s.fileStorage.DeleteObject(ctx, existing.VideoObjectKey); err != nil {
			log.Printf("WARN: Failed to delete demo video of exercise %s: %v", exerciseID.Hex(), err)
		}
	}
	return nil
}

// RequestVideoUploadURL returns a presigned PUT URL for a new demo video.
func (s *exerciseService) RequestVideoUploadURL(ctx context.Context, coachID, exerciseID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if _, err := s.GetExerciseByID(ctx, coachID, exerciseID); err != nil {
		return nil, err
	}
	objectKey, err := storage.ExerciseVideoKey(coachID.Hex(), exerciseID.Hex(), contentType)
	if err != nil {
		return nil, err
	}
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmVideoUpload records an uploaded video and deletes the one it replaces.
func (s *exerciseService) ConfirmVideoUpload(ctx context.Context, coachID, exerciseID primitive.ObjectID, objectKey string) (*domain.Exercise, error) {
	existing, err := s.GetExerciseByID(ctx, coachID, exerciseID)
	if err != nil {
		return nil, err
	}
	prefix := "exercises/" + coachID.Hex() + "/" + exerciseID.Hex() + "/"
	if !strings.HasPrefix(objectKey, prefix) {
		return nil, ErrVideoKeyMismatch
	}

	if err := s.exerciseRepo.SetVideoObjectKey(ctx, exerciseID, coachID, objectKey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if old := existing.VideoObjectKey; old != "" && old != objectKey {
		if err := s.fileStorage.DeleteObject(ctx, old); err != nil {
			log.Printf("WARN: Failed to delete replaced demo video '%s': %v", old, err)
		}
	}
	existing.VideoObjectKey = objectKey
	return existing, nil
}

// GetVideoURL returns a presigned GET URL for the exercise's demo video.
func (s *exerciseService) GetVideoURL(ctx context.Context, coachID, exerciseID primitive.ObjectID) (string, error) {
	existing, err := s.GetExerciseByID(ctx, coachID, exerciseID)
	if err != nil {
		return "", err
	}
	if existing.VideoObjectKey == "" {
		return "", ErrNoVideo
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, existing.VideoObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", ErrDownloadURLError
	}
	return url, nil
}

func applyExerciseInput(e *domain.Exercise, in ExerciseInput) {
	e.Name = strings.TrimSpace(in.Name)
	e.Description = in.Description
	e.MuscleGroup = in.MuscleGroup
	e.Equipment = in.Equipment
	e.Difficulty = in.Difficulty
	e.Technique = in.Technique
}
