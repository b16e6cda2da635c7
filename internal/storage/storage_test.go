package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestExerciseVideoKey(t *testing.T) {
	key, err := ExerciseVideoKey("coach1", "ex1", "Video/MP4")
	if err != nil {
		t.Fatalf("video key: %v", err)
	}
	if !strings.HasPrefix(key, "exercises/coach1/ex1/") || !strings.HasSuffix(key, ".mp4") {
		t.Errorf("unexpected key %q", key)
	}
	other, _ := ExerciseVideoKey("coach1", "ex1", "video/mp4")
	if other == key {
		t.Errorf("expected a fresh key per upload")
	}
}

func TestExerciseVideoKeyRejectsImages(t *testing.T) {
	_, err := ExerciseVideoKey("coach1", "ex1", "image/png")
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Errorf("expected ErrUnsupportedContentType, was: %v", err)
	}
}
