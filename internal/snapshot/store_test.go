package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"alcyxob/coach-app/internal/aigen"
	"alcyxob/coach-app/internal/questionnaire"
)

func openTempStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, ctx
}

func TestSaveLoadClear(t *testing.T) {
	store, ctx := openTempStore(t)

	if _, ok, err := store.Load(ctx, "coach1"); err != nil || ok {
		t.Fatalf("expected nothing stored, was: %v %v", ok, err)
	}

	level, days := "advanced", 5
	snap := questionnaire.Snapshot{
		Answers:      questionnaire.Answers{FitnessLevel: &level, DaysPerWeek: &days},
		Mode:         aigen.ModeClient,
		ClientID:     "c1",
		ClientName:   "Ana",
		TemplateName: "",
		Step:         4,
	}
	if err := store.Save(ctx, "coach1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.Step = 5
	if err := store.Save(ctx, "coach1", snap); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, ok, err := store.Load(ctx, "coach1")
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if got.Step != 5 || got.ClientID != "c1" || got.Mode != aigen.ModeClient {
		t.Errorf("unexpected snapshot %+v", got)
	}
	if got.Answers.FitnessLevel == nil || *got.Answers.FitnessLevel != "advanced" || *got.Answers.DaysPerWeek != 5 {
		t.Errorf("answers not round tripped: %+v", got.Answers)
	}
	if got.Answers.Age != nil {
		t.Errorf("expected unanswered age to stay nil")
	}

	if _, ok, _ := store.Load(ctx, "coach2"); ok {
		t.Errorf("expected snapshots to be per owner")
	}

	if err := store.Clear(ctx, "coach1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "coach1"); ok {
		t.Errorf("expected snapshot cleared")
	}
	if err := store.Clear(ctx, "coach1"); err != nil {
		t.Errorf("clearing twice: %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	store, ctx := openTempStore(t)
	if err := applyMigrations(ctx, store.db); err != nil {
		t.Fatalf("reapply migrations: %v", err)
	}
	var n int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != len(migrations) {
		t.Errorf("expected %d migrations recorded, was: %d", len(migrations), n)
	}
}
