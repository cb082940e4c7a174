package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveRun(ctx, Run{
		RunSummary: RunSummary{
			DrugName:  "Omeprazole",
			NSubjects: 500,
			CmaxP50:   210.5,
			CmaxP95:   480.2,
			AUCMean:   1234.5,
			Severity:  "safe",
		},
		ParamsJSON: `{"dose":20}`,
		ResultJSON: `{"cmax":[1,2,3]}`,
	})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	run, err := store.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.DrugName != "Omeprazole" || run.NSubjects != 500 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.ParamsJSON != `{"dose":20}` || run.ResultJSON != `{"cmax":[1,2,3]}` {
		t.Fatalf("payloads not round-tripped: %+v", run)
	}
	if run.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}
}

func TestSaveRunRequiresDrugName(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.SaveRun(context.Background(), Run{}); err == nil {
		t.Fatalf("expected error for empty drug name")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetRun(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := store.SaveRun(ctx, Run{
			RunSummary: RunSummary{DrugName: name, NSubjects: 10},
			ParamsJSON: "{}",
			ResultJSON: "{}",
		}); err != nil {
			t.Fatalf("SaveRun(%s): %v", name, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].DrugName != "third" || runs[1].DrugName != "second" {
		t.Fatalf("order wrong: %+v", runs)
	}
}

func TestPubchemCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutCachedCompound(ctx, "  Caffeine ", `{"mw":194.19}`); err != nil {
		t.Fatalf("PutCachedCompound: %v", err)
	}

	// Lookups normalize case and whitespace.
	got, err := store.GetCachedCompound(ctx, "caffeine", time.Hour)
	if err != nil {
		t.Fatalf("GetCachedCompound: %v", err)
	}
	if got.Payload != `{"mw":194.19}` {
		t.Fatalf("payload = %q", got.Payload)
	}

	// Upsert replaces the payload.
	if err := store.PutCachedCompound(ctx, "caffeine", `{"mw":194.2}`); err != nil {
		t.Fatalf("PutCachedCompound upsert: %v", err)
	}
	got, err = store.GetCachedCompound(ctx, "caffeine", time.Hour)
	if err != nil {
		t.Fatalf("GetCachedCompound after upsert: %v", err)
	}
	if got.Payload != `{"mw":194.2}` {
		t.Fatalf("payload after upsert = %q", got.Payload)
	}
}

func TestPubchemCacheMiss(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetCachedCompound(context.Background(), "nothing", time.Hour); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
