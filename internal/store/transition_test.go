package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
)

func TestTransitionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Transitions()

	tr := &Transition{
		From:        gesture.ClosedFist,
		To:          gesture.OpenHand,
		ContourArea: 15840,
		FingerGaps:  4,
	}
	if err := repo.Create(tr); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if tr.ID == "" {
		t.Error("Create() should assign an ID")
	}
	if tr.CreatedAt.IsZero() {
		t.Error("Create() should set CreatedAt")
	}
	if tr.Source != SourceCamera {
		t.Errorf("Source = %q, want %q", tr.Source, SourceCamera)
	}

	got, err := repo.GetByID(tr.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.From != gesture.ClosedFist || got.To != gesture.OpenHand || got.Initial {
		t.Errorf("GetByID() = %+v, want fist -> open", got)
	}
	if got.ContourArea != 15840 || got.FingerGaps != 4 {
		t.Errorf("GetByID() area/gaps = %v/%d", got.ContourArea, got.FingerGaps)
	}
	if !got.CreatedAt.Equal(tr.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tr.CreatedAt)
	}
}

func TestTransitionRepository_Initial(t *testing.T) {
	repo := newTestStore(t).Transitions()

	tr := &Transition{Initial: true, To: gesture.NoHand, Source: SourceManual}
	if err := repo.Create(tr); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(tr.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.Initial {
		t.Error("Initial should survive a round trip")
	}
	if got.Source != SourceManual {
		t.Errorf("Source = %q, want %q", got.Source, SourceManual)
	}
}

func TestTransitionRepository_CreateInvalid(t *testing.T) {
	repo := newTestStore(t).Transitions()

	tests := []struct {
		name string
		tr   Transition
	}{
		{name: "unknown target", tr: Transition{From: gesture.NoHand, To: gesture.State(5)}},
		{name: "unknown origin", tr: Transition{From: gesture.State(-3), To: gesture.OpenHand}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(&tt.tr); !errors.Is(err, gesture.ErrUnknownState) {
				t.Errorf("Create() error = %v, want ErrUnknownState", err)
			}
		})
	}
}

func TestTransitionRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestStore(t).Transitions()

	if _, err := repo.GetByID("missing"); err != ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.Latest(); err != ErrNotFound {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestTransitionRepository_ListNewestFirst(t *testing.T) {
	repo := newTestStore(t).Transitions()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	states := []gesture.State{gesture.NoHand, gesture.ClosedFist, gesture.OpenHand, gesture.NoHand}
	for i, st := range states {
		tr := &Transition{
			Initial:   i == 0,
			To:        st,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if i > 0 {
			tr.From = states[i-1]
		}
		if err := repo.Create(tr); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}

	list, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != len(states) {
		t.Fatalf("List() returned %d transitions, want %d", len(list), len(states))
	}
	for i, tr := range list {
		want := states[len(states)-1-i]
		if tr.To != want {
			t.Errorf("List()[%d].To = %v, want %v", i, tr.To, want)
		}
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d transitions", len(limited))
	}

	latest, err := repo.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.To != gesture.NoHand || latest.From != gesture.OpenHand {
		t.Errorf("Latest() = %v -> %v, want open_hand -> no_hand", latest.From, latest.To)
	}

	n, err := repo.Count()
	if err != nil || n != len(states) {
		t.Errorf("Count() = %d, %v; want %d", n, err, len(states))
	}
}

func TestTransitionRepository_DeleteBefore(t *testing.T) {
	repo := newTestStore(t).Transitions()

	old := time.Now().Add(-48 * time.Hour)
	if err := repo.Create(&Transition{Initial: true, To: gesture.NoHand, CreatedAt: old}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(&Transition{From: gesture.NoHand, To: gesture.ClosedFist}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := repo.DeleteBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteBefore() deleted %d rows, want 1", deleted)
	}

	if n, _ := repo.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}
