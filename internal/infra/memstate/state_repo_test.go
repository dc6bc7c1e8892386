package memstate

import (
	"context"
	"sync"
	"testing"

	"sales-tracker-bot/internal/domain/model"
)

func TestGetCreatesIdleSession(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	s, err := repo.Get(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Active() || len(s.Data) != 0 {
		t.Errorf("first touch session = %+v, want idle and empty", s)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	s, _ := repo.Get(ctx, 1, 2)
	s.Step = model.StepClientPhone
	s.Set(model.FieldPhone, "79991234567")

	again, _ := repo.Get(ctx, 1, 2)
	if again.Active() || len(again.Data) != 0 {
		t.Error("mutating a snapshot must not affect the stored session")
	}
}

func TestUpdateIsVisible(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	err := repo.Update(ctx, 1, 2, func(s *model.Session) error {
		s.Step = model.StepClientName
		s.Set(model.FieldPhone, "79991234567")
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	s, _ := repo.Get(ctx, 1, 2)
	if s.Step != model.StepClientName || s.Data[model.FieldPhone] != "79991234567" {
		t.Errorf("session after update = %+v", s)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	_ = repo.Update(ctx, 1, 2, func(s *model.Session) error {
		s.Step = model.StepWithdrawalAmount
		s.Set(model.FieldAmount, "50")
		return nil
	})

	for i := 0; i < 2; i++ {
		if err := repo.Clear(ctx, 1, 2); err != nil {
			t.Fatalf("Clear #%d: %v", i+1, err)
		}
		s, _ := repo.Get(ctx, 1, 2)
		if s.Active() || len(s.Data) != 0 {
			t.Fatalf("after Clear #%d session = %+v, want idle and empty", i+1, s)
		}
	}
}

func TestSessionsArePartitionedByKey(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	_ = repo.Update(ctx, 1, 2, func(s *model.Session) error {
		s.Step = model.StepClientPhone
		return nil
	})

	other, _ := repo.Get(ctx, 1, 3)
	if other.Active() {
		t.Error("different chat must have its own session")
	}
	other, _ = repo.Get(ctx, 9, 2)
	if other.Active() {
		t.Error("different user must have its own session")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Update(ctx, int64(i%5), 1, func(s *model.Session) error {
				s.Step = model.StepClientAmount
				s.Set(model.FieldAmount, "1")
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i := int64(0); i < 5; i++ {
		s, _ := repo.Get(ctx, i, 1)
		if s.Step != model.StepClientAmount {
			t.Errorf("session %d step = %q", i, s.Step)
		}
	}
}
