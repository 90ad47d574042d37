package service

import (
	"context"
	"testing"

	"threadswap/internal/models"
)

func TestUserDeductPointsInsufficientBalance(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 30)
	svc := NewUserService(w.userRepo(), w.swapRepo())

	_, err := svc.DeductPoints(context.Background(), 1, 31)
	assertAppErrCode(t, err, "CONFLICT")

	// Balance must be untouched on a refused deduction.
	if w.users[1].Points != 30 {
		t.Fatalf("balance changed to %d on refused deduction", w.users[1].Points)
	}
}

func TestUserDeductPointsExactBalance(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 30)
	svc := NewUserService(w.userRepo(), w.swapRepo())

	balance, err := svc.DeductPoints(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestUserDeductPointsMissingUser(t *testing.T) {
	w := newExchangeWorld()
	svc := NewUserService(w.userRepo(), w.swapRepo())

	_, err := svc.DeductPoints(context.Background(), 42, 10)
	assertAppErrCode(t, err, "NOT_FOUND")
}

func TestUserDeductPointsRejectsNonPositive(t *testing.T) {
	svc := NewUserService(noopUserRepo(), noopSwapRepo())
	_, err := svc.DeductPoints(context.Background(), 1, 0)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
	_, err = svc.DeductPoints(context.Background(), 1, -5)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestUserAddPointsReturnsNewBalance(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	svc := NewUserService(w.userRepo(), w.swapRepo())

	balance, err := svc.AddPoints(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if balance != 150 {
		t.Fatalf("balance = %d, want 150", balance)
	}
}

func TestUserGetOrCreateReturnsExistingUnmodified(t *testing.T) {
	w := newExchangeWorld()
	existing := w.addUser(1, 275)
	existing.CompletedSwaps = 4
	existing.ItemCount = 9
	svc := NewUserService(w.userRepo(), w.swapRepo())

	got, err := svc.GetOrCreate(context.Background(), 1, models.User{Username: "newname", Email: "new@example.com"})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if got.Points != 275 || got.CompletedSwaps != 4 || got.ItemCount != 9 {
		t.Fatalf("existing profile overwritten: %+v", got)
	}
	if got.Username != "user1" {
		t.Fatalf("existing username overwritten: %q", got.Username)
	}
}

func TestUserGetOrCreateLazyCreate(t *testing.T) {
	w := newExchangeWorld()
	repo := w.userRepo()
	repo.createFn = func(_ context.Context, u *models.User) error {
		w.users[u.ID] = u
		return nil
	}
	svc := NewUserService(repo, w.swapRepo())

	got, err := svc.GetOrCreate(context.Background(), 5, models.User{Username: "lazy", Email: "lazy@example.com"})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if got.Points != models.StartingPoints {
		t.Fatalf("starting balance = %d, want %d", got.Points, models.StartingPoints)
	}
	if got.ItemCount != 0 || got.CompletedSwaps != 0 {
		t.Fatalf("fresh profile has nonzero counters: %+v", got)
	}
}

func TestUserGetStats(t *testing.T) {
	w := newExchangeWorld()
	u := w.addUser(1, 180)
	u.ItemCount = 3
	u.CompletedSwaps = 2
	w.addUser(2, 100)
	w.swaps[1] = &models.Swap{ID: 1, InitiatorID: 1, TargetUserID: 2, Status: models.SwapStatusPending}
	w.swaps[2] = &models.Swap{ID: 2, InitiatorID: 2, TargetUserID: 1, Status: models.SwapStatusCompleted}
	w.swaps[3] = &models.Swap{ID: 3, InitiatorID: 2, TargetUserID: 3, Status: models.SwapStatusPending}
	svc := NewUserService(w.userRepo(), w.swapRepo())

	stats, err := svc.GetStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ItemCount != 3 || stats.CompletedSwaps != 2 || stats.Points != 180 {
		t.Fatalf("unexpected profile stats: %+v", stats)
	}
	if stats.TotalSwaps != 2 || stats.PendingSwaps != 1 {
		t.Fatalf("unexpected swap stats: %+v", stats)
	}
}

func TestUserUpdateProfileValidation(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	repo := w.userRepo()
	repo.updateFn = func(_ context.Context, u *models.User) error {
		w.users[u.ID] = u
		return nil
	}
	svc := NewUserService(repo, w.swapRepo())

	long := make([]byte, 31)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Username: string(long)})
	assertAppErrCode(t, err, "VALIDATION_ERROR")

	got, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Bio: "thrift enjoyer"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Bio != "thrift enjoyer" {
		t.Fatalf("bio not applied: %q", got.Bio)
	}
	if got.Username != "user1" {
		t.Fatalf("username clobbered: %q", got.Username)
	}
}
