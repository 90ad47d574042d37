package service

import (
	"context"
	"fmt"
	"sort"

	"threadswap/internal/models"
)

type swapRepoStub struct {
	createFn            func(context.Context, *models.Swap) error
	getByIDFn           func(context.Context, uint) (*models.Swap, error)
	listByParticipantFn func(context.Context, uint) ([]models.Swap, error)
	updateStatusFn      func(context.Context, uint, models.SwapStatus, models.SwapStatus) (bool, error)
	hasActiveForItemFn  func(context.Context, uint) (bool, error)
}

func (s *swapRepoStub) Create(ctx context.Context, swap *models.Swap) error {
	return s.createFn(ctx, swap)
}
func (s *swapRepoStub) GetByID(ctx context.Context, id uint) (*models.Swap, error) {
	return s.getByIDFn(ctx, id)
}
func (s *swapRepoStub) ListByParticipant(ctx context.Context, userID uint) ([]models.Swap, error) {
	return s.listByParticipantFn(ctx, userID)
}
func (s *swapRepoStub) UpdateStatus(ctx context.Context, id uint, expected, next models.SwapStatus) (bool, error) {
	return s.updateStatusFn(ctx, id, expected, next)
}
func (s *swapRepoStub) HasActiveForItem(ctx context.Context, itemID uint) (bool, error) {
	return s.hasActiveForItemFn(ctx, itemID)
}

type itemRepoStub struct {
	createFn         func(context.Context, *models.Item) error
	getByIDFn        func(context.Context, uint) (*models.Item, error)
	listFn           func(context.Context, models.ItemFilter) ([]models.Item, error)
	listByStatusFn   func(context.Context, models.ItemStatus) ([]models.Item, error)
	updateFieldsFn   func(context.Context, uint, map[string]interface{}) error
	deleteFn         func(context.Context, uint) error
	searchFn         func(context.Context, string) ([]models.Item, error)
	featuredFn       func(context.Context, int) ([]models.Item, error)
	updateStatusFn   func(context.Context, uint, models.ItemStatus, models.ItemStatus) (bool, error)
	incrementViewsFn func(context.Context, uint) error
	getLikeFn        func(context.Context, uint, uint) (*models.ItemLike, error)
	createLikeFn     func(context.Context, *models.ItemLike) error
	deleteLikeFn     func(context.Context, uint, uint) error
}

func (s *itemRepoStub) Create(ctx context.Context, item *models.Item) error {
	return s.createFn(ctx, item)
}
func (s *itemRepoStub) GetByID(ctx context.Context, id uint) (*models.Item, error) {
	return s.getByIDFn(ctx, id)
}
func (s *itemRepoStub) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	return s.listFn(ctx, filter)
}
func (s *itemRepoStub) ListByStatus(ctx context.Context, status models.ItemStatus) ([]models.Item, error) {
	return s.listByStatusFn(ctx, status)
}
func (s *itemRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *itemRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *itemRepoStub) Search(ctx context.Context, term string) ([]models.Item, error) {
	return s.searchFn(ctx, term)
}
func (s *itemRepoStub) Featured(ctx context.Context, limit int) ([]models.Item, error) {
	return s.featuredFn(ctx, limit)
}
func (s *itemRepoStub) UpdateStatus(ctx context.Context, id uint, expected, next models.ItemStatus) (bool, error) {
	return s.updateStatusFn(ctx, id, expected, next)
}
func (s *itemRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *itemRepoStub) GetLike(ctx context.Context, itemID, userID uint) (*models.ItemLike, error) {
	return s.getLikeFn(ctx, itemID, userID)
}
func (s *itemRepoStub) CreateLike(ctx context.Context, like *models.ItemLike) error {
	return s.createLikeFn(ctx, like)
}
func (s *itemRepoStub) DeleteLike(ctx context.Context, itemID, userID uint) error {
	return s.deleteLikeFn(ctx, itemID, userID)
}

type userRepoStub struct {
	createFn                  func(context.Context, *models.User) error
	getByIDFn                 func(context.Context, uint) (*models.User, error)
	getByEmailFn              func(context.Context, string) (*models.User, error)
	getByUsernameFn           func(context.Context, string) (*models.User, error)
	updateFn                  func(context.Context, *models.User) error
	listFn                    func(context.Context, int, int) ([]models.User, error)
	leaderboardFn             func(context.Context, int) ([]models.User, error)
	addPointsFn               func(context.Context, uint, int) error
	deductPointsFn            func(context.Context, uint, int) (bool, error)
	incrementItemCountFn      func(context.Context, uint, int) error
	incrementCompletedSwapsFn func(context.Context, uint, int) error
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	return s.leaderboardFn(ctx, limit)
}
func (s *userRepoStub) AddPoints(ctx context.Context, userID uint, amount int) error {
	return s.addPointsFn(ctx, userID, amount)
}
func (s *userRepoStub) DeductPoints(ctx context.Context, userID uint, amount int) (bool, error) {
	return s.deductPointsFn(ctx, userID, amount)
}
func (s *userRepoStub) IncrementItemCount(ctx context.Context, userID uint, delta int) error {
	return s.incrementItemCountFn(ctx, userID, delta)
}
func (s *userRepoStub) IncrementCompletedSwaps(ctx context.Context, userID uint, delta int) error {
	return s.incrementCompletedSwapsFn(ctx, userID, delta)
}

func noopSwapRepo() *swapRepoStub {
	return &swapRepoStub{
		createFn:            func(context.Context, *models.Swap) error { return nil },
		getByIDFn:           func(context.Context, uint) (*models.Swap, error) { return &models.Swap{}, nil },
		listByParticipantFn: func(context.Context, uint) ([]models.Swap, error) { return nil, nil },
		updateStatusFn: func(context.Context, uint, models.SwapStatus, models.SwapStatus) (bool, error) {
			return true, nil
		},
		hasActiveForItemFn: func(context.Context, uint) (bool, error) { return false, nil },
	}
}

func noopItemRepo() *itemRepoStub {
	return &itemRepoStub{
		createFn:       func(context.Context, *models.Item) error { return nil },
		getByIDFn:      func(context.Context, uint) (*models.Item, error) { return &models.Item{}, nil },
		listFn:         func(context.Context, models.ItemFilter) ([]models.Item, error) { return nil, nil },
		listByStatusFn: func(context.Context, models.ItemStatus) ([]models.Item, error) { return nil, nil },
		updateFieldsFn: func(context.Context, uint, map[string]interface{}) error { return nil },
		deleteFn:       func(context.Context, uint) error { return nil },
		searchFn:       func(context.Context, string) ([]models.Item, error) { return nil, nil },
		featuredFn:     func(context.Context, int) ([]models.Item, error) { return nil, nil },
		updateStatusFn: func(context.Context, uint, models.ItemStatus, models.ItemStatus) (bool, error) {
			return true, nil
		},
		incrementViewsFn: func(context.Context, uint) error { return nil },
		getLikeFn:        func(context.Context, uint, uint) (*models.ItemLike, error) { return nil, nil },
		createLikeFn:     func(context.Context, *models.ItemLike) error { return nil },
		deleteLikeFn:     func(context.Context, uint, uint) error { return nil },
	}
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:        func(context.Context, *models.User) error { return nil },
		getByIDFn:       func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		updateFn:        func(context.Context, *models.User) error { return nil },
		listFn:          func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		leaderboardFn:   func(context.Context, int) ([]models.User, error) { return nil, nil },
		addPointsFn:     func(context.Context, uint, int) error { return nil },
		deductPointsFn:  func(context.Context, uint, int) (bool, error) { return true, nil },
		incrementItemCountFn:      func(context.Context, uint, int) error { return nil },
		incrementCompletedSwapsFn: func(context.Context, uint, int) error { return nil },
	}
}

// exchangeWorld is an in-memory store backing the repo stubs with real
// state, for tests that walk the workflow end to end.
type exchangeWorld struct {
	users  map[uint]*models.User
	items  map[uint]*models.Item
	swaps  map[uint]*models.Swap
	likes  map[string]bool
	nextID uint
}

func newExchangeWorld() *exchangeWorld {
	return &exchangeWorld{
		users:  map[uint]*models.User{},
		items:  map[uint]*models.Item{},
		swaps:  map[uint]*models.Swap{},
		likes:  map[string]bool{},
		nextID: 1,
	}
}

func (w *exchangeWorld) addUser(id uint, points int) *models.User {
	u := &models.User{ID: id, Username: fmt.Sprintf("user%d", id), Points: points}
	w.users[id] = u
	return u
}

func (w *exchangeWorld) addItem(id, ownerID uint, status models.ItemStatus) *models.Item {
	it := &models.Item{ID: id, UserID: ownerID, Title: fmt.Sprintf("item %d", id), Status: status}
	w.items[id] = it
	return it
}

func (w *exchangeWorld) swapRepo() *swapRepoStub {
	return &swapRepoStub{
		createFn: func(_ context.Context, s *models.Swap) error {
			s.ID = w.nextID
			w.nextID++
			copied := *s
			w.swaps[s.ID] = &copied
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Swap, error) {
			s, ok := w.swaps[id]
			if !ok {
				return nil, models.NewNotFoundError("Swap", id)
			}
			copied := *s
			return &copied, nil
		},
		listByParticipantFn: func(_ context.Context, userID uint) ([]models.Swap, error) {
			var out []models.Swap
			var ids []uint
			for id := range w.swaps {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				if w.swaps[id].HasParticipant(userID) {
					out = append(out, *w.swaps[id])
				}
			}
			return out, nil
		},
		updateStatusFn: func(_ context.Context, id uint, expected, next models.SwapStatus) (bool, error) {
			s, ok := w.swaps[id]
			if !ok || s.Status != expected {
				return false, nil
			}
			s.Status = next
			return true, nil
		},
		hasActiveForItemFn: func(_ context.Context, itemID uint) (bool, error) {
			for _, s := range w.swaps {
				if !s.References(itemID) {
					continue
				}
				if s.Status == models.SwapStatusPending || s.Status == models.SwapStatusAccepted {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

func (w *exchangeWorld) itemRepo() *itemRepoStub {
	stub := noopItemRepo()
	stub.getByIDFn = func(_ context.Context, id uint) (*models.Item, error) {
		it, ok := w.items[id]
		if !ok {
			return nil, models.NewNotFoundError("Item", id)
		}
		copied := *it
		return &copied, nil
	}
	stub.updateStatusFn = func(_ context.Context, id uint, expected, next models.ItemStatus) (bool, error) {
		it, ok := w.items[id]
		if !ok || it.Status != expected {
			return false, nil
		}
		it.Status = next
		return true, nil
	}
	stub.listByStatusFn = func(_ context.Context, status models.ItemStatus) ([]models.Item, error) {
		var out []models.Item
		var ids []uint
		for id := range w.items {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if w.items[id].Status == status {
				out = append(out, *w.items[id])
			}
		}
		return out, nil
	}
	stub.createFn = func(_ context.Context, it *models.Item) error {
		it.ID = w.nextID
		w.nextID++
		copied := *it
		w.items[it.ID] = &copied
		return nil
	}
	stub.deleteFn = func(_ context.Context, id uint) error {
		delete(w.items, id)
		return nil
	}
	stub.getLikeFn = func(_ context.Context, itemID, userID uint) (*models.ItemLike, error) {
		if w.likes[likeKey(itemID, userID)] {
			return &models.ItemLike{ItemID: itemID, UserID: userID}, nil
		}
		return nil, nil
	}
	stub.createLikeFn = func(_ context.Context, like *models.ItemLike) error {
		w.likes[likeKey(like.ItemID, like.UserID)] = true
		return nil
	}
	stub.deleteLikeFn = func(_ context.Context, itemID, userID uint) error {
		delete(w.likes, likeKey(itemID, userID))
		return nil
	}
	stub.updateFieldsFn = func(_ context.Context, id uint, fields map[string]interface{}) error {
		it, ok := w.items[id]
		if !ok {
			return models.NewNotFoundError("Item", id)
		}
		for key, value := range fields {
			switch key {
			case "likes":
				// Counter expressions reduce to the membership count here.
				count := 0
				for k := range w.likes {
					var itemID, userID uint
					if _, err := fmt.Sscanf(k, "%d:%d", &itemID, &userID); err == nil && itemID == id {
						count++
					}
				}
				it.Likes = count
			case "rating":
				it.Rating = value.(float64)
			case "total_ratings":
				it.TotalRatings = value.(int)
			case "title":
				it.Title = value.(string)
			case "description":
				it.Description = value.(string)
			case "category":
				it.Category = value.(string)
			}
		}
		return nil
	}
	stub.incrementViewsFn = func(_ context.Context, id uint) error {
		it, ok := w.items[id]
		if !ok {
			return models.NewNotFoundError("Item", id)
		}
		it.Views++
		return nil
	}
	return stub
}

func likeKey(itemID, userID uint) string {
	return fmt.Sprintf("%d:%d", itemID, userID)
}

func (w *exchangeWorld) userRepo() *userRepoStub {
	stub := noopUserRepo()
	stub.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		u, ok := w.users[id]
		if !ok {
			return nil, models.NewNotFoundError("User", id)
		}
		copied := *u
		return &copied, nil
	}
	stub.addPointsFn = func(_ context.Context, id uint, amount int) error {
		u, ok := w.users[id]
		if !ok {
			return models.NewNotFoundError("User", id)
		}
		u.Points += amount
		return nil
	}
	stub.deductPointsFn = func(_ context.Context, id uint, amount int) (bool, error) {
		u, ok := w.users[id]
		if !ok || u.Points < amount {
			return false, nil
		}
		u.Points -= amount
		return true, nil
	}
	stub.incrementCompletedSwapsFn = func(_ context.Context, id uint, delta int) error {
		u, ok := w.users[id]
		if !ok {
			return models.NewNotFoundError("User", id)
		}
		u.CompletedSwaps += delta
		return nil
	}
	stub.incrementItemCountFn = func(_ context.Context, id uint, delta int) error {
		u, ok := w.users[id]
		if !ok {
			return models.NewNotFoundError("User", id)
		}
		u.ItemCount += delta
		if u.ItemCount < 0 {
			u.ItemCount = 0
		}
		return nil
	}
	return stub
}

func (w *exchangeWorld) swapService() *SwapService {
	return NewSwapService(w.swapRepo(), w.itemRepo(), w.userRepo(), nil)
}
