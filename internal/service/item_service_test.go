package service

import (
	"context"
	"testing"

	"threadswap/internal/models"
)

func TestItemCreateMaintainsOwnerItemCount(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	item, err := svc.CreateItem(context.Background(), 1, CreateItemInput{
		Title:    "Denim jacket",
		Category: "outerwear",
		Tags:     []string{"denim", "vintage"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Status != models.ItemStatusAvailable {
		t.Fatalf("new item status = %q, want available", item.Status)
	}
	if w.users[1].ItemCount != 1 {
		t.Fatalf("owner item count = %d, want 1", w.users[1].ItemCount)
	}
}

func TestItemCreateRequiresTitleAndCategory(t *testing.T) {
	svc := NewItemService(noopItemRepo(), noopUserRepo(), nil)

	_, err := svc.CreateItem(context.Background(), 1, CreateItemInput{Category: "tops"})
	assertAppErrCode(t, err, "VALIDATION_ERROR")

	_, err = svc.CreateItem(context.Background(), 1, CreateItemInput{Title: "Shirt"})
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestItemToggleLikeRoundTrip(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addUser(2, 100)
	w.addItem(10, 1, models.ItemStatusAvailable)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	likes, liked, err := svc.ToggleLike(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !liked || likes != 1 {
		t.Fatalf("first toggle: liked=%v likes=%d, want true/1", liked, likes)
	}

	likes, liked, err = svc.ToggleLike(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if liked || likes != 0 {
		t.Fatalf("second toggle: liked=%v likes=%d, want false/0", liked, likes)
	}
	if w.likes[likeKey(10, 2)] {
		t.Fatal("like membership survived the round trip")
	}
}

func TestItemRateRunningMean(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addUser(2, 100)
	it := w.addItem(10, 1, models.ItemStatusAvailable)
	it.Rating = 4.0
	it.TotalRatings = 2
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	rating, count, err := svc.RateItem(context.Background(), 10, 2, 1)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if rating != 3.0 {
		t.Fatalf("rating = %v, want 3.0", rating)
	}
}

func TestItemRateValidatesRange(t *testing.T) {
	svc := NewItemService(noopItemRepo(), noopUserRepo(), nil)

	_, _, err := svc.RateItem(context.Background(), 10, 2, 0)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
	_, _, err = svc.RateItem(context.Background(), 10, 2, 6)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestItemRateOwnItemRejected(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addItem(10, 1, models.ItemStatusAvailable)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	_, _, err := svc.RateItem(context.Background(), 10, 1, 5)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestItemDeletePendingSwapConflict(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addItem(10, 1, models.ItemStatusPendingSwap)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	err := svc.DeleteItem(context.Background(), 1, 10)
	assertAppErrCode(t, err, "CONFLICT")
	if _, ok := w.items[10]; !ok {
		t.Fatal("item deleted despite pending swap")
	}
}

func TestItemDeleteOwnerOnly(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addUser(2, 100)
	w.addItem(10, 1, models.ItemStatusAvailable)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	err := svc.DeleteItem(context.Background(), 2, 10)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestItemDeleteDecrementsItemCount(t *testing.T) {
	w := newExchangeWorld()
	u := w.addUser(1, 100)
	u.ItemCount = 2
	w.addItem(10, 1, models.ItemStatusAvailable)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	if err := svc.DeleteItem(context.Background(), 1, 10); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if w.users[1].ItemCount != 1 {
		t.Fatalf("owner item count = %d, want 1", w.users[1].ItemCount)
	}
	if _, ok := w.items[10]; ok {
		t.Fatal("item still present after delete")
	}
}

func TestItemUpdateOwnerOnly(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addUser(2, 100)
	w.addItem(10, 1, models.ItemStatusAvailable)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	_, err := svc.UpdateItem(context.Background(), 2, 10, UpdateItemInput{Title: "Stolen"})
	assertAppErrCode(t, err, "FORBIDDEN")

	got, err := svc.UpdateItem(context.Background(), 1, 10, UpdateItemInput{Title: "Corduroy pants"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Corduroy pants" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestItemGetCountsView(t *testing.T) {
	w := newExchangeWorld()
	w.addUser(1, 100)
	w.addItem(10, 1, models.ItemStatusAvailable)
	svc := NewItemService(w.itemRepo(), w.userRepo(), nil)

	got, err := svc.GetItem(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("views = %d, want 1", got.Views)
	}
	if w.items[10].Views != 1 {
		t.Fatalf("stored views = %d, want 1", w.items[10].Views)
	}
}

func TestItemSearchRequiresTerm(t *testing.T) {
	svc := NewItemService(noopItemRepo(), noopUserRepo(), nil)
	_, err := svc.SearchItems(context.Background(), "   ")
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestNormalizeImageRefs(t *testing.T) {
	refs := normalizeImageRefs([]models.ImageRef{
		{Ref: "https://cdn.example.com/a.jpg"},
		{Ref: "0a1b2c3d"},
		{Kind: models.ImageRefInline, Ref: "/media/legacy.png"},
		{Kind: models.ImageRefBlob, Ref: "deadbeef", URL: "stale"},
		{Ref: ""},
	})

	if len(refs) != 4 {
		t.Fatalf("len = %d, want 4 (empty ref dropped)", len(refs))
	}
	if refs[0].Kind != models.ImageRefInline || refs[0].URL != "https://cdn.example.com/a.jpg" {
		t.Fatalf("url ref not normalized inline: %+v", refs[0])
	}
	if refs[1].Kind != models.ImageRefBlob {
		t.Fatalf("bare hash not normalized to blob: %+v", refs[1])
	}
	if refs[2].URL != "/media/legacy.png" {
		t.Fatalf("inline ref lost its URL: %+v", refs[2])
	}
	// Blob refs never carry a caller-supplied URL through normalization.
	if refs[3].URL != "" {
		t.Fatalf("blob ref kept stale URL: %+v", refs[3])
	}
}
