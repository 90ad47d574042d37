package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"threadswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func registerSwapRoutes(s *Server) func(app *fiber.App) {
	return func(app *fiber.App) {
		app.Post("/swaps", s.CreateSwap)
		app.Get("/swaps", s.GetSwaps)
		app.Get("/swaps/stats", s.GetSwapStats)
		app.Post("/swaps/:id/accept", s.AcceptSwap)
		app.Post("/swaps/:id/reject", s.RejectSwap)
		app.Post("/swaps/:id/cancel", s.CancelSwap)
		app.Post("/swaps/:id/complete", s.CompleteSwap)
		app.Get("/swaps/:id", s.GetSwap)
	}
}

func seedSwapFixture(t *testing.T, db *gorm.DB) (alice, bob models.User, aliceItem, bobItem models.Item) {
	t.Helper()

	alice = models.User{Username: "alice", Email: "alice@example.com", Password: "pw", Points: 100}
	bob = models.User{Username: "bob", Email: "bob@example.com", Password: "pw", Points: 100}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	aliceItem = models.Item{UserID: alice.ID, Title: "Denim jacket", Category: "outerwear", Status: models.ItemStatusAvailable}
	bobItem = models.Item{UserID: bob.ID, Title: "Wool scarf", Category: "accessories", Status: models.ItemStatusAvailable}
	require.NoError(t, db.Create(&aliceItem).Error)
	require.NoError(t, db.Create(&bobItem).Error)
	return
}

func proposeSwap(t *testing.T, app *fiber.App, targetItemID, offeredItemID uint) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"target_item_id":  targetItemID,
		"offered_item_id": offeredItemID,
		"message":         "trade?",
	})
	req := httptest.NewRequest(http.MethodPost, "/swaps", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSwapProposeLocksItems(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, _, aliceItem, bobItem := seedSwapFixture(t, db)
	app := newTestApp(alice.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, app, bobItem.ID, aliceItem.ID)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var swap models.Swap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	require.Equal(t, models.SwapStatusPending, swap.Status)
	require.Equal(t, alice.ID, swap.InitiatorID)

	for _, id := range []uint{aliceItem.ID, bobItem.ID} {
		var item models.Item
		require.NoError(t, db.First(&item, id).Error)
		require.Equal(t, models.ItemStatusPendingSwap, item.Status)
	}
}

func TestSwapProposeOwnItemConflict(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, _, aliceItem, _ := seedSwapFixture(t, db)

	secondItem := models.Item{UserID: alice.ID, Title: "Linen shirt", Category: "tops", Status: models.ItemStatusAvailable}
	require.NoError(t, db.Create(&secondItem).Error)

	app := newTestApp(alice.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, app, secondItem.ID, aliceItem.ID)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSwapAcceptFlow(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, bob, aliceItem, bobItem := seedSwapFixture(t, db)

	initiatorApp := newTestApp(alice.ID, registerSwapRoutes(s))
	targetApp := newTestApp(bob.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, initiatorApp, bobItem.ID, aliceItem.ID)
	var swap models.Swap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	_ = resp.Body.Close()

	// The initiator may not accept their own proposal
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/accept", swap.ID), nil)
	denied, err := initiatorApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, denied.StatusCode)
	_ = denied.Body.Close()

	// The target accepts
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/accept", swap.ID), nil)
	accepted, err := targetApp.Test(req)
	require.NoError(t, err)
	defer func() { _ = accepted.Body.Close() }()
	require.Equal(t, http.StatusOK, accepted.StatusCode)

	var acceptedSwap models.Swap
	require.NoError(t, json.NewDecoder(accepted.Body).Decode(&acceptedSwap))
	require.Equal(t, models.SwapStatusAccepted, acceptedSwap.Status)
	require.NotNil(t, acceptedSwap.AcceptedAt)

	// Both items marked swapped
	for _, id := range []uint{aliceItem.ID, bobItem.ID} {
		var item models.Item
		require.NoError(t, db.First(&item, id).Error)
		require.Equal(t, models.ItemStatusSwapped, item.Status)
	}

	// Both parties earned the acceptance reward
	for _, id := range []uint{alice.ID, bob.ID} {
		var u models.User
		require.NoError(t, db.First(&u, id).Error)
		require.Equal(t, 100+models.SwapRewardPoints, u.Points)
		require.Equal(t, 1, u.CompletedSwaps)
	}

	// Accepting twice hits the already-transitioned guard
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/accept", swap.ID), nil)
	again, err := targetApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, again.StatusCode)
	_ = again.Body.Close()
}

func TestSwapRejectReleasesItems(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, bob, aliceItem, bobItem := seedSwapFixture(t, db)

	initiatorApp := newTestApp(alice.ID, registerSwapRoutes(s))
	targetApp := newTestApp(bob.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, initiatorApp, bobItem.ID, aliceItem.ID)
	var swap models.Swap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/reject", swap.ID), nil)
	rejected, err := targetApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rejected.StatusCode)
	_ = rejected.Body.Close()

	for _, id := range []uint{aliceItem.ID, bobItem.ID} {
		var item models.Item
		require.NoError(t, db.First(&item, id).Error)
		require.Equal(t, models.ItemStatusAvailable, item.Status)
	}

	// No reward on rejection
	var u models.User
	require.NoError(t, db.First(&u, alice.ID).Error)
	require.Equal(t, 100, u.Points)
}

func TestSwapCancelOnlyInitiator(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, bob, aliceItem, bobItem := seedSwapFixture(t, db)

	initiatorApp := newTestApp(alice.ID, registerSwapRoutes(s))
	targetApp := newTestApp(bob.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, initiatorApp, bobItem.ID, aliceItem.ID)
	var swap models.Swap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/cancel", swap.ID), nil)
	denied, err := targetApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, denied.StatusCode)
	_ = denied.Body.Close()

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/cancel", swap.ID), nil)
	cancelled, err := initiatorApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, cancelled.StatusCode)
	_ = cancelled.Body.Close()

	var item models.Item
	require.NoError(t, db.First(&item, bobItem.ID).Error)
	require.Equal(t, models.ItemStatusAvailable, item.Status)
}

func TestSwapCompleteMarkerOnly(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, bob, aliceItem, bobItem := seedSwapFixture(t, db)

	initiatorApp := newTestApp(alice.ID, registerSwapRoutes(s))
	targetApp := newTestApp(bob.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, initiatorApp, bobItem.ID, aliceItem.ID)
	var swap models.Swap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/accept", swap.ID), nil)
	accepted, err := targetApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, accepted.StatusCode)
	_ = accepted.Body.Close()

	// Either participant may confirm completion
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/swaps/%d/complete", swap.ID), nil)
	completed, err := initiatorApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, completed.StatusCode)
	_ = completed.Body.Close()

	// Completion never pays a second reward
	var u models.User
	require.NoError(t, db.First(&u, alice.ID).Error)
	require.Equal(t, 100+models.SwapRewardPoints, u.Points)
}

func TestGetSwapParticipantOnly(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, _, aliceItem, bobItem := seedSwapFixture(t, db)

	carol := models.User{Username: "carol", Email: "carol@example.com", Password: "pw", Points: 100}
	require.NoError(t, db.Create(&carol).Error)

	initiatorApp := newTestApp(alice.ID, registerSwapRoutes(s))
	strangerApp := newTestApp(carol.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, initiatorApp, bobItem.ID, aliceItem.ID)
	var swap models.Swap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swap))
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/swaps/%d", swap.ID), nil)
	denied, err := strangerApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, denied.StatusCode)
	_ = denied.Body.Close()

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/swaps/%d", swap.ID), nil)
	ok, err := initiatorApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, ok.StatusCode)
	_ = ok.Body.Close()
}

func TestGetSwapsStatusFilter(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)
	alice, _, aliceItem, bobItem := seedSwapFixture(t, db)
	app := newTestApp(alice.ID, registerSwapRoutes(s))

	resp := proposeSwap(t, app, bobItem.ID, aliceItem.ID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodGet, "/swaps?status=pending", nil)
	listResp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = listResp.Body.Close() }()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var swaps []models.Swap
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&swaps))
	require.Len(t, swaps, 1)

	req = httptest.NewRequest(http.MethodGet, "/swaps?status=bogus", nil)
	badResp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, badResp.StatusCode)
	_ = badResp.Body.Close()
}

func TestAdminRepairPendingItems(t *testing.T) {
	t.Parallel()

	s, db := setupTestServer(t)

	admin := models.User{Username: "admin", Email: "admin@example.com", Password: "pw", IsAdmin: true, Points: 100}
	member := models.User{Username: "member", Email: "member@example.com", Password: "pw", Points: 100}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&member).Error)

	// Stuck item with no live swap referencing it
	orphan := models.Item{UserID: member.ID, Title: "Stray hat", Category: "accessories", Status: models.ItemStatusPendingSwap}
	require.NoError(t, db.Create(&orphan).Error)

	adminApp := newTestApp(admin.ID, func(app *fiber.App) {
		app.Post("/admin/repair-pending-items", s.AdminRequired(), s.RepairPendingItems)
	})
	memberApp := newTestApp(member.ID, func(app *fiber.App) {
		app.Post("/admin/repair-pending-items", s.AdminRequired(), s.RepairPendingItems)
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/repair-pending-items", nil)
	denied, err := memberApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, denied.StatusCode)
	_ = denied.Body.Close()

	req = httptest.NewRequest(http.MethodPost, "/admin/repair-pending-items", nil)
	resp, err := adminApp.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Repaired int `json:"repaired"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Repaired)

	var repaired models.Item
	require.NoError(t, db.First(&repaired, orphan.ID).Error)
	require.Equal(t, models.ItemStatusAvailable, repaired.Status)
}
