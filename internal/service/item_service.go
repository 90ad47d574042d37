package service

import (
	"context"
	"strings"

	"threadswap/internal/cache"
	"threadswap/internal/middleware"
	"threadswap/internal/models"
	"threadswap/internal/repository"
	"threadswap/internal/validation"

	"gorm.io/gorm"
)

// ImageResolver turns blob refs into servable URLs and disposes of blobs
// whose item is gone. Deletion is best-effort; failures are logged inside
// the implementation, never returned.
type ImageResolver interface {
	ResolveRefs(ctx context.Context, refs models.ImageRefList) models.ImageRefList
	DeleteRef(ctx context.Context, ref string)
}

// ItemService owns the catalog. It never moves an item out of available;
// status transitions past creation and owner delete belong to the swap
// workflow.
type ItemService struct {
	itemRepo repository.ItemRepository
	userRepo repository.UserRepository
	images   ImageResolver
}

// CreateItemInput carries the fields for a new listing.
type CreateItemInput struct {
	Title       string
	Description string
	Category    string
	Size        string
	Condition   string
	Brand       string
	Tags        []string
	Images      []models.ImageRef
}

// UpdateItemInput carries a partial listing edit. Nil slices leave the
// current value untouched.
type UpdateItemInput struct {
	Title       string
	Description string
	Category    string
	Size        string
	Condition   string
	Brand       string
	Tags        []string
	Images      []models.ImageRef
}

// NewItemService returns a new ItemService. images may be nil.
func NewItemService(itemRepo repository.ItemRepository, userRepo repository.UserRepository, images ImageResolver) *ItemService {
	return &ItemService{itemRepo: itemRepo, userRepo: userRepo, images: images}
}

// normalizeImageRefs canonicalizes the tagged reference shapes before
// anything downstream sees them. Untagged refs that look like URLs are
// legacy inline records; everything else is a blob store hash.
func normalizeImageRefs(refs []models.ImageRef) models.ImageRefList {
	out := make(models.ImageRefList, 0, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case models.ImageRefBlob:
			out = append(out, models.ImageRef{Kind: models.ImageRefBlob, Ref: ref.Ref})
		case models.ImageRefInline:
			url := ref.URL
			if url == "" {
				url = ref.Ref
			}
			out = append(out, models.ImageRef{Kind: models.ImageRefInline, Ref: ref.Ref, URL: url})
		default:
			if strings.Contains(ref.Ref, "://") || strings.HasPrefix(ref.Ref, "/") {
				out = append(out, models.ImageRef{Kind: models.ImageRefInline, Ref: ref.Ref, URL: ref.Ref})
			} else if ref.Ref != "" {
				out = append(out, models.ImageRef{Kind: models.ImageRefBlob, Ref: ref.Ref})
			}
		}
	}
	return out
}

func (s *ItemService) resolveImages(ctx context.Context, item *models.Item) {
	if s.images == nil {
		return
	}
	item.Images = s.images.ResolveRefs(ctx, item.Images)
}

// CreateItem lists a new garment for its owner and bumps the owner's item
// count.
func (s *ItemService) CreateItem(ctx context.Context, userID uint, in CreateItemInput) (*models.Item, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > 120 {
		return nil, models.NewValidationError("Title too long (max 120 characters)")
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, models.NewValidationError("Category is required")
	}
	if err := validation.ValidateSize(in.Size); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateCondition(in.Condition); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateTags(in.Tags); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	item := &models.Item{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Size:        in.Size,
		Condition:   in.Condition,
		Brand:       in.Brand,
		Tags:        models.StringList(in.Tags),
		Images:      normalizeImageRefs(in.Images),
		Status:      models.ItemStatusAvailable,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	if err := s.userRepo.IncrementItemCount(ctx, userID, 1); err != nil {
		middleware.Logger.WarnContext(ctx, "item count increment failed", "user_id", userID, "error", err)
	}
	cache.InvalidateUser(ctx, userID)
	return item, nil
}

// GetItem returns one listing with resolved image URLs, counting the view.
// viewerID zero means anonymous.
func (s *ItemService) GetItem(ctx context.Context, id, viewerID uint) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.itemRepo.IncrementViews(ctx, id); err != nil {
		middleware.Logger.WarnContext(ctx, "view count increment failed", "item_id", id, "error", err)
	} else {
		item.Views++
	}
	if viewerID != 0 {
		like, err := s.itemRepo.GetLike(ctx, id, viewerID)
		if err == nil && like != nil {
			item.Liked = true
		}
	}
	s.resolveImages(ctx, item)
	return item, nil
}

// ListItems returns listings matching the filter, newest first.
func (s *ItemService) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	items, err := s.itemRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.resolveImages(ctx, &items[i])
	}
	return items, nil
}

// SearchItems runs a case-insensitive substring search over title,
// description, and tags.
func (s *ItemService) SearchItems(ctx context.Context, term string) ([]models.Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, models.NewValidationError("Search term is required")
	}
	items, err := s.itemRepo.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.resolveImages(ctx, &items[i])
	}
	return items, nil
}

// FeaturedItems returns the most-liked available listings.
func (s *ItemService) FeaturedItems(ctx context.Context, limit int) ([]models.Item, error) {
	if limit <= 0 || limit > 50 {
		limit = 8
	}
	items, err := s.itemRepo.Featured(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.resolveImages(ctx, &items[i])
	}
	return items, nil
}

// UpdateItem applies a partial edit. Owner only.
func (s *ItemService) UpdateItem(ctx context.Context, userID, id uint, in UpdateItemInput) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, models.NewForbiddenError("You can only edit your own items")
	}

	fields := map[string]interface{}{}
	if in.Title != "" {
		if len(in.Title) > 120 {
			return nil, models.NewValidationError("Title too long (max 120 characters)")
		}
		fields["title"] = strings.TrimSpace(in.Title)
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.Category != "" {
		fields["category"] = in.Category
	}
	if in.Size != "" {
		if err := validation.ValidateSize(in.Size); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["size"] = in.Size
	}
	if in.Condition != "" {
		if err := validation.ValidateCondition(in.Condition); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["condition"] = in.Condition
	}
	if in.Brand != "" {
		fields["brand"] = in.Brand
	}
	if in.Tags != nil {
		if err := validation.ValidateTags(in.Tags); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["tags"] = models.StringList(in.Tags)
	}
	if in.Images != nil {
		fields["images"] = normalizeImageRefs(in.Images)
	}
	if len(fields) == 0 {
		return item, nil
	}

	if err := s.itemRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	cache.InvalidateItem(ctx, id)
	return s.itemRepo.GetByID(ctx, id)
}

// DeleteItem removes a listing. Owner only; refused while the item is
// locked by a pending swap. Blob refs are disposed best-effort.
func (s *ItemService) DeleteItem(ctx context.Context, userID, id uint) error {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return models.NewForbiddenError("You can only delete your own items")
	}
	if item.Status == models.ItemStatusPendingSwap {
		return models.NewConflictError("Cannot delete an item with a pending swap")
	}

	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.IncrementItemCount(ctx, userID, -1); err != nil {
		middleware.Logger.WarnContext(ctx, "item count decrement failed", "user_id", userID, "error", err)
	}
	if s.images != nil {
		for _, ref := range item.Images {
			if ref.Kind == models.ImageRefBlob {
				s.images.DeleteRef(ctx, ref.Ref)
			}
		}
	}
	cache.InvalidateItem(ctx, id)
	cache.InvalidateUser(ctx, userID)
	return nil
}

// ToggleLike flips the caller's like on an item. Returns the new count and
// whether the caller now likes the item.
func (s *ItemService) ToggleLike(ctx context.Context, itemID, userID uint) (int, bool, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		return 0, false, err
	}

	like, err := s.itemRepo.GetLike(ctx, itemID, userID)
	if err != nil {
		return 0, false, err
	}

	liked := false
	if like != nil {
		if err := s.itemRepo.DeleteLike(ctx, itemID, userID); err != nil {
			return 0, false, err
		}
		// Floor at zero; drifted counters never go negative.
		err = s.itemRepo.UpdateFields(ctx, itemID, map[string]interface{}{
			"likes": gorm.Expr("CASE WHEN likes - 1 < 0 THEN 0 ELSE likes - 1 END"),
		})
	} else {
		liked = true
		if err := s.itemRepo.CreateLike(ctx, &models.ItemLike{ItemID: itemID, UserID: userID}); err != nil {
			return 0, false, err
		}
		err = s.itemRepo.UpdateFields(ctx, itemID, map[string]interface{}{
			"likes": gorm.Expr("likes + 1"),
		})
	}
	if err != nil {
		return 0, false, err
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return 0, false, err
	}
	cache.InvalidateItem(ctx, itemID)
	return item.Likes, liked, nil
}

// RateItem folds one submitted rating into the running mean.
func (s *ItemService) RateItem(ctx context.Context, itemID, userID uint, rating float64) (float64, int, error) {
	if rating < 1 || rating > 5 {
		return 0, 0, models.NewValidationError("Rating must be between 1 and 5")
	}
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return 0, 0, err
	}
	if item.UserID == userID {
		return 0, 0, models.NewValidationError("You cannot rate your own item")
	}

	newCount := item.TotalRatings + 1
	newRating := (item.Rating*float64(item.TotalRatings) + rating) / float64(newCount)
	if err := s.itemRepo.UpdateFields(ctx, itemID, map[string]interface{}{
		"rating":        newRating,
		"total_ratings": newCount,
	}); err != nil {
		return 0, 0, err
	}
	cache.InvalidateItem(ctx, itemID)
	return newRating, newCount, nil
}
