// Package seed provides helpers to create demo data for the exchange
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"threadswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	categories = []string{"tops", "bottoms", "outerwear", "dresses", "shoes", "accessories"}
	sizes      = []string{"XS", "S", "M", "L", "XL", "XXL"}
	conditions = []string{"new", "like-new", "excellent", "good", "fair"}
	brands     = []string{"Levi's", "Uniqlo", "Patagonia", "Zara", "Carhartt", "Arket", "COS", "Dr. Martens"}
	garments   = []string{"jacket", "shirt", "sweater", "coat", "jeans", "skirt", "scarf", "boots", "cardigan", "blazer"}
	fabrics    = []string{"denim", "wool", "linen", "corduroy", "cotton", "leather", "silk", "fleece"}
	tagPool    = []string{"vintage", "y2k", "workwear", "minimalist", "streetwear", "cottagecore", "grunge", "preppy", "retro"}
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seedVal := opts.RandSeed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	gofakeit.Seed(seedVal)
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seedVal))}
}

// CreateUser constructs and persists a sample member profile. Optional
// override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Bio:      gofakeit.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Points:   models.StartingPoints,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildItem constructs a listing without persisting it.
func (f *Factory) BuildItem(owner *models.User, overrides ...func(*models.Item)) *models.Item {
	fabric := fabrics[f.rng.Intn(len(fabrics))]
	garment := garments[f.rng.Intn(len(garments))]

	item := &models.Item{
		UserID:      owner.ID,
		Title:       fmt.Sprintf("%s %s %s", brands[f.rng.Intn(len(brands))], fabric, garment),
		Description: gofakeit.Paragraph(1, 2, 8, " "),
		Category:    categories[f.rng.Intn(len(categories))],
		Size:        sizes[f.rng.Intn(len(sizes))],
		Condition:   conditions[f.rng.Intn(len(conditions))],
		Brand:       brands[f.rng.Intn(len(brands))],
		Status:      models.ItemStatusAvailable,
		Tags:        f.pickTags(),
		Images: models.ImageRefList{{
			Kind: models.ImageRefInline,
			Ref:  gofakeit.UUID(),
			URL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		}},
	}

	// Realistic listing age spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	item.CreatedAt = time.Now().
		Add(-time.Duration(f.rng.Intn(maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rng.Intn(24)) * time.Hour)

	for _, override := range overrides {
		override(item)
	}
	return item
}

// CreateItem persists a generated listing and bumps the owner's item count.
func (f *Factory) CreateItem(owner *models.User, overrides ...func(*models.Item)) (*models.Item, error) {
	item := f.BuildItem(owner, overrides...)
	if err := f.db.Create(item).Error; err != nil {
		return nil, err
	}
	if err := f.db.Model(&models.User{}).
		Where("id = ?", owner.ID).
		Update("item_count", gorm.Expr("item_count + 1")).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItemsBatch persists multiple listings in one DB call.
func (f *Factory) CreateItemsBatch(items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	return f.db.Create(&items).Error
}

func (f *Factory) pickTags() models.StringList {
	n := f.rng.Intn(4)
	tags := make(models.StringList, 0, n)
	for _, i := range f.rng.Perm(len(tagPool))[:n] {
		tags = append(tags, tagPool[i])
	}
	return tags
}
