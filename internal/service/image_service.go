package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"threadswap/internal/config"
	"threadswap/internal/middleware"
	"threadswap/internal/models"
	"threadswap/internal/observability"
	"threadswap/internal/repository"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultImageUploadDir       = "/tmp/threadswap/uploads/images"
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	JPEGQuality                 = 82
	WebPQuality                 = 70
)

// variantLadder is the set of widths materialized by the background worker.
var variantLadder = []int{256, 640, 1080}

// UploadFile is one file in a Store call.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService is the blob store adapter: content-addressed storage on disk
// with metadata in the persistent store and a background worker producing a
// resized variant ladder. The content hash is the opaque ref item records
// carry.
type ImageService struct {
	repo               repository.ImageRepository
	uploadDir          string
	baseURL            string
	maxUploadSizeBytes int64
	workerOnce         sync.Once
}

// NewImageService returns a new ImageService.
func NewImageService(repo repository.ImageRepository, cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	baseURL := ""

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		baseURL = strings.TrimRight(cfg.ImageBaseURL, "/")
	}

	return &ImageService{
		repo:               repo,
		uploadDir:          uploadDir,
		baseURL:            baseURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// StartVariantWorker launches the background variant pipeline. Safe to call
// more than once; only the first call starts the loop.
func (s *ImageService) StartVariantWorker(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.workerOnce.Do(func() {
		go s.workerLoop(ctx)
	})
}

// Store writes a set of files into the blob store and returns their refs in
// input order. Identical content dedupes onto the existing record.
func (s *ImageService) Store(ctx context.Context, userID uint, files []UploadFile) ([]string, error) {
	if userID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(files) == 0 {
		return nil, models.NewValidationError("No files uploaded")
	}

	refs := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := s.storeOne(ctx, userID, f)
		if err != nil {
			observability.ImageUploads.WithLabelValues("error").Inc()
			return nil, err
		}
		observability.ImageUploads.WithLabelValues("ok").Inc()
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *ImageService) storeOne(ctx context.Context, userID uint, f UploadFile) (string, error) {
	if len(f.Content) == 0 {
		return "", models.NewValidationError("Empty file")
	}
	if int64(len(f.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(f.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("Invalid image type")
	}
	decoded, format, err := image.Decode(bytes.NewReader(f.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("Unsupported image format")
	}

	hash := contentHash(f.Content)
	existing, err := s.repo.GetByHash(ctx, hash)
	if err == nil {
		return existing.Hash, nil
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		return "", err
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	masterBytes, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	masterRel := filepath.ToSlash(filepath.Join(hash, "master.jpg"))
	if err := writeBytesToFile(filepath.Join(s.uploadDir, masterRel), masterBytes); err != nil {
		return "", models.NewStoreError(err)
	}

	record := &models.Image{
		Hash:        hash,
		UserID:      userID,
		Filename:    f.Filename,
		ContentType: "image/jpeg",
		SizeBytes:   int64(len(masterBytes)),
		Status:      repository.ImageStatusQueued,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		_ = os.Remove(filepath.Join(s.uploadDir, masterRel))
		return "", err
	}
	return hash, nil
}

// ResolveRefs fills servable URLs into a ref list. Inline refs already
// carry their URL; blob refs resolve to the serving endpoint. Unknown blob
// refs are passed through without a URL rather than dropped.
func (s *ImageService) ResolveRefs(_ context.Context, refs models.ImageRefList) models.ImageRefList {
	out := make(models.ImageRefList, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind == models.ImageRefBlob && ref.URL == "" {
			ref.URL = s.ServingURL(ref.Ref)
		}
		out = append(out, ref)
	}
	return out
}

// ServingURL returns the public URL for a blob ref.
func (s *ImageService) ServingURL(hash string) string {
	return fmt.Sprintf("%s/api/images/%s", s.baseURL, hash)
}

// DeleteRef disposes of a blob best-effort. Failures are logged and never
// propagated; the caller already committed whatever made the blob orphaned.
func (s *ImageService) DeleteRef(ctx context.Context, ref string) {
	if s.repo == nil || !isValidImageHash(ref) {
		return
	}
	img, err := s.repo.GetByHashWithVariants(ctx, ref)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "blob delete lookup failed", "ref", ref, "error", err)
		return
	}
	if err := s.repo.Delete(ctx, img.ID); err != nil {
		middleware.Logger.WarnContext(ctx, "blob metadata delete failed", "ref", ref, "error", err)
		return
	}
	if err := os.RemoveAll(filepath.Join(s.uploadDir, ref)); err != nil {
		middleware.Logger.WarnContext(ctx, "blob file delete failed", "ref", ref, "error", err)
	}
}

// ResolveForServing maps a hash (and optional width/format preferences) to
// a file on disk. Falls back to the master when no variant fits.
func (s *ImageService) ResolveForServing(ctx context.Context, hash string, width int, format string) (*models.Image, string, error) {
	if !isValidImageHash(hash) {
		return nil, "", models.NewValidationError("Invalid image ref")
	}
	img, err := s.repo.GetByHashWithVariants(ctx, hash)
	if err != nil {
		return nil, "", err
	}

	if width > 0 {
		if v := pickVariant(img.Variants, width, format); v != nil {
			full := filepath.Join(s.uploadDir, v.Path)
			if _, err := os.Stat(full); err == nil {
				return img, full, nil
			}
		}
	}

	full := filepath.Join(s.uploadDir, hash, "master.jpg")
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return nil, "", models.NewNotFoundError("Image", hash)
		}
		return nil, "", models.NewStoreError(err)
	}
	return img, full, nil
}

// UpdateLastAccessed stamps the access time best-effort.
func (s *ImageService) UpdateLastAccessed(ctx context.Context, imageID uint) {
	if s.repo == nil || imageID == 0 {
		return
	}
	_ = s.repo.UpdateLastAccessed(ctx, imageID)
}

// pickVariant returns the smallest variant at least as wide as requested,
// preferring the requested format. Nil when nothing qualifies.
func pickVariant(variants []models.ImageVariant, width int, format string) *models.ImageVariant {
	var best *models.ImageVariant
	for i := range variants {
		v := &variants[i]
		if v.Width < width {
			continue
		}
		if format != "" && v.Format != format {
			continue
		}
		if best == nil || v.Width < best.Width {
			best = v
		}
	}
	return best
}

func (s *ImageService) workerLoop(ctx context.Context) {
	const idleSleep = 750 * time.Millisecond

	for {
		if ctx.Err() != nil {
			return
		}

		img, err := s.repo.ClaimNextQueued(ctx)
		if err != nil {
			if !sleepContext(ctx, time.Second) {
				return
			}
			continue
		}
		if img == nil {
			if !sleepContext(ctx, idleSleep) {
				return
			}
			continue
		}

		if err := s.processQueuedImage(ctx, img); err != nil {
			if ferr := s.repo.MarkFailed(ctx, img.ID, err.Error()); ferr != nil {
				middleware.Logger.ErrorContext(ctx, "failed to mark image as failed",
					"image_id", img.ID, "error", ferr, "processing_error", err)
			}
			continue
		}
	}
}

func (s *ImageService) processQueuedImage(ctx context.Context, img *models.Image) error {
	masterPath := filepath.Join(s.uploadDir, img.Hash, "master.jpg")
	// #nosec G304: the path is built from a validated content hash
	f, err := os.Open(masterPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	master, _, err := image.Decode(f)
	if err != nil {
		return err
	}
	b := master.Bounds()

	for _, width := range variantLadder {
		if b.Dx() < width {
			continue
		}
		resized := resizeToFit(master, width, width)

		webpBytes, err := encodeWebP(resized, WebPQuality)
		if err != nil {
			return err
		}
		webpRel := filepath.ToSlash(filepath.Join(img.Hash, fmt.Sprintf("%d.webp", width)))
		if err := writeBytesToFile(filepath.Join(s.uploadDir, webpRel), webpBytes); err != nil {
			return err
		}
		if err := s.repo.UpsertVariant(ctx, &models.ImageVariant{
			ImageID:   img.ID,
			Width:     width,
			Format:    "webp",
			Path:      webpRel,
			SizeBytes: int64(len(webpBytes)),
		}); err != nil {
			return err
		}

		jpgBytes, err := encodeJPEG(resized, JPEGQuality)
		if err != nil {
			return err
		}
		jpgRel := filepath.ToSlash(filepath.Join(img.Hash, fmt.Sprintf("%d.jpg", width)))
		if err := writeBytesToFile(filepath.Join(s.uploadDir, jpgRel), jpgBytes); err != nil {
			return err
		}
		if err := s.repo.UpsertVariant(ctx, &models.ImageVariant{
			ImageID:   img.ID,
			Width:     width,
			Format:    "jpg",
			Path:      jpgRel,
			SizeBytes: int64(len(jpgBytes)),
		}); err != nil {
			return err
		}
	}

	return s.repo.MarkReady(ctx, img.ID)
}

// isValidImageHash checks that the ref is strictly lowercase hex. This is
// what keeps crafted refs from traversing the upload directory.
func isValidImageHash(hash string) bool {
	if len(hash) == 0 || len(hash) > 128 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
