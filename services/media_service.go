package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chatterbox/engine/config"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Write-path failures are typed; read-path failures are not. A missing or
// undecodable file collapses to "no image", which is a normal state for the
// UI (render a placeholder).
var ErrNoWritablePath = errors.New("didn't find a writable documents path")

const thumbnailWidth = 200

// MediaService provides images for URLs through a bounded in-memory cache
// with on-disk spillover under the app's documents directory.
type MediaService interface {
	SaveImageToDisk(img image.Image) (string, error)
	GetImage(ctx context.Context, url string) image.Image
	GetImages(ctx context.Context, urls []string) map[string]image.Image
	DeleteImage(url string) error
	ProcessImage(raw []byte) (fullURL string, thumbnailURL string, err error)
}

type mediaService struct {
	documentsDir string
	log          *logrus.Logger

	// mu confines every cache mutation together with the byte-cost
	// bookkeeping; onEvict runs inside mutating calls and must not take it.
	mu        sync.Mutex
	cache     *lru.Cache[string, image.Image]
	totalCost int64
	costLimit int64

	flight singleflight.Group
}

func NewMediaService(conf *config.Config, log *logrus.Logger) (MediaService, error) {
	m := &mediaService{
		documentsDir: conf.DocumentsDir,
		costLimit:    conf.CacheCostLimit,
		log:          log,
	}
	cache, err := lru.NewWithEvict[string, image.Image](conf.CacheCountLimit, m.onEvict)
	if err != nil {
		return nil, errors.Wrap(err, "init image cache")
	}
	m.cache = cache
	return m, nil
}

// SaveImageToDisk encodes the image as PNG under a fresh unique filename in
// the documents directory and returns the resulting location. Concurrent
// calls are safe since each generates its own filename.
func (m *mediaService) SaveImageToDisk(img image.Image) (string, error) {
	if m.documentsDir == "" {
		return "", ErrNoWritablePath
	}
	if err := os.MkdirAll(m.documentsDir, 0755); err != nil {
		return "", errors.Wrap(ErrNoWritablePath, err.Error())
	}

	path := filepath.Join(m.documentsDir, generateUniqueFilename(".png"))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}
	defer f.Close()

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "encode image")
	}
	return path, nil
}

// GetImage returns the cached image for url, falling back to a disk read
// resolved against the current documents directory. Concurrent calls for the
// same url share one disk fetch. Nil means no image is available.
func (m *mediaService) GetImage(ctx context.Context, url string) image.Image {
	if img, ok := m.getCached(url); ok {
		return img
	}
	if ctx.Err() != nil {
		return nil
	}

	v, err, _ := m.flight.Do(url, func() (interface{}, error) {
		img, err := imaging.Open(m.resolveURL(url))
		if err != nil {
			return nil, err
		}
		m.setCached(url, img)
		return img, nil
	})
	if err != nil {
		m.log.Debugf("no image on disk for %s: %v", url, err)
		return nil
	}
	return v.(image.Image)
}

// GetImages fetches a batch concurrently, one fetch per URL, and collects
// only the successful results. Cancellation is cooperative: a cancelled ctx
// stops fetches that haven't started and the partial map is returned.
func (m *mediaService) GetImages(ctx context.Context, urls []string) map[string]image.Image {
	var mu sync.Mutex
	images := make(map[string]image.Image, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if img := m.GetImage(ctx, url); img != nil {
				mu.Lock()
				images[url] = img
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.log.Debugf("image batch interrupted: %v", err)
	}
	return images
}

// DeleteImage removes the backing file and drops the cache entry. Used when a
// single image is stripped from a multi-image message.
func (m *mediaService) DeleteImage(url string) error {
	m.mu.Lock()
	m.cache.Remove(url)
	m.mu.Unlock()

	if err := os.Remove(m.resolveURL(url)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove image file")
	}
	return nil
}

// ProcessImage decodes raw image bytes and stores both a full-size copy and a
// thumbnail, returning their locations.
func (m *mediaService) ProcessImage(raw []byte) (string, string, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", "", errors.Wrap(err, "decode image")
	}

	fullURL, err := m.SaveImageToDisk(img)
	if err != nil {
		return "", "", err
	}

	thumbnail := resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)
	thumbnailURL, err := m.SaveImageToDisk(thumbnail)
	if err != nil {
		return "", "", err
	}
	return fullURL, thumbnailURL, nil
}

// resolveURL rebuilds the expected location from the last path component and
// the current documents directory. Previously persisted absolute paths can go
// stale when the documents root moves between installs; the filename is the
// stable part.
func (m *mediaService) resolveURL(url string) string {
	if m.documentsDir == "" {
		return url
	}
	return filepath.Join(m.documentsDir, filepath.Base(url))
}

func (m *mediaService) getCached(url string) (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Get(url)
}

func (m *mediaService) setCached(url string, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.cache.Peek(url); ok {
		// replacing an entry doesn't fire the eviction callback
		m.totalCost -= imageCost(prev)
	}
	m.cache.Add(url, img)
	m.totalCost += imageCost(img)

	for m.totalCost > m.costLimit && m.cache.Len() > 1 {
		m.cache.RemoveOldest()
	}
}

func (m *mediaService) onEvict(_ string, img image.Image) {
	// evicted entries stay durable on disk; a later miss falls through
	m.totalCost -= imageCost(img)
}

func imageCost(img image.Image) int64 {
	bounds := img.Bounds()
	return int64(bounds.Dx()) * int64(bounds.Dy()) * 4
}

func generateUniqueFilename(extension string) string {
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.New(), extension)
}
