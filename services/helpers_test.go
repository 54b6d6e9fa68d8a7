package services

import (
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"github.com/chatterbox/engine/config"
	"github.com/chatterbox/engine/db"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:         dir,
		DocumentsDir:    filepath.Join(dir, "documents"),
		DatabaseFile:    filepath.Join(dir, "chat.db"),
		DefaultsFile:    filepath.Join(dir, "defaults.yaml"),
		LogDir:          dir,
		DefaultUsername: "you",
		CacheCountLimit: 50,
		CacheCostLimit:  100 * 1024 * 1024,
	}
}

func newTestChatRepo(t *testing.T, conf *config.Config, logger *logrus.Logger) db.ChatRepository {
	t.Helper()
	gormDB, err := db.GetDB(conf, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return db.NewChatRepo(gormDB, logger)
}

func testImage(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
