package lib

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

type LogFormatter struct{}

func (f *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	b.WriteString(fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message))
	return b.Bytes(), nil
}

// NewAppLogger builds the process-wide logger writing to a dated file under
// logDir and to stderr. Components receive it by constructor injection.
func NewAppLogger(logDir string, debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&LogFormatter{})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		logger.Errorf("couldn't create log dir: %v", err)
		return logger
	}
	filename := filepath.Join(logDir, fmt.Sprintf("%s-chatterbox.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		logger.Errorf("couldn't open log file: %v", err)
		return logger
	}
	logger.SetOutput(io.MultiWriter(logFile, os.Stderr))
	return logger
}
