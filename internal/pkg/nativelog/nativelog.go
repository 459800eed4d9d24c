// Package nativelog builds the process logger: console output plus a
// daily log file with size-based rollover and retention.
package nativelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	filePrefix         = "studio_"
	fileSuffix         = ".log"
	defaultLogFilePerm = 0o644
	defaultLogDirPerm  = 0o755
	defaultKeep        = 14
)

// Options configures the file sink. Zero values select defaults.
type Options struct {
	Dir       string
	MaxSizeMB int // 0 disables size rollover
	Keep      int // number of files retained
	Debug     bool
}

// Filename returns the log file name for day and rollover index n.
func Filename(day time.Time, n int) string {
	if n == 0 {
		return filePrefix + day.Format("2006-01-02") + fileSuffix
	}
	return fmt.Sprintf("%s%s.%d%s", filePrefix, day.Format("2006-01-02"), n, fileSuffix)
}

// Writer appends to the current daily file, rolling over when it grows
// past MaxSizeMB and pruning files beyond Keep.
type Writer struct {
	mu      sync.Mutex
	opts    Options
	now     func() time.Time
	file    *os.File
	path    string
	size    int64
	day     string
	rollSeq int
}

// NewWriter creates the log directory and returns a writer into it.
func NewWriter(opts Options) (*Writer, error) {
	if opts.Dir == "" {
		opts.Dir = filepath.Join(".", "logs")
	}
	if opts.Keep <= 0 {
		opts.Keep = defaultKeep
	}
	if err := os.MkdirAll(opts.Dir, defaultLogDirPerm); err != nil {
		return nil, err
	}
	return &Writer{opts: opts, now: time.Now}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateLocked(int64(len(p))); err != nil {
		return 0, err
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *Writer) rotateLocked(incoming int64) error {
	now := w.now()
	day := now.Format("2006-01-02")
	limit := int64(w.opts.MaxSizeMB) << 20
	switch {
	case w.file == nil || day != w.day:
		w.day = day
		w.rollSeq = 0
	case limit > 0 && w.size+incoming > limit:
		w.rollSeq++
	default:
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	path := filepath.Join(w.opts.Dir, Filename(now, w.rollSeq))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultLogFilePerm)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file, w.path, w.size = f, path, info.Size()
	w.prune()
	return nil
}

// prune removes the oldest log files beyond Keep.
func (w *Writer) prune() {
	matches, err := filepath.Glob(filepath.Join(w.opts.Dir, filePrefix+"*"+fileSuffix))
	if err != nil || len(matches) <= w.opts.Keep {
		return
	}
	sort.Slice(matches, func(i, j int) bool {
		a, errA := os.Stat(matches[i])
		b, errB := os.Stat(matches[j])
		if errA != nil || errB != nil {
			return matches[i] < matches[j]
		}
		return a.ModTime().Before(b.ModTime())
	})
	for _, path := range matches[:len(matches)-w.opts.Keep] {
		if path != w.path {
			_ = os.Remove(path)
		}
	}
}

// Sync flushes the current file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// NewZapLogger creates a logger writing to stdout and the daily file.
func NewZapLogger(opts Options) (*zap.Logger, error) {
	writer, err := NewWriter(opts)
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Debug {
		level.SetLevel(zap.DebugLevel)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(writer), level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	_ = zap.RedirectStdLog(logger)
	return logger, nil
}

// IsLogFile reports whether name looks like a file this package writes.
func IsLogFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
