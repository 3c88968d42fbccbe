package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Before Init it writes to stderr
// at info level so early failures are still visible.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	Level(zerolog.InfoLevel).With().Timestamp().Logger()

var fileWriter *FileWriter

// Options configures the logging stack.
type Options struct {
	Level      string // trace, debug, info, warn, error
	Console    bool
	Dir        string // empty disables the persistent file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const logFileName = "adbinstaller.log"

// Init wires the global logger to the console and the rotating log file.
func Init(opts Options) error {
	var writers []io.Writer

	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if opts.Dir != "" {
		fw, err := NewFileWriter(opts)
		if err != nil {
			return err
		}
		fileWriter = fw
		writers = append(writers, fw)
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

// SetLevel overrides the current log level (used by --verbose).
func SetLevel(level zerolog.Level) {
	Logger = Logger.Level(level)
}

// Close flushes and closes the persistent log file.
func Close() {
	if fileWriter != nil {
		fileWriter.Close()
	}
}

// FileWriter is a size-rotated log file with gzip'd backups.
type FileWriter struct {
	mu          sync.Mutex
	opts        Options
	dir         string
	path        string
	currentFile *os.File
	currentSize int64
}

// NewFileWriter opens (or creates) the log file and prunes old backups.
func NewFileWriter(opts Options) (*FileWriter, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fw := &FileWriter{
		opts: opts,
		dir:  opts.Dir,
		path: filepath.Join(opts.Dir, logFileName),
	}

	if err := fw.openFile(); err != nil {
		return nil, err
	}

	// Short-lived CLI process: prune once at startup instead of on a timer.
	go fw.cleanup()

	return fw, nil
}

// Write implements io.Writer with rotation on size overflow.
func (fw *FileWriter) Write(p []byte) (n int, err error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.opts.MaxSizeMB > 0 && fw.currentSize+int64(len(p)) > int64(fw.opts.MaxSizeMB)*1024*1024 {
		if err := fw.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = fw.currentFile.Write(p)
	fw.currentSize += int64(n)
	return n, err
}

func (fw *FileWriter) openFile() error {
	file, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	fw.currentFile = file
	fw.currentSize = info.Size()
	return nil
}

func (fw *FileWriter) rotate() error {
	if fw.currentFile != nil {
		fw.currentFile.Close()
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	rotatedPath := filepath.Join(fw.dir, fmt.Sprintf("adbinstaller_%s.log", timestamp))

	if err := os.Rename(fw.path, rotatedPath); err != nil {
		// Rename failed; reopen and keep writing to the same file.
		return fw.openFile()
	}

	go fw.compressFile(rotatedPath)

	return fw.openFile()
}

func (fw *FileWriter) compressFile(filePath string) {
	src, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(filePath + ".gz")
	if err != nil {
		return
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	defer gz.Close()

	if _, err := io.Copy(gz, src); err != nil {
		os.Remove(filePath + ".gz")
		return
	}

	os.Remove(filePath)
}

// cleanup removes rotated files past the age or backup-count limits.
func (fw *FileWriter) cleanup() {
	files, err := filepath.Glob(filepath.Join(fw.dir, "adbinstaller_*.log*"))
	if err != nil {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var fileInfos []fileInfo

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		fileInfos = append(fileInfos, fileInfo{path: f, modTime: info.ModTime()})
	}

	sort.Slice(fileInfos, func(i, j int) bool {
		return fileInfos[i].modTime.After(fileInfos[j].modTime)
	})

	now := time.Now()
	for i, fi := range fileInfos {
		if fw.opts.MaxAgeDays > 0 && now.Sub(fi.modTime) > time.Duration(fw.opts.MaxAgeDays)*24*time.Hour {
			os.Remove(fi.path)
			continue
		}

		if fw.opts.MaxBackups > 0 && i >= fw.opts.MaxBackups {
			os.Remove(fi.path)
		}
	}
}

// Close closes the log file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.currentFile != nil {
		return fw.currentFile.Close()
	}
	return nil
}

// FilePath returns the active log file path, or "" when file logging is off.
func FilePath() string {
	if fileWriter != nil {
		return fileWriter.path
	}
	return ""
}

// ListFiles returns all log files, newest first.
func ListFiles() ([]string, error) {
	if fileWriter == nil {
		return nil, fmt.Errorf("file logging not initialized")
	}

	pattern := filepath.Join(fileWriter.dir, "adbinstaller*.log*")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	type fileWithTime struct {
		path    string
		modTime time.Time
	}
	var filesWithTime []fileWithTime
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		filesWithTime = append(filesWithTime, fileWithTime{path: f, modTime: info.ModTime()})
	}

	sort.Slice(filesWithTime, func(i, j int) bool {
		return filesWithTime[i].modTime.After(filesWithTime[j].modTime)
	})

	result := make([]string, len(filesWithTime))
	for i, f := range filesWithTime {
		result[i] = f.path
	}
	return result, nil
}

// ReadRecent returns the last n lines of the active log file.
func ReadRecent(lines int) ([]string, error) {
	if fileWriter == nil {
		return nil, fmt.Errorf("file logging not initialized")
	}

	content, err := os.ReadFile(fileWriter.path)
	if err != nil {
		return nil, err
	}

	allLines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(allLines) <= lines {
		return allLines, nil
	}

	return allLines[len(allLines)-lines:], nil
}

// Timer measures one operation and logs its duration on completion.
type Timer struct {
	module    string
	operation string
	startTime time.Time
}

// StartTimer begins timing an operation.
func StartTimer(module, operation string) *Timer {
	return &Timer{
		module:    module,
		operation: operation,
		startTime: time.Now(),
	}
}

// End logs the operation as completed.
func (t *Timer) End() {
	Logger.Info().
		Str("module", t.module).
		Str("operation", t.operation).
		Dur("duration", time.Since(t.startTime)).
		Msg("Operation completed")
}

// EndWithError logs the operation as failed.
func (t *Timer) EndWithError(err error) {
	Logger.Error().
		Str("module", t.module).
		Str("operation", t.operation).
		Dur("duration", time.Since(t.startTime)).
		Err(err).
		Msg("Operation failed")
}
