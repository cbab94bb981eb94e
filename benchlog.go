package simt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// RunRecord captures one timed transpose run.
type RunRecord struct {
	Name      string        `json:"name"`
	Rows      int           `json:"rows"`
	Cols      int           `json:"cols"`
	Iters     int           `json:"iters,omitempty"`
	Duration  time.Duration `json:"duration"`
	MBPerSec  float64       `json:"mb_per_sec,omitempty"`
	Status    string        `json:"status"` // "pass" or "fail"
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// RunLogger appends timed-run records to a JSON session file. It exists so
// bandwidth numbers from different machines and runs can be diffed offline.
type RunLogger struct {
	mu          sync.Mutex
	records     []RunRecord
	logDir      string
	sessionFile string
}

var runLogger = &RunLogger{
	logDir: "run_logs",
}

// InitRunLogger starts a new logging session. Records logged afterwards are
// flushed to run_logs/<session>_<timestamp>.json.
func InitRunLogger(sessionName string) error {
	runLogger.mu.Lock()
	defer runLogger.mu.Unlock()

	if err := os.MkdirAll(runLogger.logDir, 0755); err != nil {
		return errors.Wrap(err, "create run log directory")
	}

	timestamp := time.Now().Format("20060102_150405")
	runLogger.sessionFile = filepath.Join(runLogger.logDir,
		fmt.Sprintf("%s_%s.json", sessionName, timestamp))
	runLogger.records = nil

	return runLogger.flush()
}

// LogRun records a single run. Flushes to disk immediately so a crash loses
// nothing.
func LogRun(rec RunRecord) {
	runLogger.mu.Lock()
	defer runLogger.mu.Unlock()

	rec.Timestamp = time.Now()
	runLogger.records = append(runLogger.records, rec)
	runLogger.flush()
}

// LogRunPass records a successful run with its bandwidth.
func LogRunPass(name string, rows, cols, iters int, d time.Duration, mbPerSec float64) {
	LogRun(RunRecord{
		Name:     name,
		Rows:     rows,
		Cols:     cols,
		Iters:    iters,
		Duration: d,
		MBPerSec: mbPerSec,
		Status:   "pass",
	})
}

// LogRunFail records a failed run.
func LogRunFail(name string, rows, cols int, err error) {
	LogRun(RunRecord{
		Name:   name,
		Rows:   rows,
		Cols:   cols,
		Status: "fail",
		Error:  err.Error(),
	})
}

func (rl *RunLogger) flush() error {
	if rl.sessionFile == "" {
		return nil // Not initialized
	}

	data, err := json.MarshalIndent(rl.records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal run records")
	}

	return os.WriteFile(rl.sessionFile, data, 0644)
}

// PrintRunSummary prints a summary of the most recent logging session.
func PrintRunSummary() error {
	files, err := filepath.Glob(filepath.Join(runLogger.logDir, "*.json"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no run logs found")
	}

	var latest string
	var latestTime time.Time
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latest = file
			latestTime = info.ModTime()
		}
	}

	data, err := os.ReadFile(latest)
	if err != nil {
		return err
	}

	var records []RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrapf(err, "parse %s", latest)
	}

	fmt.Printf("\nRun summary from %s:\n", filepath.Base(latest))
	fmt.Println(strings.Repeat("=", 62))

	passed, failed := 0, 0
	for _, r := range records {
		switch r.Status {
		case "pass":
			passed++
			fmt.Printf("✓ %-30s %5dx%-5d %10.2f MB/s\n", r.Name, r.Rows, r.Cols, r.MBPerSec)
		case "fail":
			failed++
			fmt.Printf("✗ %-30s %5dx%-5d FAILED: %s\n", r.Name, r.Rows, r.Cols, r.Error)
		}
	}

	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(records), passed, failed)

	return nil
}
