package treestore

import (
	"fmt"
	"os"
	"sync"
)

// BatchLog records one line per batch admitted to the driver, before it
// runs, so a crash mid-apply leaves a trail of what was attempted. Adapted
// from the teacher's consensus write-ahead log, repointed at batch intake
// instead of block proposals (§4.H, §10).
type BatchLog interface {
	Append(line string)
}

// NopBatchLog discards every line; useful for tests and one-shot CLI runs
// where a durable trail adds nothing.
type NopBatchLog struct{}

func NewNopBatchLog() *NopBatchLog   { return &NopBatchLog{} }
func (w *NopBatchLog) Append(string) {}

// FileBatchLog appends each line to a single append-only file, synchronized
// across concurrent callers.
type FileBatchLog struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileBatchLog(path string) (*FileBatchLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open batch log: %w", err)
	}
	return &FileBatchLog{f: f}, nil
}

func (w *FileBatchLog) Append(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.f, line)
}

func (w *FileBatchLog) Close() error { return w.f.Close() }

var _ BatchLog = (*NopBatchLog)(nil)
var _ BatchLog = (*FileBatchLog)(nil)
