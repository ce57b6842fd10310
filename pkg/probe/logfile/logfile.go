// Package logfile adapts a followed log file into a probe for the wait
// engine: "block until a line matching this pattern shows up". The file is
// tailed in the background (rotation-aware), and conditions inspect the
// accumulated lines on each poll attempt.
package logfile

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

// File is the probe handle: a tailed log file plus the lines observed so
// far. Follow starts the tail; Close stops it. Lifecycle belongs to the
// caller, as with every probe.
type File struct {
	path   string
	tailer *tail.Tail
	logger *zap.Logger

	mu    sync.Mutex
	lines []string

	done chan struct{}
}

// Follow starts tailing the file at path. The file does not need to exist
// yet; tailing picks it up on creation, and reopens it across rotations.
func Follow(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tailer, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("tailing %s: %w", path, err)
	}

	f := &File{
		path:   path,
		tailer: tailer,
		logger: logger,
		done:   make(chan struct{}),
	}
	go f.collect()
	return f, nil
}

// Path returns the tailed file's path.
func (f *File) Path() string { return f.path }

func (f *File) collect() {
	defer close(f.done)
	for line := range f.tailer.Lines {
		if line.Err != nil {
			f.logger.Debug("tail error", zap.String("path", f.path), zap.Error(line.Err))
			continue
		}
		f.mu.Lock()
		f.lines = append(f.lines, line.Text)
		f.mu.Unlock()
	}
}

// Close stops the tail and waits for the collector goroutine to drain.
func (f *File) Close() error {
	err := f.tailer.Stop()
	<-f.done
	f.tailer.Cleanup()
	return err
}

// snapshot copies the lines seen so far.
func (f *File) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}

// LineMatching waits until a line matching the pattern has appeared in the
// file. The satisfied value is the first matching line.
func LineMatching(pattern *regexp.Regexp) wait.Condition[*File] {
	return wait.New(fmt.Sprintf("log line matching %q", pattern), func(ctx context.Context, f *File) wait.Outcome {
		lines := f.snapshot()
		for _, line := range lines {
			if pattern.MatchString(line) {
				return wait.Satisfied(line)
			}
		}
		return wait.NotYetBecause("%d lines seen, none matching", len(lines))
	})
}

// LineCount waits until at least n lines have been observed. The satisfied
// value is the observed line count.
func LineCount(n int) wait.Condition[*File] {
	return wait.New(fmt.Sprintf("at least %d log lines", n), func(ctx context.Context, f *File) wait.Outcome {
		count := len(f.snapshot())
		if count < n {
			return wait.NotYetBecause("%d lines seen", count)
		}
		return wait.Satisfied(count)
	})
}
