// Package snipelist loads the allow-list of mints the engine may buy.
package snipelist

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// List is a file-backed set of mints. The file holds one mint per line;
// blank lines and lines starting with # are ignored.
type List struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	mints map[string]struct{}
}

// New creates a List for path. Call Load before use.
func New(path string, logger *zap.Logger) *List {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &List{path: path, logger: logger, mints: make(map[string]struct{})}
}

// Load replaces the in-memory set with the file contents.
// On error the previous set is kept.
func (l *List) Load() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open snipe list: %w", err)
	}
	defer f.Close()

	mints := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		mints[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read snipe list: %w", err)
	}

	l.mu.Lock()
	l.mints = mints
	l.mu.Unlock()
	return nil
}

// Contains reports whether mint is listed.
func (l *List) Contains(mint string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.mints[mint]
	return ok
}

// Len returns the number of listed mints.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.mints)
}

// Run reloads the file every interval until ctx is done.
func (l *List) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Load(); err != nil {
				l.logger.Warn("snipe list refresh failed", zap.String("path", l.path), zap.Error(err))
				continue
			}
			l.logger.Debug("snipe list refreshed", zap.Int("mints", l.Len()))
		}
	}
}
