// Package browser adapts a headless Chrome session (driven over the DevTools
// protocol via chromedp) into a probe for the wait engine. A Session is the
// opaque handle conditions evaluate against; its lifecycle is owned entirely
// by the caller, never by the engine.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrNoSuchElement is the transient failure kind raised when an element
// lookup finds nothing. Callers that want "absent element" to mean "keep
// polling" list it in Spec.Ignore, mirroring the classic
// ignoring(NoSuchElementException) pattern.
var ErrNoSuchElement = errors.New("no such element")

// Options configures a browser session.
type Options struct {
	// Headless runs Chrome without a visible window. On by default in the
	// CLI; tests may want it off for debugging.
	Headless bool
	// IgnoreTLSErrors accepts invalid certificates, useful against local
	// staging endpoints.
	IgnoreTLSErrors bool
	// UserAgent overrides the browser's user agent when non-empty.
	UserAgent string
	// ExtraFlags are passed through to the Chrome process as --name=value.
	ExtraFlags map[string]string
	// Logger receives session lifecycle logs. Defaults to a nop logger.
	Logger *zap.Logger
}

// Session owns one browser tab and the Chrome process behind it.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
}

// NewSession launches a browser and opens a tab. The returned session must
// be closed by the caller; waits only borrow it.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.IgnoreTLSErrors {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	for name, value := range opts.ExtraFlags {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser to start now, so a broken
	// Chrome install fails here instead of on the first wait attempt.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	logger.Debug("browser session started", zap.Bool("headless", opts.Headless))
	return &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      logger,
	}, nil
}

// Navigate loads the given URL and blocks until the navigation commits.
func (s *Session) Navigate(url string) error {
	s.logger.Debug("navigating", zap.String("url", url))
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Close shuts the tab and the browser process down gracefully.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	s.logger.Debug("browser session closed")
	return err
}

// run executes chromedp actions on the session's context. Conditions receive
// the engine's per-attempt context only for cancellation checks; the CDP
// transport is bound to the session.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(s.ctx, actions...)
}
