// Package browser provides the headless Chrome resource a session operates
// on, and exposes loaded pages through the dom interfaces. Requires
// Chrome/Chromium to be installed on the system.
package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonathan/applypilot/internal/dom"
)

// Options tunes browser provisioning.
type Options struct {
	// Headless disables the visible browser window. On by default.
	Headless bool
	// NavigateTimeout bounds a single page load, settle wait included.
	NavigateTimeout time.Duration
}

// DefaultOptions returns the provisioning defaults.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		NavigateTimeout: 60 * time.Second,
	}
}

// Provisioner creates one Chrome tab per session, all sharing a single
// exec allocator.
type Provisioner struct {
	opts Options

	mu       sync.Mutex
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewProvisioner returns a provisioner using the given options.
func NewProvisioner(opts Options) *Provisioner {
	return &Provisioner{opts: opts}
}

// allocator lazily starts the shared exec allocator.
func (p *Provisioner) allocator() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allocCtx == nil {
		p.allocCtx, p.cancel = chromedp.NewExecAllocator(context.Background(),
			append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", p.opts.Headless),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
			)...,
		)
	}
	return p.allocCtx
}

// Provision opens a fresh browser tab and wraps it as a Resource.
func (p *Provisioner) Provision(ctx context.Context) (*Resource, error) {
	tabCtx, cancel := chromedp.NewContext(p.allocator())

	// Start the browser process eagerly so a missing Chrome binary fails
	// here instead of on first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return nil, err
	}

	res := &Resource{
		tab:    tabCtx,
		cancel: cancel,
		opts:   p.opts,
	}
	res.tree = &Tree{res: res}
	return res, nil
}

// Shutdown tears down the shared allocator and every tab under it.
func (p *Provisioner) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.allocCtx, p.cancel = nil, nil
	}
}

// Resource is one live browser tab.
type Resource struct {
	tab    context.Context
	cancel context.CancelFunc
	opts   Options
	tree   *Tree

	mu     sync.Mutex
	closed bool
}

// Navigate loads a URL and waits for the document body to be ready. A short
// settle sleep follows so script-rendered forms have a chance to appear.
func (r *Resource) Navigate(ctx context.Context, url string) error {
	timeout := r.opts.NavigateTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().NavigateTimeout
	}
	runCtx, cancel := context.WithTimeout(r.tab, timeout)
	defer cancel()

	log.Printf("[browser] navigating to %s", url)
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	// Best effort: bring the first interactive control into view so the
	// form is on screen for screenshots. Never fails the navigation.
	var scrolled bool
	script := fmt.Sprintf(scrollToFirstControlScript, jsArg(candidateSelector))
	if err := r.evaluate(ctx, script, &scrolled); err != nil {
		log.Printf("[browser] scroll to first control failed: %v", err)
	}
	return nil
}

// Tree exposes the loaded document.
func (r *Resource) Tree() dom.Tree { return r.tree }

// PageText returns the visible text of the main document.
func (r *Resource) PageText(ctx context.Context) (string, error) {
	var text string
	if err := r.evaluate(ctx, pageTextScript, &text); err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	return text, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (r *Resource) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := mergeDeadline(r.tab, ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Close releases the tab. Safe to call more than once.
func (r *Resource) Close(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cancel()
	return nil
}

// mergeDeadline runs a tab action under the caller's deadline if it has one.
func mergeDeadline(tab, caller context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := caller.Deadline(); ok {
		return context.WithDeadline(tab, deadline)
	}
	return context.WithCancel(tab)
}
