package minhacooper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Browser owns one Chrome process shared by all searches. It is started on
// the first NewPage call and released once by Close.
type Browser struct {
	cfg    Config
	logger *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closed        bool
}

var errBrowserClosed = errors.New("browser is closed")

// NewBrowser prepares a browser; no process is started until it is needed
func NewBrowser(cfg Config, logger *slog.Logger) *Browser {
	return &Browser{cfg: cfg, logger: logger}
}

func (b *Browser) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBrowserClosed
	}
	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
		chromedp.UserAgent(b.cfg.UserAgent),
	)
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			b.logger.Debug("chromedp", slog.String("message", fmt.Sprintf(format, args...)))
		}),
	)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b.logger.Info("Browser launched", slog.Bool("headless", b.cfg.Headless))
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.allocCancel = allocCancel
	return browserCtx, nil
}

// NewPage opens a fresh tab. A failed launch is retried on the next call.
func (b *Browser) NewPage(_ context.Context) (Page, error) {
	browserCtx, err := b.start()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return &chromePage{
		ctx:               tabCtx,
		cancel:            cancel,
		navigationTimeout: b.cfg.NavigationTimeout,
	}, nil
}

// Close shuts down the browser and then its allocator. Calling it more than
// once is a no-op.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.browserCtx == nil {
		return nil
	}

	err := chromedp.Cancel(b.browserCtx)
	b.browserCancel()
	b.allocCancel()
	b.browserCtx = nil

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	b.logger.Info("Browser closed")
	return nil
}

type chromePage struct {
	ctx               context.Context
	cancel            context.CancelFunc
	navigationTimeout time.Duration
}

// run executes actions on the tab, bounded by timeout and by ctx
func (p *chromePage) run(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return fn(opCtx)
}

func (p *chromePage) Navigate(ctx context.Context, rawURL string) (int64, error) {
	watcher := newIdleWatcher()
	chromedp.ListenTarget(p.ctx, watcher.observe)

	var status int64
	err := p.run(ctx, p.navigationTimeout, func(opCtx context.Context) error {
		resp, err := chromedp.RunResponse(opCtx,
			page.SetLifecycleEventsEnabled(true),
			chromedp.ActionFunc(func(ctx context.Context) error {
				frameID, loaderID, errorText, err := page.Navigate(rawURL).Do(ctx)
				if err != nil {
					return err
				}
				if errorText != "" {
					return fmt.Errorf("page load error %s", errorText)
				}
				watcher.expect(frameID, loaderID)
				return nil
			}),
		)
		if err != nil {
			return err
		}
		if resp != nil {
			status = resp.Status
		}

		select {
		case <-watcher.done():
		case <-opCtx.Done():
			// the page loaded but never went idle; extract what rendered
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("navigation to %s failed: %w", rawURL, err)
	}
	return status, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, p.navigationTimeout, func(opCtx context.Context) error {
		return chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	})
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, nil
}

func (p *chromePage) ScrollToBottom(ctx context.Context) error {
	var scrolled bool
	return p.run(ctx, p.navigationTimeout, func(opCtx context.Context) error {
		return chromedp.Run(opCtx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); true`, &scrolled))
	})
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

type loaderKey struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// idleWatcher waits for networkIdle of one navigation. Events from other
// frames or from earlier documents in the same frame are ignored.
type idleWatcher struct {
	mu     sync.Mutex
	seen   map[loaderKey]struct{}
	want   loaderKey
	armed  bool
	fired  bool
	idleCh chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		seen:   make(map[loaderKey]struct{}),
		idleCh: make(chan struct{}),
	}
}

func (w *idleWatcher) observe(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != "networkIdle" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	key := loaderKey{frame: e.FrameID, loader: e.LoaderID}
	if w.armed {
		if key == w.want {
			w.fire()
		}
		return
	}
	// idle can be reported before Page.navigate returns its loader
	w.seen[key] = struct{}{}
}

// expect arms the watcher for the navigation identified by frameID and loaderID.
// An empty loader means a same-document navigation, which has nothing to load.
func (w *idleWatcher) expect(frameID cdp.FrameID, loaderID cdp.LoaderID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.want = loaderKey{frame: frameID, loader: loaderID}
	w.armed = true
	if _, ok := w.seen[w.want]; ok || loaderID == "" {
		w.fire()
	}
	w.seen = nil
}

func (w *idleWatcher) fire() {
	if !w.fired {
		w.fired = true
		close(w.idleCh)
	}
}

func (w *idleWatcher) done() <-chan struct{} {
	return w.idleCh
}
