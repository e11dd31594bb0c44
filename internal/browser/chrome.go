package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/tabgrab/tabgrab/internal/apperrors"
	"github.com/tabgrab/tabgrab/internal/config"
)

// webdriverShim hides the automation marker some pages use to serve a
// stripped-down experience to bots.
const webdriverShim = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// ChromeSession drives a real Chrome process over the DevTools protocol.
// One session maps to one browser process; the process is terminated by
// Close on every exit path.
type ChromeSession struct {
	cfg *config.Config

	allocCancel context.CancelFunc
	taskCancel  context.CancelFunc
	taskCtx     context.Context
}

// NewChromeSession launches a Chrome process. The browser is started
// eagerly so a missing or broken Chrome install surfaces here as
// *apperrors.ErrBrowserLaunch rather than mid-run.
func NewChromeSession(ctx context.Context, cfg *config.Config) (*ChromeSession, error) {
	logger := config.GetLogger()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Browser.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	logger.Debug().Bool("headless", cfg.Browser.Headless).Msg("Starting Chrome browser")

	// Run with no actions forces the browser process to start now.
	if err := chromedp.Run(taskCtx); err != nil {
		taskCancel()
		allocCancel()
		return nil, apperrors.NewBrowserLaunchError(err)
	}

	return &ChromeSession{
		cfg:         cfg,
		allocCancel: allocCancel,
		taskCancel:  taskCancel,
		taskCtx:     taskCtx,
	}, nil
}

// Load navigates to the song URL and returns the settled page source plus
// all network requests captured during the load. The capture listener is
// attached before navigation so requests fired by the page's initial
// scripts are not missed.
func (s *ChromeSession) Load(ctx context.Context, songURL string) (*LoadResult, error) {
	logger := config.GetLogger()

	loadTimeout := s.cfg.Duration(s.cfg.Browser.LoadTimeout, 60*time.Second)
	settleDelay := s.cfg.Duration(s.cfg.Browser.SettleDelay, 5*time.Second)

	loadCtx, cancel := context.WithTimeout(s.taskCtx, loadTimeout)
	defer cancel()

	// Honor cancellation from the caller's context as well.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-loadCtx.Done():
		}
	}()

	capture := NewCapture(s.cfg.CDNHostPattern)
	chromedp.ListenTarget(loadCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			capture.Observe(e.Request.URL)
		case *network.EventResponseReceived:
			capture.Observe(e.Response.URL)
		}
	})

	logger.Info().Str("url", songURL).Msg("Loading song page")

	var pageSource string
	err := chromedp.Run(loadCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(webdriverShim).Do(ctx)
			return err
		}),
		chromedp.Navigate(songURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// The page keeps requesting track payloads after the DOM is
		// ready; give it time to fire them all.
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &pageSource, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("page load failed for %s: %w", songURL, err)
	}

	requests := capture.Requests()
	logger.Debug().Int("requests", len(requests)).Msg("Page load window closed")

	return &LoadResult{
		PageSource: pageSource,
		Requests:   requests,
	}, nil
}

// Close terminates the browser process.
func (s *ChromeSession) Close() error {
	s.taskCancel()
	s.allocCancel()
	return nil
}
