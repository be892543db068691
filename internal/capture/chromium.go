package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"assocal/internal/config"
)

// Viewports for the two page variants.
const (
	DesktopWidth  = 1280
	DesktopHeight = 960
	MobileWidth   = 390
	MobileHeight  = 844

	DefaultTimeoutSec = 30
)

// MobileUserAgent is sent when capturing the mobile variant so the device
// redirect keeps the browser on the mobile page.
const MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"

// Options defines one page snapshot.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:8080/pc/calendrier.html".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Mobile selects the phone viewport and user agent.
	Mobile bool

	// Width / Height override the variant viewport when non-zero.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero selects DefaultTimeoutSec.
	Timeout time.Duration
}

// CapturePage opens opts.URL in headless Chromium, waits until the page
// marks itself ready (data-ready="true" on #assocal, set once the calendar
// has fetched its first events or the load failed) and writes a full-page
// PNG.
func CapturePage(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DesktopWidth, DesktopHeight
		if opts.Mobile {
			opts.Width, opts.Height = MobileWidth, MobileHeight
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if opts.Mobile {
		allocOpts = append(allocOpts, chromedp.UserAgent(MobileUserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`#assocal[data-ready="true"]`, chromedp.ByQuery),
		// Let the engine finish painting.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := config.WriteFileAtomic(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
