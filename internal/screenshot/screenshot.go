// Package screenshot captures a Reddit post with headless Chrome so it can
// be used as the title card.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"reddit-video-maker/internal/logging"
)

// PostSelector matches the post container on www.reddit.com.
const PostSelector = "shreddit-post"

type Capturer struct {
	Selector string
	Timeout  time.Duration

	log *logging.Logger
}

func NewCapturer(log *logging.Logger) *Capturer {
	return &Capturer{Selector: PostSelector, Timeout: 90 * time.Second, log: log}
}

// Capture writes a PNG of the post element at url to out.
func (c *Capturer) Capture(ctx context.Context, url, out string, dark bool) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
	)

	c.log.Infof("screenshot: starting Chrome for %s", url)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, c.Timeout)
	defer cancel()

	var png []byte
	if err := chromedp.Run(browserCtx, c.tasks(url, dark, &png)); err != nil {
		return fmt.Errorf("screenshot %s: %w", url, err)
	}
	if len(png) == 0 {
		return fmt.Errorf("screenshot %s: empty image", url)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	c.log.Infof("screenshot: ✓ saved %s (%d bytes)", out, len(png))
	return nil
}

func (c *Capturer) tasks(url string, dark bool, png *[]byte) chromedp.Tasks {
	scheme := "light"
	if dark {
		scheme = "dark"
	}
	return chromedp.Tasks{
		chromedp.EmulateViewport(1920, 1080, chromedp.EmulateScale(2)),
		emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
			{Name: "prefers-color-scheme", Value: scheme},
		}),
		chromedp.Navigate(url),
		chromedp.WaitVisible(c.Selector, chromedp.ByQuery),
		chromedp.Screenshot(c.Selector, png, chromedp.NodeVisible, chromedp.ByQuery),
	}
}
