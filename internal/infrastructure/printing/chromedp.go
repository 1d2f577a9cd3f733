package printing

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/nivaasi/backend/internal/application/receipt"
	"go.uber.org/zap"
)

var _ receipt.PDFRenderer = (*ChromedpRenderer)(nil)

const (
	defaultChromeTimeout = 30 * time.Second
	receiptMarginMM      = 8
)

// ChromedpConfig configures the Chrome-backed PDF renderer
type ChromedpConfig struct {
	// RemoteURL is a DevTools websocket URL of a running Chrome. Empty launches a local one.
	RemoteURL string
	// NoSandbox is required when Chrome runs as root inside a container
	NoSandbox bool
	Timeout   time.Duration
	PaperSize PaperSize
	Logger    *zap.Logger
}

// ChromedpRenderer prints HTML to PDF using the Chrome DevTools Protocol.
// Chrome is started on the first render, not at construction.
type ChromedpRenderer struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer creates a new ChromedpRenderer
func NewChromedpRenderer(cfg ChromedpConfig) (*ChromedpRenderer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChromeTimeout
	}
	size, err := ParsePaperSize(string(cfg.PaperSize))
	if err != nil {
		return nil, err
	}
	cfg.PaperSize = size

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRenderer{config: cfg, logger: logger.Named("chromedp")}
	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), r.allocatorOptions()...)
	}
	return r, nil
}

func (r *ChromedpRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// RenderPDF loads html into a blank page and prints it
func (r *ChromedpRenderer) RenderPDF(ctx context.Context, doc, title string) ([]byte, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()
	// the browser context is detached from ctx; tie its lifetime to the request
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	content := wrapDocument(doc, title)
	params := r.printParams()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, content).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering timed out after %v", r.config.Timeout), err)
		}
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}
	return pdf, nil
}

// printParams builds the PrintToPDF call for the configured paper
func (r *ChromedpRenderer) printParams() *page.PrintToPDFParams {
	width, height := r.config.PaperSize.Dimensions()
	margin := mmToInches(receiptMarginMM)
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(width)).
		WithPaperHeight(mmToInches(height)).
		WithMarginTop(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin).
		WithMarginRight(margin).
		WithPreferCSSPageSize(false)
}

// Close stops the browser allocator
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// wrapDocument returns doc unchanged when it is already a full document
func wrapDocument(doc, title string) string {
	lower := strings.ToLower(doc)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return doc
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	if title != "" {
		b.WriteString("<title>" + html.EscapeString(title) + "</title>")
	}
	b.WriteString("</head><body>")
	b.WriteString(doc)
	b.WriteString("</body></html>")
	return b.String()
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
