// Package pdf renders HTML documents to PDF files with headless Chrome.
package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const cmToInch = 1 / 2.54

// Page options used for every document: A4, 1cm margins, backgrounds on.
var a4 = proto.PagePrintToPDF{
	PaperWidth:      f64(8.27),
	PaperHeight:     f64(11.69),
	MarginTop:       f64(1 * cmToInch),
	MarginBottom:    f64(1 * cmToInch),
	MarginLeft:      f64(1 * cmToInch),
	MarginRight:     f64(1 * cmToInch),
	PrintBackground: true,
}

// RodRenderer keeps one browser for the life of the process and opens a
// fresh page per document.
type RodRenderer struct {
	Bin string // empty lets the launcher find or download Chrome
	Log *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func (r *RodRenderer) RenderPDF(ctx context.Context, html string, path string) error {
	browser, err := r.ensureStarted()
	if err != nil {
		return err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}

	opts := a4
	stream, err := page.PDF(&opts)
	if err != nil {
		return fmt.Errorf("print pdf: %w", err)
	}

	return writeFile(path, stream)
}

func (r *RodRenderer) ensureStarted() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return r.browser, nil
		}
		r.Log.Warn("stale browser connection, relaunching")
		_ = r.browser.Close()
		r.browser = nil
	}

	l := launcher.New().Headless(true)
	if r.Bin != "" {
		l = l.Bin(r.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	r.browser = browser
	r.Log.Info("headless browser started")
	return browser, nil
}

// Close shuts the browser down if it was started.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

func writeFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("write pdf: %w", err)
	}
	return f.Close()
}

func f64(v float64) *float64 { return &v }
