// Package browser drives the inventory product through a Chrome session
// controlled over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/Veraticus/catalog-steward/internal/config"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

// Options configures a browser session.
type Options struct {
	Browser config.BrowserConfig
	Product config.ProductConfig
	Timing  config.TimingConfig
}

// Session owns the connection to Chrome. It either launches a browser of its
// own or attaches to one the operator already has open.
type Session struct {
	browser  *rod.Browser
	launched *launcher.Launcher
	opts     Options
}

// Start launches Chrome, or connects to Browser.DebuggerURL when it is set.
func Start(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{opts: opts}

	controlURL := opts.Browser.DebuggerURL
	if controlURL == "" {
		l := launcher.New().
			Headless(opts.Browser.Headless).
			Set(flags.Flag("start-maximized"))
		if opts.Browser.Bin != "" {
			l = l.Bin(opts.Browser.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
		s.launched = l
		slog.Info("Launched browser", "headless", opts.Browser.Headless)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if s.launched != nil {
			s.launched.Kill()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = b
	slog.Debug("Connected to browser", "control_url", controlURL)
	return s, nil
}

// Close shuts the browser down if this session launched it. An attached
// browser is left running.
func (s *Session) Close() error {
	if s.launched == nil {
		return nil
	}
	err := s.browser.Close()
	s.launched.Kill()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// OpenLogin opens a new tab on the product's login page. The operator
// finishes the login by hand.
func (s *Session) OpenLogin(ctx context.Context) (*Page, error) {
	p, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: s.opts.Product.LoginURL})
	if err != nil {
		return nil, classify("open login", err)
	}
	if err := p.Context(ctx).WaitLoad(); err != nil {
		return nil, classify("open login", err)
	}
	slog.Info("Opened login page", "url", s.opts.Product.LoginURL)
	return newPage(p, s.opts), nil
}

// Acquire implements surface.Acquirer. It picks the tab showing the product,
// falling back to the most recently opened tab.
func (s *Session) Acquire(ctx context.Context) (surface.Surface, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return nil, classify("acquire", err)
	}
	if len(pages) == 0 {
		return nil, surface.Unavailable("acquire", errors.New("browser has no open tabs"))
	}

	urls := make([]string, len(pages))
	for i, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil {
			continue
		}
		urls[i] = info.URL
	}

	p := pages[pickPage(urls, productHost(s.opts.Product))]
	if _, err := p.Context(ctx).Activate(); err != nil {
		return nil, classify("acquire", err)
	}
	slog.Info("Acquired product tab", "tabs", len(pages))
	return newPage(p, s.opts), nil
}

// pickPage returns the index of the first tab on host, or the last tab.
func pickPage(urls []string, host string) int {
	if host != "" {
		for i, u := range urls {
			parsed, err := url.Parse(u)
			if err != nil {
				continue
			}
			if strings.EqualFold(parsed.Hostname(), host) || strings.HasSuffix(strings.ToLower(parsed.Hostname()), "."+host) {
				return i
			}
		}
	}
	return len(urls) - 1
}

func productHost(product config.ProductConfig) string {
	for _, raw := range []string{product.ItemLibraryURL, product.LoginURL} {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	return ""
}
