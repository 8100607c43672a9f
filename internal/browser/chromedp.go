package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"tubescribe/internal/services"
)

// Conn is a live connection to the remote browser.
type Conn interface {
	Navigate(ctx context.Context, url string) error
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}

// Connector dials the remote browser. Implementations must be safe to call
// repeatedly; the manager reconnects after a degraded session.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

type cdpConnector struct {
	debugURL string
	client   *http.Client
}

// NewCDPConnector attaches to a browser exposing the DevTools protocol at
// debugURL (for example http://localhost:9222).
func NewCDPConnector(debugURL string) Connector {
	return &cdpConnector{
		debugURL: debugURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func (c *cdpConnector) Connect(ctx context.Context) (Conn, error) {
	info, err := c.version(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrSessionUnavailable, "browser", "connect", "browser endpoint unreachable", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return nil, services.Wrap(services.ErrSessionUnavailable, "browser", "connect", "endpoint reported no websocket debugger url", nil)
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), info.WebSocketDebuggerURL, chromedp.NoModifyURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force target attachment so a dead endpoint fails here, not on first use.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, services.Wrap(services.ErrSessionUnavailable, "browser", "connect", "attach to browser target", err)
	}

	return &cdpConn{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		browser:     info.Browser,
	}, nil
}

func (c *cdpConnector) version(ctx context.Context) (*versionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.debugURL+"/json/version", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode version payload: %w", err)
	}
	return &info, nil
}

type cdpConn struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	browser     string
}

func (c *cdpConn) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return services.Wrap(services.ErrSessionUnavailable, "browser", "navigate", fmt.Sprintf("navigate to %s", url), err)
	}
	return nil
}

func (c *cdpConn) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	action := chromedp.ActionFunc(func(cdpCtx context.Context) error {
		cookies, err := storage.GetCookies().Do(cdpCtx)
		if err != nil {
			return err
		}
		out = make([]Cookie, 0, len(cookies))
		for _, ck := range cookies {
			var expires int64
			if ck.Expires > 0 {
				expires = int64(ck.Expires)
			}
			out = append(out, Cookie{
				Domain:   ck.Domain,
				Path:     ck.Path,
				Name:     ck.Name,
				Value:    ck.Value,
				Secure:   ck.Secure,
				HTTPOnly: ck.HTTPOnly,
				Expires:  expires,
			})
		}
		return nil
	})
	if err := c.run(ctx, action); err != nil {
		return nil, services.Wrap(services.ErrSessionUnavailable, "browser", "cookies", "read cookies from browser", err)
	}
	return out, nil
}

// run executes actions on the tab context while honoring the caller's
// deadline and cancellation.
func (c *cdpConn) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := c.tabCtx
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(runCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
}

func (c *cdpConn) Close() error {
	c.tabCancel()
	c.allocCancel()
	return nil
}
