package crawler

import (
	"context"
	"fmt"
	"strconv"

	"sjsage522/couponworker/logger"
	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// clipboardHook records whatever the page copies into window.__copied
const clipboardHook = `(() => {
  if (window.__copiedHooked) return true;
  window.__copiedHooked = true;
  window.__copied = '';
  if (navigator.clipboard) {
    navigator.clipboard.writeText = (text) => { window.__copied = String(text); return Promise.resolve(); };
  }
  const exec = document.execCommand.bind(document);
  document.execCommand = (cmd, ...rest) => {
    if (String(cmd).toLowerCase() === 'copy') {
      const el = document.activeElement;
      const selected = String(window.getSelection ? window.getSelection() : '');
      window.__copied = selected || (el && 'value' in el ? String(el.value) : '');
    }
    return exec(cmd, ...rest);
  };
  document.addEventListener('copy', () => {
    const selected = String(window.getSelection());
    if (selected) window.__copied = selected;
  }, true);
  return true;
})()`

// ChromeOptions configures the browser process
type ChromeOptions struct {
	Headless bool
	ExecPath string
}

// ChromeSession implements Session on a local Chrome driven by chromedp
type ChromeSession struct {
	allocCancel context.CancelFunc
	base        context.Context
	baseCancel  context.CancelFunc
	baseID      target.ID

	cur       context.Context
	curCancel context.CancelFunc
}

// NewChromeSessionFactory returns a SessionFactory starting Chrome with opts
func NewChromeSessionFactory(opts ChromeOptions) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return NewChromeSession(ctx, opts)
	}
}

// NewChromeSession starts a browser with one blank tab
func NewChromeSession(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	base, baseCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(base); err != nil {
		baseCancel()
		allocCancel()
		return nil, crawlerrors.NewSession("chrome", "failed to start browser", err)
	}

	s := &ChromeSession{
		allocCancel: allocCancel,
		base:        base,
		baseCancel:  baseCancel,
		baseID:      chromedp.FromContext(base).Target.TargetID,
		cur:         base,
	}
	logger.ForSession().Debug().Str("target", string(s.baseID)).Bool("headless", opts.Headless).Msg("Browser started")
	return s, nil
}

// run executes actions in the current context, bounded by ctx
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	return runBounded(ctx, s.cur, actions...)
}

// runBounded runs actions against target while honoring the caller's ctx
func runBounded(ctx, target context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChromeSession) Open(ctx context.Context, url string) error {
	s.dropCurrent()
	if err := runBounded(ctx, s.base,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(clipboardHook, nil),
	); err != nil {
		return crawlerrors.NewSession("chrome", "failed to open "+url, err)
	}
	return nil
}

func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", crawlerrors.NewSession("chrome", "failed to read page markup", err)
	}
	return html, nil
}

func (s *ChromeSession) VisibleText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text)); err != nil {
		return "", crawlerrors.NewSession("chrome", "failed to read page text", err)
	}
	return text, nil
}

func (s *ChromeSession) Count(ctx context.Context, t Target) (int, error) {
	var n int
	if err := s.run(ctx, chromedp.Evaluate(t.script()+`.length`, &n)); err != nil {
		return 0, crawlerrors.NewSession("chrome", "failed to count "+t.CSS, err)
	}
	return n, nil
}

func (s *ChromeSession) Click(ctx context.Context, t Target, index int) error {
	js := `(() => {
  const el = ` + t.script() + `[` + strconv.Itoa(index) + `];
  if (!el) return false;
  el.scrollIntoView({block: 'center'});
  el.click();
  return true;
})()`
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return crawlerrors.NewSession("chrome", "click failed", err)
	}
	if !clicked {
		return crawlerrors.NewSession("chrome", fmt.Sprintf("no element %d for %q", index, t.Text), nil)
	}
	return nil
}

func (s *ChromeSession) ScrollToBottom(ctx context.Context) (int64, error) {
	var height int64
	js := `window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`
	if err := s.run(ctx, chromedp.Evaluate(js, &height)); err != nil {
		return 0, crawlerrors.NewSession("chrome", "scroll failed", err)
	}
	return height, nil
}

func (s *ChromeSession) Height(ctx context.Context) (int64, error) {
	var height int64
	if err := s.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, crawlerrors.NewSession("chrome", "failed to read page height", err)
	}
	return height, nil
}

// secondaryTargets lists the page targets other than the base tab, oldest first
func (s *ChromeSession) secondaryTargets(ctx context.Context) ([]target.ID, error) {
	done := make(chan struct{})
	var ids []target.ID
	var err error
	go func() {
		defer close(done)
		infos, tErr := chromedp.Targets(s.base)
		if tErr != nil {
			err = tErr
			return
		}
		for _, info := range infos {
			if info.Type == "page" && info.TargetID != s.baseID {
				ids = append(ids, info.TargetID)
			}
		}
	}()
	select {
	case <-done:
		return ids, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ChromeSession) SwitchToNewest(ctx context.Context) (bool, error) {
	ids, err := s.secondaryTargets(ctx)
	if err != nil {
		return false, crawlerrors.NewSession("chrome", "failed to list targets", err)
	}
	if len(ids) == 0 {
		return false, nil
	}
	newest := ids[len(ids)-1]
	if s.cur != s.base && chromedp.FromContext(s.cur).Target.TargetID == newest {
		return true, nil
	}

	s.dropCurrent()
	tab, cancel := chromedp.NewContext(s.base, chromedp.WithTargetID(newest))
	if err := runBounded(ctx, tab, chromedp.Evaluate(clipboardHook, nil)); err != nil {
		cancel()
		return false, crawlerrors.NewSession("chrome", "failed to attach to new tab", err)
	}
	s.cur, s.curCancel = tab, cancel
	return true, nil
}

func (s *ChromeSession) ResetClipboard(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(clipboardHook+`; window.__copied = ''`, nil))
}

func (s *ChromeSession) ReadClipboard(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Evaluate(`window.__copied || ''`, &text)); err != nil {
		return "", crawlerrors.NewSession("chrome", "failed to read clipboard", err)
	}
	return text, nil
}

func (s *ChromeSession) CloseSecondary(ctx context.Context) error {
	s.dropCurrent()
	ids, err := s.secondaryTargets(ctx)
	if err != nil {
		return crawlerrors.NewSession("chrome", "failed to list targets", err)
	}
	for _, id := range ids {
		tab, cancel := chromedp.NewContext(s.base, chromedp.WithTargetID(id))
		err := runBounded(ctx, tab, chromedp.Evaluate(`window.close()`, nil))
		cancel()
		if err != nil {
			logger.ForSession().Debug().Err(err).Str("target", string(id)).Msg("Failed to close tab")
		}
	}
	return nil
}

// dropCurrent detaches from a secondary tab and makes the base tab current
func (s *ChromeSession) dropCurrent() {
	if s.curCancel != nil {
		s.curCancel()
	}
	s.cur, s.curCancel = s.base, nil
}

func (s *ChromeSession) Close() error {
	s.dropCurrent()
	s.baseCancel()
	s.allocCancel()
	logger.ForSession().Debug().Msg("Browser closed")
	return nil
}
