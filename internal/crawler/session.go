package crawler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Session is a live rendered page. Elements are addressed by Target and an
// index into the targets in document order, so handles never go stale across
// reloads.
type Session interface {
	// Open navigates the base context to url
	Open(ctx context.Context, url string) error
	// HTML returns the rendered markup of the current context
	HTML(ctx context.Context) (string, error)
	// VisibleText returns the rendered text of the current context
	VisibleText(ctx context.Context) (string, error)
	// Count returns how many elements match t
	Count(ctx context.Context, t Target) (int, error)
	// Click clicks the index-th element matching t
	Click(ctx context.Context, t Target, index int) error
	// ScrollToBottom scrolls the current context and returns the page height
	ScrollToBottom(ctx context.Context) (int64, error)
	// Height returns the current page height
	Height(ctx context.Context) (int64, error)
	// SwitchToNewest makes the newest secondary context current.
	// It reports false when there is none.
	SwitchToNewest(ctx context.Context) (bool, error)
	// ResetClipboard clears the captured clipboard value
	ResetClipboard(ctx context.Context) error
	// ReadClipboard returns the last value copied in the current context
	ReadClipboard(ctx context.Context) (string, error)
	// CloseSecondary closes every context but the base one and returns to it
	CloseSecondary(ctx context.Context) error
	// Close releases the browser
	Close() error
}

// SessionFactory starts a session
type SessionFactory func(ctx context.Context) (Session, error)

// Matches returns the elements of doc selected by t, in document order
func (t Target) Matches(doc *goquery.Selection) *goquery.Selection {
	sel := doc.Find(t.CSS)
	if t.Text == "" {
		return sel
	}
	needle := strings.ToLower(t.Text)
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), needle)
	})
}

// script returns a JS expression evaluating to the array of live elements
// matching t, mirroring Matches.
func (t Target) script() string {
	css, _ := json.Marshal(t.CSS)
	text, _ := json.Marshal(strings.ToLower(t.Text))
	return `Array.from(document.querySelectorAll(` + string(css) + `))` +
		`.filter(el => (el.textContent || '').toLowerCase().includes(` + string(text) + `))`
}
