package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sjsage522/couponworker/internal/coupon"

	"github.com/PuerkitoBio/goquery"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, &mockError{message: "cache miss"}
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// MockLogger records item error notes
type MockLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (m *MockLogger) LogError(itemName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, itemName+": "+err.Error())
}

func (m *MockLogger) LogInfo(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Infos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infos...)
}

func (m *MockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

// fakeSession renders a listing and per-button reveal panels from static HTML
type fakeSession struct {
	listing string
	// panels maps a promo button index to the markup of the tab it opens
	panels map[int]string
	// codes maps a promo button index to what its panel's copy button copies
	codes map[int]string
	// failClick makes clicking that promo button fail
	failClick map[int]bool

	openErr error
	height  int64
	growth  int
	// switchDelay is how many SwitchToNewest polls miss the new tab after a click
	switchDelay int

	pendingSwitch  int

	opened         int
	closed         bool
	accepted       bool
	loadMoreClicks int
	secondaryOpen  bool
	inPanel        bool
	clicked        int
	clipboard      string
}

var _ Session = (*fakeSession)(nil)

func (f *fakeSession) current() string {
	if f.inPanel {
		return f.panels[f.clicked]
	}
	return f.listing
}

func (f *fakeSession) doc() *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.current()))
	if err != nil {
		panic(err)
	}
	return doc.Selection
}

func (f *fakeSession) Open(_ context.Context, _ string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	f.inPanel = false
	return nil
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	return f.current(), nil
}

func (f *fakeSession) VisibleText(context.Context) (string, error) {
	page, err := coupon.NewPage(strings.NewReader(f.listing))
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

func (f *fakeSession) Count(_ context.Context, t Target) (int, error) {
	return t.Matches(f.doc()).Length(), nil
}

func (f *fakeSession) Click(_ context.Context, t Target, index int) error {
	if index >= t.Matches(f.doc()).Length() {
		return fmt.Errorf("no element %d", index)
	}
	switch t {
	case DefaultSelectors.PromoButton:
		if f.failClick[index] {
			return errors.New("element is not clickable")
		}
		f.clicked = index
		f.secondaryOpen = f.panels[index] != ""
		f.pendingSwitch = f.switchDelay
	case DefaultSelectors.CopyButton:
		f.clipboard = f.codes[f.clicked]
	case DefaultSelectors.AcceptCookies:
		f.accepted = true
	case DefaultSelectors.LoadMore:
		f.loadMoreClicks++
		if f.growth > 0 {
			f.growth--
			f.height += 100
		}
	}
	return nil
}

func (f *fakeSession) ScrollToBottom(context.Context) (int64, error) {
	return f.height, nil
}

func (f *fakeSession) Height(context.Context) (int64, error) {
	return f.height, nil
}

func (f *fakeSession) SwitchToNewest(context.Context) (bool, error) {
	if !f.secondaryOpen {
		return false, nil
	}
	if f.pendingSwitch > 0 {
		f.pendingSwitch--
		return false, nil
	}
	f.inPanel = true
	return true, nil
}

func (f *fakeSession) ResetClipboard(context.Context) error {
	f.clipboard = ""
	return nil
}

func (f *fakeSession) ReadClipboard(context.Context) (string, error) {
	return f.clipboard, nil
}

func (f *fakeSession) CloseSecondary(context.Context) error {
	f.secondaryOpen = false
	f.inPanel = false
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}
