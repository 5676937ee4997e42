package coupon

import (
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"sjsage522/couponworker/helpers"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// DefaultTrigger is the call-to-action text that ends every code-bearing card
	DefaultTrigger = "SEE PROMO CODE"
	// DefaultAnchors are the heading elements that carry deal titles
	DefaultAnchors = "h3, h4"
	// DefaultMaxAscent caps the upward card search
	DefaultMaxAscent = 10
	// MinTitleLength is the shortest heading text treated as a deal title
	MinTitleLength = 10
	// FragmentWindow is how many fragments after a title are searched
	FragmentWindow = 10
)

// Page is one acquired page: its DOM, when there is one, and its visible text
type Page struct {
	Document *goquery.Document
	Text     string
}

// NewPage parses HTML and derives the visible text, one text node per line
func NewPage(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return NewPageFromDocument(doc), nil
}

// NewPageFromDocument wraps an already parsed document
func NewPageFromDocument(doc *goquery.Document) *Page {
	return &Page{
		Document: doc,
		Text:     strings.Join(VisibleLines(doc.Selection), "\n"),
	}
}

// NewTextPage wraps a page snapshot for which no DOM is available
func NewTextPage(text string) *Page {
	return &Page{Text: text}
}

// Segmenter splits a page into candidate item blocks in document order
type Segmenter interface {
	Name() Strategy
	Segment(page *Page) iter.Seq[RawItemBlock]
}

// VisibleLines returns the trimmed text of every text node under sel,
// skipping script-like elements.
func VisibleLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return lines
}

// SelectionText is the visible text of sel with text nodes separated by newlines
func SelectionText(sel *goquery.Selection) string {
	return strings.Join(VisibleLines(sel), "\n")
}

// CleanText trims s and collapses inner whitespace runs to single spaces
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StructuralSegmenter anchors on heading elements and searches the enclosing card
type StructuralSegmenter struct {
	Anchors    string
	CardClass  string
	MaxAscent  int
	StopOnDate bool
}

// NewStructuralSegmenter returns a segmenter with the default anchors and ascent cap
func NewStructuralSegmenter(cardClass string, maxAscent int) *StructuralSegmenter {
	if maxAscent <= 0 {
		maxAscent = DefaultMaxAscent
	}
	return &StructuralSegmenter{
		Anchors:    DefaultAnchors,
		CardClass:  cardClass,
		MaxAscent:  maxAscent,
		StopOnDate: true,
	}
}

// Name implements Segmenter
func (s *StructuralSegmenter) Name() Strategy { return StrategyStructural }

// Segment implements Segmenter
func (s *StructuralSegmenter) Segment(page *Page) iter.Seq[RawItemBlock] {
	return func(yield func(RawItemBlock) bool) {
		if page == nil || page.Document == nil {
			return
		}
		index := 0
		for _, node := range page.Document.Find(s.Anchors).EachIter() {
			title := CleanText(node.Text())
			if utf8.RuneCountInString(title) < MinTitleLength {
				continue
			}

			searchText := title
			if card, ok := s.findCard(node); ok {
				searchText = SelectionText(card)
			}

			block := RawItemBlock{
				Index:       index,
				Strategy:    StrategyStructural,
				PrimaryText: title,
				SearchText:  searchText,
				Lines:       helpers.NonEmptyLines(searchText),
			}
			index++
			if !yield(block) {
				return
			}
		}
	}
}

// findCard prefers the card class and only then falls back to the nearest
// ancestor showing a date.
func (s *StructuralSegmenter) findCard(anchor *goquery.Selection) (*goquery.Selection, bool) {
	if card, ok := FindCard(anchor, s.MaxAscent, ClassPredicate(s.CardClass)); ok {
		return card, true
	}
	if s.StopOnDate {
		return FindCard(anchor, s.MaxAscent, DatePredicate)
	}
	return nil, false
}

// PlainTextSegmenter splits whole-page text on a trigger phrase
type PlainTextSegmenter struct {
	Trigger string
}

// NewPlainTextSegmenter returns a segmenter splitting on trigger, or on
// DefaultTrigger when trigger is empty.
func NewPlainTextSegmenter(trigger string) *PlainTextSegmenter {
	if trigger == "" {
		trigger = DefaultTrigger
	}
	return &PlainTextSegmenter{Trigger: trigger}
}

// Name implements Segmenter
func (s *PlainTextSegmenter) Name() Strategy { return StrategyPlainText }

// Segment implements Segmenter. The text before the first trigger is page chrome
// and yields nothing.
func (s *PlainTextSegmenter) Segment(page *Page) iter.Seq[RawItemBlock] {
	return func(yield func(RawItemBlock) bool) {
		if page == nil || page.Text == "" {
			return
		}
		sections := strings.Split(page.Text, s.Trigger)
		for i, section := range sections[1:] {
			block := RawItemBlock{
				Index:      i,
				Strategy:   StrategyPlainText,
				SearchText: section,
				Lines:      helpers.NonEmptyLines(section),
			}
			if !yield(block) {
				return
			}
		}
	}
}

// CardText returns the text of the i-th trigger-bearing card in page text: the
// stretch that ends at its trigger, or "" if there are fewer triggers.
func CardText(text, trigger string, i int) string {
	if strings.Count(text, trigger) <= i {
		return ""
	}
	return helpers.GetSplitPart(text, trigger, i)
}

// titleKeywords mark text fragments that read like a deal headline
var titleKeywords = []string{
	"enjoy", "save", "get", "book", "take", "claim", "pay", "score", "grab",
	"apply", "redeem", "spend", "discover", "explore", "refer", "stay",
}

// FragmentSegmenter treats every headline-like text fragment as a block and
// searches the fragments that follow it.
type FragmentSegmenter struct {
	Window int
}

// NewFragmentSegmenter returns a segmenter with the default look-ahead window
func NewFragmentSegmenter() *FragmentSegmenter {
	return &FragmentSegmenter{Window: FragmentWindow}
}

// Name implements Segmenter
func (s *FragmentSegmenter) Name() Strategy { return StrategyFragments }

// Segment implements Segmenter
func (s *FragmentSegmenter) Segment(page *Page) iter.Seq[RawItemBlock] {
	return func(yield func(RawItemBlock) bool) {
		if page == nil {
			return
		}
		var fragments []string
		if page.Document != nil {
			fragments = VisibleLines(page.Document.Selection)
		} else {
			fragments = helpers.NonEmptyLines(page.Text)
		}

		index := 0
		for i, fragment := range fragments {
			if !looksLikeTitle(fragment) {
				continue
			}
			end := min(i+1+s.Window, len(fragments))
			window := fragments[i+1 : end]
			block := RawItemBlock{
				Index:       index,
				Strategy:    StrategyFragments,
				PrimaryText: fragment,
				SearchText:  strings.Join(window, "\n"),
				Lines:       window,
			}
			index++
			if !yield(block) {
				return
			}
		}
	}
}

func looksLikeTitle(fragment string) bool {
	n := utf8.RuneCountInString(fragment)
	if n <= MinTitleLength || n >= 250 {
		return false
	}
	lower := strings.ToLower(fragment)
	for _, keyword := range titleKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// NewSegmenter returns the segmenter for a strategy name
func NewSegmenter(strategy Strategy, cardClass string, maxAscent int) Segmenter {
	switch strategy {
	case StrategyPlainText:
		return NewPlainTextSegmenter(DefaultTrigger)
	case StrategyFragments:
		return NewFragmentSegmenter()
	default:
		return NewStructuralSegmenter(cardClass, maxAscent)
	}
}
