// Package output writes a run's ResultSet to the report files consumers read.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sjsage522/couponworker/internal/coupon"
	"sjsage522/couponworker/logger"
	crawlerrors "sjsage522/couponworker/pkg/errors"
)

const (
	CouponsJSON = "coupons.json"
	OffersJSON  = "offers.json"
	AllResults  = "all_results.json"
	CouponsCSV  = "coupons.csv"
	ReportTXT   = "traveloka_coupons.txt"
)

// Summary holds the record counts of one run
type Summary struct {
	TotalCoupons int `json:"total_coupons"`
	TotalOffers  int `json:"total_offers"`
	TotalItems   int `json:"total_items"`
}

// SummaryOf counts the records of result
func SummaryOf(result coupon.ResultSet) Summary {
	coupons, offers := len(result.Coupons()), len(result.Offers())
	return Summary{
		TotalCoupons: coupons,
		TotalOffers:  offers,
		TotalItems:   coupons + offers,
	}
}

// AllResultsDocument is the layout of all_results.json
type AllResultsDocument struct {
	ScrapedAt time.Time             `json:"scraped_at"`
	Source    string                `json:"source"`
	Summary   Summary               `json:"summary"`
	Coupons   []coupon.CouponRecord `json:"coupons"`
	Offers    []coupon.OfferRecord  `json:"offers"`
}

// Writer renders results into Dir
type Writer struct {
	Dir string
}

// NewWriter creates a writer for dir
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Write produces every report file and returns their paths in write order.
// The directory is created when missing.
func (w *Writer) Write(result coupon.ResultSet) ([]string, error) {
	log := logger.ForOutput()
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, crawlerrors.NewOutput("failed to create output directory", err)
	}

	coupons := result.Coupons()
	offers := result.Offers()
	if coupons == nil {
		coupons = []coupon.CouponRecord{}
	}
	if offers == nil {
		offers = []coupon.OfferRecord{}
	}

	files := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{CouponsJSON, func() ([]byte, error) { return marshal(coupons) }},
		{OffersJSON, func() ([]byte, error) { return marshal(offers) }},
		{AllResults, func() ([]byte, error) {
			return marshal(AllResultsDocument{
				ScrapedAt: result.ScrapedAt,
				Source:    result.Source,
				Summary:   SummaryOf(result),
				Coupons:   coupons,
				Offers:    offers,
			})
		}},
		{CouponsCSV, func() ([]byte, error) { return renderCSV(coupons, offers), nil }},
		{ReportTXT, func() ([]byte, error) { return renderReport(result), nil }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		data, err := f.render()
		if err != nil {
			return paths, crawlerrors.NewOutput("failed to render "+f.name, err)
		}
		path := filepath.Join(w.Dir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, crawlerrors.NewOutput("failed to write "+f.name, err)
		}
		log.Debug().Str("file", path).Int("bytes", len(data)).Msg("Wrote output file")
		paths = append(paths, path)
	}
	return paths, nil
}

// marshal encodes v as indented UTF-8 JSON without HTML escaping
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadSummary reads the summary block back from an all_results.json file
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, crawlerrors.NewOutput("failed to read "+path, err)
	}
	var doc AllResultsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Summary{}, crawlerrors.NewOutput("failed to decode "+path, err)
	}
	return doc.Summary, nil
}

// quote wraps s in double quotes, doubling any embedded quote
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func renderCSV(coupons []coupon.CouponRecord, offers []coupon.OfferRecord) []byte {
	var b strings.Builder
	b.WriteString("TYPE,DESCRIPTION,CODE_OR_DISCOUNT,EXPIRY_DATE,SCRAPED_AT\n")
	for _, c := range coupons {
		fmt.Fprintf(&b, "coupon,%s,%s,%s,%s\n", quote(c.Description), quote(c.Code), quote(c.ExpiryDate), quote(timestamp(c.ScrapedAt)))
	}
	for _, o := range offers {
		fmt.Fprintf(&b, "offer,%s,%s,%s,%s\n", quote(o.Description), quote(o.Discount), quote(""), quote(timestamp(o.ScrapedAt)))
	}
	return []byte(b.String())
}

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

func renderReport(result coupon.ResultSet) []byte {
	coupons := result.Coupons()
	offers := result.Offers()
	summary := SummaryOf(result)

	var b strings.Builder
	b.WriteString(heavyRule + "\n")
	b.WriteString("TRAVELOKA COUPONS & OFFERS REPORT\n")
	b.WriteString(heavyRule + "\n\n")

	fmt.Fprintf(&b, "Scraped on: %s\n", result.ScrapedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "Source: %s\n", result.Source)
	fmt.Fprintf(&b, "Total Coupons: %d\n", summary.TotalCoupons)
	fmt.Fprintf(&b, "Total Offers: %d\n", summary.TotalOffers)
	fmt.Fprintf(&b, "Total Items: %d\n", summary.TotalItems)
	b.WriteString("\n" + heavyRule + "\n\n")

	b.WriteString("COUPONS\n")
	b.WriteString(lightRule + "\n\n")
	if len(coupons) == 0 {
		b.WriteString("No coupons found in this run.\n\n")
	}
	for i, c := range coupons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Description)
		fmt.Fprintf(&b, "   Code: %s\n", c.Code)
		if c.Discount != "" {
			fmt.Fprintf(&b, "   Discount: %s\n", c.Discount)
		}
		fmt.Fprintf(&b, "   Expires: %s\n", c.ExpiryDate)
		fmt.Fprintf(&b, "   Scraped: %s\n\n", timestamp(c.ScrapedAt))
	}

	b.WriteString("\n" + heavyRule + "\n")
	b.WriteString("OFFERS & DEALS\n")
	b.WriteString(lightRule + "\n\n")
	if len(offers) == 0 {
		b.WriteString("No offers found in this run.\n\n")
	}
	for i, o := range offers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o.Description)
		if o.Discount != "" {
			fmt.Fprintf(&b, "   Discount: %s\n", o.Discount)
		}
		fmt.Fprintf(&b, "   Scraped: %s\n\n", timestamp(o.ScrapedAt))
	}

	b.WriteString("\n" + heavyRule + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(heavyRule + "\n")
	return []byte(b.String())
}
