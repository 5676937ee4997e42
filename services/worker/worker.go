package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"sjsage522/couponworker/helpers"
	"sjsage522/couponworker/internal/coupon"
	"sjsage522/couponworker/internal/crawler"
	"sjsage522/couponworker/logger"
	"sjsage522/couponworker/services/output"
	"sjsage522/couponworker/services/publisher"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Report describes one finished run
type Report struct {
	Summary   output.Summary
	Files     []string
	Published int
	Elapsed   time.Duration
}

// Worker runs one crawl, writes the reports and publishes the records
type Worker struct {
	crawler   crawler.Crawler
	writer    *output.Writer
	publisher publisher.Publisher
	logger    helpers.LoggerInterface
	out       io.Writer
}

// NewWorker creates a new worker. A nil publisher publishes nothing and a
// nil out suppresses the summary table.
func NewWorker(
	c crawler.Crawler,
	writer *output.Writer,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	out io.Writer,
) *Worker {
	if pub == nil {
		pub = publisher.Nop{}
	}
	return &Worker{
		crawler:   c,
		writer:    writer,
		publisher: pub,
		logger:    logger,
		out:       out,
	}
}

// Run performs the single pass: crawl, write, publish, summarize.
// A fetch failure or an empty result is returned as an error.
func (w *Worker) Run(ctx context.Context) (Report, error) {
	log := logger.ForWorker()
	start := time.Now()
	crawlerName := w.crawler.GetName()

	result, err := w.crawler.FetchDeals(ctx)
	if err != nil {
		w.logger.LogError(crawlerName, err)
		return Report{Elapsed: time.Since(start)}, err
	}

	files, err := w.writer.Write(result)
	if err != nil {
		w.logger.LogError("output", err)
		return Report{Elapsed: time.Since(start)}, err
	}

	report := Report{
		Summary:   output.SummaryOf(result),
		Files:     files,
		Published: w.publish(ctx, result),
		Elapsed:   time.Since(start),
	}

	log.Info().
		Str("crawler", crawlerName).
		Int("coupons", report.Summary.TotalCoupons).
		Int("offers", report.Summary.TotalOffers).
		Int("published", report.Published).
		Dur("elapsed", report.Elapsed).
		Msg("Run finished")

	if w.out != nil {
		RenderSummary(w.out, result, report)
	}
	return report, nil
}

// publish sends every record to the stream. Failures are noted and do not
// fail the run.
func (w *Worker) publish(ctx context.Context, result coupon.ResultSet) int {
	provider := w.crawler.GetProvider()
	records := make([]any, 0, result.Total())
	for _, c := range result.Coupons() {
		records = append(records, c)
	}
	for _, o := range result.Offers() {
		records = append(records, o)
	}

	published := 0
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			w.logger.LogError(provider, err)
			continue
		}
		if err := w.publisher.Publish(ctx, provider, data); err != nil {
			w.logger.LogError(provider, err)
			continue
		}
		published++
	}

	if err := w.publisher.TrimStreams(ctx); err != nil {
		w.logger.LogError("StreamTrimming", err)
	}
	return published
}

// RenderSummary prints the run's records and output files as tables
func RenderSummary(out io.Writer, result coupon.ResultSet, report Report) {
	records := table.NewWriter()
	records.SetOutputMirror(out)
	records.SetTitle(fmt.Sprintf("%s (%s)", result.Source, report.Elapsed.Round(time.Millisecond)))
	records.AppendHeader(table.Row{"#", "Type", "Description", "Code / Discount", "Expires"})
	n := 0
	for _, c := range result.Coupons() {
		n++
		records.AppendRow(table.Row{n, c.Type, helpers.Truncate(c.Description, 60), c.Code, c.ExpiryDate})
	}
	for _, o := range result.Offers() {
		n++
		records.AppendRow(table.Row{n, o.Type, helpers.Truncate(o.Description, 60), o.Discount, ""})
	}
	records.AppendFooter(table.Row{"", "Total", fmt.Sprintf("%d coupons, %d offers", report.Summary.TotalCoupons, report.Summary.TotalOffers), "", ""})
	records.SetStyle(table.StyleRounded)
	records.Render()

	files := table.NewWriter()
	files.SetOutputMirror(out)
	files.AppendHeader(table.Row{"Output file"})
	for _, f := range report.Files {
		files.AppendRow(table.Row{filepath.ToSlash(f)})
	}
	files.SetStyle(table.StyleRounded)
	files.Render()
}
