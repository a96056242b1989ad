// Package report renders a run summary for sharing.
package report

import (
	"io"
	"math"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/aluiziolira/go-product-parser/analysis"
	"github.com/aluiziolira/go-product-parser/models"
)

// Summary is everything a run report shows.
type Summary struct {
	BaseURL    string
	Result     *models.RunResult
	Statistics models.Statistics
	Criteria   analysis.DealCriteria
	Deals      []models.Product
	Details    []models.ProductDetails
	OutputFile string
}

// MarkdownWriter outputs run summaries in Markdown format.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the summary.
func (w *MarkdownWriter) Write(s Summary) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Product Parser Report")
	md.PlainText("")
	w.writeRun(md, s)
	w.writeStatistics(md, s.Statistics)
	w.writeDeals(md, s)
	w.writeDetails(md, s.Details)

	return md.Build()
}

func (w *MarkdownWriter) writeRun(md *markdown.Markdown, s Summary) {
	rows := [][]string{
		{"Source", s.BaseURL},
	}
	if r := s.Result; r != nil {
		rows = append(rows,
			[]string{"Started", r.StartTime.Format("2006-01-02 15:04:05 MST")},
			[]string{"Duration", r.EndTime.Sub(r.StartTime).Round(time.Millisecond).String()},
			[]string{"Pages", strconv.Itoa(r.PageCount)},
			[]string{"Failed pages", strconv.Itoa(r.FailedPages)},
		)
	}
	if s.OutputFile != "" {
		rows = append(rows, []string{"Export", "`" + s.OutputFile + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, stats models.Statistics) {
	md.H2("Statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total products", strconv.Itoa(stats.Count)},
			{"In stock", strconv.Itoa(stats.InStock)},
			{"Out of stock", strconv.Itoa(stats.OutOfStock)},
			{"Average price", analysis.FormatPrice(stats.PriceAvg)},
			{"Price range", analysis.FormatPrice(stats.PriceMin) + " - " + analysis.FormatPrice(stats.PriceMax)},
			{"Average rating", analysis.Stars(stats.RatingAvg) + " (" + strconv.FormatFloat(stats.RatingAvg, 'f', 1, 64) + "/5)"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDeals(md *markdown.Markdown, s Summary) {
	md.H2("Deals")
	md.PlainText("")
	md.PlainText(criteriaText(s.Criteria))
	md.PlainText("")

	if len(s.Deals) == 0 {
		md.PlainText("No products matched.")
		return
	}

	rows := make([][]string, 0, len(s.Deals))
	for _, deal := range s.Deals {
		rows = append(rows, []string{deal.Title, deal.Price, analysis.Stars(float64(deal.Rating)), strconv.FormatBool(deal.InStock)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Price", "Rating", "In stock"},
		Rows:   rows,
	})
}

func (w *MarkdownWriter) writeDetails(md *markdown.Markdown, details []models.ProductDetails) {
	if len(details) == 0 {
		return
	}
	md.PlainText("")
	md.H2("Product Details")
	md.PlainText("")

	rows := make([][]string, 0, len(details))
	for _, d := range details {
		rows = append(rows, []string{d.UPC, d.Availability, d.Description, d.URL})
	}
	md.Table(markdown.TableSet{
		Header: []string{"UPC", "Availability", "Description", "URL"},
		Rows:   rows,
	})
}

func criteriaText(c analysis.DealCriteria) string {
	text := "Rating " + strconv.Itoa(c.MinRating) + "+ stars"
	if !math.IsInf(c.MaxPrice, 1) {
		text = "Under " + analysis.FormatPrice(c.MaxPrice) + ", " + text
	}
	if c.InStockOnly {
		text += ", in stock only"
	}
	return text + "."
}
