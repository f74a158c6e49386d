package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ecomlab/go-buybox/models"
)

// RenderSummaryTable prints a per-identifier overview to w.
func RenderSummaryTable(w io.Writer, results []models.AnalysisResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ASIN", "Product", "Winner", "Total", "Offers", "Reasons", "Status"})

	for i := range results {
		r := &results[i]

		winner, total := "-", "-"
		if won := r.WinningOffer; won != nil {
			winner = won.SellerID
			total = fmt.Sprintf("$%.2f", won.TotalPrice())
		}

		status := "ok"
		if r.Failure != nil {
			status = string(r.Failure.Kind)
		}

		t.AppendRow(table.Row{
			r.ProductID,
			truncate(r.ProductName, 40),
			winner,
			total,
			r.TotalOfferCount,
			len(r.Reasons),
			status,
		})
	}
	t.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
