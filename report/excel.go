package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ecomlab/go-buybox/models"
)

const excelSheet = "Buy Box Analysis"

var excelHeader = []string{
	"ASIN", "Product Name", "Buy Box Winner", "Price", "Shipping",
	"Total Price", "Is FBA", "Is Prime", "Seller Rating", "Reasons",
	"Total Offers", "Analyzed At", "Failure",
}

var excelColumnWidths = map[string]float64{
	"A": 15, // ASIN
	"B": 50, // Product Name
	"C": 18, // Buy Box Winner
	"D": 10, // Price
	"E": 10, // Shipping
	"F": 12, // Total Price
	"G": 8,  // Is FBA
	"H": 9,  // Is Prime
	"I": 13, // Seller Rating
	"J": 60, // Reasons
	"K": 12, // Total Offers
	"L": 20, // Analyzed At
	"M": 40, // Failure
}

// ExcelWriter renders the result set as a formatted workbook.
type ExcelWriter struct {
	path string
	file *excelize.File
	row  int
}

// NewExcelWriter creates the workbook and styles the header row.
func NewExcelWriter(filename string) (*ExcelWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FF9900"}},
		Border:    []excelize.Border{{Type: "bottom", Style: 1, Color: "000000"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, name := range excelHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(excelSheet, cell, name); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	endCell, _ := excelize.CoordinatesToCellName(len(excelHeader), 1)
	if err := f.SetCellStyle(excelSheet, "A1", endCell, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for column, width := range excelColumnWidths {
		if err := f.SetColWidth(excelSheet, column, column, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	return &ExcelWriter{path: filename, file: f, row: 1}, nil
}

// Write appends one row per result.
func (ew *ExcelWriter) Write(results []models.AnalysisResult) error {
	currencyStyle, err := ew.file.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(`$#,##0.00`),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return fmt.Errorf("currency style: %w", err)
	}
	wrapStyle, err := ew.file.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("wrap style: %w", err)
	}
	failureStyle, err := ew.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "FF0000"},
	})
	if err != nil {
		return fmt.Errorf("failure style: %w", err)
	}

	for i := range results {
		ew.row++
		if err := ew.writeRow(&results[i], currencyStyle, wrapStyle, failureStyle); err != nil {
			return err
		}
	}
	return nil
}

func (ew *ExcelWriter) writeRow(r *models.AnalysisResult, currencyStyle, wrapStyle, failureStyle int) error {
	values := make([]interface{}, len(excelHeader))
	values[0] = r.ProductID
	values[1] = r.ProductName
	values[2] = "No Winner"
	values[10] = r.TotalOfferCount
	values[11] = r.AnalyzedAt.Format("2006-01-02 15:04:05")

	if w := r.WinningOffer; w != nil {
		values[2] = w.SellerID
		values[3] = w.ListingPrice
		values[4] = w.ShippingPrice
		values[5] = w.TotalPrice()
		values[6] = yesNo(w.IsFulfilledByPlatform)
		values[7] = yesNo(w.IsPrimeEligible)
		if w.SellerFeedbackRating != nil {
			values[8] = fmt.Sprintf("%.0f%%", *w.SellerFeedbackRating)
		}
	}
	values[9] = joinReasons(r.Reasons)
	if r.Failure != nil {
		values[12] = r.Failure.Error()
	}

	for i, value := range values {
		if value == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, ew.row)
		if err := ew.file.SetCellValue(excelSheet, cell, value); err != nil {
			return fmt.Errorf("write row %d: %w", ew.row, err)
		}
	}

	currencyStart, _ := excelize.CoordinatesToCellName(4, ew.row)
	currencyEnd, _ := excelize.CoordinatesToCellName(6, ew.row)
	if err := ew.file.SetCellStyle(excelSheet, currencyStart, currencyEnd, currencyStyle); err != nil {
		return fmt.Errorf("style row %d: %w", ew.row, err)
	}
	reasonsCell, _ := excelize.CoordinatesToCellName(10, ew.row)
	if err := ew.file.SetCellStyle(excelSheet, reasonsCell, reasonsCell, wrapStyle); err != nil {
		return fmt.Errorf("style row %d: %w", ew.row, err)
	}
	if r.Failure != nil {
		failureCell, _ := excelize.CoordinatesToCellName(13, ew.row)
		if err := ew.file.SetCellStyle(excelSheet, failureCell, failureCell, failureStyle); err != nil {
			return fmt.Errorf("style row %d: %w", ew.row, err)
		}
	}
	return nil
}

// Close saves the workbook to disk.
func (ew *ExcelWriter) Close() error {
	defer ew.file.Close()
	if err := ew.file.SaveAs(ew.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Validate ensures at least one data row was written.
func (ew *ExcelWriter) Validate() error {
	if ew.row <= 1 {
		return fmt.Errorf("workbook has no data rows")
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func strPtr(s string) *string {
	return &s
}
