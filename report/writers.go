// Package report renders a finished result set. The analysis core's
// contract ends at producing the ordered results; everything about
// presentation lives here.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ecomlab/go-buybox/models"
)

// Writer renders an ordered result sequence to some output.
type Writer interface {
	Write(results []models.AnalysisResult) error
	Close() error
	Validate() error
}

var csvHeader = []string{
	"asin", "product_name", "winner_seller_id", "listing_price",
	"shipping_price", "total_price", "is_fba", "is_prime",
	"seller_rating", "feedback_count", "reasons", "total_offers",
	"analyzed_at", "failure",
}

// CSVWriter writes results to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{file: f, writer: writer}, nil
}

// Write appends results to the CSV output.
func (cw *CSVWriter) Write(results []models.AnalysisResult) error {
	for i := range results {
		if err := cw.writer.Write(csvRecord(&results[i])); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	return validateNonEmpty(cw.file, "csv")
}

func csvRecord(r *models.AnalysisResult) []string {
	sellerID, listing, shipping, total := "", "", "", ""
	isFBA, isPrime, rating, feedback := "", "", "", ""
	if w := r.WinningOffer; w != nil {
		sellerID = w.SellerID
		listing = strconv.FormatFloat(w.ListingPrice, 'f', 2, 64)
		shipping = strconv.FormatFloat(w.ShippingPrice, 'f', 2, 64)
		total = strconv.FormatFloat(w.TotalPrice(), 'f', 2, 64)
		isFBA = strconv.FormatBool(w.IsFulfilledByPlatform)
		isPrime = strconv.FormatBool(w.IsPrimeEligible)
		if w.SellerFeedbackRating != nil {
			rating = strconv.FormatFloat(*w.SellerFeedbackRating, 'f', 0, 64)
		}
		if w.SellerFeedbackCount != nil {
			feedback = strconv.Itoa(*w.SellerFeedbackCount)
		}
	}

	failure := ""
	if r.Failure != nil {
		failure = r.Failure.Error()
	}

	return []string{
		r.ProductID,
		r.ProductName,
		sellerID,
		listing,
		shipping,
		total,
		isFBA,
		isPrime,
		rating,
		feedback,
		joinReasons(r.Reasons),
		strconv.Itoa(r.TotalOfferCount),
		r.AnalyzedAt.Format(time.RFC3339),
		failure,
	}
}

func joinReasons(reasons []models.Reason) string {
	if len(reasons) == 0 {
		return ""
	}
	messages := make([]string, len(reasons))
	for i, reason := range reasons {
		messages[i] = reason.Message
	}
	return strings.Join(messages, "; ")
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends results in JSONL format.
func (jw *JSONWriter) Write(results []models.AnalysisResult) error {
	for i := range results {
		if err := jw.encoder.Encode(&results[i]); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateNonEmpty(jw.file, "json")
}

// DualWriter renders to CSV and JSONL simultaneously.
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
}

// NewDualWriter creates writers for both formats.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{csvWriter: csvWriter, jsonWriter: jsonWriter}, nil
}

// Write writes results to both outputs.
func (dw *DualWriter) Write(results []models.AnalysisResult) error {
	if err := dw.csvWriter.Write(results); err != nil {
		return err
	}
	return dw.jsonWriter.Write(results)
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	csvErr := dw.csvWriter.Close()
	jsonErr := dw.jsonWriter.Close()
	if csvErr != nil {
		return csvErr
	}
	return jsonErr
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	if err := dw.csvWriter.Validate(); err != nil {
		return err
	}
	return dw.jsonWriter.Validate()
}

func validateNonEmpty(f *os.File, kind string) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
