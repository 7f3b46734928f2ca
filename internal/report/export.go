package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"quiz-starter-service/internal/domain"
)

// WriteCSV emits one row per history record in the tabular export shape.
func WriteCSV(w io.Writer, records []domain.HistoryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Theme", "Score", "Total", "Percentage", "Time"}); err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			record.Date,
			record.Theme,
			strconv.Itoa(record.Score),
			strconv.Itoa(record.TotalQuestions),
			strconv.Itoa(domain.Percentage(record.Score, record.TotalQuestions)),
			strconv.Itoa(record.TimeElapsed),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON emits the full records as indented JSON.
func WriteJSON(w io.Writer, records []domain.HistoryRecord) error {
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
