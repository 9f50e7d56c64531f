package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/edumark/school-results-api/internal/models"
)

// PinBatch renders a generated PIN batch as CSV for distribution to the
// requesting school. Usage columns are deliberately omitted: the export is a
// handout, not an audit report.
func PinBatch(pins []models.PIN) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write([]string{"s/n", "pin_code", "session", "term", "expiry_date", "max_attempts"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, pin := range pins {
		record := []string{
			strconv.Itoa(i + 1),
			pin.Code,
			pin.Session,
			pin.Term,
			pin.ExpiryDate.Format("2006-01-02"),
			strconv.Itoa(pin.MaxAttempts),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
