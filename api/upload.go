/*
upload.go - Batch file ingestion

PURPOSE:
  Accepts a multipart CSV or TSV upload, turns each data row into a
  reconciliation instruction, and runs the batch through the engine.

FILE FORMAT:
  First line is the header. The delimiter is sniffed from the header line:
  a tab anywhere means TSV, otherwise comma. Ragged rows are tolerated;
  missing trailing cells read as empty.

RESPONSE:
  The engine's batch report, verbatim. Row failures are part of the report,
  not HTTP errors - a batch with 50 bad rows still returns 200.

SEE ALSO:
  - engine/normalize.go: Header alias resolution
  - engine/reconcile.go: Batch processing
*/
package api

import (
	"encoding/csv"
	"io"
	"net/http"
	"strings"

	"github.com/warp/lesson-engine/engine"
)

// UploadBatch ingests a schedule batch file and returns the row-by-row report.
// POST /api/registrations/upload (multipart, field "file")
func (h *Handler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer file.Close()

	rows, err := parseBatchFile(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse file", err)
		return
	}

	instructions := engine.NormalizeBatch(rows)
	report := h.Engine.ProcessBatch(r.Context(), instructions)

	writeJSON(w, http.StatusOK, report)
}

// parseBatchFile reads a delimited file into header-keyed row maps.
func parseBatchFile(f io.Reader) ([]map[string]string, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	content := strings.TrimPrefix(string(data), "\uFEFF")
	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[strings.TrimSpace(col)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniffDelimiter picks tab or comma from the header line.
func sniffDelimiter(content string) rune {
	firstLine, _, _ := strings.Cut(content, "\n")
	if strings.Contains(firstLine, "\t") {
		return '\t'
	}
	return ','
}
