package engine

// =============================================================================
// BATCH REPORTER - One outcome per row, in input order
// =============================================================================

type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusError   OutcomeStatus = "error"
)

// RowOutcome is the result for a single instruction row.
type RowOutcome struct {
	Status         OutcomeStatus `json:"status"`
	Message        string        `json:"message,omitempty"`
	RegistrationID string        `json:"registrationId,omitempty"`
}

// Summary counts the outcomes of a whole batch.
type Summary struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// BatchReport is the engine's output for one batch, exposed verbatim to the
// external caller. Results are in input order, one entry per row.
type BatchReport struct {
	TotalRows int          `json:"totalRows"`
	Results   []RowOutcome `json:"results"`
	Summary   Summary      `json:"summary"`
}

// Reporter accumulates row outcomes during a batch run.
type Reporter struct {
	results []RowOutcome
}

// Record appends one outcome.
func (r *Reporter) Record(o RowOutcome) {
	r.results = append(r.results, o)
}

// Report finalizes the batch report with summary counts.
func (r *Reporter) Report() BatchReport {
	report := BatchReport{
		TotalRows: len(r.results),
		Results:   r.results,
	}
	if report.Results == nil {
		report.Results = []RowOutcome{}
	}
	for _, o := range report.Results {
		if o.Status == StatusSuccess {
			report.Summary.Success++
		} else {
			report.Summary.Errors++
		}
	}
	return report
}
