package importer

// Per-row verdict labels. Preview mode reports ready/update/skip/error; a
// commit run maps the same decisions onto imported/updated/skipped/failed.
const (
	StatusReady  = "ready"
	StatusUpdate = "update"
	StatusSkip   = "skip"
	StatusError  = "error"
)

// RowOutcome is the preview-mode verdict for one row.
type RowOutcome struct {
	RowNumber   int             `json:"row_number"`
	Fields      map[string]any  `json:"fields"`
	Status      string          `json:"status"`
	Errors      []string        `json:"errors"`
	Warnings    []string        `json:"warnings"`
	IsDuplicate bool            `json:"is_duplicate"`
	Existing    *ExistingRecord `json:"existing_record"`
}

// FailedRow records a commit-mode row that could not be imported.
type FailedRow struct {
	RowNumber int      `json:"row_number"`
	Data      Row      `json:"data"`
	Errors    []string `json:"errors"`
}

type PreviewStats struct {
	Total  int `json:"total"`
	Ready  int `json:"ready"`
	Update int `json:"update"`
	Skip   int `json:"skip"`
	Error  int `json:"error"`
}

// Result is the immutable summary of one import run. In commit mode every
// non-blank row lands in exactly one of the four counters.
type Result struct {
	Imported     int          `json:"imported"`
	Updated      int          `json:"updated"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	FailedRows   []FailedRow  `json:"failed_rows"`
	PreviewStats PreviewStats `json:"preview_stats"`
}

// rowVerdict is the engine's internal per-row classification, folded into a
// Result once the batch finishes.
type rowVerdict struct {
	status string // imported | updated | skipped | failed
	failed *FailedRow
}

func foldCommit(verdicts []rowVerdict) Result {
	res := Result{FailedRows: []FailedRow{}}
	for _, v := range verdicts {
		switch v.status {
		case "imported":
			res.Imported++
		case "updated":
			res.Updated++
		case "skipped":
			res.Skipped++
		case "failed":
			res.Failed++
			if v.failed != nil {
				res.FailedRows = append(res.FailedRows, *v.failed)
			}
		}
	}
	return res
}

func foldPreview(outcomes []RowOutcome) Result {
	stats := PreviewStats{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusReady:
			stats.Ready++
		case StatusUpdate:
			stats.Update++
		case StatusSkip:
			stats.Skip++
		case StatusError:
			stats.Error++
		}
	}
	return Result{FailedRows: []FailedRow{}, PreviewStats: stats}
}
