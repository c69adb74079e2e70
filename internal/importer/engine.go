package importer

import (
	"context"
	"fmt"
)

// Engine runs the per-row import state machine for one entity type:
// normalize, validate, resolve references, detect duplicates, then create,
// update, skip or fail under the configured duplicate policy.
//
// In commit mode the whole batch runs inside one transaction; each row's
// writes are additionally isolated in a savepoint so a failed insert or
// update aborts only that row. Preview mode walks the identical decision
// tree without writing anything.
type Engine struct {
	adapter Adapter
	store   Datastore
	ictx    Context
	policy  Policy
	preview bool

	previewData []RowOutcome
	results     Result
}

func NewEngine(adapter Adapter, store Datastore, ictx Context, policy Policy, preview bool) *Engine {
	return &Engine{
		adapter: adapter,
		store:   store,
		ictx:    ictx,
		policy:  policy,
		preview: preview,
	}
}

// PreviewData returns the ordered per-row verdicts of a preview run. Empty
// for commit runs.
func (e *Engine) PreviewData() []RowOutcome {
	return e.previewData
}

// Results returns the summary of the last Run.
func (e *Engine) Results() Result {
	return e.results
}

// Run processes all data rows. The returned error is systemic: the tabular
// source or the transaction itself failed and, in commit mode, nothing was
// persisted. Per-row problems never surface here; they are folded into the
// Result.
func (e *Engine) Run(ctx context.Context, rows []RawRow) (Result, error) {
	if err := e.resolveDefaultSchool(ctx); err != nil {
		return Result{}, err
	}

	if e.preview {
		outcomes := make([]RowOutcome, 0, len(rows))
		for _, raw := range rows {
			outcome, err := e.previewRow(ctx, raw)
			if err != nil {
				return Result{}, err
			}
			outcomes = append(outcomes, outcome)
		}
		e.previewData = outcomes
		e.results = foldPreview(outcomes)
		return e.results, nil
	}

	verdicts := make([]rowVerdict, 0, len(rows))
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		for _, raw := range rows {
			verdict, err := e.commitRow(ctx, raw)
			if err != nil {
				return err
			}
			verdicts = append(verdicts, verdict)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("import batch: %w", err)
	}
	e.results = foldCommit(verdicts)
	return e.results, nil
}

func (e *Engine) resolveDefaultSchool(ctx context.Context) error {
	if !e.adapter.NeedsDefaultSchool || e.ictx.DefaultSchoolID != nil || e.ictx.Scoped {
		return nil
	}
	id, err := e.store.FirstID(ctx, KindSchool)
	if err != nil {
		return fmt.Errorf("resolve fallback school: %w", err)
	}
	e.ictx.DefaultSchoolID = id
	return nil
}

// commitRow classifies and persists one row. The returned error is systemic;
// row-level failures come back as a "failed" verdict.
func (e *Engine) commitRow(ctx context.Context, raw RawRow) (rowVerdict, error) {
	data := NormalizeRow(raw.Cells)

	if msgs := e.adapter.Validate(data); len(msgs) > 0 {
		return failedVerdict(raw.Number, data, msgs), nil
	}

	refs, missing, err := e.resolveRefs(ctx, data)
	if err != nil {
		return rowVerdict{}, err
	}
	if missing != "" {
		return failedVerdict(raw.Number, data, []string{missing}), nil
	}

	existing, err := e.detectDuplicate(ctx, data)
	if err != nil {
		return rowVerdict{}, err
	}

	if existing != nil {
		switch e.policy {
		case PolicyFail:
			return failedVerdict(raw.Number, data, []string{e.adapter.DuplicateError(data)}), nil
		case PolicySkip:
			return rowVerdict{status: "skipped"}, nil
		case PolicyUpdate:
			fields := e.adapter.UpdateFields(data)
			err := e.store.InRowScope(ctx, func(ctx context.Context) error {
				return e.store.Update(ctx, e.adapter.Kind, existing.ID, fields)
			})
			if err != nil {
				return failedVerdict(raw.Number, data, []string{err.Error()}), nil
			}
			return rowVerdict{status: "updated"}, nil
		}
	}

	fields := e.adapter.CreateFields(data, refs, e.ictx)
	err = e.store.InRowScope(ctx, func(ctx context.Context) error {
		return e.store.Create(ctx, e.adapter.Kind, fields)
	})
	if err != nil {
		return failedVerdict(raw.Number, data, []string{err.Error()}), nil
	}
	return rowVerdict{status: "imported"}, nil
}

// previewRow mirrors commitRow's branching but replaces persistence with a
// verdict label.
func (e *Engine) previewRow(ctx context.Context, raw RawRow) (RowOutcome, error) {
	data := NormalizeRow(raw.Cells)

	outcome := RowOutcome{
		RowNumber: raw.Number,
		Status:    StatusReady,
		Errors:    []string{},
		Warnings:  []string{},
	}

	if msgs := e.adapter.Validate(data); len(msgs) > 0 {
		outcome.Status = StatusError
		outcome.Errors = append(outcome.Errors, msgs...)
	}

	refDisplay := map[string]string{}
	for _, ref := range e.adapter.Refs {
		name := data.String(ref.Column)
		if name == "" {
			if ref.DefaultLabel && e.ictx.DefaultSchoolID != nil {
				rec, err := e.store.FindByID(ctx, ref.Target, *e.ictx.DefaultSchoolID)
				if err != nil {
					return RowOutcome{}, err
				}
				if rec != nil {
					refDisplay[ref.Column] = rec.Name + " (default)"
				}
			}
			continue
		}
		id, err := e.store.ResolveByName(ctx, ref.Target, name, ref.Match)
		if err != nil {
			return RowOutcome{}, err
		}
		if id == nil {
			refDisplay[ref.Column] = name + " (not found)"
			if ref.Required {
				outcome.Status = StatusError
				outcome.Errors = append(outcome.Errors, fmt.Sprintf(
					"%s '%s' not found. Please check the %s name matches exactly.",
					ref.Target.Label(), name, ref.Target))
			}
			continue
		}
		refDisplay[ref.Column] = name
	}

	existing, err := e.detectDuplicate(ctx, data)
	if err != nil {
		return RowOutcome{}, err
	}
	if existing != nil {
		outcome.IsDuplicate = true
		outcome.Existing = existing
		switch e.policy {
		case PolicyFail:
			outcome.Status = StatusError
			outcome.Errors = append(outcome.Errors, e.adapter.PreviewDuplicateError(data))
		case PolicySkip:
			if outcome.Status != StatusError {
				outcome.Status = StatusSkip
			}
			outcome.Warnings = append(outcome.Warnings, "Will be skipped (duplicate)")
		case PolicyUpdate:
			if outcome.Status != StatusError {
				outcome.Status = StatusUpdate
			}
			outcome.Warnings = append(outcome.Warnings, "Will update existing record")
		}
	}

	outcome.Fields = e.adapter.PreviewFields(data, refDisplay)
	return outcome, nil
}

// resolveRefs looks up every reference column. A required reference that
// cannot be resolved returns a message naming the missing value; optional
// misses leave the foreign key unset.
func (e *Engine) resolveRefs(ctx context.Context, data Row) (Resolved, string, error) {
	refs := Resolved{}
	for _, ref := range e.adapter.Refs {
		name := data.String(ref.Column)
		if name == "" {
			continue
		}
		id, err := e.store.ResolveByName(ctx, ref.Target, name, ref.Match)
		if err != nil {
			return nil, "", fmt.Errorf("resolve %s %q: %w", ref.Target, name, err)
		}
		if id == nil {
			if ref.Required {
				return nil, fmt.Sprintf("%s '%s' not found", ref.Target.Label(), name), nil
			}
			continue
		}
		refs[ref.Column] = id
	}
	return refs, "", nil
}

func (e *Engine) detectDuplicate(ctx context.Context, data Row) (*ExistingRecord, error) {
	key := e.adapter.NaturalKey(data)
	if key == "" {
		return nil, nil
	}
	existing, err := e.store.FindByNaturalKey(ctx, e.adapter.Kind, key)
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup for %s %q: %w", e.adapter.Kind, key, err)
	}
	return existing, nil
}

func failedVerdict(rowNumber int, data Row, errs []string) rowVerdict {
	return rowVerdict{
		status: "failed",
		failed: &FailedRow{RowNumber: rowNumber, Data: data, Errors: errs},
	}
}
