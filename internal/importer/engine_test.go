package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeRecord struct {
	id   int64
	name string
	key  string
}

// fakeStore keeps per-kind records in memory and honors the transaction
// contract: a failed batch restores the pre-transaction state, a failed row
// scope restores only that row's writes.
type fakeStore struct {
	recs    map[Kind][]fakeRecord
	nextID  int64
	updates map[Kind]map[int64]map[string]any

	failCreate  func(kind Kind, fields map[string]any) error
	failResolve error

	firstIDCalls int
	createCalls  int
	updateCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recs:    map[Kind][]fakeRecord{},
		nextID:  1,
		updates: map[Kind]map[int64]map[string]any{},
	}
}

func (f *fakeStore) seed(kind Kind, name, key string) int64 {
	id := f.nextID
	f.nextID++
	f.recs[kind] = append(f.recs[kind], fakeRecord{id: id, name: name, key: key})
	return id
}

func (f *fakeStore) FindByNaturalKey(_ context.Context, kind Kind, key string) (*ExistingRecord, error) {
	for _, rec := range f.recs[kind] {
		if rec.key == key {
			return &ExistingRecord{ID: rec.id, Name: rec.name}, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByID(_ context.Context, kind Kind, id int64) (*ExistingRecord, error) {
	for _, rec := range f.recs[kind] {
		if rec.id == id {
			return &ExistingRecord{ID: rec.id, Name: rec.name}, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ResolveByName(_ context.Context, kind Kind, name string, match Match) (*int64, error) {
	if f.failResolve != nil {
		return nil, f.failResolve
	}
	for _, rec := range f.recs[kind] {
		switch match {
		case MatchContains:
			if strings.Contains(strings.ToLower(rec.name), strings.ToLower(name)) {
				id := rec.id
				return &id, nil
			}
		default:
			if rec.name == name {
				id := rec.id
				return &id, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeStore) FirstID(_ context.Context, kind Kind) (*int64, error) {
	f.firstIDCalls++
	recs := f.recs[kind]
	if len(recs) == 0 {
		return nil, nil
	}
	id := recs[0].id
	return &id, nil
}

func (f *fakeStore) Create(_ context.Context, kind Kind, fields map[string]any) error {
	if f.failCreate != nil {
		if err := f.failCreate(kind, fields); err != nil {
			return err
		}
	}
	f.createCalls++
	name, _ := fields["name"].(string)
	key, _ := fields["code"].(string)
	if key == "" {
		key, _ = fields["slug"].(string)
	}
	id := f.nextID
	f.nextID++
	f.recs[kind] = append(f.recs[kind], fakeRecord{id: id, name: name, key: key})
	return nil
}

func (f *fakeStore) Update(_ context.Context, kind Kind, id int64, fields map[string]any) error {
	f.updateCalls++
	if f.updates[kind] == nil {
		f.updates[kind] = map[int64]map[string]any{}
	}
	f.updates[kind][id] = fields
	return nil
}

func (f *fakeStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := f.snapshot()
	if err := fn(ctx); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) InRowScope(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := f.snapshot()
	if err := fn(ctx); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

type fakeSnapshot struct {
	recs   map[Kind][]fakeRecord
	nextID int64
}

func (f *fakeStore) snapshot() fakeSnapshot {
	recs := map[Kind][]fakeRecord{}
	for kind, list := range f.recs {
		recs[kind] = append([]fakeRecord(nil), list...)
	}
	return fakeSnapshot{recs: recs, nextID: f.nextID}
}

func (f *fakeStore) restore(snap fakeSnapshot) {
	f.recs = snap.recs
	f.nextID = snap.nextID
}

func deptRows(cells ...map[string]any) []RawRow {
	rows := make([]RawRow, 0, len(cells))
	for i, c := range cells {
		rows = append(rows, RawRow{Number: i + 2, Cells: c})
	}
	return rows
}

func TestCommitCreatesRecordsAndResolvesSchool(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
	res, err := engine.Run(context.Background(), deptRows(
		map[string]any{"Name": "Mathematics", "Code": "MATH", "School": "Central High School"},
		map[string]any{"Name": "Science", "Code": "SCI", "School": "Central High School"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Imported != 2 || res.Updated != 0 || res.Skipped != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(st.recs[KindDepartment]) != 2 {
		t.Fatalf("expected 2 departments stored, got %d", len(st.recs[KindDepartment]))
	}
}

func TestCommitFallsBackToFirstSchool(t *testing.T) {
	st := newFakeStore()
	schoolID := st.seed(KindSchool, "Central High School", "CENTRAL")

	var captured map[string]any
	st.failCreate = func(kind Kind, fields map[string]any) error {
		captured = fields
		return nil
	}

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
	if _, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Arts", "code": "ART"},
	)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.firstIDCalls != 1 {
		t.Fatalf("expected one fallback school lookup, got %d", st.firstIDCalls)
	}
	got, ok := captured["school_id"].(*int64)
	if !ok || got == nil || *got != schoolID {
		t.Fatalf("expected school_id %d, got %v", schoolID, captured["school_id"])
	}
}

func TestScopedContextSkipsFallbackLookup(t *testing.T) {
	st := newFakeStore()
	schoolID := st.seed(KindSchool, "Central High School", "CENTRAL")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{DefaultSchoolID: &schoolID, Scoped: true}, PolicySkip, false)
	if _, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Arts", "code": "ART"},
	)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.firstIDCalls != 0 {
		t.Fatalf("scoped run should not look up a fallback school, got %d lookups", st.firstIDCalls)
	}
}

func TestRequiredReferenceMissFailsOnlyThatRow(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
	res, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
		map[string]any{"name": "History", "code": "HIST", "school": "Unknown Academy"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Imported != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.FailedRows) != 1 {
		t.Fatalf("expected 1 failed row, got %d", len(res.FailedRows))
	}
	failed := res.FailedRows[0]
	if failed.RowNumber != 3 {
		t.Fatalf("expected row number 3, got %d", failed.RowNumber)
	}
	want := "School 'Unknown Academy' not found"
	if len(failed.Errors) != 1 || failed.Errors[0] != want {
		t.Fatalf("expected error %q, got %v", want, failed.Errors)
	}
}

func TestDuplicatePolicies(t *testing.T) {
	newStore := func() *fakeStore {
		st := newFakeStore()
		st.seed(KindSchool, "Central High School", "CENTRAL")
		st.seed(KindDepartment, "Mathematics", "MATH")
		return st
	}
	rows := deptRows(map[string]any{
		"name": "Mathematics Updated", "code": "MATH", "school": "Central High School",
	})

	t.Run("skip leaves the record alone", func(t *testing.T) {
		st := newStore()
		engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
		res, err := engine.Run(context.Background(), rows)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if res.Skipped != 1 || res.Imported != 0 {
			t.Fatalf("unexpected result: %+v", res)
		}
		if st.updateCalls != 0 || st.createCalls != 0 {
			t.Fatalf("skip policy must not write, got %d creates %d updates", st.createCalls, st.updateCalls)
		}
	})

	t.Run("update rewrites the existing record", func(t *testing.T) {
		st := newStore()
		engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicyUpdate, false)
		res, err := engine.Run(context.Background(), rows)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if res.Updated != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
		fields := st.updates[KindDepartment][2]
		if fields == nil {
			t.Fatal("expected update against existing department id 2")
		}
		if fields["name"] != "Mathematics Updated" {
			t.Fatalf("expected updated name, got %v", fields["name"])
		}
		if _, touched := fields["code"]; touched {
			t.Fatal("update must not rewrite the natural key")
		}
	})

	t.Run("fail reports the duplicate", func(t *testing.T) {
		st := newStore()
		engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicyFail, false)
		res, err := engine.Run(context.Background(), rows)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if res.Failed != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
		want := "Code 'MATH' already exists"
		if res.FailedRows[0].Errors[0] != want {
			t.Fatalf("expected %q, got %v", want, res.FailedRows[0].Errors)
		}
	})
}

func TestDuplicateCodeWithinOneBatch(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")

	// Duplicate detection runs inside the batch transaction, so the second
	// row must see the record the first row just created.
	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
	res, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
		map[string]any{"name": "Mathematics Again", "code": "MATH", "school": "Central High School"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(st.recs[KindDepartment]) != 1 {
		t.Fatalf("expected 1 department stored, got %d", len(st.recs[KindDepartment]))
	}
	if st.recs[KindDepartment][0].name != "Mathematics" {
		t.Fatalf("first row must win, got %q", st.recs[KindDepartment][0].name)
	}
}

func TestRowWriteFailureDoesNotAbortBatch(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")
	st.failCreate = func(_ Kind, fields map[string]any) error {
		if fields["code"] == "SCI" {
			return errors.New("insert school_departments: boom")
		}
		return nil
	}

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
	res, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
		map[string]any{"name": "Science", "code": "SCI", "school": "Central High School"},
		map[string]any{"name": "History", "code": "HIST", "school": "Central High School"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Imported != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := res.Imported + res.Updated + res.Skipped + res.Failed; got != 3 {
		t.Fatalf("every row must land in exactly one bucket, got %d of 3", got)
	}
	if len(st.recs[KindDepartment]) != 2 {
		t.Fatalf("expected 2 persisted departments, got %d", len(st.recs[KindDepartment]))
	}
}

func TestSystemicErrorRollsBackEverything(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")
	st.failResolve = errors.New("connection reset")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, false)
	_, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
	))
	if err == nil {
		t.Fatal("expected a systemic error")
	}
	if !strings.Contains(err.Error(), "import batch") {
		t.Fatalf("expected wrapped batch error, got %v", err)
	}
	if len(st.recs[KindDepartment]) != 0 {
		t.Fatalf("rolled-back batch must persist nothing, got %d records", len(st.recs[KindDepartment]))
	}
}

func TestPreviewWritesNothingAndDecoratesReferences(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")
	st.seed(KindDepartment, "Mathematics", "MATH")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicySkip, true)
	res, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Physics", "code": "PHY", "school": "Central High School"},
		map[string]any{"name": "History", "code": "HIST", "school": "Unknown Academy"},
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
		map[string]any{"name": "Arts", "code": "ART"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.createCalls != 0 || st.updateCalls != 0 {
		t.Fatalf("preview must not write, got %d creates %d updates", st.createCalls, st.updateCalls)
	}

	data := engine.PreviewData()
	if len(data) != 4 {
		t.Fatalf("expected 4 preview rows, got %d", len(data))
	}

	if data[0].Status != StatusReady {
		t.Fatalf("row 2: expected ready, got %s", data[0].Status)
	}
	if data[0].Fields["school"] != "Central High School" {
		t.Fatalf("row 2: unexpected school display %v", data[0].Fields["school"])
	}

	if data[1].Status != StatusError {
		t.Fatalf("row 3: expected error, got %s", data[1].Status)
	}
	if data[1].Fields["school"] != "Unknown Academy (not found)" {
		t.Fatalf("row 3: unexpected school display %v", data[1].Fields["school"])
	}
	wantMsg := "School 'Unknown Academy' not found. Please check the school name matches exactly."
	if len(data[1].Errors) != 1 || data[1].Errors[0] != wantMsg {
		t.Fatalf("row 3: expected %q, got %v", wantMsg, data[1].Errors)
	}

	if data[2].Status != StatusSkip || !data[2].IsDuplicate {
		t.Fatalf("row 4: expected duplicate skip, got %+v", data[2])
	}
	if data[2].Existing == nil || data[2].Existing.Name != "Mathematics" {
		t.Fatalf("row 4: expected existing record, got %+v", data[2].Existing)
	}
	if len(data[2].Warnings) != 1 || data[2].Warnings[0] != "Will be skipped (duplicate)" {
		t.Fatalf("row 4: unexpected warnings %v", data[2].Warnings)
	}

	if data[3].Fields["school"] != "Central High School (default)" {
		t.Fatalf("row 5: expected default school display, got %v", data[3].Fields["school"])
	}

	wantStats := PreviewStats{Total: 4, Ready: 2, Skip: 1, Error: 1}
	if res.PreviewStats != wantStats {
		t.Fatalf("expected stats %+v, got %+v", wantStats, res.PreviewStats)
	}
}

func TestPreviewUpdatePolicyMarksDuplicates(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")
	st.seed(KindDepartment, "Mathematics", "MATH")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicyUpdate, true)
	_, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	row := engine.PreviewData()[0]
	if row.Status != StatusUpdate {
		t.Fatalf("expected update status, got %s", row.Status)
	}
	if len(row.Warnings) != 1 || row.Warnings[0] != "Will update existing record" {
		t.Fatalf("unexpected warnings %v", row.Warnings)
	}
}

func TestPreviewFailPolicyReportsDuplicateCode(t *testing.T) {
	st := newFakeStore()
	st.seed(KindSchool, "Central High School", "CENTRAL")
	st.seed(KindDepartment, "Mathematics", "MATH")

	engine := NewEngine(mustAdapter(t, KindDepartment), st, Context{}, PolicyFail, true)
	_, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	row := engine.PreviewData()[0]
	if row.Status != StatusError {
		t.Fatalf("expected error status, got %s", row.Status)
	}
	want := "Duplicate code: MATH"
	if len(row.Errors) != 1 || row.Errors[0] != want {
		t.Fatalf("expected %q, got %v", want, row.Errors)
	}
}

func TestPreviewMatchesCommitCounts(t *testing.T) {
	seedBoth := func() *fakeStore {
		st := newFakeStore()
		st.seed(KindSchool, "Central High School", "CENTRAL")
		st.seed(KindDepartment, "Mathematics", "MATH")
		return st
	}
	rows := deptRows(
		map[string]any{"name": "Physics", "code": "PHY", "school": "Central High School"},
		map[string]any{"name": "Mathematics", "code": "MATH", "school": "Central High School"},
		map[string]any{"name": "History", "code": "HIST", "school": "Unknown Academy"},
		map[string]any{"name": "", "code": "BLANK"},
	)

	preview, err := NewEngine(mustAdapter(t, KindDepartment), seedBoth(), Context{}, PolicyUpdate, true).
		Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("preview run: %v", err)
	}
	commit, err := NewEngine(mustAdapter(t, KindDepartment), seedBoth(), Context{}, PolicyUpdate, false).
		Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("commit run: %v", err)
	}

	if preview.PreviewStats.Ready != commit.Imported {
		t.Fatalf("ready %d != imported %d", preview.PreviewStats.Ready, commit.Imported)
	}
	if preview.PreviewStats.Update != commit.Updated {
		t.Fatalf("update %d != updated %d", preview.PreviewStats.Update, commit.Updated)
	}
	if preview.PreviewStats.Skip != commit.Skipped {
		t.Fatalf("skip %d != skipped %d", preview.PreviewStats.Skip, commit.Skipped)
	}
	if preview.PreviewStats.Error != commit.Failed {
		t.Fatalf("error %d != failed %d", preview.PreviewStats.Error, commit.Failed)
	}
}

func TestEquipmentDuplicateBySlug(t *testing.T) {
	st := newFakeStore()
	st.seed(KindEquipment, "Projector", "projector")

	engine := NewEngine(mustAdapter(t, KindEquipment), st, Context{}, PolicyFail, false)
	res, err := engine.Run(context.Background(), deptRows(
		map[string]any{"name": "  Projector  "},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := "'Projector' already exists"
	if res.FailedRows[0].Errors[0] != want {
		t.Fatalf("expected %q, got %v", want, res.FailedRows[0].Errors)
	}
}

func mustAdapter(t *testing.T, kind Kind) Adapter {
	t.Helper()
	adapter, err := AdapterFor(kind)
	if err != nil {
		t.Fatalf("adapter for %s: %v", kind, err)
	}
	return adapter
}

func TestSchoolsAreNotImportable(t *testing.T) {
	if _, err := AdapterFor(KindSchool); err == nil {
		t.Fatal("expected no adapter for schools")
	}
}

var _ Datastore = (*fakeStore)(nil)

func ExampleParsePolicy() {
	p, _ := ParsePolicy("")
	fmt.Println(p)
	// Output: skip
}
