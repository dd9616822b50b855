package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/target"
	"github.com/lherron/itsmig/internal/testutil"
)

var (
	srHeader       = []string{"Id", "Title", "Status", "AffectedUser", "AssignedTo"}
	activityHeader = []string{"Id", "Parent", "Title", "Status", "SequenceId", "AssignedTo"}
)

type activityFiles struct {
	sr    string
	input ActivityInput
}

func writeActivityFiles(t *testing.T, dir string, sr [][]string, manual, review, parallel [][]string) activityFiles {
	t.Helper()
	return activityFiles{
		sr: testutil.WriteCSV(t, dir, "service_requests.csv", srHeader, sr...),
		input: ActivityInput{
			Manual:   testutil.WriteCSV(t, dir, "manual.csv", activityHeader, manual...),
			Review:   testutil.WriteCSV(t, dir, "review.csv", activityHeader, review...),
			Parallel: testutil.WriteCSV(t, dir, "parallel.csv", activityHeader, parallel...),
		},
	}
}

func (f *fixture) serviceRequest(t *testing.T, w *difftable.Writer, oldID string) target.ObjectRef {
	t.Helper()
	e, ok := w.Table().Lookup(oldID)
	require.True(t, ok, "%s not in diff table", oldID)
	obj, _ := f.get(t, e.CurrentRef)
	return obj
}

func TestImportServiceRequests_ParallelWithManualChild(t *testing.T) {
	f := newFixture(t, Options{})
	files := writeActivityFiles(t, f.dir,
		[][]string{{"SR1", "New laptop", "New", "Doe, Jane", ""}},
		[][]string{{"MA1", "PA1", "Image disk", "Pending", "1", "Doe, Jane"}},
		nil,
		[][]string{{"PA1", "SR1", "Prepare", "Pending", "0", ""}},
	)

	w := f.diffWriter(t)
	report, err := f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{
		ServiceRequests: files.sr,
		Activities:      files.input,
	}, w)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)
	assert.Zero(t, report.Skipped)

	sr := f.serviceRequest(t, w, "SR1")
	children := f.related(t, sr, domain.RelContainsActivity)
	require.Len(t, children, 1)
	assert.Equal(t, domain.ClassParallelActivity, children[0].Class)

	grandchildren := f.related(t, children[0], domain.RelContainsActivity)
	require.Len(t, grandchildren, 1)
	assert.Equal(t, domain.ClassManualActivity, grandchildren[0].Class)

	_, fields := f.get(t, grandchildren[0].UUID)
	assert.Equal(t, "Image disk", fields["Title"])
	assert.Equal(t, int64(1), fields["SequenceId"])

	assignee := f.related(t, grandchildren[0], domain.RelAssignedTo)
	require.Len(t, assignee, 1)
	assert.Equal(t, `CORP\jdoe`, assignee[0].ID)

	assert.Equal(t, 1, w.Table().Len(), "only work items are written to the diff table")
}

func TestImportServiceRequests_DirectChildrenAndUnsupportedNesting(t *testing.T) {
	f := newFixture(t, Options{PreserveIDs: true})
	files := writeActivityFiles(t, f.dir,
		[][]string{{"SR7", "Access request", "New", "", ""}},
		[][]string{
			{"MA10", "SR7", "Grant access", "Pending", "2", ""},
			{"MA11", "SR404", "Orphan", "Pending", "", ""},
		},
		[][]string{
			{"RA20", "SR7", "Manager approval", "Pending", "1", ""},
			{"RA21", "PA30", "Nested review", "Pending", "", ""},
		},
		[][]string{
			{"PA30", "SR7", "Fan out", "Pending", "3", ""},
			{"PA31", "PA30", "Too deep", "Pending", "", ""},
		},
	)

	w := f.diffWriter(t)
	report, err := f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{
		ServiceRequests: files.sr,
		Activities:      files.input,
	}, w)
	require.NoError(t, err)

	sr := f.serviceRequest(t, w, "SR7")
	assert.Equal(t, "SR7", sr.ID)

	var ids []string
	for _, c := range f.related(t, sr, domain.RelContainsActivity) {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"MA10", "RA20", "PA30"}, ids)

	pa, _ := f.get(t, "PA30")
	assert.Empty(t, f.related(t, pa, domain.RelContainsActivity))

	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 3, report.Skipped)
	assert.Len(t, f.warningsContaining("review activity under a parallel activity"), 1)
	assert.Len(t, f.warningsContaining("nested in a parallel activity"), 1)

	orphans := f.warningsContaining("parent was not migrated")
	require.Len(t, orphans, 1)
	assert.Equal(t, "MA11", orphans[0].Data["old_id"])
	assert.Equal(t, 1, f.count(t, domain.ClassReviewActivity))
}

func TestImportServiceRequests_ManualAssigneeFallsBackToSurrogate(t *testing.T) {
	f := newFixture(t, Options{})
	files := writeActivityFiles(t, f.dir,
		[][]string{{"SR1", "x", "New", "", ""}},
		[][]string{{"MA1", "SR1", "step", "Pending", "", "Ghost, Casper"}},
		nil, nil,
	)

	w := f.diffWriter(t)
	_, err := f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{
		ServiceRequests: files.sr,
		Activities:      files.input,
	}, w)
	require.NoError(t, err)

	ma := f.related(t, f.serviceRequest(t, w, "SR1"), domain.RelContainsActivity)
	require.Len(t, ma, 1)
	assignee := f.related(t, ma[0], domain.RelAssignedTo)
	require.Len(t, assignee, 1)
	assert.Equal(t, "svc-assigned", assignee[0].ID)
}

func TestImportServiceRequests_ActivityEnumViolationWritesNothing(t *testing.T) {
	f := newFixture(t, Options{})
	files := writeActivityFiles(t, f.dir,
		[][]string{{"SR1", "x", "New", "", ""}},
		[][]string{{"MA1", "SR1", "step", "Sleeping", "", ""}},
		nil, nil,
	)

	_, err := f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{
		ServiceRequests: files.sr,
		Activities:      files.input,
	}, f.diffWriter(t))
	require.ErrorContains(t, err, "Sleeping")
	assert.Zero(t, f.count(t, domain.ClassServiceRequest))
}

func TestImportActivities_DeferredPhase(t *testing.T) {
	f := newFixture(t, Options{})
	files := writeActivityFiles(t, f.dir,
		[][]string{{"SR1", "New laptop", "New", "", ""}},
		[][]string{
			{"MA1", "PA1", "Image disk", "Pending", "", ""},
			{"MA2", "SR1", "Deliver", "Completed", "", ""},
			{"MA3", "SR99", "Lost", "Pending", "", ""},
		},
		nil,
		[][]string{{"PA1", "SR1", "Prepare", "Pending", "", ""}},
	)

	w := f.diffWriter(t)
	_, err := f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{
		ServiceRequests: files.sr,
		Activities:      files.input,
		DeferActivities: true,
	}, w)
	require.NoError(t, err)
	sr := f.serviceRequest(t, w, "SR1")
	assert.Empty(t, f.related(t, sr, domain.RelContainsActivity))
	require.NoError(t, w.Close())

	table, err := difftable.Load(w.Path())
	require.NoError(t, err)

	report, err := f.m.ImportActivities(context.Background(), files.input, table)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 1, report.Skipped)

	children := f.related(t, sr, domain.RelContainsActivity)
	require.Len(t, children, 2)
	assert.Equal(t, domain.ClassManualActivity, children[0].Class)
	assert.Equal(t, domain.ClassParallelActivity, children[1].Class)
	assert.Len(t, f.related(t, children[1], domain.RelContainsActivity), 1)

	missing := f.warningsContaining("parent not in diff table")
	require.Len(t, missing, 1)
	assert.Equal(t, "SR99", missing[0].Data["parent"])
}

func TestImportActivities_RequiresFiles(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.m.ImportActivities(context.Background(), ActivityInput{}, difftable.New())
	assert.ErrorContains(t, err, "no activity files")
}

func TestImportServiceRequests_AlreadyMigratedRequestReportsChildren(t *testing.T) {
	f := newFixture(t, Options{})
	files := writeActivityFiles(t, f.dir,
		[][]string{{"SR1", "New laptop", "New", "", ""}},
		[][]string{
			{"MA1", "PA1", "Image disk", "Pending", "1", ""},
			{"MA2", "SR1", "Order", "Pending", "2", ""},
		},
		nil,
		[][]string{{"PA1", "SR1", "Prepare", "Pending", "0", ""}},
	)
	testutil.WriteFile(t, f.dir, "diff.csv", "PreviousId,CurrentId,CurrentGuid\nSR1,SR500,abc\n")

	report, err := f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{
		ServiceRequests: files.sr,
		Activities:      files.input,
	}, f.diffWriter(t))
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	// SR1 itself plus MA2, PA1 and PA1's MA1.
	assert.Equal(t, 4, report.Skipped)

	skipped := f.warningsContaining("parent already migrated")
	require.Len(t, skipped, 3)
	var ids []string
	for _, e := range skipped {
		ids = append(ids, e.Data["old_id"].(string))
		assert.Contains(t, e.Message, "itsmig import activities")
	}
	assert.ElementsMatch(t, []string{"MA1", "MA2", "PA1"}, ids)
	assert.Empty(t, f.warningsContaining("was not migrated"))
}
