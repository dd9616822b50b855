package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/testutil"
)

var actionLogHeader = []string{"RelatedIncident", "RelatedServiceRequest", "EnteredBy", "EnteredDate", "Comment", "LogType", "IsPrivate"}

func TestImportActionLogs(t *testing.T) {
	f := newFixture(t, Options{})
	incidents := testutil.WriteCSV(t, f.dir, "incidents.csv", incidentHeader,
		[]string{"IR42", "Printer jam", "Active", "", "", "", ""},
	)
	srs := testutil.WriteCSV(t, f.dir, "service_requests.csv", srHeader,
		[]string{"SR5", "Laptop", "New", "", ""},
	)
	w := f.diffWriter(t)
	_, err := f.m.ImportIncidents(context.Background(), incidents, w)
	require.NoError(t, err)
	_, err = f.m.ImportServiceRequests(context.Background(), ServiceRequestInput{ServiceRequests: srs, DeferActivities: true}, w)
	require.NoError(t, err)

	logs := testutil.WriteCSV(t, f.dir, "logs.csv", actionLogHeader,
		[]string{"IR42", "", "Doe, Jane", "2024-02-01 08:00:00", "Paper is stuck", "UserComment", ""},
		[]string{"IR42", "", "Helpdesk", "2024-02-01 09:00:00", "Ordered a new tray", "AnalystComment", "true"},
		[]string{"", "SR5", "Doe, Jane", "not a date", "When will it ship?", "UserComment", ""},
		[]string{"IR77", "", "Helpdesk", "", "Lost", "AnalystComment", "false"},
		[]string{"IR42", "", "Helpdesk", "", "Odd", "PhoneCall", ""},
		[]string{"", "", "Helpdesk", "", "No parent", "UserComment", ""},
	)

	report, err := f.m.ImportActionLogs(context.Background(), logs, w.Table())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 3, report.Skipped)

	ir, _ := f.get(t, "IR1")
	userComments := f.related(t, ir, domain.RelHasUserComment)
	require.Len(t, userComments, 1)
	_, fields := f.get(t, userComments[0].UUID)
	assert.Equal(t, "Paper is stuck", fields["Comment"])
	assert.Equal(t, "Doe, Jane", fields["EnteredBy"])
	assert.Equal(t, "2024-02-01T08:00:00Z", fields["EnteredDate"])
	assert.Len(t, fields["Id"], 36)

	analyst := f.related(t, ir, domain.RelHasAnalystComment)
	require.Len(t, analyst, 1)
	_, fields = f.get(t, analyst[0].UUID)
	assert.Equal(t, true, fields["IsPrivate"])

	sr, _ := f.get(t, "SR1")
	srLogs := f.related(t, sr, domain.RelHasCommentLog)
	require.Len(t, srLogs, 1)
	assert.Equal(t, domain.ClassUserCommentLog, srLogs[0].Class)
	_, fields = f.get(t, srLogs[0].UUID)
	assert.NotContains(t, fields, "EnteredDate")

	assert.Len(t, f.warningsContaining("not in diff table"), 1)
	assert.Len(t, f.warningsContaining("unknown log type"), 1)
	assert.Len(t, f.warningsContaining("no related work item"), 1)
}

func TestImportActionLogs_RequiresRelatedColumn(t *testing.T) {
	f := newFixture(t, Options{})
	logs := testutil.WriteCSV(t, f.dir, "logs.csv", []string{"EnteredBy", "Comment", "LogType"},
		[]string{"x", "y", "UserComment"},
	)
	w := f.diffWriter(t)

	_, err := f.m.ImportActionLogs(context.Background(), logs, w.Table())
	assert.ErrorContains(t, err, "RelatedIncident")
}

func TestLogEntry(t *testing.T) {
	rec := records.Record{Row: 1, Values: map[string]string{
		"LogType":   " AnalystComment ",
		"EnteredBy": "Helpdesk",
		"Comment":   "  keeps its spacing ",
		"IsPrivate": "maybe",
	}}

	entry, err := logEntry(rec)
	require.NoError(t, err)
	analyst, ok := entry.(domain.AnalystComment)
	require.True(t, ok)
	assert.False(t, analyst.IsPrivate)
	assert.True(t, analyst.EnteredDate.IsZero())
	assert.Equal(t, "  keeps its spacing ", analyst.Comment)

	rec.Values["LogType"] = "Email"
	_, err = logEntry(rec)
	assert.Error(t, err)
}
