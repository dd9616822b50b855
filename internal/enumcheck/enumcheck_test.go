package enumcheck

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/target"
)

func testCatalog() Catalog {
	return NewCatalog([]target.EnumValue{
		{List: "IncidentStatusEnum", Name: "IncidentStatusEnum.Active", DisplayName: "Active"},
		{List: "IncidentStatusEnum", Name: "IncidentStatusEnum.Resolved", DisplayName: "Resolved"},
		{List: "IncidentSourceEnum", Name: "IncidentSourceEnum.Email", DisplayName: "E-Mail"},
		{List: "ServiceRequestStatusEnum", Name: "ServiceRequestStatusEnum.New", DisplayName: "New"},
		{List: "ActivityStatusEnum", Name: "ActivityStatusEnum.Ready", DisplayName: "Pending"},
	})
}

func readCSV(t *testing.T, path, content string) *records.File {
	t.Helper()
	file, err := records.ReadCSV(strings.NewReader(content), records.Options{})
	require.NoError(t, err)
	file.Path = path
	return file
}

func TestCheckPassesForCatalogedOrEmptyValues(t *testing.T) {
	logger, hook := test.NewNullLogger()

	incidents := readCSV(t, "incidents.csv",
		"Id,Title,Status,Source\n"+
			"IR1,a,Active,E-Mail\n"+
			"IR2,b,,\n"+
			"IR3,c, Resolved ,\n")

	err := Check(testCatalog(), logger, Input{Schema: domain.IncidentFields, File: incidents})
	assert.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

func TestCheckCollectsEveryViolation(t *testing.T) {
	logger, hook := test.NewNullLogger()

	incidents := readCSV(t, "incidents.csv",
		"Id,Title,Status,TierQueue\n"+
			"IR1,a,Bogus,Tier 9\n"+
			"IR2,b,Active,\n"+
			"IR3,c,Bogus,\n")
	requests := readCSV(t, "requests.csv",
		"Id,Title,Status\n"+
			"SR1,a,Submitted\n")
	manual := readCSV(t, "manual.csv",
		"Id,Parent,Title,Status\n"+
			"MA1,SR1,a,Pending\n")

	err := Check(testCatalog(), logger,
		Input{Schema: domain.IncidentFields, File: incidents},
		Input{Schema: domain.ServiceRequestFields, File: requests},
		Input{Schema: domain.ManualActivityFields, File: manual},
	)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 3)

	assert.True(t, verr.Has("Status", "Bogus"))
	assert.True(t, verr.Has("TierQueue", "Tier 9"))
	assert.True(t, verr.Has("Status", "Submitted"))
	assert.False(t, verr.Has("Status", "Pending"))

	bogus := verr.Violations[0]
	assert.Equal(t, domain.KindIncident, bogus.Kind)
	assert.Equal(t, "IncidentStatusEnum", bogus.List)
	assert.Equal(t, 1, bogus.FirstRow)
	assert.Equal(t, 2, bogus.Count)

	assert.Contains(t, err.Error(), "3 enumeration value(s)")
	assert.Contains(t, err.Error(), `service_request Status="Submitted" (ServiceRequestStatusEnum)`)

	errorsLogged := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	assert.Equal(t, 3, errorsLogged)
}

func TestCheckScopesValuesByList(t *testing.T) {
	logger, _ := test.NewNullLogger()

	// "New" is a Service Request status, not an Incident status.
	incidents := readCSV(t, "incidents.csv", "Id,Title,Status\nIR1,a,New\n")

	err := Check(testCatalog(), logger, Input{Schema: domain.IncidentFields, File: incidents})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("Status", "New"))
}

func TestCheckIgnoresMissingColumns(t *testing.T) {
	logger, _ := test.NewNullLogger()

	parallel := readCSV(t, "parallel.csv", "Id,Parent,Title\nPA1,SR1,Parallel\n")

	assert.NoError(t, Check(testCatalog(), logger, Input{Schema: domain.ParallelActivityFields, File: parallel}))
}
