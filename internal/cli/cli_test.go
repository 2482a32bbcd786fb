package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--fixtures", "testdata/properties.json", "--today", "2030-01-01"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	out, err := run(t, "quote", "loft", "--from", "2030-01-05", "--to", "2030-01-08", "--adults", "2")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["available"])
	assert.Equal(t, "2030-01-05", got["arrivalDate"])
	assert.Equal(t, "300.00", got["totalPrice"])
	assert.Equal(t, "EUR", got["currency"])
}

func TestQuoteCommandReportsConflicts(t *testing.T) {
	out, err := run(t, "quote", "loft", "--from", "2030-01-21", "--to", "2030-01-22")
	require.NoError(t, err)

	var got struct {
		Available  bool   `json:"available"`
		TotalPrice string `json:"totalPrice"`
		Conflicts  []struct {
			Code string `json:"code"`
		} `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Available)
	assert.Empty(t, got.TotalPrice)
	codes := make([]string, 0, len(got.Conflicts))
	for _, c := range got.Conflicts {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"stay", "blockings"}, codes)
}

func TestQuoteCommandRejectsForeignTenant(t *testing.T) {
	_, err := run(t, "--tenant", "someone-else", "quote", "loft", "--from", "2030-01-05", "--to", "2030-01-08")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant mismatch")
}

func TestCalendarCommand(t *testing.T) {
	out, err := run(t, "calendar", "loft", "--from", "2030-01-19", "--count", "5")
	require.NoError(t, err)

	var got struct {
		Count    int `json:"count"`
		Calendar []struct {
			Date      string `json:"date"`
			Available bool   `json:"available"`
		} `json:"calendar"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 5, got.Count)
	require.Len(t, got.Calendar, 5)
	assert.Equal(t, "2030-01-19", got.Calendar[0].Date)
	assert.True(t, got.Calendar[0].Available)
	assert.False(t, got.Calendar[1].Available, "blocked by the painting blocking")
}

func TestICalImportAndExport(t *testing.T) {
	out, err := run(t, "ical", "import", "loft", "testdata/channel.ics", "--name", "Channel")
	require.NoError(t, err)

	var report importReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Sync)
	assert.True(t, report.Sync.Success)
	assert.Equal(t, 1, report.Sync.Inserted)
	require.Len(t, report.Events, 1)
	assert.Equal(t, "2030-02-01", report.Events[0].Start)
	assert.Equal(t, "2030-02-05", report.Events[0].End)

	out, err = run(t, "ical", "export", "loft")
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Painting")
}

func TestUnknownProperty(t *testing.T) {
	_, err := run(t, "calendar", "nowhere")
	assert.Error(t, err)
}
