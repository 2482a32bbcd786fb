package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "ical/cal-1/latest.ics", latestKey("cal-1"))
	assert.Equal(t, "ical/a%2Fb/latest.ics", latestKey("/a/b/"))
	assert.Equal(t, "ical/cal-1/20260101T000000Z.ics", objectKey("cal-1", "20260101T000000Z.ics"))
}

func TestParseEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", parseEndpoint("http://minio:9000"))
	assert.Equal(t, "minio:9000", parseEndpoint("minio:9000"))
}

func TestNewArchiveValidatesInput(t *testing.T) {
	_, err := NewArchive("", false, "k", "s", "bucket", nil)
	require.Error(t, err)
	_, err = NewArchive("localhost:9000", false, "k", "s", " ", nil)
	require.Error(t, err)

	a, err := NewArchive("http://localhost:9000", false, "k", "s", "ical-archive", nil)
	require.NoError(t, err)
	assert.Equal(t, "ical-archive", a.bucket)
}
