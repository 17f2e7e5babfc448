package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFatalMarker(t *testing.T) {
	var out bytes.Buffer
	Fatal(&out, false, "build failed for %s", "amd64")
	assert.Equal(t, "fatal: build failed for amd64\n", out.String())
}

func TestFatalMarkerColored(t *testing.T) {
	var out bytes.Buffer
	Fatal(&out, true, "no Dockerfile")
	assert.Contains(t, out.String(), colorRed+"fatal:"+colorReset)
	assert.Contains(t, out.String(), "no Dockerfile")
}

func TestNoticeMarker(t *testing.T) {
	var out bytes.Buffer
	Notice(&out, false, "cache disabled")
	assert.Equal(t, "notice: cache disabled\n", out.String())
}

func TestSummaryTotalDimsElapsed(t *testing.T) {
	var out bytes.Buffer
	SummaryTotal(&out, 3200*time.Millisecond, "success", true)
	assert.Contains(t, out.String(), colorGray+"3.2s"+colorReset)

	out.Reset()
	SummaryTotal(&out, 3200*time.Millisecond, "success", false)
	assert.Contains(t, out.String(), "3.2s")
	assert.NotContains(t, out.String(), colorGray)
}
