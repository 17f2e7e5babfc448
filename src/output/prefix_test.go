package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixWriterPrefixesLines(t *testing.T) {
	var out bytes.Buffer
	w := NewPrefixWriter(&out, "amd64", nil)

	_, err := w.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)

	assert.Equal(t, "[amd64] one\n[amd64] two\n", out.String())
}

func TestPrefixWriterBuffersPartialLines(t *testing.T) {
	var out bytes.Buffer
	w := NewPrefixWriter(&out, "armhf", nil)

	_, _ = w.Write([]byte("down"))
	assert.Empty(t, out.String(), "incomplete line stays buffered")

	_, _ = w.Write([]byte("loading\n"))
	assert.Equal(t, "[armhf] downloading\n", out.String())
}

func TestPrefixWriterFlush(t *testing.T) {
	var out bytes.Buffer
	w := NewPrefixWriter(&out, "i386", nil)

	_, _ = w.Write([]byte("no newline"))
	require.NoError(t, w.Flush())
	assert.Equal(t, "[i386] no newline\n", out.String())

	// A second flush with nothing buffered writes nothing.
	require.NoError(t, w.Flush())
	assert.Equal(t, "[i386] no newline\n", out.String())
}

func TestPrefixWriterSharedDestination(t *testing.T) {
	var out bytes.Buffer
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "amd64"
			if i%2 == 0 {
				name = "aarch64"
			}
			w := NewPrefixWriter(&out, name, &mu)
			_, _ = w.Write([]byte("line\n"))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(t, lines, 50)
	for _, line := range lines {
		assert.True(t,
			line == "[amd64] line" || line == "[aarch64] line",
			"no interleaved fragments: %q", line)
	}
}
