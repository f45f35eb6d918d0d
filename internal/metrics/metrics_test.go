// SPDX-License-Identifier: MIT

package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryIncludesRecordedCounters(t *testing.T) {
	IncFramesSwapped("batch", 3)
	IncSubprocessStart("ffmpeg", "ok")
	IncSubprocessExit("ffmpeg", "clean")

	lines := Summary()
	require.NotEmpty(t, lines)

	var sawSwapped, sawStart bool
	for _, line := range lines {
		if strings.HasPrefix(line, "swapline_frames_swapped_total") {
			sawSwapped = true
		}
		if strings.HasPrefix(line, "swapline_subprocess_start_total") {
			sawStart = true
		}
		assert.True(t, strings.HasPrefix(line, "swapline_"), "foreign metric leaked into summary: %s", line)
	}
	assert.True(t, sawSwapped)
	assert.True(t, sawStart)
}
