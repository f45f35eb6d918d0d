// SPDX-License-Identifier: MIT

package decode

import (
	"context"
	"testing"
)

// testContext returns a context that is canceled when the test ends,
// mirroring the behavior of (*testing.T).Context from newer Go releases.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
