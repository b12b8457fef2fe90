package domain

import (
	"testing"

	"genealogycore/testutil"
)

// The domain package is shared by every backend and must stay free of
// internal packages and storage drivers.
func TestDomainImportBoundary(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.InternalImportForbidden, testutil.BackendImportForbidden),
		"pkg/domain is imported by all backends")
}
