package history_test

import (
	"testing"

	"genealogycore/testutil"
)

func TestImportsNoBackends(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.BackendImportForbidden, "history works over domain.TransactionView only")
}
