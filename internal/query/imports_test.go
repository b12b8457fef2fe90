package query_test

import (
	"testing"

	"genealogycore/testutil"
)

func TestImportsNoBackends(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.BackendImportForbidden, "query works over domain.TransactionView only")
}
