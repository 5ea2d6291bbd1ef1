package surrealdb

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/foliohq/folio/internal/common"
	testcommon "github.com/foliohq/folio/tests/common"
)

var testDBCounter atomic.Int64

// newTestManager connects to the shared SurrealDB container, using a
// fresh database per call so tests cannot see each other's records.
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	container := testcommon.StartSurrealDB(t)

	config := common.NewDefaultConfig()
	config.Storage.Address = container.Address()
	config.Storage.Username = "root"
	config.Storage.Password = "root"
	config.Storage.Namespace = "folio_test"
	config.Storage.Database = fmt.Sprintf("db_%d", testDBCounter.Add(1))

	m, err := NewManager(common.NewSilentLogger(), config)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}
