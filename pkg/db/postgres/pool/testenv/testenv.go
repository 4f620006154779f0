// Package testenv provides postgres pools for tests.
//
// Tests using it are skipped unless YRDB_TEST_DATABASE_URI is set.
package testenv

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	kpool "github.com/opst/yeastregulatorydb/pkg/db/postgres/pool"
)

const EnvDatabaseURI = "YRDB_TEST_DATABASE_URI"

// PoolBroaker is a interface to get a pool.
type PoolBroaker interface {
	// GetPool returns a pool.
	//
	// Tables are cleaned up before returning and after t.
	GetPool(ctx context.Context, t *testing.T) kpool.Pool
}

type pg struct {
	pool *pgxpool.Pool
}

func (p *pg) GetPool(ctx context.Context, t *testing.T) kpool.Pool {
	t.Cleanup(func() {
		t.Helper()
		ClearTables(context.Background(), p.pool, t)
	})
	ClearTables(ctx, p.pool, t)
	return kpool.Wrap(p.pool)
}

// NewPoolBroaker connects to the database given by YRDB_TEST_DATABASE_URI.
//
// When the variable is empty, t is skipped.
func NewPoolBroaker(ctx context.Context, t *testing.T) PoolBroaker {
	t.Helper()
	uri := os.Getenv(EnvDatabaseURI)
	if uri == "" {
		t.Skipf("%s is not set", EnvDatabaseURI)
	}

	pool, err := pgxpool.Connect(ctx, uri)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return &pg{pool: pool}
}

// SchemaRepository is the path to schema/postgres of this repository.
func SchemaRepository() string {
	_, file, _, _ := runtime.Caller(0)
	// pkg/db/postgres/pool/testenv/testenv.go -> repository root
	root := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "..")
	return filepath.Join(root, "schema", "postgres")
}

func ClearTables(ctx context.Context, p *pgxpool.Pool, t *testing.T) {
	t.Helper()

	for _, command := range []string{
		`truncate "fileformat", "chrmap", "genomicfeature", "lock", "task", "garbage", "rename" restart identity cascade`,
		// by cascade, all row in tables should be deleted.
	} {
		if _, err := p.Exec(ctx, command); err != nil {
			t.Logf("fail to clean-up tables (schema may not be applied yet): %v", err)
		}
	}
}
