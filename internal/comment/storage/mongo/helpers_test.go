package mongo

import (
	"context"
	"os"
	"testing"
	"time"
)

// storageConnect connects to the Mongo instance named by MONGO_TEST_URI and
// skips the test when it is not set.
func storageConnect(t *testing.T) *Storage {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, &Config{URI: uri, DBName: "commentthread_test", ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := restoreDB(ctx, db); err != nil {
			t.Logf("WARNING: unable to restore DB state after the test: %v", err)
		}
		_ = db.Close(ctx)
	})

	return db
}

// restoreDB drops every collection the storage writes to.
// WARNING: use only in tests.
func restoreDB(ctx context.Context, db *Storage) error {
	for _, name := range []string{commentsColl, articlesColl, usersColl} {
		if err := db.coll(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
