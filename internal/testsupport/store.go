package testsupport

import (
	"context"
	"testing"
	"time"

	"newswatch/internal/config"
	"newswatch/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedArticle inserts a minimal article for tests and returns it.
func SeedArticle(t testing.TB, st *store.Store, newsID, title, source string) *store.Article {
	t.Helper()

	article := &store.Article{
		NewsID:      newsID,
		Title:       title,
		Source:      source,
		PublishTime: time.Now().UTC(),
		AcquireTime: time.Now().UTC(),
	}
	if err := st.Upsert(context.Background(), article); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return article
}
