package main

import (
	"context"
	"strings"
	"testing"

	"newswatch/internal/store"
	"newswatch/internal/testsupport"
)

func TestNewsAddListShowDelete(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	out, _, err := runCLI(t, env, "news", "add", "Zinc smelter outage in Peru", "--source", "desk", "--body", "Output halted for a week.")
	if err != nil {
		t.Fatalf("news add: %v", err)
	}
	requireContains(t, out, "Added manual_")
	newsID := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Added "))

	out, _, err = runCLI(t, env, "news", "list")
	if err != nil {
		t.Fatalf("news list: %v", err)
	}
	requireContains(t, out, "Zinc smelter outage in Peru")

	out, _, err = runCLI(t, env, "news", "show", newsID)
	if err != nil {
		t.Fatalf("news show: %v", err)
	}
	requireContains(t, out, "Output halted for a week.")
	requireContains(t, out, "Manual: yes")

	out, _, err = runCLI(t, env, "news", "delete", newsID)
	if err != nil {
		t.Fatalf("news delete: %v", err)
	}
	requireContains(t, out, "Deleted")

	out, _, err = runCLI(t, env, "news", "list")
	if err != nil {
		t.Fatalf("news list after delete: %v", err)
	}
	requireContains(t, out, "No articles found")
}

func TestNewsDeleteRefusesCollected(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	db := testsupport.MustOpenStore(t, env.cfg)
	testsupport.SeedArticle(t, db, "c1", "Collected article", "Reuters")

	_, _, err := runCLI(t, env, "news", "delete", "c1")
	if err == nil {
		t.Fatal("expected delete of collected article to fail")
	}
}

func TestNewsSearchFiltersByKeyword(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	db := testsupport.MustOpenStore(t, env.cfg)
	testsupport.SeedArticle(t, db, "c1", "Copper hits record high", "Reuters")
	testsupport.SeedArticle(t, db, "c2", "Nickel slides on surplus", "Bloomberg")

	out, _, err := runCLI(t, env, "news", "search", "copper")
	if err != nil {
		t.Fatalf("news search: %v", err)
	}
	requireContains(t, out, "Copper hits record high")
	if strings.Contains(out, "Nickel slides") {
		t.Fatalf("expected nickel article to be filtered out, got:\n%s", out)
	}
}

func TestNewsReadUnreadRate(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	db := testsupport.MustOpenStore(t, env.cfg)
	testsupport.SeedArticle(t, db, "c1", "Aluminium premiums climb", "Reuters")

	if _, _, err := runCLI(t, env, "news", "read", "c1"); err != nil {
		t.Fatalf("news read: %v", err)
	}
	article, err := db.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !article.IsRead {
		t.Fatal("expected article to be read")
	}

	if _, _, err := runCLI(t, env, "news", "unread", "c1"); err != nil {
		t.Fatalf("news unread: %v", err)
	}
	article, err = db.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if article.IsRead {
		t.Fatal("expected article to be unread")
	}

	if _, _, err := runCLI(t, env, "news", "rate", "c1", "3"); err != nil {
		t.Fatalf("news rate: %v", err)
	}
	article, err = db.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if article.Rating != 3 {
		t.Fatalf("expected rating 3, got %d", article.Rating)
	}

	if _, _, err := runCLI(t, env, "news", "rate", "c1", "9"); err == nil {
		t.Fatal("expected out of range rating to fail")
	}
}

func TestNewsReadAll(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	db := testsupport.MustOpenStore(t, env.cfg)
	testsupport.SeedArticle(t, db, "c1", "Tin supply tightens", "Reuters")
	testsupport.SeedArticle(t, db, "c2", "Lead demand softens", "Reuters")

	out, _, err := runCLI(t, env, "news", "read", "--all")
	if err != nil {
		t.Fatalf("news read --all: %v", err)
	}
	requireContains(t, out, "Marked 2 articles as read")
}

func TestDedupeCommand(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	db := testsupport.MustOpenStore(t, env.cfg)
	testsupport.SeedArticle(t, db, "c1", "Copper hits record high", "Reuters")
	testsupport.SeedArticle(t, db, "c2", "Copper hits record high", "Reuters")

	out, _, err := runCLI(t, env, "dedupe")
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	requireContains(t, out, "--apply")

	out, _, err = runCLI(t, env, "dedupe", "--apply")
	if err != nil {
		t.Fatalf("dedupe --apply: %v", err)
	}
	requireContains(t, out, "Removed 1 duplicate")

	count, err := db.Count(context.Background(), store.SearchFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 article after dedupe, got %d", count)
	}
}
