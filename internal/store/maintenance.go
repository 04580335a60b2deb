package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"newswatch/internal/textutil"
)

// duplicateRow carries the fields duplicate grouping needs per article.
type duplicateRow struct {
	id      string
	ordered time.Time
}

// duplicateKey folds case and collapses whitespace runs so reissues of the
// same wire story land on one key regardless of casing or spacing drift.
func duplicateKey(title, source string) string {
	return textutil.NormalizeTitle(title) + "\x00" + textutil.NormalizeTitle(source)
}

// loadDuplicateRows groups every article by normalized title and source and
// keeps only the groups with more than one member. Rows inside a group are
// sorted oldest first by publish time, falling back to acquire time.
func (s *Store) loadDuplicateRows(ctx context.Context) (map[string][]duplicateRow, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT news_id, title, COALESCE(source, ''),
               COALESCE(publish_time, acquire_time)
        FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("load duplicate candidates: %w", err)
	}
	defer rows.Close()

	groups := make(map[string][]duplicateRow)
	for rows.Next() {
		var id, title, source string
		var orderedRaw sql.NullString
		if err := rows.Scan(&id, &title, &source, &orderedRaw); err != nil {
			return nil, err
		}
		key := duplicateKey(title, source)
		groups[key] = append(groups[key], duplicateRow{id: id, ordered: parseTimestamp(orderedRaw)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for key, members := range groups {
		if len(members) < 2 {
			delete(groups, key)
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if !members[i].ordered.Equal(members[j].ordered) {
				return members[i].ordered.Before(members[j].ordered)
			}
			return members[i].id < members[j].id
		})
	}
	return groups, nil
}

// FindTitleSourceDuplicates reports groups of articles whose normalized title
// and source collide, largest groups first.
func (s *Store) FindTitleSourceDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	byKey, err := s.loadDuplicateRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	groups := make([]DuplicateGroup, 0, len(byKey))
	for key, members := range byKey {
		title, source, _ := strings.Cut(key, "\x00")
		group := DuplicateGroup{Title: title, Source: source, Count: len(members)}
		for _, member := range members {
			group.IDs = append(group.IDs, member.id)
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Title < groups[j].Title
	})
	return groups, nil
}

// RemoveTitleSourceDuplicates deletes all but one article from each
// title+source duplicate group. keepLatest selects the newest publish time as
// the survivor; otherwise the earliest survives.
func (s *Store) RemoveTitleSourceDuplicates(ctx context.Context, keepLatest bool) (int64, error) {
	byKey, err := s.loadDuplicateRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("remove duplicates: %w", err)
	}

	var doomed []any
	for _, members := range byKey {
		if keepLatest {
			members = members[:len(members)-1]
		} else {
			members = members[1:]
		}
		for _, member := range members {
			doomed = append(doomed, member.id)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(doomed)), ",")
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE news_id IN (`+placeholders+`)`, doomed...)
	if err != nil {
		return 0, fmt.Errorf("remove duplicates: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return int64(len(doomed)), nil
	}
	return deleted, nil
}
