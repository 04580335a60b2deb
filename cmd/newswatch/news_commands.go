package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newswatch/internal/store"
	"newswatch/internal/textutil"
)

func newNewsCommand(ctx *commandContext) *cobra.Command {
	newsCmd := &cobra.Command{
		Use:   "news",
		Short: "Browse and manage stored articles",
	}

	newsCmd.AddCommand(newNewsListCommand(ctx))
	newsCmd.AddCommand(newNewsSearchCommand(ctx))
	newsCmd.AddCommand(newNewsShowCommand(ctx))
	newsCmd.AddCommand(newNewsReadCommand(ctx))
	newsCmd.AddCommand(newNewsUnreadCommand(ctx))
	newsCmd.AddCommand(newNewsRateCommand(ctx))
	newsCmd.AddCommand(newNewsAddCommand(ctx))
	newsCmd.AddCommand(newNewsDeleteCommand(ctx))

	return newsCmd
}

type listFlags struct {
	limit      int
	source     string
	topic      string
	unreadOnly bool
	manualOnly bool
	minRating  int
	sinceHours int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 20, "Maximum articles to list")
	cmd.Flags().StringVar(&f.source, "source", "", "Filter by source name")
	cmd.Flags().StringVar(&f.topic, "topic", "", "Filter by topic")
	cmd.Flags().BoolVar(&f.unreadOnly, "unread", false, "Only unread articles")
	cmd.Flags().BoolVar(&f.manualOnly, "manual", false, "Only hand-entered articles")
	cmd.Flags().IntVar(&f.minRating, "min-rating", 0, "Minimum user rating")
	cmd.Flags().IntVar(&f.sinceHours, "since", 0, "Only articles published within the last N hours")
}

func (f *listFlags) filter(keyword string) store.SearchFilter {
	filter := store.SearchFilter{
		Keyword:    keyword,
		Source:     f.source,
		Topic:      f.topic,
		ManualOnly: f.manualOnly,
		UnreadOnly: f.unreadOnly,
		MinRating:  f.minRating,
		Limit:      f.limit,
	}
	if f.sinceHours > 0 {
		filter.Since = time.Now().UTC().Add(-time.Duration(f.sinceHours) * time.Hour)
	}
	return filter
}

func newNewsListCommand(ctx *commandContext) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				articles, err := db.Search(cmd.Context(), flags.filter(""))
				if err != nil {
					return err
				}
				printArticleTable(cmd, articles)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newNewsSearchCommand(ctx *commandContext) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search article titles and bodies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(args[0])
			if keyword == "" {
				return errors.New("search keyword is empty")
			}
			return ctx.withStore(func(db *store.Store) error {
				articles, err := db.Search(cmd.Context(), flags.filter(keyword))
				if err != nil {
					return err
				}
				printArticleTable(cmd, articles)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newNewsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <news-id>",
		Short: "Show one article in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				article, err := db.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "%s\n", article.Title)
				if article.TranslatedTitle != "" {
					fmt.Fprintf(stdout, "%s\n", article.TranslatedTitle)
				}
				fmt.Fprintf(stdout, "ID: %s  Source: %s  Published: %s\n",
					article.NewsID, article.Source, formatTime(article.PublishTime))
				fmt.Fprintf(stdout, "Read: %s  Manual: %s", yesNo(article.IsRead), yesNo(article.IsManual))
				if article.Rating > 0 {
					fmt.Fprintf(stdout, "  Rating: %d", article.Rating)
				}
				fmt.Fprintln(stdout)
				if article.HasImportance {
					fmt.Fprintf(stdout, "Importance: %d\n", article.ImportanceScore)
				}
				if article.Sentiment != "" {
					fmt.Fprintf(stdout, "Sentiment: %s\n", textutil.TitleCase(article.Sentiment))
				}
				if article.Topics != "" {
					fmt.Fprintf(stdout, "Topics: %s\n", article.Topics)
				}
				if article.Keywords != "" {
					fmt.Fprintf(stdout, "Keywords: %s\n", article.Keywords)
				}
				if article.Summary != "" {
					fmt.Fprintf(stdout, "\n%s\n", article.Summary)
				}
				if article.Body != "" {
					fmt.Fprintf(stdout, "\n%s\n", article.Body)
				}
				if article.URL != "" {
					fmt.Fprintf(stdout, "\n%s\n", article.URL)
				}
				return nil
			})
		},
	}
}

func newNewsReadCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "read [news-id]",
		Short: "Mark an article as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				stdout := cmd.OutOrStdout()
				if all {
					count, err := db.MarkAllRead(cmd.Context(), store.SearchFilter{UnreadOnly: true})
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Marked %d articles as read\n", count)
					return nil
				}
				if len(args) == 0 {
					return errors.New("news id is required unless --all is set")
				}
				if err := db.MarkRead(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Marked %s as read\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Mark every unread article as read")
	return cmd
}

func newNewsUnreadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unread <news-id>",
		Short: "Mark an article as unread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				if err := db.MarkUnread(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as unread\n", args[0])
				return nil
			})
		},
	}
}

func newNewsRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <news-id> <rating>",
		Short: "Rate an article from 1 to 3, or 0 to clear",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q: %w", args[1], err)
			}
			return ctx.withStore(func(db *store.Store) error {
				if err := db.SetRating(cmd.Context(), args[0], rating); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated %s: %d\n", args[0], rating)
				return nil
			})
		},
	}
}

func newNewsAddCommand(ctx *commandContext) *cobra.Command {
	var body string
	var sourceName string
	var url string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a hand-entered article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				article, err := db.InsertManual(cmd.Context(), &store.Article{
					Title:  strings.TrimSpace(args[0]),
					Body:   body,
					Source: sourceName,
					URL:    url,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", article.NewsID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Article body text")
	cmd.Flags().StringVar(&sourceName, "source", "manual", "Source label")
	cmd.Flags().StringVar(&url, "url", "", "Article URL")
	return cmd
}

func newNewsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <news-id>",
		Short: "Delete a hand-entered article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				if err := db.DeleteManual(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printArticleTable(cmd *cobra.Command, articles []*store.Article) {
	stdout := cmd.OutOrStdout()
	if len(articles) == 0 {
		fmt.Fprintln(stdout, "No articles found")
		return
	}

	rows := make([][]string, 0, len(articles))
	for _, article := range articles {
		importance := "-"
		if article.HasImportance {
			importance = strconv.Itoa(article.ImportanceScore)
		}
		read := ""
		if !article.IsRead {
			read = "*"
		}
		rows = append(rows, []string{
			article.NewsID,
			formatTime(article.PublishTime),
			truncate(article.Source, 16),
			truncate(article.Title, 60),
			textutil.TitleCase(article.Sentiment),
			importance,
			read,
		})
	}
	fmt.Fprintln(stdout, renderTable(
		[]tableColumn{
			textColumn("ID"), textColumn("Published"), textColumn("Source"),
			textColumn("Title"), textColumn("Sentiment"), numColumn("Imp"), textColumn("New"),
		},
		rows,
	))
}
