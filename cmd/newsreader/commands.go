package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"news_reader/internal/app"
	"news_reader/internal/domain"
	"news_reader/internal/server"
)

var (
	titleColor = color.New(color.Bold)
	idColor    = color.New(color.FgCyan)
	urlColor   = color.New(color.FgBlue)
	favColor   = color.New(color.FgYellow)
	delColor   = color.New(color.FgRed)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgHiRed)
)

var out io.Writer = os.Stdout

type articleArgs struct {
	ID string `positional-arg-name:"id" required:"yes"`
}

type topicArgs struct {
	Topic string `positional-arg-name:"topic" required:"yes"`
}

// FetchCmd replaces the article list with a fresh search.
type FetchCmd struct {
	Query string `short:"q" long:"query" description:"search query, defaults to the configured query"`
}

func (c *FetchCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Articles.Fetch(ctx, c.Query); err != nil {
			fmt.Fprintln(out, warnColor.Sprintf("fetch failed, showing stored articles: %v", err))
		}
		printArticles(a, a.Articles.VisibleArticles())
		return nil
	})
}

type ListCmd struct {
	Filter string `short:"f" long:"filter" choice:"visible" choice:"favorites" choice:"deleted" choice:"all" default:"visible" description:"which articles to list"`
}

func (c *ListCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		var articles []domain.Article
		switch c.Filter {
		case "favorites":
			articles = a.Articles.FavoriteArticles()
		case "deleted":
			articles = a.Articles.DeletedArticles()
		case "all":
			articles = a.Articles.Articles()
		default:
			articles = a.Articles.VisibleArticles()
		}

		printArticles(a, articles)
		if ts, ok := a.Articles.LastFetch(ctx); ok {
			fmt.Fprintf(out, "\nlast fetch: %s\n", ts.Local().Format(time.DateTime))
		}
		return nil
	})
}

type ShowCmd struct {
	Args articleArgs `positional-args:"yes" required:"yes"`
}

func (c *ShowCmd) Execute([]string) error {
	return withApp(func(_ context.Context, a *app.App) error {
		article, ok := a.Articles.Find(c.Args.ID)
		if !ok {
			return fmt.Errorf("article %s not found", c.Args.ID)
		}

		printArticle(article, a.Articles.Status(article.ID))
		if body := article.PlainBody(); body != "" {
			fmt.Fprintf(out, "\n%s\n", body)
		}
		return nil
	})
}

type FavoriteCmd struct {
	Args articleArgs `positional-args:"yes" required:"yes"`
}

func (c *FavoriteCmd) Execute([]string) error {
	return updateStatus(c.Args.ID, func(ctx context.Context, a *app.App, id string) (domain.ArticleStatus, error) {
		return a.Articles.ToggleFavorite(ctx, id)
	})
}

type DeleteCmd struct {
	Args articleArgs `positional-args:"yes" required:"yes"`
}

func (c *DeleteCmd) Execute([]string) error {
	return updateStatus(c.Args.ID, func(ctx context.Context, a *app.App, id string) (domain.ArticleStatus, error) {
		return a.Articles.MarkDeleted(ctx, id)
	})
}

type RestoreCmd struct {
	Args articleArgs `positional-args:"yes" required:"yes"`
}

func (c *RestoreCmd) Execute([]string) error {
	return updateStatus(c.Args.ID, func(ctx context.Context, a *app.App, id string) (domain.ArticleStatus, error) {
		return a.Articles.Restore(ctx, id)
	})
}

func updateStatus(id string, update func(ctx context.Context, a *app.App, id string) (domain.ArticleStatus, error)) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		status, err := update(ctx, a, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", idColor.Sprint(id), statusLabel(status))
		return nil
	})
}

type TopicsCmd struct {
	List   TopicsListCmd   `command:"list" description:"show the topic catalog"`
	Add    TopicsAddCmd    `command:"add" description:"follow a topic"`
	Remove TopicsRemoveCmd `command:"remove" description:"stop following a topic"`
	Toggle TopicsToggleCmd `command:"toggle" description:"follow or unfollow a topic"`
}

type TopicsListCmd struct{}

func (c *TopicsListCmd) Execute([]string) error {
	return withApp(func(_ context.Context, a *app.App) error {
		printTopics(a)
		return nil
	})
}

type TopicsAddCmd struct {
	Args topicArgs `positional-args:"yes" required:"yes"`
}

func (c *TopicsAddCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Preferences.AddTopic(ctx, c.Args.Topic); err != nil {
			return err
		}
		printTopics(a)
		return nil
	})
}

type TopicsRemoveCmd struct {
	Args topicArgs `positional-args:"yes" required:"yes"`
}

func (c *TopicsRemoveCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Preferences.RemoveTopic(ctx, c.Args.Topic); err != nil {
			return err
		}
		printTopics(a)
		return nil
	})
}

type TopicsToggleCmd struct {
	Args topicArgs `positional-args:"yes" required:"yes"`
}

func (c *TopicsToggleCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Preferences.ToggleTopic(ctx, c.Args.Topic); err != nil {
			return err
		}
		printTopics(a)
		return nil
	})
}

type NotificationsCmd struct {
	Enable  NotificationsEnableCmd  `command:"enable" description:"ask for permission and start background sync"`
	Disable NotificationsDisableCmd `command:"disable" description:"stop background sync and drop pending notifications"`
}

type NotificationsEnableCmd struct{}

func (c *NotificationsEnableCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		granted, err := a.Preferences.EnableNotifications(ctx)
		if err != nil {
			return err
		}
		if !granted {
			fmt.Fprintln(out, warnColor.Sprint("notification permission denied"))
			return nil
		}
		fmt.Fprintln(out, okColor.Sprint("notifications enabled"))
		return nil
	})
}

type NotificationsDisableCmd struct{}

func (c *NotificationsDisableCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Preferences.DisableNotifications(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, okColor.Sprint("notifications disabled"))
		return nil
	})
}

type SyncCmd struct{}

func (c *SyncCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		result, err := a.Scheduler.RunNow(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s topics=%d fetched=%d new=%d\n",
			okColor.Sprint(result.Status), result.Topics, result.Fetched, result.New)
		return nil
	})
}

type ClearCmd struct{}

func (c *ClearCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, okColor.Sprint("storage cleared"))
		return nil
	})
}

type ServeCmd struct {
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides the config"`
}

func (c *ServeCmd) Execute([]string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		cfg := a.Config.Server
		if c.Listen != "" {
			cfg.Listen = c.Listen
		}

		srv := server.New(server.Config{
			Listen:  cfg.Listen,
			Timeout: cfg.Timeout,
			Version: revision,
		}, a.Articles, a.Preferences, a.Scheduler, a, a.Logger)

		a.Start(ctx)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := a.Scheduler.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return srv.Run(gctx)
		})
		return g.Wait()
	})
}

func printArticles(a *app.App, articles []domain.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(out, "no articles")
		return
	}
	for _, article := range articles {
		printArticle(article, a.Articles.Status(article.ID))
	}
}

func printArticle(a domain.Article, status domain.ArticleStatus) {
	fmt.Fprintf(out, "%s %s %s\n", idColor.Sprintf("[%s]", a.ID), titleColor.Sprint(a.DisplayTitle()), statusLabel(status))

	meta := a.Author
	if !a.CreatedAt.IsZero() {
		meta += ", " + a.CreatedAt.Local().Format(time.DateTime)
	}
	fmt.Fprintf(out, "    %s\n    %s\n", meta, urlColor.Sprint(a.NavigationURL()))
}

func statusLabel(s domain.ArticleStatus) string {
	var label string
	if s.IsFavorite {
		label += favColor.Sprint("★")
	}
	if s.IsDeleted {
		label += delColor.Sprint("(deleted)")
	}
	return label
}

func printTopics(a *app.App) {
	prefs := a.Preferences.Preferences()
	for _, topic := range a.Preferences.TopicCatalog() {
		mark := "  "
		if prefs.HasTopic(topic) {
			mark = okColor.Sprint("✓ ")
		}
		fmt.Fprintf(out, "%s%s\n", mark, topic)
	}
	if prefs.NotificationsEnabled {
		fmt.Fprintln(out, "\nnotifications: on")
	} else {
		fmt.Fprintln(out, "\nnotifications: off")
	}
}
