package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/mcp"
	"github.com/fieldpress/dispatch/internal/ops"
	"github.com/fieldpress/dispatch/internal/web"
)

// env carries what commands need once the database and config are loaded.
// It is nil when only --help or --version is being handled.
type env struct {
	db      *sql.DB
	cfg     *config.Config
	svc     *ops.Services
	log     logrus.FieldLogger
	baseDir string
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "dispatch",
		Usage:   "News site, transcript cache and MCP server",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(e),
			mcpCmd(e),
			syncTranscriptsCmd(e),
			resolveCmd(e),
			transcriptCmd(e),
			articlesCmd(e),
			videosCmd(e),
			refreshCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web site and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				e.cfg.Server.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				e.cfg.Server.Port = c.Int("port")
			}
			if err := e.cfg.Validate(); err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			if e.cfg.Server.AdminPassword == "" {
				e.log.Warn("ADMIN_PASSWORD is not set; admin routes are disabled")
			}

			srv := web.NewServer(e.db, e.cfg, e.svc, web.Options{
				Version: Version,
				LockDir: e.baseDir,
				Log:     e.log,
			})
			return web.Run(srv, e.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(e.cfg.MCP.DisabledTools); len(unknown) > 0 {
				e.log.WithField("tools", unknown).Warn("unknown tools in mcp.disabled_tools")
			}
			return mcp.Run(e.db, e.cfg, e.svc, mcp.Options{Version: Version, LockDir: e.baseDir})
		},
	}
}

// syncTranscriptsCmd creates the sync-transcripts command.
func syncTranscriptsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "sync-transcripts",
		Usage: "Match transcript files to cached videos and load them into the transcript cache",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Transcript directory (default: configured dir)"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Re-import unchanged files"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.SyncTranscripts(c.Context, e.db, e.cfg, e.svc, ops.SyncInput{
				Dir:     c.String("dir"),
				LockDir: e.baseDir,
				Force:   c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// resolveCmd creates the resolve command.
func resolveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Show which transcript file a video title resolves to",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Transcript directory (default: configured dir)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ResolveTitle(e.cfg, e.svc, ops.ResolveInput{
				Title: strings.Join(c.Args().Slice(), " "),
				Dir:   c.String("dir"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// transcriptCmd creates the transcript command and its subcommands.
func transcriptCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "transcript",
		Usage: "Read or evict cached transcripts",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Get a video transcript (cache, local file, then speech-to-text)",
				ArgsUsage: "<video-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.GetTranscript(c.Context, e.db, e.cfg, e.svc, ops.TranscriptInput{
						VideoID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}

					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Evict a cached transcript so the next request resolves it again",
				ArgsUsage: "<video-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteTranscript(c.Context, e.db, e.svc, c.Args().First())
					if err != nil {
						return outputError(err)
					}

					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// articlesCmd creates the articles command and its subcommands.
func articlesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "articles",
		Usage: "List, import, export or purge articles",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List articles, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scope", Aliases: []string{"s"}, Value: "all", Usage: "Scope: all|published|featured"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max articles to return"},
					&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of a table"},
				},
				Action: func(c *cli.Context) error {
					if c.Int("limit") < 0 {
						return outputError(errors.NewInvalidRequest("limit must not be negative"))
					}
					output, err := ops.ListArticles(e.db, ops.ListArticlesInput{
						Scope: ops.ArticleScope(c.String("scope")),
						Limit: c.Int("limit"),
					})
					if err != nil {
						return outputError(err)
					}

					if c.Bool("json") {
						return outputJSON(c.App.Writer, output)
					}
					return outputArticleTable(c.App.Writer, output.Articles)
				},
			},
			{
				Name:  "import",
				Usage: "Import articles from a .json, .yaml or .yml file (upsert by slug)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ImportArticlesFromFile(e.db, e.cfg, e.log, c.String("path"))
					if err != nil {
						return outputError(err)
					}

					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "export",
				Usage: "Export all articles to a .json, .yaml or .yml file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Export file path"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ExportArticlesToFile(e.db, c.String("path"))
					if err != nil {
						return outputError(err)
					}

					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "purge",
				Usage: "Permanently delete every article",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the purge"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return outputError(errors.NewInvalidRequest("purge deletes every article; pass --yes to confirm"))
					}

					output, err := ops.PurgeArticles(e.db)
					if err != nil {
						return outputError(err)
					}
					e.log.WithField("purged", output.Purged).Warn("all articles purged")

					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// videosCmd creates the videos command.
func videosCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "videos",
		Usage: "Inspect cached channel videos",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached videos, most recently published first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultVideoLimit, Usage: "Max videos to return (0 = all)"},
					&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of a table"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListVideos(e.db, c.Int("limit"))
					if err != nil {
						return outputError(err)
					}

					if c.Bool("json") {
						return outputJSON(c.App.Writer, output)
					}
					return outputVideoTable(c.App.Writer, output)
				},
			},
		},
	}
}

// refreshCmd creates the refresh command. Each subcommand pulls one feed from upstream.
func refreshCmd(e *env) *cli.Command {
	run := func(refresh func(*cli.Context) (any, error)) cli.ActionFunc {
		return func(c *cli.Context) error {
			output, err := refresh(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		}
	}

	return &cli.Command{
		Name:  "refresh",
		Usage: "Refresh cached feeds from upstream providers",
		Subcommands: []*cli.Command{
			{
				Name:  "videos",
				Usage: "Fetch the channel's latest uploads",
				Action: run(func(c *cli.Context) (any, error) {
					return ops.RefreshVideos(c.Context, e.db, e.cfg, e.svc)
				}),
			},
			{
				Name:  "posts",
				Usage: "Fetch recent posts from the configured X account",
				Action: run(func(c *cli.Context) (any, error) {
					return ops.RefreshPosts(c.Context, e.db, e.svc)
				}),
			},
			{
				Name:  "mentions",
				Usage: "Fetch trending X posts mentioning the subject",
				Action: run(func(c *cli.Context) (any, error) {
					return ops.RefreshMentions(c.Context, e.db, e.svc)
				}),
			},
			{
				Name:  "news",
				Usage: "Search for news coverage and replace the news feed",
				Action: run(func(c *cli.Context) (any, error) {
					return ops.RefreshNews(c.Context, e.db, e.svc)
				}),
			},
			{
				Name:  "summaries",
				Usage: "Summarize cached videos that have a transcript but no summary",
				Action: run(func(c *cli.Context) (any, error) {
					return ops.RefreshSummaries(c.Context, e.db, e.svc)
				}),
			},
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	dErr := errors.From(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
}

func outputArticleTable(w io.Writer, articles []content.Article) error {
	if len(articles) == 0 {
		_, err := fmt.Fprintln(w, "No articles.")
		return err
	}

	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		status := "draft"
		if a.Published {
			status = "published"
		}
		if a.Featured {
			status += ", featured"
		}
		rows = append(rows, []string{
			fmt.Sprint(a.ID),
			a.Slug,
			truncate(a.Title, 48),
			status,
			formatDate(a.CreatedAt),
		})
	}

	_, err := fmt.Fprintln(w, renderTable(
		[]string{"ID", "Slug", "Title", "Status", "Created"},
		rows,
		[]columnAlignment{alignRight},
	))
	return err
}

func outputVideoTable(w io.Writer, feed *ops.VideoFeed) error {
	if len(feed.Videos) == 0 {
		_, err := fmt.Fprintln(w, "No videos cached. Run 'dispatch refresh videos'.")
		return err
	}

	rows := make([][]string, 0, len(feed.Videos))
	for _, v := range feed.Videos {
		summary := "no"
		if v.Summary != nil && *v.Summary != "" {
			summary = "yes"
		}
		rows = append(rows, []string{
			v.VideoID,
			truncate(v.Title, 48),
			formatDate(v.PublishedAt),
			v.Duration,
			fmt.Sprint(v.ViewCount),
			summary,
		})
	}

	table := renderTable(
		[]string{"Video ID", "Title", "Published", "Duration", "Views", "Summary"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}
	if feed.LastFetchedAt != nil {
		_, err := fmt.Fprintf(w, "Last fetched %s\n", *feed.LastFetchedAt)
		return err
	}
	return nil
}
