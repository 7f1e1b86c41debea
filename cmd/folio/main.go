package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/eringen/folio"
	"github.com/eringen/folio/logger"
)

// CLI is the root command line.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"config.yaml" type:"path"`
	LogLevel string           `name:"log-level" help:"Log level (debug, info, warn, error); defaults to LOG_LEVEL or the config file" default:""`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve      ServeCmd      `cmd:"" default:"1" help:"Serve the content API"`
	Posts      PostsCmd      `cmd:"" help:"List published posts as JSON"`
	Post       PostCmd       `cmd:"" help:"Print one post, with its page body, as JSON"`
	Gallery    GalleryCmd    `cmd:"" help:"List gallery images as JSON"`
	CheckSlugs CheckSlugsCmd `cmd:"" name:"check-slugs" help:"Report how each post record resolves its slug"`
	Warm       WarmCmd       `cmd:"" help:"Load posts and gallery into a persistent cache"`
}

// load reads the configuration and initializes logging. fallbackLevel is
// used when neither the flag nor the configuration sets a level.
func (c *CLI) load(fallbackLevel string) (folio.SiteConfig, error) {
	cfg, err := folio.LoadConfig(c.Config)
	if err != nil {
		return cfg, err
	}
	level := c.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if level == "" {
		level = fallbackLevel
	}
	logger.Init(level)
	return cfg, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("folio"),
		kong.Description("Notion-backed content API for a portfolio site."),
		kong.UsageOnError(),
		kong.Vars{"version": "folio " + folio.Version},
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
