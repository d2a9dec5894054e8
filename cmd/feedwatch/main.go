// Command feedwatch polls RSS and Atom feeds and mails new articles.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// Globals are options shared by every command.
type Globals struct {
	Config  string `help:"Configuration file." type:"path" placeholder:"PATH"`
	Verbose bool   `help:"Log at debug level." short:"v"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

type cli struct {
	Globals

	Run    runCmd    `cmd:"" default:"withargs" help:"Poll every configured feed once."`
	Feeds  feedsCmd  `cmd:"" help:"Manage feed subscriptions."`
	Status statusCmd `cmd:"" help:"Show feed health and archive size."`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "feedwatch:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("feedwatch"),
		kong.Description("Watch feeds for new articles and send one digest per feed."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	c.Stdout, c.Stderr = stdout, stderr
	return ctx.Run(&c.Globals)
}
