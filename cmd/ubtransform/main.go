package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/automaxprocs/maxprocs"
)

// Globals is passed to every command's Run method.
type Globals struct {
	Log *slog.Logger
	Ctx context.Context
}

// CLI is the ubtransform command line.
type CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging on stderr"`

	Transform TransformCmd `cmd:"" help:"Transform a document and print it as JSON"`
	Types     TypesCmd     `cmd:"" help:"List supported document types and file extensions"`
}

// AfterApply sets up logging once flags are parsed.
func (c *CLI) AfterApply(g *Globals) error {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func main() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	globals := &Globals{Log: slog.Default(), Ctx: ctx}
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("ubtransform"),
		kong.Description("Transform reader source documents into structured content."),
		kong.UsageOnError(),
		kong.Bind(globals),
	)
	if err := kctx.Run(globals); err != nil {
		fmt.Fprintln(os.Stderr, "ubtransform:", err)
		os.Exit(1)
	}
}
