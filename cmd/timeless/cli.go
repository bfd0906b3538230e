package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/ops"
	"github.com/hpungsan/timeless/internal/store"
	"github.com/hpungsan/timeless/internal/web"
)

// env carries the services and streams the commands use.
type env struct {
	store   *store.Store
	builder *ops.Builder
	gen     gateway.Generator
	cfg     *config.Config
	logger  *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// interactive is true when stdin is a terminal a person can answer from
	interactive bool
	// tty is true when stdout is a terminal
	tty bool
}

// stdEnv returns an env bound to the process streams.
func stdEnv() *env {
	return &env{
		cfg:         config.DefaultConfig(),
		logger:      slog.Default(),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: isTerminal(os.Stdin),
		tty:         isTerminal(os.Stdout),
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:      "timeless",
		Usage:     "Write capsules and letters to be opened in the future",
		Version:   Version,
		Writer:    e.stdout,
		ErrWriter: e.stderr,
		Commands: []*cli.Command{
			createCmd(e),
			listCmd(e),
			fetchCmd(e),
			updateCmd(e),
			sealCmd(e),
			deleteCmd(e),
			exportCmd(e),
			importCmd(e),
			planCmd(e),
			startCmd(e),
			generateCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// createCmd creates the create command.
func createCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a capsule (reads the message from stdin when --message is omitted)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "method", Aliases: []string{"m"}, Value: "digital", Usage: "Delivery method: digital|physical"},
			&cli.StringFlag{Name: "to", Aliases: []string{"n"}, Required: true, Usage: "Recipient name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Recipient email (digital)"},
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Recipient postal address (physical)"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Required: true, Usage: "Delivery date, YYYY-MM-DD"},
			&cli.StringFlag{Name: "message", Usage: "Message text"},
			&cli.StringFlag{Name: "attach", Usage: "Media file to attach (digital)"},
			&cli.StringFlag{Name: "cover", Value: "ai", Usage: "Letter cover: ai|upload (physical)"},
			&cli.StringFlag{Name: "cover-file", Usage: "Cover image used with --cover=upload"},
		},
		Action: func(c *cli.Context) error {
			message := c.String("message")
			if !c.IsSet("message") && !e.interactive {
				text, err := readAll(e.stdin)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				message = text
			}

			input := ops.CreateInput{
				Method:           c.String("method"),
				RecipientName:    c.String("to"),
				RecipientEmail:   c.String("email"),
				RecipientAddress: c.String("address"),
				DeliveryDate:     c.String("date"),
				Message:          message,
				CoverChoice:      c.String("cover"),
			}

			if path := c.String("attach"); path != "" {
				f, err := readAttachment(path, e.cfg.MaxAttachmentBytes)
				if err != nil {
					return outputError(err)
				}
				input.Attachment = f
			}
			if path := c.String("cover-file"); path != "" {
				f, err := readAttachment(path, e.cfg.MaxAttachmentBytes)
				if err != nil {
					return outputError(err)
				}
				input.UploadedCover = attachment.DataURL(f)
			}

			output, err := e.builder.Create(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			if output.UsedPlaceholder {
				fmt.Fprintln(e.stderr, "note: cover generation was unavailable; a placeholder image was used")
			}
			return e.outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List capsules by delivery date, earliest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "method", Aliases: []string{"m"}, Usage: "Filter by method: digital|physical"},
			&cli.BoolFlag{Name: "sealed", Usage: "Only sealed (--sealed) or unsealed (--sealed=false) capsules"},
			&cli.BoolFlag{Name: "due", Usage: "Only capsules whose delivery date has passed"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON even on a terminal"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Method:  c.String("method"),
				DueOnly: c.Bool("due"),
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			}
			if c.IsSet("sealed") {
				sealed := c.Bool("sealed")
				input.Sealed = &sealed
			}

			output, err := ops.List(e.store, input)
			if err != nil {
				return outputError(err)
			}

			if e.tty && !c.Bool("json") {
				fmt.Fprintln(e.stdout, renderCapsules(output))
				return nil
			}
			return e.outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a capsule by ID",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-attachment", Usage: "Omit attachment content from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-attachment") {
				include := false
				input.IncludeAttachment = &include
			}

			output, err := ops.Fetch(e.store, input)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Edit an unsealed capsule (--message - reads stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Aliases: []string{"n"}, Usage: "New recipient name"},
			&cli.StringFlag{Name: "message", Usage: "New message text"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UpdateInput{ID: c.Args().First()}

			if c.IsSet("to") {
				name := c.String("to")
				input.RecipientName = &name
			}
			if c.IsSet("message") {
				message := c.String("message")
				if message == "-" {
					text, err := readAll(e.stdin)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					message = text
				}
				input.Message = &message
			}

			output, err := ops.Update(c.Context, e.store, input)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// sealCmd creates the seal command.
func sealCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "seal",
		Usage:     "Seal a capsule permanently (asks for confirmation)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(c *cli.Context) error {
			intent, err := ops.RequestSeal(e.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return e.confirm(c.Context, intent, c.Bool("yes"))
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a capsule permanently (asks for confirmation)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(c *cli.Context) error {
			intent, err := ops.RequestDelete(e.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return e.confirm(c.Context, intent, c.Bool("yes"))
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export capsules to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.timeless/exports/capsules-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, e.store, e.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import capsules from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "On bad records: error (import nothing) | skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, e.store, e.cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// planCmd creates the plan command.
func planCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Show the plan, or change it",
		ArgsUsage: "[starter|plus|legacy]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return e.outputJSON(ops.GetPlan(c.Context, e.store))
			}
			output, err := ops.SetPlan(c.Context, e.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// startCmd creates the start command.
func startCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Finish the intro with a plan",
		ArgsUsage: "[starter|plus|legacy]",
		Action: func(c *cli.Context) error {
			plan := c.Args().First()
			if plan == "" {
				plan = string(store.PlanStarter)
			}
			output, err := ops.Start(c.Context, e.store, plan)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// generateCmd creates the generate-message command.
func generateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "generate-message",
		Usage:     "Draft a capsule message from a short prompt",
		ArgsUsage: "<prompt>",
		Action: func(c *cli.Context) error {
			prompt := strings.Join(c.Args().Slice(), " ")
			output, err := ops.GenerateMessage(c.Context, e.gen, e.logger, ops.GenerateMessageInput{Prompt: prompt})
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: e.cfg.Web.Bind, Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: e.cfg.Web.Port, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(web.Deps{
				Store:     e.store,
				Builder:   e.builder,
				Generator: e.gen,
				Config:    e.cfg,
				Logger:    e.logger,
				Version:   Version,
			}, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, e.logger)
		},
	}
}

// Helper functions

// confirm runs the second step of a seal or delete. Without --yes the
// user is asked on the terminal; non-interactive callers must pass --yes.
func (e *env) confirm(ctx context.Context, intent *ops.IntentOutput, yes bool) error {
	if !yes {
		if !e.interactive {
			e.store.Cancel(intent.Token)
			return outputError(errors.NewInvalidRequest(
				fmt.Sprintf("refusing to %s without confirmation; pass --yes", intent.Action)))
		}
		fmt.Fprintf(e.stderr, "%s [y/N] ", intent.Prompt)
		if !askYes(e.stdin) {
			return e.outputJSON(ops.Cancel(e.store, intent.Token))
		}
	}

	output, err := ops.Confirm(ctx, e.store, intent.Token)
	if err != nil {
		return outputError(err)
	}
	return e.outputJSON(output)
}

// askYes reads one line and reports whether it is an affirmative answer.
func askYes(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// outputJSON marshals result to stdout as JSON.
func (e *env) outputJSON(v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	te := errors.As(err)
	if te.Code == errors.ErrInternal {
		return cli.Exit(err.Error(), 1)
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", te.Code, te.Message), 1)
}

// readAll reads r fully and trims surrounding whitespace.
func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readAttachment loads a local media file, typing it by extension and
// falling back to content sniffing.
func readAttachment(path string, maxBytes int64) (*capsule.AttachmentFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("file not found: %s", path))
		}
		return nil, errors.NewInternal(fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return attachment.FromReader(filepath.Base(path), mimeType, f, maxBytes)
}
