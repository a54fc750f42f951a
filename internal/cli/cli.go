// Package cli implements the acerace command line client.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/okian/acerace/internal/client"
	"github.com/okian/acerace/pkg/logger"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

const (
	defaultServer  = "http://localhost:8000"
	defaultTimeout = 10 * time.Second
	envServer      = "ACERACE_SERVER"
	envToken       = "ACERACE_TOKEN"
)

// Messages shown to the player.
const (
	MsgSubmitted = "Picks submitted successfully!"
	MsgFailed    = "Failed to submit picks."
	MsgHalfFull  = "You can only select 2 players from each half of the draw."
	MsgNotReady  = "Select 2 players from each half before submitting."
)

var errUsage = errors.New("usage")

// app holds what every subcommand needs.
type app struct {
	out    io.Writer
	errOut io.Writer
	client *client.Client

	identityPath string
	userID       string
	log          logger.Logger
}

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"tournaments", "", "list tournaments", runTournaments},
	{"draw", "<tournament>", "show a tournament draw by half", runDraw},
	{"pick", "<tournament> <player>...", "toggle players into a pick set and submit it", runPick},
	{"history", "", "show your picks grouped by tournament", runHistory},
	{"leaderboard", "[-sort key]", "show the leaderboard", runLeaderboard},
	{"login", "<user>", "store the user id used for picks", runLogin},
	{"whoami", "", "print the current user id", runWhoami},
	{"result", "[-event id] <tournament> <player> <round>", "report a result (admin)", runResult},
	{"admin-token", "-secret s [-ttl d] [-subject name]", "sign an admin bearer token", runAdminToken},
}

// Run parses global flags and dispatches to a subcommand. It returns the
// process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("acerace", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", envOr(envServer, defaultServer), "API base URL")
	timeout := fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
	identity := fs.String("identity", client.DefaultIdentityPath(), "identity file")
	user := fs.String("user", "", "user id (overrides the identity file)")
	token := fs.String("token", os.Getenv(envToken), "admin bearer token")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	if err := logger.InitWith(stderr, logger.FormatText); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitError
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return ExitUsage
	}

	a := &app{
		out:          stdout,
		errOut:       stderr,
		client:       client.New(*server, client.WithTimeout(*timeout), client.WithAdminToken(*token)),
		identityPath: *identity,
		userID:       strings.TrimSpace(*user),
		log:          logger.Named("cli"),
	}
	if a.userID == "" {
		a.userID = client.LoadIdentity(a.identityPath).ID
	}

	for _, c := range commands {
		if c.name != rest[0] {
			continue
		}
		err := c.run(ctx, a, rest[1:])
		switch {
		case err == nil:
			return ExitOK
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "usage: acerace %s %s\n", c.name, c.args)
			return ExitUsage
		default:
			a.log.Debug(ctx, "command failed", logger.String("command", c.name), logger.Error(err))
			fmt.Fprintln(stderr, "error:", err)
			return ExitError
		}
	}
	fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
	usage(stderr, fs)
	return ExitUsage
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: acerace [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %-42s %s\n", c.name, c.args, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
