// Command goauth-session drives an auth API from the terminal with a persisted
// session: log in once, then issue authenticated calls that renew the access
// credential transparently.
//
// Usage:
//
//	goauth-session [--config path] <command> [flags] [args]
//
// Commands:
//
//	register        -username -email -password [-faction]
//	login           -username -password
//	logout
//	status
//	profile
//	update-profile  [-email] [-avatar-url]
//	change-password -current -new
//	call            [-method GET] [-body JSON] <path>
//	watch           [-interval 10s] [-count 0] <path>
//
// Configuration is read by internal/config. watch serves Prometheus metrics
// on metrics.addr when it is set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goAuthClient/internal/config"
)

var errUsage = errors.New("usage: goauth-session [--config path] <register|login|logout|status|profile|update-profile|change-password|call|watch> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("goauth-session", flag.ContinueOnError)
	configPath := global.String("config", "", "path to config file")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd(ctx, a, rest[1:], stdout)
}
