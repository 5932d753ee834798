package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stackit/internal/cli/command"
	"stackit/internal/cli/config"
	httpclient "stackit/internal/cli/http"
	"stackit/internal/cli/repl"
	"stackit/internal/cli/state"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	token := flag.String("token", "", "Override access token")
	statePath := flag.String("state", "", "Override session file path")
	raw := flag.Bool("raw", false, "Print response bodies without reformatting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.TokenStatePath = *statePath
	}
	pretty := cfg.PrettyJSON != nil && *cfg.PrettyJSON && !*raw

	session, err := state.Load(cfg.TokenStatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session failed: %v\n", err)
		os.Exit(1)
	}
	if *token != "" {
		session = state.Session{AccessToken: *token}
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return session.AccessToken
	})
	s := repl.New(client, command.Registry(), &session, cfg.TokenStatePath, pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// Remaining arguments run as a single command instead of the interactive shell.
	if args := flag.Args(); len(args) > 0 {
		if err := s.Execute(ctx, strings.Join(quoteArgs(args), " ")); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := s.Run(ctx, cfg.HistoryPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func quoteArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t\"'") {
			out[i] = "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
			continue
		}
		out[i] = arg
	}
	return out
}
