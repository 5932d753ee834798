package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stackit/internal/cli/command"
	httpclient "stackit/internal/cli/http"
	"stackit/internal/cli/state"
	pkgerrors "stackit/pkg/errors"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const prompt = "stackit> "

// errExit ends the session loop.
var errExit = errors.New("exit")

// Prompter asks the user for a single value.
type Prompter interface {
	Prompt(label string) (string, error)
}

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	session    *state.Session
	statePath  string
	prettyJSON bool
	out        io.Writer
	prompter   Prompter
}

func New(client *httpclient.Client, commands map[string]command.Command, session *state.Session, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		session:    session,
		statePath:  statePath,
		prettyJSON: prettyJSON,
		out:        os.Stdout,
	}
}

// SetIO replaces the output writer and value prompter, mainly for scripted use.
func (s *Session) SetIO(out io.Writer, prompter Prompter) {
	s.out = out
	s.prompter = prompter
}

// Run reads commands until exit, EOF or ctx cancellation.
func (s *Session) Run(ctx context.Context, historyPath string) error {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o700); err != nil {
			historyPath = ""
		}
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyPath,
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.out = rl.Stdout()
	s.prompter = &readlinePrompter{rl: rl}

	for ctx.Err() == nil {
		rl.SetPrompt(prompt)
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				s.printLine("bye")
				return nil
			}
			s.printLine("error: %v", err)
		}
	}
	return ctx.Err()
}

// Execute runs one input line.
func (s *Session) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if handled, err := s.handleSystemCommand(tokens); handled {
		return err
	}
	return s.handleCommand(ctx, tokens)
}

func (s *Session) handleSystemCommand(tokens []string) (bool, error) {
	switch tokens[0] {
	case "exit", "quit":
		return true, errExit
	case "help":
		s.printHelp()
	case "whoami":
		s.printWhoami()
	case "logout":
		*s.session = state.Session{}
		if err := state.Clear(s.statePath); err != nil {
			return true, err
		}
		s.printLine("signed out")
	case "set":
		s.handleSet(tokens[1:])
	case "show":
		s.handleShow(tokens[1:])
	default:
		return false, nil
	}
	return true, nil
}

func (s *Session) handleSet(args []string) {
	if len(args) < 2 {
		s.printLine("usage: set base|timeout|token <value>")
		return
	}
	switch args[0] {
	case "base":
		s.client.SetBaseURL(args[1])
		s.printLine("base set to %s", args[1])
	case "timeout":
		dur, err := time.ParseDuration(args[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		*s.session = state.Session{AccessToken: args[1]}
		if err := state.Save(s.statePath, *s.session); err != nil {
			s.printLine("save session failed: %v", err)
			return
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args []string) {
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	switch topic {
	case "token":
		s.printLine("token: %s", maskToken(s.session.AccessToken))
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("session: %s", s.statePath)
	default:
		s.printLine("usage: show token|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	key := tokens[0] + " " + tokens[1]
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s", key)
	}
	params, err := command.ParseAssignments(tokens[2:])
	if err != nil {
		return err
	}
	params.Canonicalize(cmd.Fields)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	if cmd.RequiresAuth && !s.session.Valid(time.Now()) {
		s.printLine("warning: no valid session, run auth login first")
	}

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	if cmd.StoresToken {
		s.storeSession(resp)
	}
	return nil
}

// promptMissing asks for required fields that were not given inline. A file
// field standing in for its target counts as given.
func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	provided := map[string]bool{}
	for _, field := range cmd.Fields {
		if field.Type == command.FieldFile && params.Get(field.Name) != "" {
			provided[strings.ToLower(field.Target)] = true
		}
	}
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" || provided[strings.ToLower(field.Name)] {
			continue
		}
		if s.prompter == nil {
			return fmt.Errorf("missing parameter: %s", field.Name)
		}
		value, err := s.prompter.Prompt(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, strings.TrimSpace(value))
	}
	return nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) storeSession(resp httpclient.ResponseInfo) {
	env, err := resp.Decode()
	if err != nil || env.Code != int(pkgerrors.Success) {
		return
	}
	var auth struct {
		AccessToken string    `json:"access_token"`
		ExpiresAt   time.Time `json:"expires_at"`
		User        struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &auth); err != nil || auth.AccessToken == "" {
		return
	}
	*s.session = state.Session{
		AccessToken: auth.AccessToken,
		ExpiresAt:   auth.ExpiresAt,
		UserID:      auth.User.ID,
		UserName:    auth.User.Name,
		Role:        auth.User.Role,
	}
	if err := state.Save(s.statePath, *s.session); err != nil {
		s.printLine("save session failed: %v", err)
		return
	}
	s.printLine("signed in as %s (%s)", auth.User.Name, auth.User.Role)
}

func (s *Session) printWhoami() {
	if !s.session.Valid(time.Now()) {
		s.printLine("not signed in")
		return
	}
	name := s.session.UserName
	if name == "" {
		name = "<unknown>"
	}
	s.printLine("%s id=%s role=%s", name, s.session.UserID, s.session.Role)
	if !s.session.ExpiresAt.IsZero() {
		s.printLine("expires %s", s.session.ExpiresAt.Local().Format(time.RFC3339))
	}
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | whoami | logout | set base|timeout|token | show token|config")
	services := command.Services(s.commands)
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.printLine("  %-13s %s", name, strings.Join(services[name], " "))
	}
	s.printLine("examples:")
	s.printLine("  auth login email=ada@example.com password=secret")
	s.printLine("  question list status=pending page=1 limit=10")
	s.printLine("  question create title=\"Closing channels\" tags=go,channels body_file=./q.md")
	s.printLine("  question reject id=q_1 reason=\"needs more detail\"")
}

func (s *Session) completer() *readline.PrefixCompleter {
	services := command.Services(s.commands)
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, 0, len(names)+6)
	for _, name := range names {
		actions := make([]readline.PrefixCompleterInterface, 0, len(services[name]))
		for _, action := range services[name] {
			actions = append(actions, readline.PcItem(action))
		}
		items = append(items, readline.PcItem(name, actions...))
	}
	items = append(items,
		readline.PcItem("help"),
		readline.PcItem("whoami"),
		readline.PcItem("logout"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout"), readline.PcItem("token")),
		readline.PcItem("show", readline.PcItem("token"), readline.PcItem("config")),
		readline.PcItem("exit"),
	)
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

type readlinePrompter struct {
	rl *readline.Instance
}

func (p *readlinePrompter) Prompt(label string) (string, error) {
	p.rl.SetPrompt(label + ": ")
	line, err := p.rl.Readline()
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return line, nil
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "<empty>"
	case len(token) > 12:
		return token[:6] + "..." + token[len(token)-4:]
	default:
		return token
	}
}
