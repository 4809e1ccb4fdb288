package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/spf13/cobra"
)

const (
	replPrompt             = "leapglot> "
	replContinuationPrompt = "    ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Analyze snippets interactively",
		Long: `Start an interactive session. Type a snippet over one or more lines
and submit it with an empty line; the report for the snippet is printed
immediately. Type .help for the session commands.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	historyFile := filepath.Join(filepath.Dir(cc.Cfg.HistoryPath), "repl_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newDotCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cc.Renderer.Println("leapglot REPL")
	cc.Renderer.Println("Type .help for commands, .quit to exit. Submit a snippet with an empty line.")
	cc.Renderer.Println("")

	session := newREPLSession(cmd, cc)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			session.submit()
			break
		}
		if err != nil {
			return err
		}

		if session.handleLine(line) {
			break
		}
		if session.pending() {
			rl.SetPrompt(replContinuationPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
	return nil
}

// replSession accumulates snippet lines and runs them through the analyzer.
type replSession struct {
	cmd     *cobra.Command
	cc      *CommandContext
	lines   []string
	last    *analyzer.Result
	counter int
}

func newREPLSession(cmd *cobra.Command, cc *CommandContext) *replSession {
	return &replSession{cmd: cmd, cc: cc}
}

func (s *replSession) pending() bool { return len(s.lines) > 0 }

func (s *replSession) reset() { s.lines = nil }

// handleLine processes one input line. It reports true when the session
// should end.
func (s *replSession) handleLine(line string) bool {
	trimmed := strings.TrimSpace(line)

	if !s.pending() && strings.HasPrefix(trimmed, ".") {
		return s.handleDotCommand(trimmed)
	}
	if trimmed == "" {
		s.submit()
		return false
	}
	s.lines = append(s.lines, line)
	return false
}

// submit analyzes the accumulated snippet, if any.
func (s *replSession) submit() {
	if !s.pending() {
		return
	}
	s.counter++
	text := strings.Join(s.lines, "\n") + "\n"
	s.reset()

	buf := source.New(fmt.Sprintf("<repl:%d>", s.counter), text)
	res, err := s.cc.Analyzer.Analyze(s.cmd.Context(), buf, s.cc.Fixtures)
	if err != nil {
		s.cc.Renderer.Error(err.Error())
		return
	}
	s.last = res
	if err := s.cc.Renderer.Result(res, buf, false); err != nil {
		s.cc.Renderer.Error(err.Error())
	}
	s.cc.Renderer.Println("")
}

func (s *replSession) handleDotCommand(line string) bool {
	r := s.cc.Renderer
	command := strings.ToLower(strings.Fields(line)[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".clear":
		s.reset()
		s.last = nil
		r.Println("Cleared.")

	case ".show":
		if s.last == nil {
			r.Println("Nothing analyzed yet.")
			return false
		}
		if err := r.Result(s.last, nil, true); err != nil {
			r.Error(err.Error())
		}

	case ".trace":
		if s.last == nil {
			r.Println("Nothing analyzed yet.")
			return false
		}
		if err := r.Traces(s.last); err != nil {
			r.Error(err.Error())
		}

	case ".tokens":
		if s.last == nil {
			r.Println("Nothing analyzed yet.")
			return false
		}
		if err := r.Tokens(s.last); err != nil {
			r.Error(err.Error())
		}

	case ".shims":
		if err := r.Fixtures(s.cc.Fixtures); err != nil {
			r.Error(err.Error())
		}

	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .show           Show the last report, including equivalent entries
  .trace          Show the traces of the last snippet
  .tokens         Show the token streams of the last snippet
  .shims          List the loaded shims and macros
  .clear          Discard the pending snippet and the last result
  .quit / .exit   Exit the REPL

Tips:
  - A snippet may span several lines; an empty line runs it
  - Use arrow keys to navigate history
  - Ctrl-C discards the pending snippet
`
	_, _ = fmt.Fprintln(w, help)
}

func newDotCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".show"),
		readline.PcItem(".trace"),
		readline.PcItem(".tokens"),
		readline.PcItem(".shims"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
