package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/natelandrum/file-transfer-project/client/config"
	"github.com/natelandrum/file-transfer-project/client/perfmetrics"
	"github.com/natelandrum/file-transfer-project/client/terminal"
	"github.com/natelandrum/file-transfer-project/client/transfer"
)

// Command is one parsed input line.
type Command struct {
	name string
	args []string
}

type app struct {
	client    *transfer.Client
	theme     *terminal.ThemeManager
	table     *terminal.TableFormatter
	completer *terminal.CommandCompleter
	metrics   *perfmetrics.Logger
	stdin     *bufio.Reader
}

func main() {
	cfg, args, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(args) > 0 {
		if err := a.run(Command{name: args[0], args: args[1:]}); err != nil {
			os.Exit(1)
		}
		return
	}
	a.repl()
}

func newApp(cfg *config.ClientConfig) (*app, error) {
	themePath := cfg.ThemeFile
	if themePath == "" {
		var err error
		if themePath, err = terminal.DefaultThemePath(); err != nil {
			return nil, err
		}
	}
	theme, err := terminal.NewThemeManager(themePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		client: transfer.New(cfg),
		theme:  theme,
		table:  terminal.NewTableFormatter(os.Stdout),
		stdin:  bufio.NewReader(os.Stdin),
	}
	a.completer = terminal.NewCommandCompleter(a.client)
	if cfg.MetricsFile != "" {
		a.metrics = perfmetrics.NewLogger(cfg.MetricsFile)
	}
	if !cfg.AssumeYes {
		a.client.Overwrite = a.confirmOverwrite
	}
	return a, nil
}

func (a *app) repl() {
	a.theme.GetPromptColor().Println("File share client")
	a.theme.GetTextColor().Printf("Server: %s. Type 'HELP' for available commands\n", a.client.Config().Address)
	if a.metrics != nil {
		a.theme.GetInfoColor().Printf("Logging transfers to %s\n", a.metrics.Path())
	}
	fmt.Println()

	p := prompt.New(
		a.executor,
		a.completer.Completer,
		prompt.OptionTitle("File share client"),
		prompt.OptionPrefix("fileshare> "),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionCompletionWordSeparator(" "),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(buf *prompt.Buffer) {
				fmt.Println("\nExiting...")
				os.Exit(0)
			},
		}),
	)
	p.Run()
}

func (a *app) executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	if input == "exit" {
		os.Exit(0)
	}
	a.run(parseCommand(input))
}

// parseCommand splits input on spaces, keeping "quoted words" together.
func parseCommand(input string) Command {
	var fields []string
	var current strings.Builder
	inQuotes, pending := false, false
	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			pending = true
		case r == ' ' && !inQuotes:
			if pending {
				fields = append(fields, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	if pending {
		fields = append(fields, current.String())
	}
	if len(fields) == 0 {
		return Command{}
	}
	return Command{name: fields[0], args: fields[1:]}
}

// run executes one command and reports its outcome.
func (a *app) run(cmd Command) error {
	var err error
	switch strings.ToUpper(cmd.name) {
	case "UPLOAD":
		if len(cmd.args) != 1 {
			err = errors.New("usage: UPLOAD <local file>")
			break
		}
		err = a.upload(cmd.args[0])
	case "DOWNLOAD":
		if len(cmd.args) < 1 || len(cmd.args) > 2 {
			err = errors.New("usage: DOWNLOAD <name> [local dir]")
			break
		}
		dir := ""
		if len(cmd.args) == 2 {
			dir = cmd.args[1]
		}
		err = a.download(cmd.args[0], dir)
	case "LIST":
		err = a.list()
	case "DELETE":
		if len(cmd.args) != 1 {
			err = errors.New("usage: DELETE <name>")
			break
		}
		err = a.remove(cmd.args[0])
	case "HELP":
		a.showHelp()
	case "THEME":
		if len(cmd.args) != 1 {
			err = fmt.Errorf("usage: theme <%s>", strings.Join(terminal.ThemeNames(), "|"))
			break
		}
		if err = a.theme.SetTheme(cmd.args[0]); err == nil {
			a.theme.GetSuccessColor().Printf("Theme set to %s\n", cmd.args[0])
		}
	case "CLEAR":
		clearScreen()
	default:
		err = fmt.Errorf("unknown command %q, type 'HELP' for available commands", cmd.name)
	}

	if err != nil {
		a.theme.GetErrorColor().Printf("Error: %v\n", err)
	}
	return err
}

func (a *app) upload(localPath string) error {
	var status string
	start := time.Now()
	last, err := a.withProgress(func(ctx context.Context, progress chan<- transfer.Progress) error {
		var err error
		status, err = a.client.Upload(ctx, localPath, progress)
		return err
	})
	if errors.Is(err, transfer.ErrCanceled) {
		a.theme.GetInfoColor().Println("Upload canceled, the server copy was kept")
		return nil
	}
	if err != nil {
		return err
	}
	a.theme.GetSuccessColor().Printf("%s: %s (%s)\n", last.Name, status, terminal.FormatSize(last.Total))
	a.record("UPLOAD", last, time.Since(start))
	return nil
}

func (a *app) download(name, dir string) error {
	var path string
	start := time.Now()
	last, err := a.withProgress(func(ctx context.Context, progress chan<- transfer.Progress) error {
		var err error
		path, err = a.client.Download(ctx, name, dir, progress)
		return err
	})
	if errors.Is(err, transfer.ErrNotFound) {
		a.theme.GetErrorColor().Printf("%s: not found\n", name)
		return err
	}
	if err != nil {
		return err
	}
	a.theme.GetSuccessColor().Printf("Saved %s (%s)\n", path, terminal.FormatSize(last.Total))
	a.record("DOWNLOAD", last, time.Since(start))
	return nil
}

func (a *app) list() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	names, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	a.completer.UpdateRemoteFiles(names)
	return a.table.FormatRemoteFiles(names)
}

func (a *app) remove(name string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status, err := a.client.Delete(ctx, name)
	if err != nil {
		return err
	}
	a.completer.RemoveRemoteFile(name)
	a.theme.GetSuccessColor().Printf("%s: %s\n", name, status)
	return nil
}

// withProgress runs op on its own goroutine and draws its progress here
// until it returns. Ctrl+C cancels the transfer.
func (a *app) withProgress(op func(context.Context, chan<- transfer.Progress) error) (transfer.Progress, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progress := make(chan transfer.Progress, 16)
	done := make(chan error, 1)
	go func() { done <- op(ctx, progress) }()

	printer := terminal.NewProgressPrinter(os.Stdout)
	var last transfer.Progress
	drew := false
	for {
		select {
		case p := <-progress:
			printer.Update(p)
			last, drew = p, true
		case err := <-done:
			for more := true; more; {
				select {
				case p := <-progress:
					printer.Update(p)
					last, drew = p, true
				default:
					more = false
				}
			}
			if drew {
				printer.Finish()
			}
			return last, err
		}
	}
}

// confirmOverwrite asks on an interactive terminal and declines otherwise.
func (a *app) confirmOverwrite(name string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		a.theme.GetInfoColor().Printf("%s exists on the server; use -yes to overwrite\n", name)
		return false
	}
	a.theme.GetPromptColor().Printf("%s exists on the server. Overwrite? [y/N]: ", name)
	answer, err := a.stdin.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (a *app) record(op string, p transfer.Progress, elapsed time.Duration) {
	if a.metrics == nil {
		return
	}
	err := a.metrics.Log(perfmetrics.Record{
		Client:    a.client.Config().Address,
		Operation: op,
		FileName:  p.Name,
		Bytes:     p.Transferred,
		Duration:  elapsed,
	})
	if err != nil {
		a.theme.GetErrorColor().Printf("Warning: failed to log metrics: %v\n", err)
	}
}

func (a *app) showHelp() {
	text := a.theme.GetTextColor()
	text.Println("\nCommands:")
	text.Println("UPLOAD <local file>        - Upload a file under its base name")
	text.Println("DOWNLOAD <name> [dir]      - Download a file into dir (default -dir)")
	text.Println("LIST                       - List files on the server")
	text.Println("DELETE <name>              - Delete a file on the server")
	text.Println("theme <dark|light>         - Change terminal theme")
	text.Println("clear                      - Clear the screen")
	text.Println("exit                       - Leave the client")
	text.Println("\nQuote names that contain spaces. Ctrl+C cancels a running transfer.")
}

func clearScreen() {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", "cls")
	} else {
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	cmd.Run()
}
