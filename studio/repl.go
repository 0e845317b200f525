package studio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

const coreScope = "core"

// repl serves a line based admin console on a unix socket.
type repl struct {
	studio   *Studio
	listener net.Listener
	wg       sync.WaitGroup
}

func startRepl(s *Studio, socketPath string) (*repl, error) {
	// a socket left behind by a previous process blocks Listen
	_ = os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}

	r := &repl{studio: s, listener: listener}
	r.wg.Add(1)
	go r.serve()
	return r, nil
}

func (r *repl) serve() {
	defer r.wg.Done()
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.studio.logger.Warn("Failed to accept repl connection", "error", err)
			continue
		}
		go r.handleConnection(conn)
	}
}

func (r *repl) stop() {
	r.listener.Close()
	r.wg.Wait()
}

func (r *repl) handleConnection(conn net.Conn) {
	defer conn.Close()
	r.session(context.Background(), conn, conn)
}

// session reads commands from in until EOF or exit.
func (r *repl) session(ctx context.Context, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "Bot Studio REPL")
	fmt.Fprintln(out, "-------------------------")

	for {
		fmt.Fprint(out, "> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(out, "\nExiting...")
				return
			}
			r.studio.logger.Warn("Error reading repl input", "error", err)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !r.exec(ctx, out, strings.Fields(input)) {
			return
		}
	}
}

// exec runs one command and reports whether the session goes on.
func (r *repl) exec(ctx context.Context, out io.Writer, args []string) bool {
	s := r.studio
	command := strings.ToLower(args[0])

	switch command {
	case "bots":
		bots, err := s.Bots().GetBots(ctx)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			break
		}
		mounted := make(map[string]bool)
		for _, id := range s.MountedBots() {
			mounted[id] = true
		}
		for _, b := range bots {
			fmt.Fprintf(out, "%s\t%s\tmounted=%t\n", b.ID, b.Version, mounted[b.ID])
		}
	case "pending":
		if len(args) != 2 {
			fmt.Fprintln(out, "Usage: pending <bot-id|core>")
			break
		}
		target, current, err := r.scopeVersion(ctx, args[1])
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			break
		}
		files, err := s.Migrator().Pending(ctx, target, current, false)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			break
		}
		for _, f := range files {
			fmt.Fprintln(out, f.Filename)
		}
		fmt.Fprintf(out, "%d pending from %s to %s\n", len(files), current, s.Migrator().TargetVersion())
	case "logs":
		if len(args) != 2 {
			fmt.Fprintln(out, "Usage: logs <bot-id|core>")
			break
		}
		botID := args[1]
		if botID == coreScope {
			botID = ""
		}
		entries, err := s.Migrator().Logs().List(ctx, migrator.LogScope(botID))
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			break
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s\t%s -> %s\t%s\tsuccess=%t\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.InitialVersion, e.TargetVersion, e.Direction, e.Success)
		}
	case "migrate":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: migrate <bot-id|core> [dry-run]")
			break
		}
		var opts []migrator.RunOption
		if len(args) > 2 && args[2] == "dry-run" {
			opts = append(opts, migrator.WithDryRun())
		}
		var report *migrator.Report
		var err error
		if args[1] == coreScope {
			report, err = s.UpgradeCore(ctx, opts...)
		} else {
			report, err = s.MountBot(ctx, args[1], opts...)
		}
		if report != nil {
			for _, o := range report.Outcomes {
				fmt.Fprintf(out, "%s\tfailed=%t\tchanges=%t\n", o.File.Filename, o.Failed(), o.Result.HasChanges)
			}
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	case "list":
		if len(args) == 2 {
			if keys, err := s.Storage().ListKeys(args[1]); err == nil {
				for _, k := range keys {
					fmt.Fprintln(out, k)
				}
			}
		} else {
			fmt.Fprintln(out, "Usage: list <prefix>* or list *")
		}
	case "get":
		if len(args) == 2 {
			if value, err := s.Storage().GetKey([]byte(args[1])); err == nil {
				fmt.Fprintln(out, string(value))
			}
		} else {
			fmt.Fprintln(out, "Usage: get <key>")
		}
	case "exit":
		fmt.Fprintln(out, "Exiting...")
		return false
	default:
		fmt.Fprintln(out, "Unknown command:", command)
	}
	return true
}

func (r *repl) scopeVersion(ctx context.Context, name string) (migrator.Target, string, error) {
	if name == coreScope {
		server, err := r.studio.BotConfig().GetServerConfig(ctx)
		if err != nil {
			return "", "", err
		}
		return migrator.TargetCore, server.Version, nil
	}
	bot, err := r.studio.Bots().FindBotByID(ctx, name)
	if err != nil {
		return "", "", err
	}
	return migrator.TargetBot, bot.Version, nil
}
