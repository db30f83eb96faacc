// Package desktop is the interactive terminal client. It holds exactly one
// session per process and talks to the API only through pkg/client.
package desktop

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mehmetcc/medgate/pkg/client"
	"go.uber.org/zap"
)

const prompt = "medgate> "

type Shell struct {
	client  *client.Client
	in      *bufio.Scanner
	out     io.Writer
	timeout time.Duration
	logger  *zap.Logger
}

func NewShell(c *client.Client, in io.Reader, out io.Writer, timeout time.Duration, logger *zap.Logger) *Shell {
	return &Shell{
		client:  c,
		in:      bufio.NewScanner(in),
		out:     out,
		timeout: timeout,
		logger:  logger,
	}
}

type command func(ctx context.Context, args []string) error

func (s *Shell) commands() map[string]command {
	return map[string]command{
		"login":     s.login,
		"logout":    s.logout,
		"whoami":    s.whoami,
		"patients":  s.patients,
		"equipment": s.equipment,
		"staff":     s.staff,
		"help":      s.help,
	}
}

// Run reads commands until quit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	cmds := s.commands()
	s.printf("Type 'help' for commands.\n")
	for {
		s.printf(prompt)
		if !s.in.Scan() {
			return s.in.Err()
		}
		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}
		name, args := fields[0], fields[1:]
		if name == "quit" || name == "exit" {
			return nil
		}
		cmd, ok := cmds[name]
		if !ok {
			s.printf("unknown command %q\n", name)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := cmd(callCtx, args)
		cancel()
		if err != nil {
			s.report(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Shell) report(err error) {
	switch {
	case errors.Is(err, client.ErrMissingCredential):
		s.printf("not logged in. use: login <username> <password>\n")
	case errors.Is(err, client.ErrUnauthenticated):
		s.printf("your session has ended. please log in again.\n")
	case errors.Is(err, client.ErrForbidden):
		role := "your role"
		if sess, ok := s.client.Session(); ok {
			role = string(sess.Principal.Role)
		}
		s.printf("access denied: %s may not do that.\n", role)
	case errors.Is(err, client.ErrInvalidLogin):
		s.printf("invalid username or password.\n")
	default:
		s.logger.Warn("command failed", zap.Error(err))
		s.printf("error: %v\n", err)
	}
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		s.printf("usage: login <username> <password>\n")
		return nil
	}
	sess, err := s.client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	s.printf("logged in as %s (%s), session valid until %s\n",
		sess.Principal.Username, sess.Principal.Role, sess.ExpiresAt.Local().Format(time.Kitchen))
	return nil
}

func (s *Shell) logout(context.Context, []string) error {
	s.client.Logout()
	s.printf("logged out.\n")
	return nil
}

func (s *Shell) whoami(ctx context.Context, _ []string) error {
	p, err := s.client.Me(ctx)
	if err != nil {
		return err
	}
	s.printf("%s (id %d, %s)\n", p.Username, p.ID, p.Role)
	return nil
}

func (s *Shell) patients(ctx context.Context, _ []string) error {
	items, err := s.client.ListPatients(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.FormatInt(it.ID, 10), it.FullName, it.Ward, it.AdmittedAt.Format("2006-01-02 15:04")})
	}
	s.table([]string{"ID", "NAME", "WARD", "ADMITTED"}, rows)
	return nil
}

func (s *Shell) equipment(ctx context.Context, _ []string) error {
	items, err := s.client.ListEquipment(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.FormatInt(it.ID, 10), it.Name, it.Status, it.Location})
	}
	s.table([]string{"ID", "NAME", "STATUS", "LOCATION"}, rows)
	return nil
}

func (s *Shell) staff(ctx context.Context, _ []string) error {
	items, err := s.client.ListStaff(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.FormatInt(it.ID, 10), it.Username, string(it.Role)})
	}
	s.table([]string{"ID", "USERNAME", "ROLE"}, rows)
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	s.printf(`commands:
  login <username> <password>
  logout
  whoami
  patients
  equipment
  staff
  quit
`)
	return nil
}

func (s *Shell) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		s.printf("nothing to show.\n")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
