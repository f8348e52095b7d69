// Package userctl implements the provisioning commands behind the
// userctl binary: adding users and toggling their disabled flag.
package userctl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/gophstat/internal/common"
	"github.com/dmitrijs2005/gophstat/internal/server/models"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// ErrUsage marks a bad command line.
var ErrUsage = errors.New("usage")

const usage = `usage: userctl [-c config] [-d dsn] [-driver sqlite|postgres] <command> [flags]

commands:
  add -u <username> [-e <email>] [-n <full name>] [-password-stdin]
  disable -u <username>
  enable -u <username>
`

type Accounts interface {
	Create(ctx context.Context, username, email, fullName, password string) (*models.User, error)
	SetDisabled(ctx context.Context, username string, disabled bool) error
}

// CLI dispatches subcommands against an account store.
type CLI struct {
	accounts Accounts
	in       *bufio.Reader
	out      io.Writer
	fd       int
}

// New returns a CLI reading piped input from in and prompting on the
// terminal behind stdin.
func New(accounts Accounts, in io.Reader, out io.Writer) *CLI {
	return &CLI{accounts: accounts, in: bufio.NewReader(in), out: out, fd: int(os.Stdin.Fd())}
}

// Usage writes the command summary to w.
func Usage(w io.Writer) {
	fmt.Fprint(w, usage)
}

// Run executes the subcommand in args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}

	switch args[0] {
	case "add":
		return c.add(ctx, args[1:])
	case "disable":
		return c.setDisabled(ctx, args[1:], true)
	case "enable":
		return c.setDisabled(ctx, args[1:], false)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (c *CLI) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	fullName := fs.String("n", "", "full name")
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *username == "" {
		return fmt.Errorf("%w: add needs -u", ErrUsage)
	}

	var (
		password string
		err      error
	)
	if *fromStdin {
		password, err = c.readLine()
	} else {
		password, err = c.promptPassword()
	}
	if err != nil {
		return err
	}

	u, err := c.accounts.Create(ctx, *username, *email, *fullName, password)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return fmt.Errorf("user %q already exists", *username)
		}
		return err
	}
	fmt.Fprintf(c.out, "created user %s\n", u.Username)
	return nil
}

func (c *CLI) setDisabled(ctx context.Context, args []string, disabled bool) error {
	name := "enable"
	if disabled {
		name = "disable"
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *username == "" {
		return fmt.Errorf("%w: %s needs -u", ErrUsage, name)
	}

	if err := c.accounts.SetDisabled(ctx, *username, disabled); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %q not found", *username)
		}
		return err
	}
	fmt.Fprintf(c.out, "%sd user %s\n", name, *username)
	return nil
}

// readLine reads the first line of piped input.
func (c *CLI) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword asks twice without echo and insists both entries match.
func (c *CLI) promptPassword() (string, error) {
	fmt.Fprint(c.out, "Enter password: ")
	first, err := readPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(c.out, "Repeat password: ")
	second, err := readPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
