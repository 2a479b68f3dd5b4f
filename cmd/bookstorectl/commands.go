package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/patric-chuzhbe/bookstore/internal/client"
	"github.com/patric-chuzhbe/bookstore/internal/models"
)

const (
	defaultServer = "http://localhost:8080"
	envServer     = "BOOKSTORE_SERVER"
	envToken      = "BOOKSTORE_TOKEN"
)

type globalOptions struct {
	server  string
	token   string
	timeout time.Duration
}

func (o *globalOptions) client() *client.Client {
	return client.New(
		strings.TrimRight(o.server, "/"),
		client.WithToken(o.token),
		client.WithTimeout(o.timeout),
	)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "bookstorectl",
		Short:         "Command line client of the bookstore service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOrDefault(envServer, defaultServer), "bookstore base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv(envToken), "access token for the book commands")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		newSignupCmd(opts),
		newLoginCmd(opts),
		newBooksCmd(opts),
	)

	return root
}

func newSignupCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd); err != nil {
					return err
				}
			}

			msg, err := opts.client().Signup(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), msg)

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd); err != nil {
					return err
				}
			}

			token, err := opts.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newBooksCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage books",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all books",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				books, err := opts.client().ListBooks(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), books)
			},
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Show one book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseBookID(args[0])
				if err != nil {
					return err
				}
				book, err := opts.client().GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), book)
			},
		},
		newCreateBookCmd(opts),
		newUpdateBookCmd(opts),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseBookID(args[0])
				if err != nil {
					return err
				}
				msg, err := opts.client().DeleteBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			},
		},
	)

	return cmd
}

func newCreateBookCmd(opts *globalOptions) *cobra.Command {
	var payload models.BookPayload

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := opts.client().CreateBook(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), book)
		},
	}

	cmd.Flags().StringVar(&payload.Name, "name", "", "book name")
	cmd.Flags().StringVar(&payload.Author, "author", "", "book author")
	cmd.Flags().IntVar(&payload.PublishedYear, "year", 0, "publication year")
	cmd.Flags().StringVar(&payload.Summary, "summary", "", "book summary")
	for _, name := range []string{"name", "author", "year", "summary"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newUpdateBookCmd(opts *globalOptions) *cobra.Command {
	var (
		name, author, summary string
		year                  int
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change some fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}

			var patch models.BookPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("author") {
				patch.Author = &author
			}
			if flags.Changed("year") {
				patch.PublishedYear = &year
			}
			if flags.Changed("summary") {
				patch.Summary = &summary
			}

			book, err := opts.client().UpdateBook(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), book)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new book name")
	cmd.Flags().StringVar(&author, "author", "", "new book author")
	cmd.Flags().IntVar(&year, "year", 0, "new publication year")
	cmd.Flags().StringVar(&summary, "summary", "", "new book summary")

	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(password)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(line)
	if password == "" {
		return "", errors.New("password is required")
	}

	return password, nil
}

func parseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", raw)
	}

	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}
