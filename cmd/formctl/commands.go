package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	formapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/auth"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.db.Ping(); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}
			stats, err := a.db.Stats()
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]any{
				"database":         "ok",
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			})
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage client access tokens",
	}

	var email, amountDue string
	issue := &cobra.Command{
		Use:   "issue <client name>",
		Short: "Issue a token for a new client",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := formapp.CreateClientRequest{
				ClientName:  strings.Join(args, " "),
				ClientEmail: email,
			}
			if amountDue != "" {
				amount, err := decimal.NewFromString(amountDue)
				if err != nil {
					return fmt.Errorf("invalid --amount-due %q: %w", amountDue, err)
				}
				req.AmountDue = &amount
			}

			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			summary, err := a.admin.CreateClient(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd, summary)
		},
	}
	issue.Flags().StringVar(&email, "email", "", "Client email")
	issue.Flags().StringVar(&amountDue, "amount-due", "", "Amount due, e.g. 250.00")

	token.AddCommand(issue)
	return token
}

func (a *app) clientsCmd() *cobra.Command {
	clients := &cobra.Command{
		Use:   "clients",
		Short: "Inspect client records",
	}

	var filter formapp.ListClientsFilter
	var active string
	list := &cobra.Command{
		Use:   "list",
		Short: "List clients, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch active {
			case "":
			case "true", "false":
				v := active == "true"
				filter.IsActive = &v
			default:
				return fmt.Errorf("--active must be true or false")
			}

			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			items, total, err := a.admin.ListClients(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if a.output == "table" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d clients\n", len(items), total)
			}
			return a.render(cmd, items)
		},
	}
	list.Flags().StringVar(&filter.Search, "search", "", "Match name, email or token")
	list.Flags().StringVar(&filter.Status, "status", "", "draft, in_progress or completed")
	list.Flags().StringVar(&filter.PaymentStatus, "payment", "", "pending, paid, partial or cancelled")
	list.Flags().StringVar(&active, "active", "", "Only active (true) or inactive (false) clients")
	list.Flags().IntVar(&filter.Page, "page", 1, "Page number")
	list.Flags().IntVar(&filter.PageSize, "page-size", 20, "Page size")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize clients by status and payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			resp, err := a.admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, resp)
		},
	}

	show := &cobra.Command{
		Use:   "show <token>",
		Short: "Show one client with comments and audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			detail, err := a.admin.GetClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, detail)
		},
	}

	clients.AddCommand(list, stats, show)
	return clients
}

// hashPasswordCmd prints a bcrypt hash for admin.password_hash. The password
// is read without echo when stdin is a terminal.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an admin password for the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
