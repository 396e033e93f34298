package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	migrations "github.com/leadrelay/leadrelay/db"
	"github.com/leadrelay/leadrelay/internal/config"
	"github.com/leadrelay/leadrelay/internal/db"
	"github.com/leadrelay/leadrelay/internal/dispatch"
	"github.com/leadrelay/leadrelay/internal/leads"
	"github.com/leadrelay/leadrelay/internal/logger"
	"github.com/leadrelay/leadrelay/internal/messaging/telegram"
	"github.com/leadrelay/leadrelay/internal/resolver"
	"github.com/leadrelay/leadrelay/internal/sessions"
	"github.com/leadrelay/leadrelay/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var cfg config.Config

	root := &cobra.Command{
		Use:           "leadrelay-cli",
		Short:         "Operational CLI for the leadrelay dispatch service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "path to config.toml")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newMigrateCmd(&cfg))
	root.AddCommand(newSessionCmd(&cfg))
	root.AddCommand(newDispatchCmd(&cfg))
	root.AddCommand(newLeadsCmd(&cfg))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("leadrelay %s\n", version.GetInfo())
		},
	}
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|version|force N]",
		Short: "Apply or roll back database migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := fs.Sub(migrations.MigrationsFS, "migrations")
			if err != nil {
				return err
			}
			return db.RunMigrate(logger.L, cfg.Postgres, sub, args[0], args[1:])
		},
	}
}

func newSessionCmd(cfg *config.Config) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored account credentials",
	}

	setCmd := &cobra.Command{
		Use:   "set <account_id> <credential_file>",
		Short: "Store a serialized credential for an account (use - for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credential, err := readCredential(args[1])
			if err != nil {
				return err
			}
			ctx, cancel, pool, err := openPool(cfg)
			if err != nil {
				return err
			}
			defer cancel()
			defer pool.Close()
			return sessions.NewService(pool).Put(ctx, args[0], credential)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <account_id>",
		Short: "Remove the stored credential for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, pool, err := openPool(cfg)
			if err != nil {
				return err
			}
			defer cancel()
			defer pool.Close()
			return sessions.NewService(pool).Delete(ctx, args[0])
		},
	}

	sessionCmd.AddCommand(setCmd, deleteCmd)
	return sessionCmd
}

func newDispatchCmd(cfg *config.Config) *cobra.Command {
	var (
		accountID string
		leadID    string
		handle    string
		targetID  string
		originID  string
		text      string
		mediaURL  string
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Resolve a target and deliver one message",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, pool, err := openPool(cfg)
			if err != nil {
				return err
			}
			defer cancel()
			defer pool.Close()

			svc := dispatch.NewService(
				logger.L,
				cfg.Dispatch,
				sessions.NewService(pool),
				leads.NewService(pool),
				telegram.NewDialer(logger.L, cfg.Telegram),
			)
			res := svc.Dispatch(ctx, dispatch.Request{
				AccountID: accountID,
				LeadID:    leadID,
				Target: resolver.Descriptor{
					Handle:       handle,
					OpaqueID:     targetID,
					OriginChatID: originID,
				},
				Payload: dispatch.Payload{Text: text, MediaURL: mediaURL},
			})
			fmt.Printf("outcome: %s\n", res.Outcome.Kind)
			if res.Outcome.Message != "" {
				fmt.Printf("message: %s\n", res.Outcome.Message)
			}
			if !res.Outcome.Success() {
				return fmt.Errorf("dispatch did not succeed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account identifier (required)")
	cmd.Flags().StringVar(&leadID, "lead", "", "lead id to update with the outcome")
	cmd.Flags().StringVar(&handle, "handle", "", "target handle")
	cmd.Flags().StringVar(&targetID, "id", "", "target numeric id")
	cmd.Flags().StringVar(&originID, "origin", "", "originating chat id")
	cmd.Flags().StringVar(&text, "text", "", "message template")
	cmd.Flags().StringVar(&mediaURL, "media", "", "remote media URL")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newLeadsCmd(cfg *config.Config) *cobra.Command {
	var limit int

	leadsCmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect lead outcomes",
	}

	listCmd := &cobra.Command{
		Use:   "list <account_id>",
		Short: "List recent leads for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, pool, err := openPool(cfg)
			if err != nil {
				return err
			}
			defer cancel()
			defer pool.Close()

			items, err := leads.NewService(pool).ListByAccount(ctx, args[0], limit)
			if err != nil {
				return err
			}
			for _, lead := range items {
				fmt.Printf("%s\t%s\t%s\t%s\n", lead.ID, lead.Status, lead.Handle, lead.Diagnostic)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum leads to list")

	leadsCmd.AddCommand(listCmd)
	return leadsCmd
}

func openPool(cfg *config.Config) (context.Context, context.CancelFunc, *pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("db connect: %w", err)
	}
	return ctx, cancel, pool, nil
}

func readCredential(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
