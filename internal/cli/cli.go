// Package cli is the vidictl operator command tree:
//
//	vidictl credit <owner> <amount> [--reason purchase]
//	vidictl balance <owner> [--entries 10]
//	vidictl jobs <owner>
//	vidictl set-provider-key [--provider kie] [--key ...]
//	vidictl migrate
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vidiai/internal/domain"
)

// CredentialSetter stores a provider API key.
type CredentialSetter interface {
	SetToken(ctx context.Context, provider, key string, props map[string]any) error
}

// Deps are the stores a command runs against. Credentials and Migrate are nil
// on backends without a database.
type Deps struct {
	Ledger      domain.BalanceLedger
	History     domain.HistoryStore
	Credentials CredentialSetter
	Migrate     func(ctx context.Context) ([]string, error)
}

// Opener connects Deps for one command. The returned func releases them.
type Opener func(ctx context.Context) (*Deps, func(), error)

var errNoDatabase = errors.New("this command needs STORE_BACKEND=postgres")

var creditReasons = []string{domain.ReasonPurchase, domain.ReasonBonus, domain.ReasonAdmin}

const commandTimeout = 30 * time.Second

func BuildCLI(open Opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vidictl",
		Short:         "vidictl: operator tool for the vidiai backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(buildCreditCommand(open))
	rootCmd.AddCommand(buildBalanceCommand(open))
	rootCmd.AddCommand(buildJobsCommand(open))
	rootCmd.AddCommand(buildSetProviderKeyCommand(open))
	rootCmd.AddCommand(buildMigrateCommand(open))

	return rootCmd
}

// withDeps runs fn with connected deps and a bounded context.
func withDeps(cmd *cobra.Command, open Opener, fn func(ctx context.Context, deps *Deps) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	deps, closeFn, err := open(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(ctx, deps)
}

func buildCreditCommand(open Opener) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "credit <owner> <amount>",
		Short: "Add credits to an owner's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner := strings.TrimSpace(args[0])
			amount, err := strconv.Atoi(args[1])
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer, got %q", args[1])
			}
			if !validReason(reason) {
				return fmt.Errorf("reason must be one of %s", strings.Join(creditReasons, ", "))
			}
			return withDeps(cmd, open, func(ctx context.Context, deps *Deps) error {
				balance, err := deps.Ledger.Credit(ctx, owner, amount, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s +%d (%s) balance=%d\n", owner, amount, reason, balance)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", domain.ReasonPurchase, "ledger reason: purchase, bonus or admin")

	return cmd
}

func validReason(reason string) bool {
	for _, r := range creditReasons {
		if r == reason {
			return true
		}
	}
	return false
}

func buildBalanceCommand(open Opener) *cobra.Command {
	var entries int

	cmd := &cobra.Command{
		Use:   "balance <owner>",
		Short: "Show an owner's balance and recent ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner := strings.TrimSpace(args[0])
			return withDeps(cmd, open, func(ctx context.Context, deps *Deps) error {
				balance, err := deps.Ledger.Balance(ctx, owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s balance=%d\n", owner, balance)
				if entries <= 0 {
					return nil
				}
				list, err := deps.Ledger.Entries(ctx, owner, entries)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tDELTA\tREASON\tBALANCE")
				for _, e := range list {
					fmt.Fprintf(tw, "%s\t%+d\t%s\t%d\n", e.CreatedAt.Format(time.RFC3339), e.Delta, e.Reason, e.BalanceAfter)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&entries, "entries", "n", 10, "number of ledger entries to show")

	return cmd
}

func buildJobsCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <owner>",
		Short: "List an owner's jobs newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner := strings.TrimSpace(args[0])
			return withDeps(cmd, open, func(ctx context.Context, deps *Deps) error {
				jobs, err := deps.History.List(ctx, owner)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPROVIDER\tMODEL\tSTATUS\tCOST\tCREATED\tRESULT")
				for _, j := range jobs {
					result := j.ResultURL
					if j.Status == domain.JobStatusFailed {
						result = j.ErrorDescription
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
						j.ID, j.Ref.Provider, j.ModelID, j.Status, j.CostCharged, j.CreatedAt.Format(time.RFC3339), result)
				}
				return tw.Flush()
			})
		},
	}
}

func buildSetProviderKeyCommand(open Opener) *cobra.Command {
	var provider, key string

	cmd := &cobra.Command{
		Use:   "set-provider-key",
		Short: "Store a provider API key in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			key = strings.TrimSpace(key)
			if key == "" {
				key = strings.TrimSpace(os.Getenv(strings.ToUpper(provider) + "_API_KEY"))
			}
			if key == "" {
				return fmt.Errorf("%s API key is required via --key or %s_API_KEY", provider, strings.ToUpper(provider))
			}
			return withDeps(cmd, open, func(ctx context.Context, deps *Deps) error {
				if deps.Credentials == nil {
					return errNoDatabase
				}
				props := map[string]any{"updated_by": "vidictl"}
				if err := deps.Credentials.SetToken(ctx, provider, key, props); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s key stored\n", provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "kie", "provider name")
	cmd.Flags().StringVar(&key, "key", "", "API key (defaults to <PROVIDER>_API_KEY)")

	return cmd
}

func buildMigrateCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(ctx context.Context, deps *Deps) error {
				if deps.Migrate == nil {
					return errNoDatabase
				}
				applied, err := deps.Migrate(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
					return nil
				}
				for _, v := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
				}
				return nil
			})
		},
	}
}
