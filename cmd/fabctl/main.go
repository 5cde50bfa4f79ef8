package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "fabrik/internal/cli"
	"fabrik/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	var userID, guildID string

	root := &cobra.Command{
		Use:          "fabctl",
		Short:        "Fabrik economy client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")
	root.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("FABCTL_USER_ID"), "account user id")
	root.PersistentFlags().StringVarP(&guildID, "guild", "g", os.Getenv("FABCTL_GUILD_ID"), "guild scope (optional)")

	root.AddCommand(
		newEnsureCmd(&apiBase, &userID, &guildID),
		newBalanceCmd(&apiBase, &userID, &guildID),
		newWorkCmd(&apiBase, &userID, &guildID),
		newDailyCmd(&apiBase, &userID, &guildID),
		newDepositCmd(&apiBase, &userID, &guildID),
		newWithdrawCmd(&apiBase, &userID, &guildID),
		newTransferCmd(&apiBase, &userID, &guildID),
		newFabricCmd(&apiBase, &userID, &guildID),
		newLeaderboardCmd(&apiBase, &guildID),
		newStoreCmd(&apiBase, &userID, &guildID),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireUser(userID *string) (string, error) {
	id := strings.TrimSpace(*userID)
	if id == "" {
		return "", fmt.Errorf("user id required: pass --user or set FABCTL_USER_ID")
	}
	return id, nil
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func parseAmount(arg string) (int64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("amount must be a positive integer, got %q", arg)
	}
	return amount, nil
}

func newEnsureCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create the account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Ensure(ctx, id, *guildID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Account ready for %s.", id))
			return renderAccount(out)
		},
	}
}

func newBalanceCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:     "balance",
		Short:   "Show wallet, bank, and inventory",
		Aliases: []string{"bal"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Account(ctx, id, *guildID)
			if err != nil {
				return err
			}
			return renderAccount(out)
		},
	}
}

func newWorkCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "work",
		Short: "Work a shift for wallet money",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Work(ctx, id, *guildID, uuid.NewString())
			if err != nil {
				return err
			}
			return renderGrant("Worked a shift", out)
		},
	}
}

func newDailyCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Claim the daily reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Daily(ctx, id, *guildID, uuid.NewString())
			if err != nil {
				return err
			}
			return renderGrant("Claimed daily reward", out)
		},
	}
}

func newDepositCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Move money from wallet to bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Deposit(ctx, id, *guildID, amount, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Deposited %d.", amount))
			return renderAccount(out)
		},
	}
}

func newWithdrawCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw AMOUNT",
		Short: "Move money from bank to wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Withdraw(ctx, id, *guildID, amount, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Withdrew %d.", amount))
			return renderAccount(out)
		},
	}
}

func newTransferCmd(apiBase, userID, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer AMOUNT TO_USER",
		Short: "Send wallet money to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			to := strings.TrimSpace(args[1])
			if to == "" {
				return fmt.Errorf("recipient user id required")
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Transfer(ctx, amount, id, to, *guildID, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sent %d to %s.", amount, to))
			return renderAccount(out)
		},
	}
}

func newFabricCmd(apiBase, userID, guildID *string) *cobra.Command {
	fabric := &cobra.Command{
		Use:   "fabric",
		Short: "Production fabric commands",
	}

	fabric.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the fabric and its derived economics",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Fabric(ctx, id, *guildID)
			if err != nil {
				return err
			}
			return renderFabric(out)
		},
	})

	action := func(use, short, path, done string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := requireUser(userID)
				if err != nil {
					return err
				}
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := newClient(apiBase).FabricAction(ctx, id, *guildID, path, uuid.NewString())
				if err != nil {
					return err
				}
				printSuccess(done)
				return renderFabric(out)
			},
		}
	}
	fabric.AddCommand(action("collect", "Collect accumulated production income", "collect", "Collected."))
	fabric.AddCommand(action("hire", "Hire one employee", "hire", "Hired."))
	fabric.AddCommand(action("pay", "Settle an overdue maintenance payment", "pay", "Paid."))
	fabric.AddCommand(action("reset", "Reset the fabric to its starting state", "reset", "Fabric reset."))

	fabric.AddCommand(&cobra.Command{
		Use:   "sell PERCENTAGE",
		Short: "Sell the fabric for a percentage of its valuation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			pct, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || pct < 1 || pct > 100 {
				return fmt.Errorf("percentage must be between 1 and 100, got %q", args[0])
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).SellFabric(ctx, id, *guildID, pct, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sold %d%% of the fabric.", pct))
			return renderFabric(out)
		},
	})

	return fabric
}

func newLeaderboardCmd(apiBase, guildID *string) *cobra.Command {
	var limit int
	var cached bool
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Short:   "Show the richest accounts by bank balance",
		Aliases: []string{"lb", "top"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, *guildID, limit, cached)
			if err != nil {
				return err
			}
			return renderLeaderboard(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	cmd.Flags().BoolVar(&cached, "cached", false, "serve from the worker's snapshot when available")
	return cmd
}

func newStoreCmd(apiBase, userID, guildID *string) *cobra.Command {
	store := &cobra.Command{
		Use:   "store",
		Short: "Item store commands",
	}

	store.AddCommand(&cobra.Command{
		Use:   "items",
		Short: "List items for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).StoreItems(ctx)
			if err != nil {
				return err
			}
			return renderItems(out)
		},
	})

	store.AddCommand(&cobra.Command{
		Use:   "buy ITEM_ID",
		Short: "Buy an item with wallet money",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireUser(userID)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Buy(ctx, id, *guildID, strings.TrimSpace(args[0]), uuid.NewString())
			if err != nil {
				return err
			}
			return renderReceipt(out)
		},
	})

	return store
}
