package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/cli/styles"
	"github.com/AshkanYarmoradi/go-stoat/examples/bankaccount"
)

// accountCommandOptions holds flags shared by the account subcommands.
type accountCommandOptions struct {
	*globalOptions
	showMetrics bool
}

func newAccountCommand(global *globalOptions) *cobra.Command {
	opts := &accountCommandOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Run bank account commands against the configured event stream",
		Long: `Open, credit, debit and inspect event-sourced bank accounts.
Amounts are given in minor units (cents).

Examples:
  stoat account open acc-1
  stoat account credit acc-1 1000
  stoat account debit acc-1 250
  stoat account show acc-1 --events`,
	}

	cmd.PersistentFlags().BoolVar(&opts.showMetrics, "metrics", false, "Print event stream metrics after the command")

	cmd.AddCommand(newAccountOpenCommand(opts))
	cmd.AddCommand(newAccountAmountCommand(opts, "credit", "Pay money into an account",
		func(a *bankaccount.Account, amount int64) error { return a.Credit(amount) }))
	cmd.AddCommand(newAccountAmountCommand(opts, "debit", "Take money out of an account",
		func(a *bankaccount.Account, amount int64) error { return a.Debit(amount) }))
	cmd.AddCommand(newAccountShowCommand(opts))

	return cmd
}

func newAccountOpenCommand(opts *accountCommandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountCommand(cmd, opts, args[0], func(a *bankaccount.Account) error {
				return a.Open()
			}, "Opened account "+args[0])
		},
	}
}

func newAccountAmountCommand(opts *accountCommandOptions, use, short string, apply func(*bankaccount.Account, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: must be a whole number of minor units", args[1])
			}

			done := fmt.Sprintf("%s %s on account %s", capitalize(use)+"ed", styles.FormatAmount(amount), args[0])
			return runAccountCommand(cmd, opts, args[0], func(a *bankaccount.Account) error {
				return apply(a, amount)
			}, done)
		},
	}
}

func newAccountShowCommand(opts *accountCommandOptions) *cobra.Command {
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an account's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			ctx := commandContext(cmd)
			rt, err := newAccountRuntime(ctx, opts.globalOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.close()

			account, err := rt.repo.Get(ctx, args[0])
			if err != nil {
				return err
			}

			printAccount(out, account)
			if showEvents {
				if err := printEvents(out, account.CommittedEvents()); err != nil {
					return err
				}
			}
			return finishAccountCommand(out, opts, rt)
		},
	}

	cmd.Flags().BoolVarP(&showEvents, "events", "e", false, "List the account's events")

	return cmd
}

// runAccountCommand loads the account, runs fn and saves the new events.
// It never retries; a conflict is reported so the caller can run again.
func runAccountCommand(cmd *cobra.Command, opts *accountCommandOptions, id string, fn func(*bankaccount.Account) error, done string) error {
	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)

	rt, err := newAccountRuntime(ctx, opts.globalOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.close()

	account, err := rt.repo.Process(ctx, id, fn)
	if err != nil {
		if errors.Is(err, stoat.ErrConcurrencyConflict) {
			return fmt.Errorf("account %s was changed concurrently, run the command again: %w", id, err)
		}
		if errors.Is(err, stoat.ErrWriteOutcomeUnknown) {
			return fmt.Errorf("account %s may or may not have been updated, check with 'stoat account show %s': %w", id, id, err)
		}
		return err
	}

	fmt.Fprintln(out, styles.FormatSuccess(done))
	printAccount(out, account)
	return finishAccountCommand(out, opts, rt)
}

func printAccount(out io.Writer, a *bankaccount.Account) {
	status := "not opened"
	if a.Opened {
		status = "open"
	}

	fmt.Fprintln(out, styles.FormatKeyValue("Account", a.AggregateID()))
	fmt.Fprintln(out, styles.FormatKeyValue("Status", status))
	fmt.Fprintln(out, styles.FormatKeyValue("Balance", styles.FormatAmount(a.Balance)))
	fmt.Fprintln(out, styles.FormatKeyValue("Version", fmt.Sprint(a.ConcurrencyToken())))
}

func printEvents(out io.Writer, events []stoat.Event) error {
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Title.Render(styles.IconStream+" Events"))
	if len(events) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("  (none)"))
		return nil
	}

	for i, e := range events {
		payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to render event %d: %w", i+1, err)
		}
		fmt.Fprintln(out, styles.FormatEvent(i+1, e.EventType(), string(payload)))
	}
	return nil
}

func finishAccountCommand(out io.Writer, opts *accountCommandOptions, rt *accountRuntime) error {
	if !opts.showMetrics {
		return nil
	}

	counters, err := rt.counters()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Title.Render("Metrics"))
	for _, k := range keys {
		fmt.Fprintln(out, styles.Indent.Render(k+" "+strconv.FormatFloat(counters[k], 'f', -1, 64)))
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
