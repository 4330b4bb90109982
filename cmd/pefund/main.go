package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"pefund/internal/config"
	"pefund/internal/game"
	"pefund/internal/stochastic"
	"pefund/internal/store"

	"github.com/spf13/cobra"
)

type app struct {
	cfg   config.AppConfig
	log   *slog.Logger
	store store.Store
	slot  string
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:          "pefund",
		Short:        "Run a private-equity fund, one quarter at a time",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.slot, "slot", "main", "save slot to play")

	root.AddCommand(
		newNewCmd(a),
		newStatusCmd(a),
		newMarketCmd(a),
		newDealsCmd(a),
		newBuyCmd(a),
		newSellCmd(a),
		newOperateCmd(a),
		newDebtCmd(a),
		newAdvanceCmd(a),
		newAutoplayCmd(a),
		newSavesCmd(a),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.store = st
	return nil
}

func (a *app) options() game.Options {
	return game.Options{
		Source: stochastic.New(a.cfg.Seed),
		Tables: game.LoadTables(a.cfg.NarrativesPath, a.log),
		Logger: a.log,
	}
}

func (a *app) load(ctx context.Context) (*game.Session, error) {
	snap, err := a.store.Load(ctx, a.slot)
	if errors.Is(err, store.ErrSlotNotFound) {
		return nil, fmt.Errorf("no game in slot %q, start one with `pefund new`", a.slot)
	}
	if err != nil {
		return nil, err
	}
	return store.Restore(snap, a.options())
}

func (a *app) save(ctx context.Context, sess *game.Session) error {
	return a.store.Save(ctx, a.slot, store.Capture(sess))
}

// play loads the slot, runs fn and saves whatever state fn left behind, even
// when fn fails part way through an interactive flow.
func (a *app) play(ctx context.Context, fn func(*game.Session) error) error {
	sess, err := a.load(ctx)
	if err != nil {
		return err
	}
	runErr := fn(sess)
	if err := a.save(ctx, sess); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func newNewCmd(a *app) *cobra.Command {
	var (
		difficulty string
		quarters   int
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new fund in the current slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !force {
				if _, err := a.store.Load(ctx, a.slot); err == nil {
					return fmt.Errorf("slot %q already holds a game, pass --force to replace it", a.slot)
				}
			}
			cfg := a.cfg
			if difficulty != "" {
				cfg.Difficulty = difficulty
			}
			if quarters > 0 {
				cfg.GameQuarters = quarters
			}
			rules, err := cfg.Rules()
			if err != nil {
				return err
			}
			sess := game.NewSession(rules, a.options())
			if err := a.save(ctx, sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("New %s fund in slot %q: %s starting capital, %d quarters.",
				rules.Difficulty, a.slot, money(rules.StartingCapital), rules.GameQuarters))
			renderStatus(sess)
			return nil
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, normal or hard")
	cmd.Flags().IntVar(&quarters, "quarters", 0, "game length in quarters")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing game")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show fund and portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			renderStatus(sess)
			return nil
		},
	}
}

func newMarketCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show market conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			renderMarket(sess.Market)
			return nil
		},
	}
}

func newDealsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deals",
		Short: "List acquisition targets for this quarter",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			renderDeals(sess)
			return nil
		},
	}
}

func newBuyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [deal #]",
		Short: "Negotiate an acquisition from the deal pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				if len(sess.DealPool) == 0 {
					printInfo("No deals available this quarter.")
					return nil
				}
				renderDeals(sess)
				idx, err := indexFromArgOrPrompt(args, "Deal #", len(sess.DealPool))
				if err != nil {
					return err
				}
				d, err := sess.OpenAcquisition(sess.DealPool[idx].ID)
				if err != nil {
					return err
				}
				return negotiate(sess, d)
			})
		},
	}
}

func newSellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [holding #]",
		Short: "Negotiate the exit of a portfolio company",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				c, err := pickHolding(sess, args)
				if err != nil || c == nil {
					return err
				}
				d, err := sess.OpenExit(c.ID)
				if err != nil {
					return err
				}
				return negotiate(sess, d)
			})
		},
	}
}

// negotiate drives one deal until it closes.
func negotiate(sess *game.Session, d *game.Deal) error {
	renderDealOpen(sess, d)
	for !d.Closed() {
		action, err := promptChoice("Action", []string{"offer", "accept", "walk"}, "offer")
		if err != nil {
			return err
		}
		var out game.Settlement
		switch action {
		case "offer":
			price, err := promptMoney("Your price")
			if err != nil {
				return err
			}
			out, err = sess.Offer(d.ID, price)
			if errors.Is(err, game.ErrInsufficientFunds) || errors.Is(err, game.ErrInvalidAmount) {
				printWarn(err.Error())
				continue
			}
			if err != nil {
				return err
			}
		case "accept":
			out, err = sess.AcceptAsking(d.ID)
			if errors.Is(err, game.ErrInsufficientFunds) {
				printWarn(err.Error())
				continue
			}
			if err != nil {
				return err
			}
		case "walk":
			if out, err = sess.WalkAway(d.ID); err != nil {
				return err
			}
		}
		renderSettlement(out)
	}
	return nil
}

func pickHolding(sess *game.Session, args []string) (*game.Company, error) {
	if len(sess.Player.Portfolio) == 0 {
		printInfo("The portfolio is empty.")
		return nil, nil
	}
	renderPortfolio(sess)
	idx, err := indexFromArgOrPrompt(args, "Holding #", len(sess.Player.Portfolio))
	if err != nil {
		return nil, err
	}
	return sess.Player.Portfolio[idx], nil
}

func newOperateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "operate [holding #] [cut|invest|replace|strategy]",
		Short: "Run one operation on a portfolio company",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				c, err := pickHolding(sess, args)
				if err != nil || c == nil {
					return err
				}
				if !c.CanOperate(sess.Clock.Quarter) {
					printWarn(fmt.Sprintf("%s was already operated on this quarter.", c.Name))
					return nil
				}
				var op string
				if len(args) > 1 {
					op = strings.ToLower(strings.TrimSpace(args[1]))
				} else if op, err = promptChoice("Operation", []string{"cut", "invest", "replace", "strategy"}, "cut"); err != nil {
					return err
				}
				res, err := runOperation(sess, c, op)
				if err != nil {
					return err
				}
				renderOperation(res)
				return nil
			})
		},
	}
}

func runOperation(sess *game.Session, c *game.Company, op string) (game.OperationResult, error) {
	switch op {
	case "cut":
		intensity, err := promptFraction("Intensity (0-1)")
		if err != nil {
			return game.OperationResult{}, err
		}
		return sess.CutCosts(c.ID, intensity)
	case "invest":
		amount, err := promptMoney("Amount")
		if err != nil {
			return game.OperationResult{}, err
		}
		return sess.Invest(c.ID, amount)
	case "replace":
		candidates, err := sess.ManagerCandidates(c.ID, 3)
		if err != nil {
			return game.OperationResult{}, err
		}
		if len(candidates) == 0 {
			return game.OperationResult{}, fmt.Errorf("no candidates improve on %s", c.Manager.Name)
		}
		renderCandidates(c.Manager, candidates)
		idx, err := indexFromArgOrPrompt(nil, "Candidate #", len(candidates))
		if err != nil {
			return game.OperationResult{}, err
		}
		return sess.ReplaceManager(c.ID, idx)
	case "strategy":
		choice, err := promptChoice("Strategy", []string{"roll_up", "expand", "diversify"}, "expand")
		if err != nil {
			return game.OperationResult{}, err
		}
		strategy, err := game.ParseStrategy(choice)
		if err != nil {
			return game.OperationResult{}, err
		}
		return sess.PursueStrategy(c.ID, strategy)
	default:
		return game.OperationResult{}, fmt.Errorf("unknown operation %q", op)
	}
}

func newDebtCmd(a *app) *cobra.Command {
	debt := &cobra.Command{
		Use:   "debt",
		Short: "Draw or repay fund debt",
	}
	debt.AddCommand(&cobra.Command{
		Use:   "take [amount]",
		Short: "Draw on the credit line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				amount, err := moneyFromArgOrPrompt(args, "Amount")
				if err != nil {
					return err
				}
				if err := sess.TakeDebt(amount); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Drew %s. Debt %s of %s capacity.",
					money(amount), money(sess.Player.CurrentDebt), money(sess.Player.DebtCapacity())))
				return nil
			})
		},
	})
	debt.AddCommand(&cobra.Command{
		Use:   "repay [amount]",
		Short: "Repay outstanding debt from cash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				amount, err := moneyFromArgOrPrompt(args, "Amount")
				if err != nil {
					return err
				}
				if err := sess.RepayDebt(amount); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Repaid %s. Debt now %s.", money(amount), money(sess.Player.CurrentDebt)))
				return nil
			})
		},
	})
	return debt
}

func newAdvanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Close the quarter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				report, err := sess.AdvanceQuarter(promptResponse)
				if err != nil {
					return err
				}
				renderReport(report)
				if report.GameOver {
					renderSummary(sess.Summary())
				}
				return nil
			})
		},
	}
}

func newAutoplayCmd(a *app) *cobra.Command {
	var quarters int
	cmd := &cobra.Command{
		Use:   "autoplay",
		Short: "Advance several quarters without prompting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), func(sess *game.Session) error {
				for i := 0; i < quarters && !sess.Clock.GameOver(); i++ {
					report, err := sess.AdvanceQuarter(nil)
					if err != nil {
						return err
					}
					renderReportLine(report)
				}
				if sess.Clock.GameOver() {
					renderSummary(sess.Summary())
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&quarters, "quarters", 4, "quarters to advance")
	return cmd
}

func newSavesCmd(a *app) *cobra.Command {
	saves := &cobra.Command{
		Use:   "saves",
		Short: "Manage save slots",
	}
	saves.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			renderSaves(list)
			return nil
		},
	})
	saves.AddCommand(&cobra.Command{
		Use:   "delete <slot>",
		Short: "Delete a save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Deleted slot %q.", args[0]))
			return nil
		},
	})
	saves.AddCommand(&cobra.Command{
		Use:   "copy <to>",
		Short: "Copy the current slot to another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.store.Load(cmd.Context(), a.slot)
			if err != nil {
				return err
			}
			if err := a.store.Save(cmd.Context(), args[0], snap); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Copied %q to %q.", a.slot, args[0]))
			return nil
		},
	})
	return saves
}

func indexFromArgOrPrompt(args []string, label string, n int) (int, error) {
	if len(args) > 0 {
		v, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil || v < 1 || v > n {
			return 0, fmt.Errorf("invalid %s, pick 1-%d", strings.ToLower(label), n)
		}
		return v - 1, nil
	}
	v, err := promptIndex(label, n)
	if err != nil {
		return 0, err
	}
	return v - 1, nil
}

func moneyFromArgOrPrompt(args []string, label string) (float64, error) {
	if len(args) > 0 {
		v, err := parseMoney(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", strings.ToLower(label), err)
		}
		return v, nil
	}
	return promptMoney(label)
}
