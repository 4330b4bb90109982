package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"pefund/internal/game"
	"pefund/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptMoney(label string) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := parseMoney(text)
		if err != nil {
			printWarn("Enter an amount like 2500000, 2.5m or 1b.")
			continue
		}
		return v, nil
	}
}

func promptFraction(label string) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v < 0 || v > 1 {
			printWarn("Enter a number between 0 and 1.")
			continue
		}
		return v, nil
	}
}

func promptIndex(label string, n int) (int, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(text)
		if err != nil || v < 1 || v > n {
			printWarn(fmt.Sprintf("Pick a number from 1 to %d.", n))
			continue
		}
		return v, nil
	}
}

// promptResponse asks how to handle company events. Market events are only
// reported.
func promptResponse(e game.Event) game.Response {
	warn.Printf("\n!! %s\n", e.Headline)
	if e.Effect == nil {
		return game.ResponseMonitor
	}
	if e.OneTimeCost > 0 {
		fmt.Printf("One-time cost: %s\n", money(e.OneTimeCost))
	}
	choice, err := promptChoice("Response", []string{"monitor", "immediate"}, "monitor")
	if err != nil {
		return game.ResponseMonitor
	}
	return game.Response(choice)
}

var moneySuffixes = map[string]float64{"k": 1e3, "m": 1e6, "b": 1e9}

// parseMoney accepts plain numbers, thousands separators, a leading $ and a
// k/m/b suffix.
func parseMoney(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	mult := 1.0
	if n := len(s); n > 0 {
		if m, ok := moneySuffixes[s[n-1:]]; ok {
			mult = m
			s = s[:n-1]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return v * mult, nil
}

func money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, v/1e6)
	default:
		return sign + "$" + humanize.Commaf(math.Round(v))
	}
}

func signedMoney(v float64) string {
	if v > 0 {
		return "+" + money(v)
	}
	return money(v)
}

func colorizeMoney(v float64) string {
	switch {
	case v > 0:
		return success.Sprint(signedMoney(v))
	case v < 0:
		return danger.Sprint(signedMoney(v))
	default:
		return neutral.Sprint(money(v))
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func colorizePercent(v float64) string {
	s := fmt.Sprintf("%+.1f%%", v*100)
	switch {
	case v > 0:
		return success.Sprint(s)
	case v < 0:
		return danger.Sprint(s)
	default:
		return neutral.Sprint(s)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func renderStatus(sess *game.Session) {
	p := sess.Player
	accent.Printf("\n== FUND (%s of %d quarters) ==\n", sess.Clock.String(), sess.Clock.TotalQuarters)
	fmt.Printf("Cash:               %s\n", money(p.Cash))
	fmt.Printf("Debt:               %s of %s (%s used)\n", money(p.CurrentDebt), money(p.DebtCapacity()), percent(p.DebtUtilization()))
	fmt.Printf("Portfolio Value:    %s\n", money(p.PortfolioValue()))
	fmt.Printf("Net Worth:          %s\n", money(p.NetWorth()))
	fmt.Printf("Available Capital:  %s\n", money(p.AvailableCapital()))
	fmt.Printf("Reputation:         %s\n", percent(p.Reputation))
	fmt.Printf("Taxes Paid:         %s\n", money(p.TotalTaxesPaid))
	fmt.Println()
	renderPortfolio(sess)
}

func renderPortfolio(sess *game.Session) {
	accent.Println("Portfolio")
	if len(sess.Player.Portfolio) == 0 {
		printInfo("No holdings yet.")
		return
	}
	fmt.Printf("%-3s %-26s %-14s %12s %8s %8s %12s %12s %4s\n", "#", "NAME", "SECTOR", "REVENUE", "MARGIN", "HEALTH", "VALUE", "GAIN", "QTRS")
	for i, c := range sess.Player.Portfolio {
		gain := 0.0
		if c.AcquisitionPrice != nil {
			gain = c.CurrentValuation - *c.AcquisitionPrice
		}
		fmt.Printf("%-3d %-26s %-14s %12s %8s %8s %12s %12s %4d\n",
			i+1,
			truncate(c.Name, 26),
			truncate(c.Sector, 14),
			money(c.Revenue),
			percent(c.EBITDAMargin),
			percent(c.OperationalHealth),
			money(c.CurrentValuation),
			colorizeMoney(gain),
			c.HoldingQuarters(sess.Clock.Quarter),
		)
	}
}

func renderMarket(m *game.Market) {
	accent.Printf("\n== MARKET (%s) ==\n", m.Sentiment())
	fmt.Printf("Interest Rate:      %s\n", percent(m.InterestRate))
	fmt.Printf("Debt Rate:          %s\n", percent(m.DebtRate()))
	fmt.Printf("Market Growth:      %s\n", colorizePercent(m.GrowthRate))
	fmt.Printf("Credit Conditions:  %s\n", percent(m.CreditConditions))
	fmt.Printf("Multiple Trend:     %.3fx\n", m.MultipleTrend)
	fmt.Println()
	accent.Println("Sector Multiples")
	sectors := make([]string, 0, len(m.SectorMultiples))
	for s := range m.SectorMultiples {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)
	for _, s := range sectors {
		fmt.Printf("%-16s %6.2fx\n", s, m.SectorMultiples[s])
	}
}

func renderDeals(sess *game.Session) {
	accent.Printf("\n== DEAL POOL (%s) ==\n", sess.Clock.String())
	if len(sess.DealPool) == 0 {
		printInfo("No deals this quarter.")
		return
	}
	fmt.Printf("%-3s %-26s %-14s %12s %8s %8s %12s %-18s\n", "#", "NAME", "SECTOR", "REVENUE", "MARGIN", "GROWTH", "VALUE", "MANAGER")
	for i, c := range sess.DealPool {
		fmt.Printf("%-3d %-26s %-14s %12s %8s %8s %12s %-18s\n",
			i+1,
			truncate(c.Name, 26),
			truncate(c.Sector, 14),
			money(c.Revenue),
			percent(c.EBITDAMargin),
			percent(c.GrowthRate),
			money(c.CurrentValuation),
			truncate(c.Manager.Name, 18),
		)
	}
}

func renderDealOpen(sess *game.Session, d *game.Deal) {
	accent.Printf("\n== %s: %s ==\n", strings.ToUpper(string(d.Kind)), d.Company.Name)
	fmt.Printf("Fair Value:         %s\n", money(d.FairValue))
	fmt.Printf("Asking Price:       %s\n", money(d.AskingPrice))
	fmt.Printf("Counter Rounds:     %d\n", d.MaxCounterOffers)
	if d.Kind == game.DealAcquisition {
		fmt.Printf("Available Capital:  %s\n", money(sess.Player.AvailableCapital()))
		if v, err := sess.DCF(d.Company.ID); err == nil {
			fmt.Printf("DCF Estimate:       %s\n", money(v))
		}
	}
}

func renderSettlement(out game.Settlement) {
	res := out.Result
	switch {
	case res.CounterOffer != nil:
		printInfo(fmt.Sprintf("Counter offer: %s (%d rounds left)", money(*res.CounterOffer), res.RoundsRemaining))
	case out.Acquisition != nil:
		a := out.Acquisition
		printSuccess(fmt.Sprintf("Acquired for %s: %s cash, %s debt.", money(a.Price), money(a.Cash), money(a.DebtUsed)))
	case out.Exit != nil:
		e := out.Exit
		printSuccess(fmt.Sprintf("Sold for %s after %d quarters.", money(e.Price), e.Quarters))
		fmt.Printf("Gain %s, tax %s, proceeds %s, MOIC %.2fx\n", colorizeMoney(e.Gain), money(e.Tax), money(e.Proceeds), e.MOIC)
	case res.Status == game.DealRejected:
		printWarn("No deal.")
	}
}

func renderOperation(res game.OperationResult) {
	printSuccess(res.Message)
	if res.Cost > 0 {
		fmt.Printf("Cost:               %s\n", money(res.Cost))
	}
	if res.RevenueChange != 0 {
		fmt.Printf("Revenue:            %s\n", colorizeMoney(res.RevenueChange))
	}
	if res.MarginChange != 0 {
		fmt.Printf("Margin:             %s\n", colorizePercent(res.MarginChange))
	}
	if res.GrowthChange != 0 {
		fmt.Printf("Growth:             %s\n", colorizePercent(res.GrowthChange))
	}
	if res.HealthChange != 0 {
		fmt.Printf("Health:             %s\n", colorizePercent(res.HealthChange))
	}
	if res.ReputationDelta != 0 {
		fmt.Printf("Reputation:         %s\n", colorizePercent(res.ReputationDelta))
	}
}

func renderCandidates(current game.Manager, candidates []game.Candidate) {
	accent.Printf("\nReplacing %s\n", current)
	for i, c := range candidates {
		fmt.Printf("%d) %s, %s\n", i+1, c.Manager, c.Archetype)
		fmt.Printf("   %s\n", c.Pitch)
		if len(c.Improvements) > 0 {
			fmt.Printf("   %s\n", strings.Join(c.Improvements, "; "))
		}
	}
}

func renderReport(r game.QuarterReport) {
	accent.Printf("\n== %s CLOSED ==\n", strings.ToUpper(r.Label))
	for _, c := range r.Companies {
		fmt.Printf("%-26s growth %s, value %s\n", truncate(c.Name, 26), colorizePercent(c.Performance.Growth), money(c.Valuation))
	}
	if r.Event != nil {
		fmt.Printf("Event:              %s (%s)\n", r.Event.Headline, r.Response)
	}
	if r.InterestPaid > 0 {
		fmt.Printf("Interest Paid:      %s\n", money(r.InterestPaid))
	}
	fmt.Printf("Profit:             %s\n", colorizeMoney(r.Profit))
	fmt.Printf("Net Worth:          %s\n", money(r.NetWorthAfter))
	fmt.Printf("Reputation:         %s (%s)\n", percent(r.Reputation), colorizePercent(r.ReputationChange))
	fmt.Printf("Rates:              %s interest, %s growth, %.3fx trend\n", percent(r.InterestRate), percent(r.MarketGrowth), r.MultipleTrend)
	fmt.Printf("New Deals:          %d\n", r.NewDeals)
}

func renderReportLine(r game.QuarterReport) {
	event := ""
	if r.Event != nil {
		event = "  " + r.Event.Headline
	}
	fmt.Printf("%-14s NW %12s  P/L %s%s\n", r.Label, money(r.NetWorthAfter), colorizeMoney(r.Profit), event)
}

func renderSummary(s game.Summary) {
	accent.Println("\n== FINAL RESULTS ==")
	fmt.Printf("Quarters:           %d\n", s.Quarters)
	fmt.Printf("Starting Capital:   %s\n", money(s.StartingCapital))
	fmt.Printf("Net Worth:          %s\n", money(s.NetWorth))
	fmt.Printf("Total Return:       %s\n", colorizePercent(s.TotalReturn))
	fmt.Printf("Annualized:         %s\n", colorizePercent(s.AnnualReturn))
	fmt.Printf("Deals:              %d bought, %d sold, %d held\n", s.Acquisitions, s.Exits, s.Holdings)
	fmt.Printf("Taxes Paid:         %s\n", money(s.TaxesPaid))
}

func renderSaves(list []store.Meta) {
	accent.Println("\nSave Slots")
	if len(list) == 0 {
		printInfo("No saves yet.")
		return
	}
	fmt.Printf("%-20s %-8s %8s %s\n", "SLOT", "LEVEL", "QUARTER", "SAVED")
	for _, m := range list {
		fmt.Printf("%-20s %-8s %8d %s\n", truncate(m.Slot, 20), m.Difficulty, m.Quarter, humanize.Time(m.SavedAt))
	}
}
