// Command tenderctl ranks the bids of an exported tender and prints the
// leaderboard.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		color.Red("load .env: %v", err)
		os.Exit(1)
	}
	if err := run(os.Args[1:], os.Stdout); err != nil {
		color.Red("tenderctl: %v", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fl := flag.NewFlagSet("tenderctl", flag.ContinueOnError)
	fl.SetOutput(out)
	var (
		path  = fl.String("fixture", os.Getenv("TENDER_FIXTURE"), "Path to a tender JSON export")
		clamp = fl.Bool("clamp", os.Getenv("TENDER_CLAMP_SCORES") == "true", "Clamp input scores to [0,100]")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("a -fixture path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	tender, bids, err := loadFixture(f)
	if err != nil {
		return err
	}

	agg, err := scoring.NewWeightedSumAggregator(scoring.AggregatorConfig{ClampScores: *clamp})
	if err != nil {
		return err
	}
	ranker, err := scoring.NewRanker(agg)
	if err != nil {
		return err
	}
	printLeaderboard(out, tender, ranker.Rank(bids, tender.Criteria))

	if err := domain.CheckWeights(tender.ID, tender.Criteria); err != nil {
		fmt.Fprintln(out, color.YellowString("warning: %v", err))
	}
	return nil
}

func printLeaderboard(out io.Writer, tender domain.Tender, ranking scoring.Ranking) {
	fmt.Fprintln(out, color.CyanString("\n%s (%s)", tender.Title, tender.ID))
	policy := "manual shortlisting"
	if tender.ShortlistAutomatically {
		policy = fmt.Sprintf("auto-shortlist at %.1f", tender.ShortlistThreshold)
	}
	fmt.Fprintln(out, policy)

	above := color.New(color.FgGreen).SprintFunc()

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Rank", "Bid", "Bidder", "Status", "Bidder pts", "Evaluator pts", "Total"})
	for i, b := range ranking.Bids {
		bd := ranking.Breakdowns[b.ID]
		total := strconv.FormatFloat(bd.Total, 'f', 2, 64)
		if scoring.ShouldAutoShortlist(bd.Total, tender.ShortlistThreshold, tender.ShortlistAutomatically) {
			total = above(total)
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			b.ID,
			b.BidderID,
			string(b.Status),
			strconv.FormatFloat(bd.Bidder, 'f', 2, 64),
			strconv.FormatFloat(bd.Evaluator, 'f', 2, 64),
			total,
		})
	}
	table.Render()
}
