package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/analysis"
	"github.com/MaStr/pv-bat-simulator/internal/config"
	"github.com/MaStr/pv-bat-simulator/internal/data"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compute":
		cmdCompute(os.Args[2:])
	case "compare":
		cmdCompare(os.Args[2:])
	case "prices":
		cmdPrices(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli compute --config examples/scenario.yaml --out results/ledger.csv [--model 3]")
	fmt.Println("  cli compare --config examples/scenario.yaml")
	fmt.Println("  cli prices --date 2024-06-03 [--market de]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - compute writes one CSV row per hour with action=CHARGING/IDLE/DISCHARGING and the inverter mode")
	fmt.Println("  - compare runs every model the scenario has prices for and ranks them by cost")
}

func cmdCompute(args []string) {
	fs := flag.NewFlagSet("compute", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to scenario YAML")
	outPath := fs.String("out", "results/ledger.csv", "Output CSV path")
	modelFlag := fs.Int("model", 0, "Optional: override the scenario's model (1-4)")
	debug := fs.Bool("debug", false, "Log every hourly decision")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	req := loadRequest(*cfgPath, *modelFlag)
	tr, err := dispatch.New().Run(context.Background(), req)
	if err != nil {
		log.Fatal().Err(err).Msg("computation failed")
	}

	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output directory")
	}
	if err := dispatch.WriteLedgerCSV(*outPath, tr); err != nil {
		log.Fatal().Err(err).Msg("write ledger")
	}

	fmt.Printf("Wrote %d rows to %s\n", len(tr.Steps), *outPath)
	fmt.Printf("Model %d (%s): total cost=%.2f EUR grid=%.2f kWh weighted price=%.4f EUR/kWh\n",
		int(tr.Model), tr.Model, tr.TotalCost(), tr.TotalGridKWh(), tr.WeightedPrice())
	if tr.Model == dispatch.ModelOptimizer {
		fmt.Printf("Optimizer status: %s\n", tr.Status)
	}
}

func cmdCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to scenario YAML")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	req := loadRequest(*cfgPath, 0)
	cmp, err := analysis.Compare(context.Background(), dispatch.New(), req)
	if err != nil {
		log.Fatal().Err(err).Msg("comparison failed")
	}

	fmt.Printf("%-4s %-6s %-16s %-10s %-10s %-12s\n", "rank", "model", "name", "cost€", "grid kWh", "€/kWh")
	for i, o := range cmp.Outcomes {
		if o.Failed() {
			fmt.Printf("%-4d %-6d %-16s %s\n", i+1, int(o.Model), o.Model, o.Err)
			continue
		}
		fmt.Printf("%-4d %-6d %-16s %-10.2f %-10.2f %-12.4f\n",
			i+1, int(o.Model), o.Model, o.Trace.TotalCost(), o.Trace.TotalGridKWh(), o.Trace.WeightedPrice())
	}
	if cmp.Prices != nil {
		printStats(*cmp.Prices)
	}
}

func cmdPrices(args []string) {
	fs := flag.NewFlagSet("prices", flag.ExitOnError)
	date := fs.String("date", "", "Day to fetch (YYYY-MM-DD)")
	market := fs.String("market", data.DefaultMarket, "Market (de or at)")
	tz := fs.String("timezone", "Europe/Berlin", "Timezone of the day")
	_ = fs.Parse(args)

	if *date == "" {
		fmt.Println("--date is required")
		os.Exit(2)
	}
	if _, ok := data.Markets[*market]; !ok {
		fmt.Printf("unknown market %q\n", *market)
		os.Exit(2)
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}
	day, err := time.ParseInLocation("2006-01-02", *date, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("parse date")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	prices, err := data.NewAwattarClient(*market, "", nil).DayAhead(ctx, day)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch prices")
	}

	for h, p := range prices {
		fmt.Printf("%02d:00 %.4f\n", h, p)
	}
	printStats(analysis.PriceStats(prices))
}

// loadRequest reads a scenario and any series files it references.
func loadRequest(path string, modelOverride int) dispatch.Request {
	sc, err := config.LoadUnchecked(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("load scenario")
	}
	if modelOverride != 0 {
		sc.Model = modelOverride
	}
	if err := sc.Validate(); err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("invalid scenario")
	}

	sc.Consumption = fromFile(sc.Consumption, sc.ConsumptionFile)
	sc.Production = fromFile(sc.Production, sc.ProductionFile)
	sc.Prices.Hourly = fromFile(sc.Prices.Hourly, sc.Prices.HourlyFile)

	req, err := sc.Request()
	if err != nil {
		log.Fatal().Err(err).Msg("build request")
	}
	return req
}

// fromFile returns the inline series, or loads path when one is given.
func fromFile(inline []float64, path string) []float64 {
	if path == "" {
		return inline
	}
	s, err := data.LoadSeriesFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("load series")
	}
	return []float64(s)
}

func printStats(st analysis.Stats) {
	fmt.Println("")
	fmt.Printf("prices: min=%.4f (%02d:00) max=%.4f (%02d:00) mean=%.4f p05=%.4f p95=%.4f spread=%.4f\n",
		st.Min, st.CheapestHour, st.Max, st.PeakHour, st.Mean, st.P05, st.P95, st.SpreadP95P05)
	fmt.Printf("arbitrage of a 1 kWh store: %.4f EUR\n", st.Arbitrage)
}
