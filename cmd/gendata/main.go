// Command gendata writes a synthetic daily feature CSV suitable for
// training and scoring runs. Prices follow geometric Brownian motion
// with mean reversion, and a small fraction of days carry an injected
// shock that is labeled as an anomaly.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"market-anomaly/internal/features"
	"market-anomaly/internal/frame"
)

func main() {
	var (
		output     = flag.String("output", "sample_features.csv", "Output CSV path")
		days       = flag.Int("days", 500, "Number of trading days to generate")
		startPrice = flag.Float64("start-price", 50000, "Starting price")
		shockProb  = flag.Float64("shock-prob", 0.03, "Probability of an anomalous shock day")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating %d days of synthetic features...\n", *days)
	fmt.Printf("  Start Price: $%.2f\n", *startPrice)
	fmt.Printf("  Shock Probability: %.1f%%\n", *shockProb*100)

	table, shocks := generate(*days, *startPrice, *shockProb, rand.New(rand.NewSource(*seed)))

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	if err := frame.WriteCSV(f, table); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}

	fmt.Printf("✓ Wrote %d rows (%d shock days) to %s\n", table.Len(), shocks, *output)
}

func generate(days int, startPrice, shockProb float64, rng *rand.Rand) (*frame.Table, int) {
	volatility := 0.02
	trendStrength := 0.0003
	meanReversionStrength := 0.05

	dates := make([]time.Time, days)
	prices := make([]float64, days)
	volumes := make([]float64, days)
	shockDay := make([]bool, days)

	day := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	price := startPrice
	shocks := 0

	for i := 0; i < days; i++ {
		// Skip weekends so the index looks like a trading calendar.
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		dates[i] = day
		day = day.AddDate(0, 0, 1)

		trendPrice := startPrice * (1 + trendStrength*float64(i))
		meanReversion := meanReversionStrength * (trendPrice - price) / startPrice
		dW := rng.NormFloat64()
		price += price * (meanReversion/252 + volatility*dW)

		volume := 1000 + rng.Float64()*400

		if rng.Float64() < shockProb {
			// Shock days move hard on heavy volume.
			direction := 1.0
			if rng.Float64() < 0.7 {
				direction = -1
			}
			price *= 1 + direction*(0.08+rng.Float64()*0.10)
			volume *= 4 + rng.Float64()*4
			shockDay[i] = true
			shocks++
		}

		if price < 100 {
			price = 100
		}
		prices[i] = price
		volumes[i] = volume
	}

	table := features.Compute(dates, prices, volumes)

	label := make([]frame.Value, days)
	for i := range label {
		if shockDay[i] {
			label[i] = frame.Num(1)
		} else {
			label[i] = frame.Num(0)
		}
	}
	if err := table.SetColumn("anomaly", label); err != nil {
		log.Fatalf("Failed to set label column: %v", err)
	}
	return table, shocks
}
