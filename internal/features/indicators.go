// Package features derives the daily indicator columns from a raw
// price and volume series. Warm-up rows that lack enough history for a
// window are left missing rather than backfilled.
package features

import (
	"math"
	"time"

	"market-anomaly/internal/frame"
)

const (
	volatilityWindow = 20
	rsiWindow        = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	volumeWindow     = 20
	bollingerWindow  = 20
)

// Returns computes the simple day-over-day return. The first element is NaN.
func Returns(prices []float64) []float64 {
	out := nanSlice(len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i] = prices[i]/prices[i-1] - 1
		}
	}
	return out
}

// LogReturns computes ln(p_t / p_{t-1}). The first element is NaN.
func LogReturns(prices []float64) []float64 {
	out := nanSlice(len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			out[i] = math.Log(prices[i] / prices[i-1])
		}
	}
	return out
}

// RollingStd computes the rolling standard deviation over the window.
func RollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		var sum, sumSq float64
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
			sumSq += values[j] * values[j]
		}
		if !valid {
			continue
		}
		mean := sum / float64(window)
		variance := sumSq/float64(window) - mean*mean
		if variance > 0 {
			out[i] = math.Sqrt(variance)
		} else {
			out[i] = 0
		}
	}
	return out
}

// RSI computes Wilder's relative strength index on closing prices.
func RSI(prices []float64, window int) []float64 {
	out := nanSlice(len(prices))
	if len(prices) <= window {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)
	for i := window + 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line and its difference from the signal line.
func MACD(prices []float64) (macd, diff []float64) {
	fast := ema(prices, macdFast)
	slow := ema(prices, macdSlow)
	macd = nanSlice(len(prices))
	for i := range prices {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			macd[i] = fast[i] - slow[i]
		}
	}
	signal := ema(macd, macdSignal)
	diff = nanSlice(len(prices))
	for i := range prices {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signal[i]) {
			diff[i] = macd[i] - signal[i]
		}
	}
	return macd, diff
}

func ema(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	alpha := 2.0 / float64(window+1)
	started := false
	var prev float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if !started {
			prev = v
			started = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RelativeVolume divides each day's volume by its rolling average.
func RelativeVolume(volumes []float64, window int) []float64 {
	out := nanSlice(len(volumes))
	for i := window - 1; i < len(volumes); i++ {
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += volumes[j]
		}
		mean := sum / float64(window)
		if mean > 0 {
			out[i] = volumes[i] / mean
		}
	}
	return out
}

// BollingerWidth computes the normalized band width (4 sigma over the
// rolling mean) for the window.
func BollingerWidth(prices []float64, window int) []float64 {
	out := nanSlice(len(prices))
	std := RollingStd(prices, window)
	for i := window - 1; i < len(prices); i++ {
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += prices[j]
		}
		mean := sum / float64(window)
		if mean > 0 && !math.IsNaN(std[i]) {
			out[i] = 4 * std[i] / mean
		}
	}
	return out
}

// Compute builds a feature table from aligned date, price and volume
// series. Column names match the scoring vocabulary.
func Compute(dates []time.Time, prices, volumes []float64) *frame.Table {
	t := frame.New(dates)
	ret := Returns(prices)
	macd, macdDiff := MACD(prices)

	setColumn(t, "return", ret)
	setColumn(t, "volatility", RollingStd(ret, volatilityWindow))
	setColumn(t, "rsi", RSI(prices, rsiWindow))
	setColumn(t, "macd", macd)
	setColumn(t, "macd_diff", macdDiff)
	setColumn(t, "relative_volume", RelativeVolume(volumes, volumeWindow))
	setColumn(t, "bollinger_band_width", BollingerWidth(prices, bollingerWindow))
	setColumn(t, "log_return", LogReturns(prices))
	return t
}

func setColumn(t *frame.Table, name string, values []float64) {
	col := make([]frame.Value, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			col[i] = frame.Missing()
		} else {
			col[i] = frame.Num(v)
		}
	}
	t.SetColumn(name, col)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
