package storage

import (
	"market-anomaly/internal/engine"
	"market-anomaly/internal/frame"
)

// StoreScoredTable journals every row of a scored table that carries a
// usable probability, and additionally records rows predicted anomalous
// as events. Returns the number of score records written.
func (s *Store) StoreScoredTable(symbol string, t *frame.Table) (int, error) {
	var stored int
	for row, date := range t.Index() {
		prob, ok := cellFloat(t, row, engine.ColProbability)
		if !ok {
			continue
		}
		pred, _ := cellFloat(t, row, engine.ColPrediction)
		sev, _ := cellFloat(t, row, engine.ColSeverity)
		ret, _ := cellFloat(t, row, "return")

		rec := ScoreRecord{
			Symbol:      symbol,
			Date:        date,
			Probability: prob,
			Prediction:  int(pred),
			Severity:    sev,
			Return:      ret,
		}
		if err := s.StoreScore(rec); err != nil {
			return stored, err
		}
		stored++

		if rec.Prediction != 1 {
			continue
		}
		relVol, _ := cellFloat(t, row, "relative_volume")
		ev := EventRecord{
			Symbol:         symbol,
			Date:           date,
			Return:         ret,
			RelativeVolume: relVol,
			Severity:       sev,
		}
		if err := s.StoreEvent(ev); err != nil {
			return stored, err
		}
	}
	return stored, nil
}

func cellFloat(t *frame.Table, row int, name string) (float64, bool) {
	cell, ok := t.Cell(row, name)
	if !ok {
		return 0, false
	}
	return cell.Float()
}
