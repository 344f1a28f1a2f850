package dispatch

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"hour",
	"time",
	"consumption_wh",
	"production_wh",
	"grid_wh",
	"discharge_wh",
	"charge_wh",
	"grid_charge_wh",
	"export_wh",
	"stored_wh",
	"soc",
	"price",
	"cost_eur",
	"cum_cost_eur",
	"action",
	"mode",
}

// WriteLedgerCSV writes the trace to path, one row per hour.
func WriteLedgerCSV(path string, tr *Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, tr)
}

func WriteLedger(out io.Writer, tr *Trace) error {
	w := csv.NewWriter(out)
	if err := w.Write(ledgerHeader); err != nil {
		return err
	}

	cum := 0.0
	for _, s := range tr.Steps {
		cum += s.CostEUR
		soc := 0.0
		if tr.CapacityWh > 0 {
			soc = s.StoredWh / tr.CapacityWh
		}
		row := []string{
			strconv.Itoa(s.Hour),
			fmtTime(s.Time),
			fmtFloat(s.ConsumptionWh),
			fmtFloat(s.ProductionWh),
			fmtFloat(s.GridWh),
			fmtFloat(s.DischargeWh),
			fmtFloat(s.ChargeWh),
			fmtFloat(s.GridChargeWh),
			fmtFloat(s.ExportWh),
			fmtFloat(s.StoredWh),
			fmtFloat(soc),
			fmtFloat(s.Price),
			fmtFloat(s.CostEUR),
			fmtFloat(cum),
			string(s.Action()),
			s.Mode.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
