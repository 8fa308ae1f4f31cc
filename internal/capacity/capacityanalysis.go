package capacity

import "time"

// RunCapacityAnalysis computes, for each working day in MasterCalendar and
// each active production line, demand vs available hours and flags
// bottlenecks. Demand is driven by ProductionSchedule rows
// assigned to that line whose [StartDate, EndDate] window covers the day;
// cycle time comes from ProductionStandards keyed by (line, product).
func RunCapacityAnalysis(w *Workbook) []CapacityAnalysisRow {
	standards := make(map[[2]string]ProductionStandard)
	for _, s := range w.ProductionStandards {
		standards[[2]string{s.LineID, s.ProductCode}] = s
	}
	productByOrder := make(map[string]string, len(w.Orders))
	for _, o := range w.Orders {
		productByOrder[o.OrderID] = o.ProductCode
	}
	hoursAvailableByDate := make(map[string]float64)
	for _, d := range w.MasterCalendar {
		if d.IsWorking {
			hoursAvailableByDate[dateKey(d.Date)] = d.HoursAvailable
		}
	}

	rows := make([]CapacityAnalysisRow, 0)
	for _, line := range w.ProductionLines {
		if !line.Active {
			continue
		}
		for _, day := range w.MasterCalendar {
			if !day.IsWorking {
				continue
			}
			var demandHours float64
			for _, entry := range w.ProductionSchedule {
				if entry.LineID != line.LineID {
					continue
				}
				if day.Date.Before(entry.StartDate) || day.Date.After(entry.EndDate) {
					continue
				}
				product := productByOrder[entry.OrderID]
				std, ok := standards[[2]string{line.LineID, product}]
				if !ok {
					continue
				}
				spanDays := daySpan(entry.StartDate, entry.EndDate)
				qtyPerDay := float64(entry.CommittedQty) / spanDays
				demandHours += qtyPerDay * std.CycleTimeMinutes / 60
			}
			available := hoursAvailableByDate[dateKey(day.Date)]
			var utilization float64
			switch {
			case available > 0:
				utilization = demandHours / available
			case demandHours > 0:
				utilization = 1000 // unbounded demand against zero capacity: flag unconditionally
			}
			rows = append(rows, CapacityAnalysisRow{
				LineID:         line.LineID,
				Date:           day.Date,
				DemandHours:    demandHours,
				AvailableHours: available,
				UtilizationPct: utilization * 100,
				BottleneckFlag: utilization > 1.0,
			})
		}
	}
	w.CapacityAnalysis = rows
	return rows
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// daySpan returns the inclusive number of calendar days between start and
// end, used to spread a schedule entry's committed quantity evenly across
// its working window.
func daySpan(start, end time.Time) float64 {
	days := end.Sub(start).Hours()/24 + 1
	if days < 1 {
		return 1
	}
	return days
}
