package capacity

import "sort"

// RunComponentCheck explodes each order's BOM against on-hand stock and
// returns the derived ComponentCheck rows, also writing them onto the
// workbook. Stock allocation is greedy in due-date order, ties broken by
// priority (higher first) then order_id.
func RunComponentCheck(w *Workbook) []ComponentCheckRow {
	ordered := append([]Order(nil), w.Orders...)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].DueDate.Equal(ordered[j].DueDate) {
			return ordered[i].DueDate.Before(ordered[j].DueDate)
		}
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].OrderID < ordered[j].OrderID
	})

	onHand := make(map[string]float64, len(w.StockSnapshot))
	for _, s := range w.StockSnapshot {
		onHand[s.ComponentCode] = s.OnHand
	}

	bomByProduct := make(map[string][]BOMLine)
	for _, b := range w.BOM {
		bomByProduct[b.ProductCode] = append(bomByProduct[b.ProductCode], b)
	}

	rows := make([]ComponentCheckRow, 0, len(ordered))
	for _, o := range ordered {
		for _, b := range bomByProduct[o.ProductCode] {
			required := b.QtyPerUnit * float64(o.Qty)
			available := onHand[b.ComponentCode]
			allocated := required
			if allocated > available {
				allocated = available
			}
			if allocated < 0 {
				allocated = 0
			}
			onHand[b.ComponentCode] = available - allocated
			shortfall := required - allocated
			if shortfall < 0 {
				shortfall = 0
			}
			rows = append(rows, ComponentCheckRow{
				OrderID:       o.OrderID,
				ComponentCode: b.ComponentCode,
				Required:      required,
				Available:     available,
				Shortfall:     shortfall,
				Feasible:      shortfall == 0,
			})
		}
	}
	w.ComponentCheck = rows
	return rows
}
