package capacity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunComponentCheckAllocatesStockByDueDateThenPriority(t *testing.T) {
	early := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 0, 5)
	w := &Workbook{
		Orders: []Order{
			{OrderID: "O2", ProductCode: "WIDGET", Qty: 10, DueDate: late, Priority: 1},
			{OrderID: "O1", ProductCode: "WIDGET", Qty: 10, DueDate: early, Priority: 1},
		},
		BOM: []BOMLine{
			{ProductCode: "WIDGET", ComponentCode: "SCREW", QtyPerUnit: 1},
		},
		StockSnapshot: []StockSnapshotRow{
			{ComponentCode: "SCREW", OnHand: 15},
		},
	}

	rows := RunComponentCheck(w)
	require.Len(t, rows, 2)

	byOrder := map[string]ComponentCheckRow{}
	for _, r := range rows {
		byOrder[r.OrderID] = r
	}

	assert.True(t, byOrder["O1"].Feasible, "earlier due date fully served first")
	assert.Equal(t, 0.0, byOrder["O1"].Shortfall)
	assert.False(t, byOrder["O2"].Feasible, "later due date gets the 5 remaining units, short by 5")
	assert.Equal(t, 5.0, byOrder["O2"].Shortfall)
}

func TestRunComponentCheckFeasibleWhenStockCoversAllOrders(t *testing.T) {
	w := &Workbook{
		Orders: []Order{{OrderID: "O1", ProductCode: "WIDGET", Qty: 5}},
		BOM:    []BOMLine{{ProductCode: "WIDGET", ComponentCode: "SCREW", QtyPerUnit: 2}},
		StockSnapshot: []StockSnapshotRow{
			{ComponentCode: "SCREW", OnHand: 100},
		},
	}
	rows := RunComponentCheck(w)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Feasible)
	assert.Equal(t, 10.0, rows[0].Required)
}
