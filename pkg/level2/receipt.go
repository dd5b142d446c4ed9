package level2

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// Receipt table columns.
const (
	receiptColID     = "ID"
	receiptColTime   = "TIMESTAMP"
	receiptColModule = "MODULE"
	receiptColParams = "PARAMS"
	receiptColStatus = "STATUS"
)

func newReceiptTable() *rvf.Table {
	return rvf.NewTable(
		rvf.StringCol(receiptColID, nil),
		rvf.StringCol(receiptColTime, nil),
		rvf.StringCol(receiptColModule, nil),
		rvf.StringCol(receiptColParams, nil),
		rvf.StringCol(receiptColStatus, nil),
	)
}

// AddReceiptEntry appends one processing record to the RECEIPT table with a
// generated ID and a UTC timestamp.
func (c *Container) AddReceiptEntry(module, params, status string) error {
	tbl, err := c.TableData(ExtNameReceipt)
	if err != nil {
		return err
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if err := tbl.AppendRow(uuid.NewString(), ts, module, params, status); err != nil {
		return fmt.Errorf("level2: receipt: %w", err)
	}
	return nil
}
