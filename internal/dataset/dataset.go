// Package dataset holds the accumulating flat table: records keyed by column
// name plus the shared registry that defines the projection order. Records
// never store blanks for columns they lack; projection fills them in, so a
// column registered late still appears (blank) on rows flattened earlier.
package dataset

import (
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
)

// Dataset is an ordered collection of flat records sharing one registry.
type Dataset struct {
	Registry *schema.Registry
	Records  []models.Record
}

// New returns an empty dataset over the given registry.
func New(reg *schema.Registry) *Dataset {
	return &Dataset{Registry: reg}
}

// Append adds records in order. Nil records (skipped units) are ignored.
func (d *Dataset) Append(records ...models.Record) {
	for _, r := range records {
		if r != nil {
			d.Records = append(d.Records, r)
		}
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Columns returns the current projection order.
func (d *Dataset) Columns() []string { return d.Registry.Columns() }

// Row projects one record onto the given column order, blank-filling columns
// the record does not carry.
func Row(rec models.Record, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = rec[c]
	}
	return out
}

// Rows projects every record onto a single column snapshot so all rows of one
// write share the same width.
func (d *Dataset) Rows() (columns []string, rows [][]string) {
	columns = d.Registry.Columns()
	rows = make([][]string, 0, len(d.Records))
	for _, rec := range d.Records {
		rows = append(rows, Row(rec, columns))
	}
	return columns, rows
}
