package testutils

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Rows is a driver.Rows over fixed values. Scan assigns each value to the
// destination pointer at the same position; types must match exactly.
type Rows struct {
	Values  [][]any
	ScanErr error
	IterErr error

	pos    int
	Closed bool
}

var _ driver.Rows = (*Rows)(nil)

// NewRows returns Rows yielding values in order.
func NewRows(values ...[]any) *Rows {
	return &Rows{Values: values}
}

func (r *Rows) Next() bool {
	if r.pos >= len(r.Values) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	if r.pos == 0 {
		return errors.New("scan called before next")
	}
	row := r.Values[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("destination %d is not a pointer", i)
		}
		value := reflect.ValueOf(row[i])
		if !value.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("destination %d: cannot assign %s to %s", i, value.Type(), target.Elem().Type())
		}
		target.Elem().Set(value)
	}
	return nil
}

func (r *Rows) ScanStruct(any) error {
	return errors.New("ScanStruct not supported")
}

func (r *Rows) ColumnTypes() []driver.ColumnType {
	return nil
}

func (r *Rows) Totals(...any) error {
	return nil
}

func (r *Rows) Columns() []string {
	return nil
}

func (r *Rows) Close() error {
	r.Closed = true
	return nil
}

func (r *Rows) Err() error {
	return r.IterErr
}
