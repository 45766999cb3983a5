package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

const parquetBatchSize = 256

// ReadParquet reads a flat parquet file into a Table. Timestamp columns are
// rendered as RFC 3339 UTC strings using the column's declared unit.
func ReadParquet(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	fields := pf.Schema().Fields()
	header := make([]string, len(fields))
	units := make([]time.Duration, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("nested column %q is not supported", field.Name())
		}
		header[i] = field.Name()
		units[i] = timestampUnit(field)
	}

	t := &Table{Header: header}
	buf := make([]parquet.Row, parquetBatchSize)

	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				record := make([]string, len(header))
				for _, v := range row {
					col := v.Column()
					if col < 0 || col >= len(record) {
						continue
					}
					record[col] = formatValue(v, units[col])
				}
				t.Rows = append(t.Rows, record)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read parquet rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close parquet rows: %w", err)
		}
	}

	return t, nil
}

// timestampUnit returns the tick of a TIMESTAMP column, 0 otherwise
func timestampUnit(field parquet.Field) time.Duration {
	lt := field.Type().LogicalType()
	if lt == nil || lt.Timestamp == nil {
		return 0
	}
	switch {
	case lt.Timestamp.Unit.Nanos != nil:
		return time.Nanosecond
	case lt.Timestamp.Unit.Micros != nil:
		return time.Microsecond
	case lt.Timestamp.Unit.Millis != nil:
		return time.Millisecond
	default:
		return 0
	}
}

func formatValue(v parquet.Value, unit time.Duration) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		if unit > 0 {
			return time.Unix(0, v.Int64()*int64(unit)).UTC().Format(time.RFC3339Nano)
		}
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	default:
		return v.String()
	}
}
