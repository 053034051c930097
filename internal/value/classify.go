package value

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
)

// Native timestamp renderings, keyed on the column's database type.
const (
	layoutFixed       = "2006-01-02 15:04:05.000"
	layoutDate        = "2006-01-02 15:04:05"
	layoutTimestamp   = "2006-01-02 15:04:05.999999"
	layoutTimestampTZ = "2006-01-02 15:04:05.999999-07:00"
	layoutTime        = "15:04:05.999999"
	layoutTimeTZ      = "15:04:05.999999-07:00"
)

// columnClass is the coarse role a database type name plays in
// classification.
type columnClass uint8

const (
	classOther columnClass = iota
	classNumeric
	classChar
	classCharLOB
	classBinary
	classBinaryLOB
	classDate
	classTimestamp
	classTimestampTZ
	classTime
	classTimeTZ
	classGUID
)

var exactClasses = map[string]columnClass{
	"NUMBER":           classNumeric,
	"NUMERIC":          classNumeric,
	"DECIMAL":          classNumeric,
	"DEC":              classNumeric,
	"SMALLMONEY":       classNumeric,
	"INT":              classNumeric,
	"INTEGER":          classNumeric,
	"TINYINT":          classNumeric,
	"SMALLINT":         classNumeric,
	"MEDIUMINT":        classNumeric,
	"BIGINT":           classNumeric,
	"INT2":             classNumeric,
	"INT4":             classNumeric,
	"INT8":             classNumeric,
	"UNSIGNED INT":     classNumeric,
	"UNSIGNED BIGINT":  classNumeric,
	"FLOAT":            classNumeric,
	"FLOAT4":           classNumeric,
	"FLOAT8":           classNumeric,
	"REAL":             classNumeric,
	"DOUBLE":           classNumeric,
	"BINARY_FLOAT":     classNumeric,
	"BINARY_DOUBLE":    classNumeric,
	"IBFLOAT":          classNumeric,
	"IBDOUBLE":         classNumeric,
	"CHAR":             classChar,
	"NCHAR":            classChar,
	"VARCHAR":          classChar,
	"VARCHAR2":         classChar,
	"NVARCHAR":         classChar,
	"NVARCHAR2":        classChar,
	"BPCHAR":           classChar,
	"TEXT":             classChar,
	"TINYTEXT":         classChar,
	"JSON":             classChar,
	"MONEY":            classChar,
	"ENUM":             classChar,
	"SET":              classChar,
	"ROWID":            classChar,
	"UROWID":           classChar,
	"INTERVALYM":       classChar,
	"INTERVALDS":       classChar,
	"CLOB":             classCharLOB,
	"NCLOB":            classCharLOB,
	"LONG":             classCharLOB,
	"MEDIUMTEXT":       classCharLOB,
	"LONGTEXT":         classCharLOB,
	"NTEXT":            classCharLOB,
	"BYTEA":            classBinary,
	"RAW":              classBinary,
	"BINARY":           classBinary,
	"VARBINARY":        classBinary,
	"TINYBLOB":         classBinary,
	"UNIQUEIDENTIFIER": classGUID,
	"BLOB":             classBinaryLOB,
	"BFILE":            classBinaryLOB,
	"LONG RAW":         classBinaryLOB,
	"MEDIUMBLOB":       classBinaryLOB,
	"LONGBLOB":         classBinaryLOB,
	"IMAGE":            classBinaryLOB,
	"DATE":             classDate,
	"TIMESTAMP":        classTimestamp,
	"TIMESTAMPDTY":     classTimestamp,
	"DATETIME2":        classTimestamp,
	"TIMESTAMPTZ":      classTimestampTZ,
	"TIMESTAMPTZ_DTY":  classTimestampTZ,
	"TIMESTAMPLTZ":     classTimestampTZ,
	"TIMESTAMPLTZ_DTY": classTimestampTZ,
	"DATETIMEOFFSET":   classTimestampTZ,
	"TIME":             classTime,
	"TIMETZ":           classTimeTZ,
}

func classOf(databaseType string) columnClass {
	t := strings.ToUpper(strings.TrimSpace(databaseType))
	if strings.Contains(t, "WITH TIME ZONE") || strings.Contains(t, "WITH LOCAL TIME ZONE") {
		if strings.HasPrefix(t, "TIMESTAMP") {
			return classTimestampTZ
		}
		return classTimeTZ
	}
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if c, ok := exactClasses[t]; ok {
		return c
	}
	switch {
	case strings.HasPrefix(t, "TIMESTAMP"):
		return classTimestamp
	case strings.HasPrefix(t, "TIME "):
		return classTime
	case strings.HasPrefix(t, "INTERVAL"):
		return classChar
	}
	return classOther
}

// Classify maps one raw driver value onto its category. databaseType is the
// column's type name as reported by the driver and may be empty.
func Classify(raw any, databaseType string) (Value, error) {
	class := classOf(databaseType)
	switch v := raw.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case string:
		return classifyString(v, class)
	case []byte:
		return classifyBytes(v, class)
	case int64:
		return DecimalFromInt64(v), nil
	case int32:
		return DecimalFromInt64(int64(v)), nil
	case int16:
		return DecimalFromInt64(int64(v)), nil
	case int8:
		return DecimalFromInt64(int64(v)), nil
	case int:
		return DecimalFromInt64(int64(v)), nil
	case uint64:
		return DecimalFromUint64(v), nil
	case uint32:
		return DecimalFromUint64(uint64(v)), nil
	case uint16:
		return DecimalFromUint64(uint64(v)), nil
	case uint8:
		return DecimalFromUint64(uint64(v)), nil
	case uint:
		return DecimalFromUint64(uint64(v)), nil
	case float64:
		return DecimalFromFloat64(v), nil
	case float32:
		return DecimalFromFloat64(float64(v)), nil
	case bool:
		if v {
			return Text("t"), nil
		}
		return Text("f"), nil
	case time.Time:
		return classifyTime(v, class), nil
	case driver.Valuer:
		inner, err := v.Value()
		if err != nil {
			return nil, errors.Wrapf(err, "unwrap %T", raw)
		}
		c, err := Classify(inner, databaseType)
		if err != nil {
			return nil, err
		}
		return Wrapped{Inner: c}, nil
	case io.Reader:
		switch class {
		case classChar, classCharLOB:
			return TextStream{R: v}, nil
		}
		return BinaryStream{R: v}, nil
	}
	return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", raw), DatabaseType: databaseType}
}

func classifyString(s string, class columnClass) (Value, error) {
	switch class {
	case classNumeric:
		return ParseDecimal(s)
	case classCharLOB:
		return TextStream{R: strings.NewReader(s)}, nil
	}
	return Text(s), nil
}

// classifyBytes treats b as binary only for binary column types. Drivers
// hand many other types over in their text form as []byte (uuid, json,
// inet, time, arrays), so anything else is text unless it is not valid
// UTF-8.
func classifyBytes(b []byte, class columnClass) (Value, error) {
	switch class {
	case classNumeric:
		return ParseDecimal(string(b))
	case classCharLOB:
		return TextStream{R: bytes.NewReader(b)}, nil
	case classBinary:
		return Binary(b), nil
	case classBinaryLOB:
		return BinaryStream{R: bytes.NewReader(b)}, nil
	case classGUID:
		if len(b) == 16 {
			var id mssql.UniqueIdentifier
			if err := id.Scan(b); err != nil {
				return nil, errors.Wrap(err, "decode uniqueidentifier")
			}
			return Text(id.String()), nil
		}
	}
	if !utf8.Valid(b) {
		return Binary(b), nil
	}
	return Text(b), nil
}

func classifyTime(t time.Time, class columnClass) Value {
	switch class {
	case classDate:
		return Timestamp{Time: t, Native: t.Format(layoutDate)}
	case classTimestamp:
		return Timestamp{Time: t, Native: t.Format(layoutTimestamp)}
	case classTimestampTZ:
		return Timestamp{Time: t, Native: t.Format(layoutTimestampTZ)}
	case classTime:
		return Timestamp{Time: t, Native: t.Format(layoutTime)}
	case classTimeTZ:
		return Timestamp{Time: t, Native: t.Format(layoutTimeTZ)}
	}
	return Timestamp{Time: t}
}
