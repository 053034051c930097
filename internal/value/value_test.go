package value

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects appended text and remembers each call.
type recorder struct {
	buf   bytes.Buffer
	calls int
}

func (r *recorder) Append(p []byte) error {
	r.calls++
	r.buf.Write(p)
	return nil
}

func (r *recorder) AppendString(s string) error {
	r.calls++
	r.buf.WriteString(s)
	return nil
}

func serialize(t *testing.T, v Value) string {
	t.Helper()
	var r recorder
	require.NoError(t, Serialize(&r, v))
	return r.buf.String()
}

// unescape reverses Escape.
func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func TestSerializeLiterals(t *testing.T) {
	dec, err := ParseDecimal("3.14000")
	require.NoError(t, err)

	ts := time.Date(2024, 2, 29, 13, 5, 9, 123456789, time.UTC)

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null{}, `\N`},
		{"text with tab", Text("a\tb"), `a\tb`},
		{"text plain", Text("héllo wörld"), "héllo wörld"},
		{"empty text", Text(""), ""},
		{"decimal keeps scale", dec, "3.14000"},
		{"integer", DecimalFromInt64(-42), "-42"},
		{"timestamp fixed", Timestamp{Time: ts}, "2024-02-29 13:05:09.123"},
		{"timestamp native", Timestamp{Time: ts, Native: "2024-02-29 13:05:09.123456"}, "2024-02-29 13:05:09.123456"},
		{"binary", Binary{0x00, 0xab, 0x7f, 0xff}, `\x00AB7FFF`},
		{"empty binary", Binary{}, `\x`},
		{"wrapped", Wrapped{Inner: Text("x\\y")}, `x\\y`},
		{"double wrapped", Wrapped{Inner: Wrapped{Inner: Null{}}}, `\N`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serialize(t, tt.v))
		})
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"a\tb", `a\tb`},
		{"line\nbreak", `line\nbreak`},
		{"cr\rlf\n", `cr\rlf\n`},
		{`back\slash`, `back\\slash`},
		{"\t\n\r\\", `\t\n\r\\`},
		{"ünï\tcødé", `ünï\tcødé`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "Escape(%q)", tt.in)
		assert.Equal(t, tt.in, unescape(Escape(tt.in)), "round trip %q", tt.in)
	}
}

func TestEscapeIsNoOpOnlyWithoutControlCharacters(t *testing.T) {
	inputs := []string{"", "abc", "a b c", "x\ty", "x\ny", "x\ry", `x\y`, "tab at end\t", "\\"}
	for _, in := range inputs {
		clean := !strings.ContainsAny(in, "\t\n\r\\")
		assert.Equal(t, clean, Escape(in) == in, "input %q", in)
	}
}

func TestEscapeFastPathDoesNotAllocate(t *testing.T) {
	s := strings.Repeat("no special characters here ", 10)
	allocs := testing.AllocsPerRun(100, func() {
		_ = Escape(s)
	})
	assert.Zero(t, allocs)
}

func TestAppendHex(t *testing.T) {
	src := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	out := AppendHex(nil, src)
	assert.Len(t, out, 2*len(src))
	assert.Equal(t, "0123456789ABCDEF", string(out))
	assert.Equal(t, string(out), strings.ToUpper(string(out)))
}

func TestBinaryStreamPrefixOnce(t *testing.T) {
	data := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, ChunkSize) // 4 chunks
	var r recorder
	require.NoError(t, Serialize(&r, BinaryStream{R: bytes.NewReader(data)}))

	out := r.buf.String()
	assert.Equal(t, 4, r.calls)
	assert.Equal(t, 1, strings.Count(out, HexPrefix))
	assert.True(t, strings.HasPrefix(out, HexPrefix))
	assert.Len(t, out, len(HexPrefix)+2*len(data))
	assert.Equal(t, `\x`+string(AppendHex(nil, data)), out)
}

func TestBinaryStreamEmpty(t *testing.T) {
	assert.Equal(t, `\x`, serialize(t, BinaryStream{R: bytes.NewReader(nil)}))
}

func TestTextStreamEscapesEachChunk(t *testing.T) {
	// a tab lands exactly on a chunk boundary
	in := strings.Repeat("a", ChunkSize-1) + "\t" + strings.Repeat("b", ChunkSize) + "\\"
	var r recorder
	require.NoError(t, Serialize(&r, TextStream{R: strings.NewReader(in)}))

	assert.Equal(t, 3, r.calls)
	assert.Equal(t, Escape(in), r.buf.String())
}

func TestTextStreamEmpty(t *testing.T) {
	var r recorder
	require.NoError(t, Serialize(&r, TextStream{R: strings.NewReader("")}))
	assert.Zero(t, r.calls)
	assert.Empty(t, r.buf.String())
}

func TestDecimalFromFloat64IsExact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.1, "0.1000000000000000055511151231257827021181583404541015625"},
		{0.5, "0.5"},
		{-2.25, "-2.25"},
		{3, "3"},
		{1e21, "1000000000000000000000"},
		{0, "0"},
	}
	for _, tt := range tests {
		got := DecimalFromFloat64(tt.in).String()
		assert.Equal(t, tt.want, got, "float %v", tt.in)
		assert.NotContains(t, got, "e")
		assert.NotContains(t, got, "E")
	}
}

func TestDecimalFromFloat32WidensExactly(t *testing.T) {
	v, err := Classify(float32(0.1), "")
	require.NoError(t, err)
	assert.Equal(t, "0.100000001490116119384765625", serialize(t, v))
}

func TestParseDecimalPlain(t *testing.T) {
	d, err := ParseDecimal("1.5E+3")
	require.NoError(t, err)
	assert.Equal(t, "1500", d.String())

	d, err = ParseDecimal("12345678901234567890.123456789012345678901")
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890.123456789012345678901", d.String())

	_, err = ParseDecimal("twelve")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	ts := time.Date(2023, 7, 4, 9, 30, 0, 500000000, time.FixedZone("", -4*3600))

	tests := []struct {
		name   string
		raw    any
		dbType string
		kind   Kind
		want   string
	}{
		{"nil", nil, "VARCHAR2", KindNull, `\N`},
		{"string", "x\ny", "VARCHAR2", KindText, `x\ny`},
		{"numeric string", "3.14000", "NUMBER", KindDecimal, "3.14000"},
		{"mysql numeric bytes", []byte("0012.50"), "DECIMAL", KindDecimal, "12.50"},
		{"mysql char bytes", []byte("a\tb"), "VARCHAR", KindText, `a\tb`},
		{"clob string", "long\ttext", "CLOB", KindTextStream, `long\ttext`},
		{"blob bytes", []byte{1, 2}, "BLOB", KindBinaryStream, `\x0102`},
		{"raw bytes", []byte{0xff}, "RAW", KindBinary, `\xFF`},
		{"untyped text bytes", []byte("a\nb"), "", KindText, `a\nb`},
		{"untyped non-utf8 bytes", []byte{0xff, 0x0a}, "", KindBinary, `\xFF0A`},
		{"bytea", []byte("ab"), "BYTEA", KindBinary, `\x6162`},
		{"varbinary", []byte{0x00}, "VARBINARY", KindBinary, `\x00`},
		{"uuid bytes", []byte("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"), "UUID", KindText, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"},
		{"jsonb bytes", []byte(`{"a":"x\ty"}`), "JSONB", KindText, `{"a":"x\\ty"}`},
		{"inet bytes", []byte("10.0.0.1/32"), "INET", KindText, "10.0.0.1/32"},
		{"xml bytes", []byte("<a>b</a>"), "XML", KindText, "<a>b</a>"},
		{"array bytes", []byte("{1,2,3}"), "_INT4", KindText, "{1,2,3}"},
		{"mysql time bytes", []byte("12:34:56"), "TIME", KindText, "12:34:56"},
		{"mysql year bytes", []byte("2024"), "YEAR", KindText, "2024"},
		{"mysql datetime bytes", []byte("2024-01-02 03:04:05"), "DATETIME", KindText, "2024-01-02 03:04:05"},
		{"sqlserver uniqueidentifier", []byte{0x67, 0x45, 0x23, 0x01, 0xab, 0x89, 0xef, 0xcd, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
			"UNIQUEIDENTIFIER", KindText, "01234567-89AB-CDEF-0123-456789ABCDEF"},
		{"pg money bytes", []byte("$1,234.56"), "MONEY", KindText, "$1,234.56"},
		{"pg money string", "-$0.50", "MONEY", KindText, "-$0.50"},
		{"sqlserver smallmoney", []byte("12.5000"), "SMALLMONEY", KindDecimal, "12.5000"},
		{"int64", int64(7), "INTEGER", KindDecimal, "7"},
		{"uint64", uint64(18446744073709551615), "", KindDecimal, "18446744073709551615"},
		{"float", 0.25, "BINARY_DOUBLE", KindDecimal, "0.25"},
		{"bool", true, "BOOLEAN", KindText, "t"},
		{"date", ts, "DATE", KindTimestamp, "2023-07-04 09:30:00"},
		{"timestamp", ts, "TIMESTAMP", KindTimestamp, "2023-07-04 09:30:00.5"},
		{"timestamptz", ts, "TIMESTAMPTZ", KindTimestamp, "2023-07-04 09:30:00.5-04:00"},
		{"timestamp with tz name", ts, "TIMESTAMP(6) WITH TIME ZONE", KindTimestamp, "2023-07-04 09:30:00.5-04:00"},
		{"datetime", ts, "DATETIME", KindTimestamp, "2023-07-04 09:30:00.500"},
		{"timestamp without tz name", ts, "TIMESTAMP WITHOUT TIME ZONE", KindTimestamp, "2023-07-04 09:30:00.5"},
		{"time of day", time.Date(0, 1, 1, 12, 34, 56, 0, time.UTC), "TIME", KindTimestamp, "12:34:56"},
		{"time of day fraction", time.Date(0, 1, 1, 12, 34, 56, 250000000, time.UTC), "TIME WITHOUT TIME ZONE", KindTimestamp, "12:34:56.25"},
		{"timetz", time.Date(0, 1, 1, 12, 34, 56, 0, time.FixedZone("", 2*3600)), "TIMETZ", KindTimestamp, "12:34:56+02:00"},
		{"time with tz name", time.Date(0, 1, 1, 1, 2, 3, 0, time.FixedZone("", -3*3600)), "TIME WITH TIME ZONE", KindTimestamp, "01:02:03-03:00"},
		{"null string wrapper", sql.NullString{String: "w", Valid: true}, "VARCHAR", KindWrapped, "w"},
		{"invalid wrapper", sql.NullInt64{}, "NUMBER", KindWrapped, `\N`},
		{"reader", strings.NewReader("\x01"), "", KindBinaryStream, `\x01`},
		{"clob reader", strings.NewReader("a\tb"), "CLOB", KindTextStream, `a\tb`},
		{"nclob reader", strings.NewReader("x"), "NCLOB", KindTextStream, "x"},
		{"long reader", strings.NewReader("y\n"), "LONG", KindTextStream, `y\n`},
		{"blob reader", strings.NewReader("\x02"), "BLOB", KindBinaryStream, `\x02`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Classify(tt.raw, tt.dbType)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, serialize(t, v))
		})
	}
}

func TestClassifyUnsupported(t *testing.T) {
	_, err := Classify(struct{ X int }{1}, "OBJECT")
	require.Error(t, err)

	var ute *UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "struct { X int }", ute.GoType)
	assert.Equal(t, "OBJECT", ute.DatabaseType)
	assert.Contains(t, err.Error(), "unsupported value type")
}

func TestClassifyBadNumericFails(t *testing.T) {
	_, err := Classify("n/a", "NUMERIC")
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "binary_stream", KindBinaryStream.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
