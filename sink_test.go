package csvtable

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

var people = FromRows(
	Row{"id", "name"},
	Row{"1", "Alice"},
	Row{"2", "Bøb"},
)

func TestToCSVRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		encoding string
		prefix   []byte
	}{
		{encoding: ""},
		{encoding: "utf-8"},
		{encoding: "latin-1"},
		{encoding: "utf-8-sig", prefix: []byte{0xEF, 0xBB, 0xBF}},
		{encoding: "utf-16", prefix: []byte{0xFF, 0xFE}},
		{encoding: "windows-1252"},
	}

	for _, tc := range tests {
		t.Run(tc.encoding, func(t *testing.T) {
			t.Parallel()

			sink := FileSource{Path: filepath.Join(t.TempDir(), "people.csv")}
			opts := Options{Encoding: tc.encoding}
			require.NoError(t, ToCSV(context.Background(), people, sink, opts))

			raw, err := os.ReadFile(sink.Path)
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(raw, tc.prefix), "file starts with % x", raw[:min(len(raw), 4)])

			got, err := Collect(context.Background(), FromCSV(sink, opts))
			require.NoError(t, err)
			require.Equal(t, []Row{{"id", "name"}, {"1", "Alice"}, {"2", "Bøb"}}, got)
		})
	}
}

func TestToCSVLatin1Bytes(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource(nil)
	require.NoError(t, ToCSV(context.Background(), people, sink, Options{Encoding: "latin-1"}))
	require.Equal(t, []byte("id,name\r\n1,Alice\r\n2,B\xf8b\r\n"), sink.Bytes())
}

func TestToCSVReplacesContent(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource([]byte("old,stuff\r\nthat,goes\r\naway,now\r\n"))
	require.NoError(t, ToCSV(context.Background(), FromRows(Row{"a"}, Row{"1"}), sink, Options{}))
	require.Equal(t, "a\r\n1\r\n", sink.String())
}

func TestAppendCSV(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{"", "utf-8", "latin-1", "utf-16"} {
		t.Run(enc, func(t *testing.T) {
			t.Parallel()

			sink := FileSource{Path: filepath.Join(t.TempDir(), "people.csv")}
			opts := Options{Encoding: enc}
			require.NoError(t, ToCSV(context.Background(), people, sink, opts))
			require.NoError(t, AppendCSV(context.Background(), FromRows(Row{"id", "name"}, Row{"3", "Zoë"}), sink, opts))

			got, err := Collect(context.Background(), FromCSV(sink, opts))
			require.NoError(t, err)
			require.Equal(t, []Row{{"id", "name"}, {"1", "Alice"}, {"2", "Bøb"}, {"3", "Zoë"}}, got)
		})
	}
}

func TestAppendCSVCreatesMissingFile(t *testing.T) {
	t.Parallel()

	sink := FileSource{Path: filepath.Join(t.TempDir(), "new.csv")}
	require.NoError(t, AppendCSV(context.Background(), people, sink, Options{}))

	raw, err := os.ReadFile(sink.Path)
	require.NoError(t, err)
	require.Equal(t, "1,Alice\r\n2,Bøb\r\n", string(raw))
}

func TestAppendCSVHeaderOnly(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource([]byte("id\r\n1\r\n"))
	require.NoError(t, AppendCSV(context.Background(), FromRows(Row{"id"}), sink, Options{}))
	require.Equal(t, "id\r\n1\r\n", sink.String())
}

func TestWriteCSVEmptyTable(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{"", "utf-8-sig", "utf-16"} {
		sink := NewMemorySource([]byte("stale\r\n"))
		require.NoError(t, ToCSV(context.Background(), FromRows(), sink, Options{Encoding: enc}))
		require.Empty(t, sink.Bytes(), enc)
	}
}

func TestWriteCSVUnrepresentable(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource(nil)
	table := FromRows(Row{"id", "name"}, Row{"1", "Alice"}, Row{"2", "日本"}, Row{"3", "Carol"})
	err := ToCSV(context.Background(), table, sink, Options{Encoding: "latin-1"})
	require.ErrorIs(t, err, ErrUnrepresentable)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, 2, encErr.Row)
	require.Equal(t, 1, encErr.Field)
	require.Equal(t, "id,name\r\n1,Alice\r\n", sink.String())
}

func TestWriteCSVSourceError(t *testing.T) {
	t.Parallel()

	src := &countingSource{inner: NewMemorySource([]byte("id\r\n1\r\n\"open"))}
	sink := &countingSource{inner: NewMemorySource(nil)}

	err := ToCSV(context.Background(), FromCSV(src, Options{}), sink, Options{})
	require.ErrorIs(t, err, ErrUnterminatedQuote)
	require.Equal(t, 1, src.closed)
	require.Equal(t, 1, sink.closed)
	require.Equal(t, "id\r\n1\r\n", sink.inner.(*MemorySource).String())
}

func TestWriteCSVSinkError(t *testing.T) {
	t.Parallel()

	sink := &failingSink{after: 1, err: errSinkFull}
	err := ToCSV(context.Background(), people, sink, Options{})
	require.ErrorIs(t, err, errSinkFull)
	require.Equal(t, "id,name\r\n", string(sink.data))
}

func TestWriteCSVUnknownEncodingOpensNothing(t *testing.T) {
	t.Parallel()

	sink := &countingSource{inner: NewMemorySource([]byte("keep\r\n"))}
	err := ToCSV(context.Background(), people, sink, Options{Encoding: "klingon"})
	require.ErrorIs(t, err, ErrUnknownEncoding)
	require.Zero(t, sink.opened)
	require.Equal(t, "keep\r\n", sink.inner.(*MemorySource).String())
}

func TestWriteCSVDialects(t *testing.T) {
	t.Parallel()

	table := FromRows(Row{"id", "note"}, Row{"1", "a,b"}, Row{"2.5", "say \"hi\""})
	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{
			name:    "excel",
			dialect: Excel,
			want:    "id,note\r\n1,\"a,b\"\r\n2.5,\"say \"\"hi\"\"\"\r\n",
		},
		{
			name:    "excelTab",
			dialect: ExcelTab,
			want:    "id\tnote\r\n1\ta,b\r\n2.5\t\"say \"\"hi\"\"\"\r\n",
		},
		{
			name:    "unix",
			dialect: Unix,
			want:    "\"id\",\"note\"\n\"1\",\"a,b\"\n\"2.5\",\"say \"\"hi\"\"\"\n",
		},
		{
			name:    "nonNumeric",
			dialect: Dialect{Quoting: QuoteNonNumeric, LineTerminator: "\n"},
			want:    "\"id\",\"note\"\n1,\"a,b\"\n2.5,\"say \"\"hi\"\"\"\n",
		},
		{
			name:    "quoteNoneEscape",
			dialect: Dialect{Quoting: QuoteNone, Escape: '\\', LineTerminator: "\n"},
			want:    "id,note\n1,a\\,b\n2.5,say \\\"hi\\\"\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := NewMemorySource(nil)
			require.NoError(t, ToCSV(context.Background(), table, sink, Options{Dialect: tc.dialect}))
			require.Equal(t, tc.want, sink.String())
		})
	}
}

func TestWriteCSVQuoteNoneWithoutEscape(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource(nil)
	err := ToCSV(context.Background(), FromRows(Row{"id"}, Row{"a,b"}), sink, Options{Dialect: Dialect{Quoting: QuoteNone}})
	require.ErrorIs(t, err, ErrNeedEscape)
	require.Equal(t, "id\r\n", sink.String())
}

func TestDialectValidate(t *testing.T) {
	t.Parallel()

	valid := []Dialect{{}, Excel, ExcelTab, Unix, {Delimiter: ';', Quote: '\''}}
	for _, d := range valid {
		require.NoError(t, d.Validate())
	}

	invalid := []Dialect{
		{Delimiter: '\n'},
		{Quote: '\r'},
		{Delimiter: '"'},
		{Escape: ','},
		{Quoting: QuotingPolicy(9)},
	}
	for _, d := range invalid {
		require.ErrorIs(t, d.Validate(), ErrInvalidDialect, "dialect %+v", d)
	}
}

func TestInvalidDialectRejectedBeforeIO(t *testing.T) {
	t.Parallel()

	src := &countingSource{inner: NewMemorySource([]byte("a\r\n"))}
	opts := Options{Dialect: Dialect{Delimiter: '"'}}

	_, err := Collect(context.Background(), FromCSV(src, opts))
	require.ErrorIs(t, err, ErrInvalidDialect)
	require.ErrorIs(t, ToCSV(context.Background(), people, src, opts), ErrInvalidDialect)
	require.Zero(t, src.opened)
}

func TestDialectRoundTrip(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"id", "note"},
		{"1", "a,b"},
		{"2", "say \"hi\""},
		{"3", "c:\\tmp"},
		{"4", "two\nlines"},
		{"5", "cr\r\nlf"},
		{""},
		{},
		{"", ""},
		{"6", ""},
	}
	tests := []struct {
		name    string
		dialect Dialect
		rows    []Row
	}{
		{name: "excel", dialect: Excel, rows: rows},
		{name: "excelTab", dialect: ExcelTab, rows: rows},
		{name: "unix", dialect: Unix, rows: rows},
		{name: "nonNumeric", dialect: Dialect{Quoting: QuoteNonNumeric}, rows: rows},
		{name: "quoteNoneEscape", dialect: Dialect{Quoting: QuoteNone, Escape: '\\'}, rows: slices.DeleteFunc(slices.Clone(rows), func(r Row) bool {
			// A lone empty field has no unquoted form.
			return len(r) == 1 && r[0] == ""
		})},
		{name: "quoteNoneEscapeSemicolon", dialect: Dialect{Delimiter: ';', Quoting: QuoteNone, Escape: '!', LineTerminator: "\n"}, rows: []Row{
			{"a;b", "x!y"},
			{"", ""},
			{},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			sink := NewMemorySource(nil)
			opts := Options{Dialect: tc.dialect}
			require.NoError(t, ToCSV(ctx, FromRows(tc.rows...), sink, opts))

			got, err := Collect(ctx, FromCSV(sink, opts))
			require.NoError(t, err)
			require.Len(t, got, len(tc.rows))
			for i := range tc.rows {
				require.Equal(t, []string(tc.rows[i]), []string(got[i]), "row %d", i)
			}
		})
	}
}

func TestEmptyRowsRoundTrip(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource(nil)
	table := FromRows(Row{"a"}, Row{""}, Row{}, Row{"x"})
	require.NoError(t, ToCSV(context.Background(), table, sink, Options{}))
	require.Equal(t, "a\r\n\"\"\r\n\r\nx\r\n", sink.String())

	got, err := Collect(context.Background(), FromCSV(sink, Options{}))
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, []string{""}, []string(got[1]))
	require.Empty(t, got[2])
	require.Equal(t, []string{"x"}, []string(got[3]))
}

func TestWriteCSVQuoteNoneLoneEmptyField(t *testing.T) {
	t.Parallel()

	sink := NewMemorySource(nil)
	opts := Options{Dialect: Dialect{Quoting: QuoteNone, Escape: '\\'}}
	err := ToCSV(context.Background(), FromRows(Row{"id"}, Row{""}), sink, opts)
	require.ErrorIs(t, err, ErrLoneEmptyField)
	require.Equal(t, "id\r\n", sink.String())
}
