// # csvtable: Re-iterable Tables over Delimited Text
//
// csvtable treats a CSV file as a table that can be traversed any number of
// times, writes tables back out, and tees a table into a file while it is
// being consumed. Underneath sits a streaming RFC 4180 Reader and Writer that
// keep allocations low for large inputs and report precise parse errors.
//
// # Features
//
// - View: a lazy Table over a Source; every traversal re-opens and re-parses the source.
// - ToCSV, AppendCSV and WriteCSV: persist a Table, with or without its header row.
// - Tee: yield the rows of a Table while writing each one to a Sink first.
// - Codec: read and write any encoding known to golang.org/x/text by transcoding through UTF-8 one row at a time.
// - Sources for files, memory, object storage buckets and gzip, zstd or snappy compressed streams.
// - Structured errors: `ParseError`, `EncodingError`, `ResourceError`.
//
// # Getting Started
//
//	view := csvtable.FromCSV(csvtable.OpenFile("people.csv.gz"), csvtable.Options{Encoding: "latin-1"})
//	for row, err := range view.Rows(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(row)
//	}
package csvtable
