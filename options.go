package csvtable

import "log/slog"

// Options configures how views, sinks and tees read and write delimited text.
// The zero value uses the Excel dialect, raw UTF-8 and slog.Default().
type Options struct {
	// Dialect controls delimiters, quoting and line endings.
	Dialect Dialect
	// Encoding names the text encoding of the file. Empty skips decoding and
	// encoding entirely; "utf-8" keeps the bytes as they are but rejects
	// invalid sequences; any other name transcodes through UTF-8.
	Encoding string
	// Logger receives debug records about opened and released handles.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// resolve checks the dialect and looks up Encoding; a nil Codec selects the
// raw path.
func (o Options) resolve() (*Codec, error) {
	if err := o.Dialect.Validate(); err != nil {
		return nil, err
	}
	if o.Encoding == "" {
		return nil, nil
	}
	return LookupCodec(o.Encoding)
}

// Named is implemented by sources and sinks that can identify themselves in
// logs and errors.
type Named interface {
	Name() string
}

func resourceName(v any) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return "unnamed"
}
