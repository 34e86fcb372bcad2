/*
Package streaming holds the destinations finished pipeline runs flow into.

  - sink: run history entries written to memory, an io.Writer as JSON or
    YAML, or a capped Redis list shared between processes

Basic usage:

	history, _ := sink.NewWriterSink(os.Stdout, sink.FormatYAML)
	defer history.Close()

	out, err := p.Run(params)
	history.Write(ctx, sink.NewEntry("manual", p, out, err))

The scheduler writes one entry per run to its configured sink.
*/
package streaming
