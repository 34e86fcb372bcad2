/*
Package sink stores the history of pipeline runs.

Every finished run, successful or not, can be turned into an Entry and handed
to a Sink:

	out, err := p.Run(params)
	_ = s.Write(ctx, sink.NewEntry("nightly", p, out, err))

Three sinks are provided:

  - MemorySink keeps the newest N entries in process memory
  - WriterSink encodes entries as JSON lines or a YAML stream to an io.Writer
  - RedisSink appends entries to a capped Redis list shared between processes

Sinks compose with Multi and can be counted with Instrumented:

	s := sink.Multi(
		sink.Instrumented(mem, "memory", metrics.DefaultRegistry),
		sink.Instrumented(rs, "redis", metrics.DefaultRegistry),
	)
*/
package sink
