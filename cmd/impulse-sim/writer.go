package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"impulse-sim/internal/config"
	"impulse-sim/internal/sink"
)

// writerOptions selects the record sinks for a command.
type writerOptions struct {
	JSON     bool   // JSON lines on stdout even on a terminal
	Quiet    bool   // no stdout sink
	LogFile  string // runs JSONL; samples go to LogFile+".waveform"
	Greptime bool
	Waveform bool // export samples to GreptimeDB
}

// newWriters builds the sinks described by opts. It returns the combined writer
// and a cleanup function closing any opened resources.
func newWriters(cfg *config.Config, opts writerOptions, logger *slog.Logger) (sink.RecordWriter, func(), error) {
	var writers []sink.RecordWriter
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	if !opts.Quiet {
		writers = append(writers, stdoutWriter(opts.JSON))
	}
	if opts.LogFile != "" {
		fw, err := sink.NewFileWriter(opts.LogFile, opts.LogFile+".waveform")
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		closers = append(closers, fw)
	}
	if opts.Greptime {
		gw, err := sink.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Port, cfg.Greptime.Database, opts.Waveform, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("exporting runs to GreptimeDB", "endpoint", cfg.Greptime.Endpoint, "database", cfg.Greptime.Database)
		writers = append(writers, gw)
	}

	if len(writers) == 1 {
		return writers[0], cleanup, nil
	}
	return sink.NewMultiWriter(writers...), cleanup, nil
}

// stdoutWriter prints colorized output on a terminal and JSON lines otherwise.
func stdoutWriter(forceJSON bool) sink.RecordWriter {
	colorize := !forceJSON && term.IsTerminal(int(os.Stdout.Fd()))
	return sink.NewStdoutWriter(os.Stdout, colorize)
}

// replayWriter mirrors records into GreptimeDB unless printOnly is set or no endpoint is configured.
// withWaveform also exports the samples of each run.
func replayWriter(cfg *config.Config, printOnly, withWaveform bool, logger *slog.Logger) (sink.RecordWriter, error) {
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		return stdoutWriter(false), nil
	}
	return sink.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Port, cfg.Greptime.Database, withWaveform, logger)
}
