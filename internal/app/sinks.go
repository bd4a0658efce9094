package app

import (
	"fmt"

	"github.com/specialistvlad/bootsweep/internal/sink"
)

// openSinks builds the record sinks named in the config. With none
// configured, records are discarded.
func (a *App) openSinks() (sink.Sink, error) {
	cfg := a.config
	var sinks sink.Multi

	fail := func(err error) (sink.Sink, error) {
		sinks.Close()
		return nil, err
	}

	if cfg.PrintRecords {
		sinks = append(sinks, sink.NewWriter(a.outW, sink.KindRun))
	}
	if cfg.ResultsDir != "" {
		f, err := sink.NewFile(cfg.ResultsDir)
		if err != nil {
			return fail(err)
		}
		a.logger.Info("Writing records to files.", "dir", cfg.ResultsDir)
		sinks = append(sinks, f)
	}
	if cfg.RedisAddr != "" {
		r, err := sink.NewRedis(a.ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return fail(err)
		}
		a.logger.Info("Writing records to redis.", "addr", cfg.RedisAddr, "runs_key", r.ListKey(sink.KindRun))
		sinks = append(sinks, r)
	}
	if cfg.SocketIOURL != "" {
		s, err := sink.NewSocketIO(a.ctx, sink.SocketIOConfig{
			URL:                cfg.SocketIOURL,
			Namespace:          cfg.SocketIONamespace,
			InsecureSkipVerify: cfg.SocketIOInsecure,
		})
		if err != nil {
			return fail(fmt.Errorf("connecting to collection server: %w", err))
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		a.logger.Warn("No record sink configured; run records are only kept in output directories.")
		return sink.Discard{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}
