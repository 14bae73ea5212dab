package main

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"spreadnet/internal/config"
	"spreadnet/internal/engine"
	"spreadnet/internal/network"
	"spreadnet/internal/store"
)

// openModel opens the configured store and the model in it. An empty model
// gets the demo network. The returned close func saves persistent models.
func openModel() (*network.Model, func() error, error) {
	s, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	m, err := network.Open(s)
	if err != nil {
		return nil, nil, multierr.Append(err, s.Close())
	}
	if m.NeuronCount() == 0 {
		if err := engine.BuildDemoModel(m); err != nil {
			return nil, nil, multierr.Append(err, s.Close())
		}
		logger.Info("built demo model",
			zap.Int("neurons", m.NeuronCount()),
			zap.Int("synapses", m.SynapseCount()))
	}

	closeFn := func() error {
		var errs error
		if cfg.Storage.Backend != config.BackendMemory {
			errs = multierr.Append(errs, m.Save())
		}
		return multierr.Append(errs, s.Close())
	}
	return m, closeFn, nil
}
