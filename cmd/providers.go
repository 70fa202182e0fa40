package main

import (
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/UnknownOlympus/meridian/internal/cascade"
	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/geocoding"
	"github.com/UnknownOlympus/meridian/internal/models"
)

// buildSteps creates one cascade step per configured provider, in order.
// OpenCage is gated on its confidence threshold; every other provider's first
// candidate is accepted.
func buildSteps(cfg *config.Config, log *slog.Logger) ([]cascade.Step, error) {
	steps := make([]cascade.Step, 0, len(cfg.Cascade.Providers))

	for _, name := range cfg.Cascade.Providers {
		pcfg := geocoding.ProviderConfig{
			Type:   geocoding.ProviderType(name),
			Logger: log,
		}

		var policy cascade.Policy = cascade.Unconditional{}
		switch pcfg.Type {
		case geocoding.ProviderTypeOpenCage:
			pcfg.APIKey = cfg.OpenCage.APIKey
			pcfg.RateLimit = cfg.OpenCage.RateLimit
			policy = cascade.Thresholded{Min: cfg.OpenCage.Threshold}
		case geocoding.ProviderTypeNominatim:
			pcfg.UserAgent = cfg.Nominatim.UserAgent
			pcfg.RateLimit = cfg.Nominatim.RateLimit
			pcfg.Fallback = cfg.Nominatim.Fallback
		case geocoding.ProviderTypeGoogle:
			pcfg.APIKey = cfg.Google.APIKey
			pcfg.RateLimit = cfg.Google.RateLimit
		case geocoding.ProviderTypeCensus:
			pcfg.RateLimit = cfg.Census.RateLimit
		}

		provider, err := geocoding.NewProvider(pcfg)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to create %s provider", name)
		}

		log.Info("Cascade step configured", "step", len(steps)+1, "provider", name, "policy", policy.String())
		steps = append(steps, cascade.Step{Provider: provider, Policy: policy})
	}

	return steps, nil
}

// trackedServices lists the bulk provider and every cascade provider so the
// stats report shows them even when never called.
func trackedServices(steps []cascade.Step) []models.Service {
	services := []models.Service{models.ServiceCensus}
	for _, s := range steps {
		services = append(services, s.Provider.Name())
	}
	return services
}
