package service

import (
	"context"
	"errors"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/models"
)

type consentService struct {
	gate   *privacy.PolicyGate
	tokens store.ChangeTokenStore
	zones  []string
}

func NewConsentService(gate *privacy.PolicyGate, tokens store.ChangeTokenStore, zones []string) ConsentService {
	if len(zones) == 0 {
		zones = []string{models.DefaultZone}
	}
	return &consentService{gate: gate, tokens: tokens, zones: zones}
}

func (s *consentService) Denied() []models.DataType {
	return s.gate.Denied()
}

// SetAllowed updates consent for dataType. Granting a previously denied type
// clears the cursor of every zone: records skipped while it was denied are
// fetched again by the next cycle.
func (s *consentService) SetAllowed(ctx context.Context, dataType models.DataType, allowed bool) error {
	wasDenied := !s.gate.IsAllowed(ctx, dataType)
	s.gate.SetAllowed(dataType, allowed)

	log := logger.FromContext(ctx).Info().
		Str("func", "consentService.SetAllowed").
		Str("data_type", string(dataType)).
		Bool("allowed", allowed)

	if !allowed || !wasDenied {
		log.Msg("consent updated")
		return nil
	}

	var errs []error
	for _, zone := range s.zones {
		if err := s.tokens.Clear(ctx, zone); err != nil {
			errs = append(errs, &CursorPersistenceError{Zone: zone, Err: err})
		}
	}
	log.Strs("refetch_zones", s.zones).Msg("consent granted, zones will be refetched")

	return errors.Join(errs...)
}
