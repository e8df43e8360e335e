// Package routing resolves a pickup address into distance, duration and
// pickup-fee eligibility via external geocoding and routing providers.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"buyback_backend/platform/apperr"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"
)

// FeeTable maps a driving distance to a pickup fee.
type FeeTable interface {
	PickupFee(distanceKm float64) int64
}

type Service struct {
	client        *http.Client
	log           *logger.Logger
	fees          FeeTable
	geocodeBase   string
	routingBase   string
	maxDistanceKm float64
	depotLat      float64
	depotLon      float64
}

func NewService(cfg config.RoutingConfig, fees FeeTable, log *logger.Logger) *Service {
	return &Service{
		client:        &http.Client{Timeout: cfg.GetRoutingTimeout()},
		log:           log,
		fees:          fees,
		geocodeBase:   cfg.GetGeocodeBaseURL(),
		routingBase:   cfg.GetRoutingBaseURL(),
		maxDistanceKm: cfg.GetMaxPickupDistanceKm(),
		depotLat:      cfg.GetDepotLat(),
		depotLon:      cfg.GetDepotLon(),
	}
}

// Resolve geocodes the address, routes it against the depot and applies the
// eligibility policy. Provider failures surface as errors so a rejected
// location can never fall through as free and eligible.
func (s *Service) Resolve(ctx context.Context, address string) (Resolution, error) {
	lat, lon, err := s.geocode(ctx, address)
	if err != nil {
		return Resolution{}, err
	}

	distanceKm, durationMin, err := s.route(ctx, lat, lon)
	if err != nil {
		return Resolution{}, err
	}

	// The fee is reported even beyond the service radius; eligibility is a
	// separate verdict.
	return Resolution{
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		PickupFee:   s.fees.PickupFee(distanceKm),
		IsEligible:  distanceKm <= s.maxDistanceKm,
	}, nil
}

func (s *Service) geocode(ctx context.Context, address string) (lat, lon float64, err error) {
	params := url.Values{}
	params.Add("q", address)
	params.Add("format", "json")
	params.Add("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", s.geocodeBase, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.KindInternal, "failed to build geocode request", err)
	}
	req.Header.Set("User-Agent", "BuybackApp/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("geocode request failed", "error", err)
		return 0, 0, unavailable(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("geocode upstream error", "status", resp.StatusCode)
		return 0, 0, unavailable(fmt.Errorf("geocode upstream status %d", resp.StatusCode))
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		s.log.Error("failed to decode geocode payload", "error", err)
		return 0, 0, unavailable(err)
	}

	if len(results) == 0 {
		return 0, 0, apperr.New(apperr.KindValidation, "address could not be located").
			WithOp("routing.Resolve")
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, unavailable(fmt.Errorf("geocode returned malformed coordinates"))
	}

	return lat, lon, nil
}

func (s *Service) route(ctx context.Context, lat, lon float64) (distanceKm, durationMin float64, err error) {
	// OSRM takes lon,lat pairs.
	reqURL := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		s.routingBase, s.depotLon, s.depotLat, lon, lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.KindInternal, "failed to build route request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("route request failed", "error", err)
		return 0, 0, unavailable(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("route upstream error", "status", resp.StatusCode)
		return 0, 0, unavailable(fmt.Errorf("route upstream status %d", resp.StatusCode))
	}

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.log.Error("failed to decode route payload", "error", err)
		return 0, 0, unavailable(err)
	}

	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return 0, 0, unavailable(fmt.Errorf("route provider returned code %q", payload.Code))
	}

	return payload.Routes[0].Distance / 1000, payload.Routes[0].Duration / 60, nil
}

func unavailable(err error) error {
	return apperr.Wrap(apperr.KindBadRequest, "routing service unavailable", err).
		WithOp("routing.Resolve")
}
