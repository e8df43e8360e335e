package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buyback_backend/platform/apperr"
	"buyback_backend/platform/logger"
)

type staticFees struct{ fee int64 }

func (f staticFees) PickupFee(float64) int64 { return f.fee }

type routingCfg struct {
	geocodeBase string
	routingBase string
	maxDistance float64
}

func (c routingCfg) GetGeocodeBaseURL() string        { return c.geocodeBase }
func (c routingCfg) GetRoutingBaseURL() string        { return c.routingBase }
func (c routingCfg) GetRoutingTimeout() time.Duration { return 2 * time.Second }
func (c routingCfg) GetMaxPickupDistanceKm() float64  { return c.maxDistance }
func (c routingCfg) GetDepotLat() float64             { return 40.75 }
func (c routingCfg) GetDepotLon() float64             { return -73.99 }

func newTestService(t *testing.T, geocodeHandler, routeHandler http.HandlerFunc, maxDistance float64, fee int64) *Service {
	t.Helper()
	geocodeSrv := httptest.NewServer(geocodeHandler)
	t.Cleanup(geocodeSrv.Close)
	routeSrv := httptest.NewServer(routeHandler)
	t.Cleanup(routeSrv.Close)

	cfg := routingCfg{geocodeBase: geocodeSrv.URL, routingBase: routeSrv.URL, maxDistance: maxDistance}
	return NewService(cfg, staticFees{fee: fee}, logger.New("test"))
}

func geocodeOK(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, `[{"display_name":"somewhere","lat":"40.80","lon":"-73.95"}]`)
}

func routeMeters(meters float64) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"distance":%f,"duration":1800}]}`, meters)
	}
}

func TestResolveEligible(t *testing.T) {
	svc := newTestService(t, geocodeOK, routeMeters(15000), 60, 10)

	res, err := svc.Resolve(context.Background(), "350 5th Ave, New York")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.IsEligible {
		t.Fatal("expected address within range to be eligible")
	}
	if res.DistanceKm != 15 {
		t.Fatalf("DistanceKm = %v, want 15", res.DistanceKm)
	}
	if res.DurationMin != 30 {
		t.Fatalf("DurationMin = %v, want 30", res.DurationMin)
	}
	if res.PickupFee != 10 {
		t.Fatalf("PickupFee = %d, want 10", res.PickupFee)
	}
}

func TestResolveBeyondMaxDistance(t *testing.T) {
	svc := newTestService(t, geocodeOK, routeMeters(75000), 60, 10)

	res, err := svc.Resolve(context.Background(), "far away")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.IsEligible {
		t.Fatal("expected address beyond max distance to be ineligible")
	}
	if res.PickupFee != 10 {
		t.Fatalf("PickupFee = %d, want 10 even when ineligible", res.PickupFee)
	}
}

func TestResolveProviderDown(t *testing.T) {
	failing := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	t.Run("geocode down", func(t *testing.T) {
		svc := newTestService(t, failing, routeMeters(1000), 60, 0)
		_, err := svc.Resolve(context.Background(), "anywhere")
		if err == nil {
			t.Fatal("expected error when geocode provider is down")
		}
		if apperr.GetKind(err) != apperr.KindBadRequest {
			t.Fatalf("kind = %v, want KindBadRequest", apperr.GetKind(err))
		}
	})

	t.Run("route down", func(t *testing.T) {
		svc := newTestService(t, geocodeOK, failing, 60, 0)
		_, err := svc.Resolve(context.Background(), "anywhere")
		if err == nil {
			t.Fatal("expected error when route provider is down")
		}
		if apperr.GetKind(err) != apperr.KindBadRequest {
			t.Fatalf("kind = %v, want KindBadRequest", apperr.GetKind(err))
		}
	})
}

func TestResolveNoGeocodeResults(t *testing.T) {
	empty := func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}
	svc := newTestService(t, empty, routeMeters(1000), 60, 0)

	_, err := svc.Resolve(context.Background(), "gibberish")
	if err == nil {
		t.Fatal("expected error for unlocatable address")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
	}
}
