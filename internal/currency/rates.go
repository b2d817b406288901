package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"treatylens/internal/config"
	"treatylens/internal/infrastructure"
)

// RateSource labels where a conversion rate came from so the response can
// disclose when hard-coded fallbacks were used.
type RateSource string

const (
	SourcePrimary   RateSource = "primary_api"
	SourceSecondary RateSource = "secondary_api"
	SourceFallback  RateSource = "fallback_constant"
)

// Rate is one resolved local-per-USD rate.
type Rate struct {
	Currency string     `json:"currency"`
	Value    float64    `json:"value"`
	Source   RateSource `json:"source"`
}

type provider struct {
	name RateSource
	url  string
}

// Service fetches USD conversion rates from a chain of public providers,
// falling back to configured constants when none responds. Call NewSession
// per analysis run; rates are cached inside the session so one run never
// mixes rates fetched at different moments.
type Service struct {
	client    *http.Client
	providers []provider
	fallbacks map[string]float64
	logger    *slog.Logger
}

func NewService(cfg config.RatesConfig, logger *slog.Logger) *Service {
	return &Service{
		client:    &http.Client{Timeout: cfg.Timeout},
		providers: []provider{{SourcePrimary, cfg.PrimaryURL}, {SourceSecondary, cfg.SecondaryURL}},
		fallbacks: cfg.Fallbacks,
		logger:    logger,
	}
}

// Session is a per-run view over the service. The first lookup of a
// currency hits the provider chain; every later lookup in the same run
// returns the cached value, provider failures included.
type Session struct {
	svc   *Service
	cache *gocache.Cache
}

func (s *Service) NewSession() *Session {
	return &Session{
		svc:   s,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Rate returns the local-per-USD rate for the given ISO currency code.
func (s *Session) Rate(ctx context.Context, code string) Rate {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == "USD" {
		return Rate{Currency: "USD", Value: 1, Source: SourceFallback}
	}
	if cached, ok := s.cache.Get(code); ok {
		return cached.(Rate)
	}
	rate := s.svc.fetch(ctx, code)
	s.cache.Set(code, rate, gocache.NoExpiration)
	return rate
}

// ToUSD converts a local-currency amount using the session rate. The
// returned Rate lets callers disclose the source used.
func (s *Session) ToUSD(ctx context.Context, amount float64, code string) (float64, Rate) {
	rate := s.Rate(ctx, code)
	if rate.Value <= 0 {
		return 0, rate
	}
	return amount / rate.Value, rate
}

func (s *Service) fetch(ctx context.Context, code string) Rate {
	for _, p := range s.providers {
		if p.url == "" {
			continue
		}
		value, err := s.query(ctx, p.url, code)
		if err != nil {
			s.logger.WarnContext(ctx, "rate provider failed",
				"provider", string(p.name),
				"currency", code,
				"error", err,
			)
			continue
		}
		return Rate{Currency: code, Value: value, Source: p.name}
	}

	infrastructure.RateFallbacks.WithLabelValues(code).Inc()
	fallback, ok := s.fallbacks[code]
	if !ok {
		s.logger.ErrorContext(ctx, "no rate available and no fallback configured", "currency", code)
		return Rate{Currency: code, Source: SourceFallback}
	}
	s.logger.WarnContext(ctx, "using fallback conversion rate",
		"currency", code,
		"rate", fallback,
	)
	return Rate{Currency: code, Value: fallback, Source: SourceFallback}
}

// Both providers answer {"rates": {"COP": 4123.5, ...}} with USD as the
// base, so one decoder covers the chain.
func (s *Service) query(ctx context.Context, url, code string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode rates: %w", err)
	}
	value, ok := payload.Rates[code]
	if !ok || value <= 0 {
		return 0, fmt.Errorf("currency %s not present in provider response", code)
	}
	return value, nil
}
