package model

import "time"

// Documented fallbacks used whenever no configuration row exists.
const (
	DefaultEconomyRate    = 0.05
	DefaultBusinessRate   = 0.02
	DefaultMaxOverbooking = 10
	DefaultNoShowRate     = 0.08
)

// OverbookingConfig sizes the overbooking buffer of a pool.  A row keyed
// by a concrete pool wins over the default row (empty flight id).
type OverbookingConfig struct {
	FlightID       string     // overbooking_configs.flight_id ('' for the default row)
	Cabin          CabinClass // overbooking_configs.cabin_class (0 for the default row)
	EconomyRate    float64    // overbooking_configs.economy_rate
	BusinessRate   float64    // overbooking_configs.business_rate
	MaxOverbooking int        // overbooking_configs.max_overbooking
	NoShowRate     float64    // overbooking_configs.no_show_rate
	UpdatedAt      time.Time  // overbooking_configs.updated_at
}

// DefaultOverbookingConfig returns the documented defaults.
func DefaultOverbookingConfig() OverbookingConfig {
	return OverbookingConfig{
		EconomyRate:    DefaultEconomyRate,
		BusinessRate:   DefaultBusinessRate,
		MaxOverbooking: DefaultMaxOverbooking,
		NoShowRate:     DefaultNoShowRate,
	}
}

// Rate returns the configured rate for a cabin.
func (c OverbookingConfig) Rate(cabin CabinClass) float64 {
	if cabin == CabinBusiness {
		return c.BusinessRate
	}
	return c.EconomyRate
}

// Recommendation is the planning output of OverbookingPolicy.Recommend.
type Recommendation struct {
	FlightID   string  `json:"flight_id"`
	Route      string  `json:"route"`
	NoShowRate float64 `json:"no_show_rate"`
	Economy    int     `json:"economy"`
	Business   int     `json:"business"`
}

// RiskLevel grades how exposed a forecast day is to denied boardings.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ForecastPoint is one day of a DemandForecaster projection.
type ForecastPoint struct {
	Date                   time.Time `json:"date"`
	DaysToDeparture        int       `json:"days_to_departure"`
	PredictedDemand        int       `json:"predicted_demand"`
	RecommendedOverbooking int       `json:"recommended_overbooking"`
	ExpectedNoShows        int       `json:"expected_no_shows"`
	RiskLevel              RiskLevel `json:"risk_level"`
}
