package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// MySQLOverbookingConfigs stores overbooking_configs rows.  The default
// row uses an empty flight_id and cabin_class.
type MySQLOverbookingConfigs struct {
	db *sql.DB
}

// NewMySQLOverbookingConfigs returns a config store bound to db.
func NewMySQLOverbookingConfigs(db *sql.DB) *MySQLOverbookingConfigs {
	return &MySQLOverbookingConfigs{db: db}
}

// Lookup implements OverbookingConfigStore.  The pool-specific row sorts
// ahead of the default row.
func (r *MySQLOverbookingConfigs) Lookup(ctx context.Context, key model.PoolKey) (model.OverbookingConfig, bool, error) {
	const q = `SELECT flight_id, cabin_class, economy_rate, business_rate, max_overbooking, no_show_rate, updated_at
	             FROM overbooking_configs
	            WHERE (flight_id = ? AND cabin_class = ?) OR (flight_id = '' AND cabin_class = '')
	            ORDER BY flight_id = ''
	            LIMIT 1`
	var cfg model.OverbookingConfig
	var cabin string
	err := r.db.QueryRowContext(ctx, q, key.FlightID, key.Cabin.String()).Scan(
		&cfg.FlightID, &cabin, &cfg.EconomyRate, &cfg.BusinessRate, &cfg.MaxOverbooking, &cfg.NoShowRate, &cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OverbookingConfig{}, false, nil
	}
	if err != nil {
		return model.OverbookingConfig{}, false, classify("lookup overbooking config", err)
	}
	if cabin != "" {
		if c, perr := model.ParseCabinClass(cabin); perr == nil {
			cfg.Cabin = c
		}
	}
	return cfg, true, nil
}

// Save implements OverbookingConfigStore.
func (r *MySQLOverbookingConfigs) Save(ctx context.Context, cfg model.OverbookingConfig) error {
	cabin := ""
	if cfg.FlightID != "" && cfg.Cabin.Valid() {
		cabin = cfg.Cabin.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO overbooking_configs (flight_id, cabin_class, economy_rate, business_rate, max_overbooking, no_show_rate, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())
		 ON DUPLICATE KEY UPDATE economy_rate = VALUES(economy_rate), business_rate = VALUES(business_rate),
		    max_overbooking = VALUES(max_overbooking), no_show_rate = VALUES(no_show_rate), updated_at = VALUES(updated_at)`,
		cfg.FlightID, cabin, cfg.EconomyRate, cfg.BusinessRate, cfg.MaxOverbooking, cfg.NoShowRate,
	)
	return classify("save overbooking config", err)
}

// MySQLNoShowStats reads route_no_show_stats, which the analytics
// pipeline maintains.
type MySQLNoShowStats struct {
	db *sql.DB
}

// NewMySQLNoShowStats returns a NoShowSource bound to db.
func NewMySQLNoShowStats(db *sql.DB) *MySQLNoShowStats { return &MySQLNoShowStats{db: db} }

// NoShowRate implements NoShowSource.
func (r *MySQLNoShowStats) NoShowRate(ctx context.Context, route string) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRowContext(ctx, `SELECT no_show_rate FROM route_no_show_stats WHERE route = ?`, route).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("no-show rate "+route, err)
	}
	return rate, true, nil
}
