package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// Postgres is the production Store.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres opens a connection pool and verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wildfires (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			acres INTEGER NOT NULL,
			containment INTEGER NOT NULL DEFAULT 0,
			start_date TEXT NOT NULL,
			severity TEXT NOT NULL,
			cause TEXT,
			perimeter_coordinates TEXT,
			news_url TEXT,
			updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wildfires_lat_lng ON wildfires(latitude, longitude)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			wildfire_id TEXT REFERENCES wildfires(id),
			zones TEXT[],
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_wildfire ON alerts(wildfire_id)`,
		`CREATE TABLE IF NOT EXISTS updates (
			id SERIAL PRIMARY KEY,
			wildfire_id TEXT NOT NULL REFERENCES wildfires(id),
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_updates_wildfire ON updates(wildfire_id, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id SERIAL PRIMARY KEY,
			wildfire_id TEXT NOT NULL REFERENCES wildfires(id),
			email TEXT,
			phone TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	p.logger.Info("schema migrated")
	return nil
}

const fireColumns = `id, name, location, latitude, longitude, acres, containment,
	start_date, severity, cause, perimeter_coordinates, news_url, updated`

func (p *Postgres) ListFires(ctx context.Context) ([]domain.Fire, error) {
	return p.queryFires(ctx, `SELECT `+fireColumns+` FROM wildfires ORDER BY acres DESC, id`)
}

func (p *Postgres) GetFire(ctx context.Context, id string) (domain.Fire, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+fireColumns+` FROM wildfires WHERE id = $1`, id)
	f, err := scanFire(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Fire{}, ErrNotFound
	}
	return f, err
}

func (p *Postgres) FiresInBounds(ctx context.Context, b domain.Bounds) ([]domain.Fire, error) {
	return p.queryFires(ctx,
		`SELECT `+fireColumns+` FROM wildfires
		 WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		 ORDER BY acres DESC, id`,
		b.South, b.North, b.West, b.East)
}

// NearbyFires filters by haversine distance in process. The fire table is
// small enough that a full scan beats carrying PostGIS.
func (p *Postgres) NearbyFires(ctx context.Context, lat, lng, radiusMiles float64) ([]domain.Fire, error) {
	all, err := p.queryFires(ctx, `SELECT `+fireColumns+` FROM wildfires ORDER BY acres DESC, id`)
	if err != nil {
		return nil, err
	}
	var fires []domain.Fire
	for _, f := range all {
		if domain.DistanceMiles(lat, lng, f.Latitude, f.Longitude) <= radiusMiles {
			fires = append(fires, f)
		}
	}
	return fires, nil
}

func (p *Postgres) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := p.db.QueryRowContext(ctx,
		`SELECT count(*), COALESCE(sum(acres), 0) FROM wildfires WHERE containment < 100`,
	).Scan(&stats.ActiveFiresCount, &stats.TotalAcresBurning)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

func (p *Postgres) UpsertFires(ctx context.Context, fires []domain.Fire) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wildfires (`+fireColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			acres = EXCLUDED.acres,
			containment = EXCLUDED.containment,
			start_date = EXCLUDED.start_date,
			severity = EXCLUDED.severity,
			cause = EXCLUDED.cause,
			perimeter_coordinates = EXCLUDED.perimeter_coordinates,
			news_url = EXCLUDED.news_url,
			updated = EXCLUDED.updated`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fires {
		_, err := stmt.ExecContext(ctx,
			f.ID, f.Name, f.Location, f.Latitude, f.Longitude, f.Acres, f.Containment,
			f.StartDate, string(f.Severity), nullable(f.Cause),
			nullable(f.PerimeterCoordinates), nullable(f.NewsURL), f.Updated)
		if err != nil {
			return fmt.Errorf("upsert fire %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) ActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT id, type, title, message, severity, wildfire_id, zones, active, created_at
		 FROM alerts WHERE active ORDER BY created_at DESC`)
}

func (p *Postgres) AlertsByFire(ctx context.Context, fireID string) ([]domain.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT id, type, title, message, severity, wildfire_id, zones, active, created_at
		 FROM alerts WHERE wildfire_id = $1 ORDER BY created_at DESC`, fireID)
}

func (p *Postgres) InsertAlert(ctx context.Context, a domain.Alert) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, title, message, severity, wildfire_id, zones, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Type, a.Title, a.Message, string(a.Severity),
		nullable(a.WildfireID), pq.Array(a.Zones), a.Active, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, sub domain.Subscription) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO subscriptions (wildfire_id, email, phone, created_at)
		VALUES ($1,$2,$3,$4)`,
		sub.WildfireID, nullable(sub.Email), nullable(sub.Phone), sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (p *Postgres) RecentUpdates(ctx context.Context, fireID string) ([]domain.Update, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, wildfire_id, content, timestamp FROM updates
		WHERE wildfire_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		fireID, recentUpdatesLimit)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	var updates []domain.Update
	for rows.Next() {
		var u domain.Update
		if err := rows.Scan(&u.ID, &u.WildfireID, &u.Content, &u.Timestamp); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

func (p *Postgres) InsertUpdate(ctx context.Context, u domain.Update) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO updates (wildfire_id, content, timestamp) VALUES ($1,$2,$3)`,
		u.WildfireID, u.Content, u.Timestamp)
	if err != nil {
		return fmt.Errorf("insert update: %w", err)
	}
	return nil
}

func (p *Postgres) queryFires(ctx context.Context, query string, args ...any) ([]domain.Fire, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fires: %w", err)
	}
	defer rows.Close()

	var fires []domain.Fire
	for rows.Next() {
		f, err := scanFire(rows)
		if err != nil {
			return nil, err
		}
		fires = append(fires, f)
	}
	return fires, rows.Err()
}

func (p *Postgres) queryAlerts(ctx context.Context, query string, args ...any) ([]domain.Alert, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var wildfireID, severity sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &a.Message, &severity,
			&wildfireID, pq.Array(&a.Zones), &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Severity = domain.Severity(severity.String)
		a.WildfireID = wildfireID.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFire(row rowScanner) (domain.Fire, error) {
	var f domain.Fire
	var severity string
	var cause, perimeter, newsURL sql.NullString
	err := row.Scan(&f.ID, &f.Name, &f.Location, &f.Latitude, &f.Longitude,
		&f.Acres, &f.Containment, &f.StartDate, &severity,
		&cause, &perimeter, &newsURL, &f.Updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Fire{}, err
		}
		return domain.Fire{}, fmt.Errorf("scan fire: %w", err)
	}
	f.Severity = domain.Severity(severity)
	f.Cause = cause.String
	f.PerimeterCoordinates = perimeter.String
	f.NewsURL = newsURL.String
	return f, nil
}

// nullable maps "" to NULL so optional text columns stay NULL instead of
// accumulating empty strings.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
