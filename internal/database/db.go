package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"solarcast/internal/metrics"
	"solarcast/internal/models"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateSite is returned when a site name is already registered
var ErrDuplicateSite = errors.New("duplicate site")

// ErrSiteNotFound is returned when no site has the requested name
var ErrSiteNotFound = errors.New("site not found")

// mysqlDuplicateEntry is the server error number for a unique key violation
const mysqlDuplicateEntry = 1062

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true&loc=UTC"
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newDB(conn)
}

// newDB takes ownership of conn and closes it if the database is not usable
func newDB(conn *sql.DB) (*DB, error) {
	// Test connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the site registry and the weather snapshot table
func (db *DB) initSchema() error {
	// MySQL doesn't support multiple statements in one Exec, so we need to split them
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			tilt DOUBLE NOT NULL,
			azimuth DOUBLE NOT NULL,
			capacity_kw DOUBLE NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uq_sites_name (name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS observations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site VARCHAR(255) NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			temperature_c DOUBLE NOT NULL,
			ghi DOUBLE NOT NULL,
			dni DOUBLE NOT NULL,
			dhi DOUBLE NOT NULL,
			fetched_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_observations_site_ts (site, timestamp),
			INDEX idx_observations_timestamp (timestamp)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (db *DB) recordPoolStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// InsertSite registers a new site
func (db *DB) InsertSite(site models.Site) error {
	defer db.recordPoolStats()

	query := `INSERT INTO sites (name, latitude, longitude, tilt, azimuth, capacity_kw) VALUES (?, ?, ?, ?, ?, ?)`
	queryStart := time.Now()
	_, err := db.conn.Exec(query, site.Name, site.Location.Latitude, site.Location.Longitude,
		site.Orientation.Tilt, site.Orientation.Azimuth, site.CapacityKW)
	metrics.RecordDBQuery("INSERT", "sites", time.Since(queryStart), err)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSite, site.Name)
		}
		return fmt.Errorf("failed to insert site: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// GetAllSites retrieves all sites ordered by name
func (db *DB) GetAllSites() ([]models.Site, error) {
	query := `SELECT name, latitude, longitude, tilt, azimuth, capacity_kw FROM sites ORDER BY name`
	queryStart := time.Now()
	rows, err := db.conn.Query(query)
	metrics.RecordDBQuery("SELECT", "sites", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}

	return sites, nil
}

// GetSiteByName retrieves a specific site by name
func (db *DB) GetSiteByName(name string) (*models.Site, error) {
	query := `SELECT name, latitude, longitude, tilt, azimuth, capacity_kw FROM sites WHERE name = ? LIMIT 1`
	queryStart := time.Now()
	row := db.conn.QueryRow(query, name)

	site, err := scanSite(row)
	metrics.RecordDBQuery("SELECT", "sites", time.Since(queryStart), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	return &site, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSite(s scanner) (models.Site, error) {
	var site models.Site
	err := s.Scan(&site.Name, &site.Location.Latitude, &site.Location.Longitude,
		&site.Orientation.Tilt, &site.Orientation.Azimuth, &site.CapacityKW)
	if errors.Is(err, sql.ErrNoRows) {
		return site, err
	}
	if err != nil {
		return site, fmt.Errorf("failed to scan site: %w", err)
	}
	return site, nil
}

// StoreObservations saves the raw weather used for a run. Re-fetched hours overwrite older values.
func (db *DB) StoreObservations(site string, obs []models.SkyObservation) error {
	if len(obs) == 0 {
		return nil
	}
	defer db.recordPoolStats()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if committed

	stmt, err := tx.Prepare(`INSERT INTO observations (site, timestamp, temperature_c, ghi, dni, dhi, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE temperature_c = VALUES(temperature_c), ghi = VALUES(ghi), dni = VALUES(dni),
			dhi = VALUES(dhi), fetched_at = VALUES(fetched_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC()
	queryStart := time.Now()
	for _, o := range obs {
		_, err = stmt.Exec(site, o.Timestamp.UTC(), o.TemperatureC, o.GHI, o.DNI, o.DHI, fetchedAt)
		if err != nil {
			metrics.RecordDBQuery("INSERT", "observations", time.Since(queryStart), err)
			return fmt.Errorf("failed to insert observation for %s at %s: %w", site, o.Timestamp.Format(time.RFC3339), err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("INSERT", "observations", time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("✓ Stored %d observations for %s", len(obs), site)
	return nil
}

// GetObservations returns the stored observations for site at or after since, oldest first
func (db *DB) GetObservations(site string, since time.Time) ([]models.SkyObservation, error) {
	query := `SELECT timestamp, temperature_c, ghi, dni, dhi FROM observations WHERE site = ? AND timestamp >= ? ORDER BY timestamp ASC`
	queryStart := time.Now()
	rows, err := db.conn.Query(query, site, since.UTC())
	metrics.RecordDBQuery("SELECT", "observations", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var obs []models.SkyObservation
	for rows.Next() {
		var o models.SkyObservation
		if err := rows.Scan(&o.Timestamp, &o.TemperatureC, &o.GHI, &o.DNI, &o.DHI); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Timestamp = o.Timestamp.UTC()
		obs = append(obs, o)
	}

	return obs, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
