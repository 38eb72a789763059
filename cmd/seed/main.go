package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"solarcast/internal/config"
	"solarcast/internal/database"
	"solarcast/internal/models"
	"strconv"
)

func main() {
	csvPath := flag.String("csv", "sites_seed.csv", "CSV file with name,latitude,longitude,tilt,azimuth,capacity_kw")
	flag.Parse()

	// Load config for database connection
	if _, err := config.Load("./config.yaml"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.NewDB(config.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	// Create CSV reader
	reader := csv.NewReader(file)

	// Read header row
	header, err := reader.Read()
	if err != nil {
		log.Fatalf("Failed to read CSV header: %v", err)
	}
	log.Printf("CSV Header: %v\n", header)

	// Read and insert all sites
	count := 0
	skipped := 0

	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatalf("Failed to read CSV record: %v", err)
		}

		site, err := parseSite(record)
		if err != nil {
			log.Printf("Skipping record %v: %v", record, err)
			skipped++
			continue
		}

		err = db.InsertSite(site)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateSite) {
				log.Printf("Site already exists: %s", site.Name)
			} else {
				log.Printf("Failed to insert site %s: %v", site.Name, err)
			}
			skipped++
			continue
		}

		count++
		if count%100 == 0 {
			log.Printf("Inserted %d sites...", count)
		}
	}

	log.Printf("Import complete! Successfully inserted %d sites, skipped %d", count, skipped)
}

// parseSite reads one name,latitude,longitude,tilt,azimuth,capacity_kw record
func parseSite(record []string) (models.Site, error) {
	if len(record) < 6 {
		return models.Site{}, fmt.Errorf("expected 6 fields, got %d", len(record))
	}

	values := make([]float64, 5)
	columns := []string{"latitude", "longitude", "tilt", "azimuth", "capacity_kw"}
	for i, column := range columns {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return models.Site{}, fmt.Errorf("invalid %s %q", column, record[i+1])
		}
		values[i] = v
	}

	site := models.Site{
		Name:        record[0],
		Location:    models.Location{Latitude: values[0], Longitude: values[1]},
		Orientation: models.SurfaceOrientation{Tilt: values[2], Azimuth: values[3]},
		CapacityKW:  values[4],
	}

	if err := config.ValidateSite(site); err != nil {
		return models.Site{}, err
	}
	return site, nil
}
