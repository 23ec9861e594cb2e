// README: Imports the curated spot list from JSON into Postgres, geocoding spots without coordinates.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"docent/internal/config"
	"docent/internal/infra"
	"docent/internal/maps"
	"docent/internal/modules/guide"
	"docent/internal/modules/poi"
	"docent/internal/types"
)

// spotRecord is one entry of the curated spot file. File order is the tour
// order and the nearest-query tie-break order. Lat/Lng may be omitted when an
// address is given; the importer geocodes those.
type spotRecord struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Lat     float64           `json:"lat"`
	Lng     float64           `json:"lng"`
	Address string            `json:"address"`
	Intro   map[string]string `json:"intro"`
	Audio   map[string]string `json:"audio"`
}

func main() {
	input := flag.String("input", "data/spots.json", "path to the spot list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("read %s: %v", *input, err)
	}
	var records []spotRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Fatalf("parse %s: %v", *input, err)
	}
	if len(records) == 0 {
		log.Fatalf("%s contains no spots", *input)
	}

	var geocoder *maps.GeocodeService
	if cfg.Maps.APIKey != "" {
		geocoder, err = maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	store := poi.NewStore(dbPool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("spot schema: %v", err)
	}

	for ord, rec := range records {
		spot, err := toSpot(ctx, rec, geocoder)
		if err != nil {
			log.Fatalf("spot %q: %v", rec.ID, err)
		}
		if err := store.Upsert(ctx, spot, ord); err != nil {
			log.Fatalf("upsert %q: %v", rec.ID, err)
		}
		fmt.Printf("imported %s (%s) at %.6f,%.6f\n",
			spot.ID, spot.Name, spot.Position.Lat, spot.Position.Lng)
	}
	fmt.Printf("done, %d spots\n", len(records))
}

func toSpot(ctx context.Context, rec spotRecord, geocoder *maps.GeocodeService) (*poi.Spot, error) {
	if rec.ID == "" || rec.Name == "" {
		return nil, fmt.Errorf("id and name are required")
	}

	pos := types.Point{Lat: rec.Lat, Lng: rec.Lng}
	switch {
	case rec.Lat == 0 && rec.Lng == 0 && rec.Address != "":
		if geocoder == nil {
			return nil, fmt.Errorf("no coordinates and MAPS_API_KEY not set")
		}
		var err error
		pos, err = geocoder.Geocode(ctx, rec.Address)
		if err != nil {
			return nil, err
		}
	case !pos.Valid():
		return nil, fmt.Errorf("coordinates out of range")
	}

	spot := &poi.Spot{
		ID:       types.ID(rec.ID),
		Name:     rec.Name,
		Position: pos,
		Intro:    map[string]string{},
		Content:  map[string]string{},
	}
	for lang, intro := range rec.Intro {
		spot.Intro[lang] = intro
		// Audio keys follow the bucket convention unless overridden.
		spot.Content[lang] = guide.ObjectKey(rec.ID, lang)
	}
	for lang, key := range rec.Audio {
		spot.Content[lang] = key
	}
	return spot, nil
}
