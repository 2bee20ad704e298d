package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kr/pretty"

	"github.com/samirrijal/maproute/internal/adapters/googlemaps"
	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/usecases"
	"github.com/samirrijal/maproute/internal/pkg/config"
	"github.com/samirrijal/maproute/internal/pkg/logging"
	"github.com/samirrijal/maproute/internal/pkg/virtualizer"
)

func main() {
	from := flag.String("from", "", "origin as lat,lng")
	to := flag.String("to", "", "destination as lat,lng")
	rows := flag.Int("rows", 10, "number of list rows to print")
	flag.Parse()

	origin, err := parsePoint(*from)
	if err != nil {
		log.Fatalf("-from: %v", err)
	}
	destination, err := parsePoint(*to)
	if err != nil {
		log.Fatalf("-to: %v", err)
	}
	if *rows < 1 {
		log.Fatalf("-rows: must be at least 1, got %d", *rows)
	}

	cfg, err := config.Load("maproute-routectl")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text", "maproute-routectl")

	provider, err := googlemaps.New(googlemaps.Options{
		APIKey:   cfg.Google.APIKey,
		BaseURL:  cfg.Google.BaseURL,
		Language: cfg.Google.Language,
	})
	if err != nil {
		log.Fatalf("directions provider: %v", err)
	}

	fetcher := usecases.NewRouteFetcher(provider, nil, cfg.Directions.Timeout, 0)
	route, err := fetcher.FetchRoute(context.Background(), origin, destination)
	if err != nil {
		fmt.Fprintln(os.Stderr, usecases.ToastMessage(err))
		log.Fatalf("fetch: %v", err)
	}

	fmt.Printf("%# v\n", pretty.Formatter(route.Summarize()))

	list := virtualizer.New(len(route.Path), cfg.Map.RowHeight, 0)
	win := usecases.BuildRouteWindow(list, route.Path, 0, listHeight(*rows, cfg.Map.RowHeight))
	for _, row := range win.Rows {
		fmt.Printf("%5d  %s\n", row.Index, row.Label)
	}
	if win.EndIndex < win.Count-1 {
		fmt.Printf("  ... %d more\n", win.Count-1-win.EndIndex)
	}
}

// listHeight is the viewport height that shows exactly rows rows.
func listHeight(rows int, rowHeight float64) float64 {
	return float64(rows) * rowHeight
}

// parsePoint reads a "lat,lng" pair.
func parsePoint(s string) (domain.GeoPoint, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return domain.GeoPoint{}, errors.New("expected lat,lng")
	}
	var p domain.GeoPoint
	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lat: %w", err)
	}
	if p.Lng, err = strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lng: %w", err)
	}
	return p, p.Validate()
}
