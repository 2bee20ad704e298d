// Package geoip resolves client addresses to approximate positions using a
// MaxMind GeoLite2/GeoIP2 City database.
package geoip

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
)

type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// Locator implements ports.Geolocator.
type Locator struct {
	db     cityReader
	locale string
}

// Open loads the City database at path.
func Open(path, locale string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db %s: %w", path, err)
	}
	return &Locator{db: db, locale: locale}, nil
}

// Locate returns the position of ip. Private, loopback and unknown addresses
// yield domain.ErrLocationUnavailable.
func (l *Locator) Locate(ctx context.Context, ip string) (*ports.Location, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, fmt.Errorf("%w: invalid address %q", domain.ErrLocationUnavailable, ip)
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return nil, fmt.Errorf("%w: non-public address %s", domain.ErrLocationUnavailable, ip)
	}

	record, err := l.db.City(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return nil, fmt.Errorf("%w: no record for %s", domain.ErrLocationUnavailable, ip)
	}

	loc := &ports.Location{
		Point: domain.GeoPoint{
			Lat: record.Location.Latitude,
			Lng: record.Location.Longitude,
		},
		// the database reports the radius in kilometers
		AccuracyMeters: float64(record.Location.AccuracyRadius) * 1000,
	}
	if name, ok := record.City.Names[l.locale]; ok {
		loc.City = name
	} else {
		loc.City = record.City.Names["en"]
	}
	return loc, nil
}

// Close releases the database.
func (l *Locator) Close() error {
	return l.db.Close()
}
