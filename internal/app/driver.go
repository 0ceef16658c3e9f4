package app

import (
	"fmt"
	"strings"
)

// Driver selects the cache backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// DriverMeta describes a cache backend.
type DriverMeta struct {
	Name       string
	Persistent bool
}

var validDrivers = map[Driver]DriverMeta{
	DriverMemory:   {Name: "in-process map", Persistent: false},
	DriverPostgres: {Name: "postgres table", Persistent: true},
	DriverRedis:    {Name: "redis hash", Persistent: true},
}

// IsValid checks if the Driver is a known backend
func (d Driver) IsValid() bool {
	_, ok := validDrivers[d]
	return ok
}

func (d Driver) Meta() DriverMeta {
	return validDrivers[d]
}

// ParseDriver parses a config value, ignoring case and surrounding space.
func ParseDriver(s string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("invalid cache driver: %q", s)
	}
	return d, nil
}
