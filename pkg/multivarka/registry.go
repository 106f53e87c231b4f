package multivarka

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver makes a driver available for addresses using scheme.
// The first registration for a scheme wins; nil drivers are ignored.
func RegisterDriver(scheme string, driver Driver) {
	if driver == nil || scheme == "" {
		return
	}
	driversMu.Lock()
	defer driversMu.Unlock()

	scheme = strings.ToLower(scheme)
	if _, ok := drivers[scheme]; !ok {
		drivers[scheme] = driver
	}
}

// Drivers returns the registered schemes, sorted
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	schemes := make([]string, 0, len(drivers))
	for s := range drivers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// lookupDriver picks the driver registered for the scheme of address
func lookupDriver(address string) (Driver, error) {
	scheme, _, ok := strings.Cut(address, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: address has no scheme", ErrNoDriver)
	}

	driversMu.RLock()
	defer driversMu.RUnlock()

	driver, ok := drivers[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("%w for scheme %q", ErrNoDriver, scheme)
	}
	return driver, nil
}
