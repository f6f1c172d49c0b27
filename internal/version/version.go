// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags "-X .../version.Version=..."
package version

import "fmt"

// Version is the release version, "dev" for local builds
var Version = "dev"

const (
	// Product is the name reported to peers and in logs
	Product = "wavstream"

	// Manufacturer identifies the vendor
	Manufacturer = "harperreed"
)

// UserAgent returns the HTTP User-Agent sent on outgoing connections
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Product, Version)
}
