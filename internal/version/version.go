// ABOUTME: Product and version identifiers
// ABOUTME: Reported by the version command and written to logs at startup
package version

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the human-readable product name
	Product = "Resonate Capture"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
