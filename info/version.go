// Package info holds the service name and version for banners and API
// responses.
package info

import "fmt"

var (
	name    = "entropyd"
	version = "0.0.0"
)

// Set sets the service name and version.
func Set(serviceName, serviceVersion string) {
	name = serviceName
	version = serviceVersion
}

// Name returns the service name.
func Name() string {
	return name
}

// Version returns the service version.
func Version() string {
	return version
}

// FullVersion returns a one-line name and version string.
func FullVersion() string {
	return fmt.Sprintf("%s %s", name, version)
}
