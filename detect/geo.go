package detect

import (
	"strings"
)

// estimateDistanceKM estimates the distance between two IPv4 addresses
// from their octet structure. This is a coarse proxy, not geolocation:
// addresses sharing a /24 are assumed near, fully distinct addresses far.
// A documented limitation of the design, not a bug; a real deployment
// would substitute a GeoIP database behind the same signature.
func estimateDistanceKM(ip1, ip2 string) float64 {
	if ip1 == ip2 {
		return 0
	}

	parts1 := strings.Split(ip1, ".")
	parts2 := strings.Split(ip2, ".")

	n := len(parts1)
	if len(parts2) < n {
		n = len(parts2)
	}

	diffs := 0
	for i := 0; i < n; i++ {
		if parts1[i] != parts2[i] {
			diffs++
		}
	}

	// Same /8 is local, same /16 regional, beyond that intercontinental.
	switch diffs {
	case 0:
		return 0
	case 1:
		return 50
	case 2:
		return 300
	case 3:
		return 1000
	default:
		return 2500
	}
}
