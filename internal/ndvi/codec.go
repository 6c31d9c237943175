// Package ndvi reads the Sentinel-2 vegetation index composites, stored as
// 8-bit digital numbers in GeoTIFF files.
package ndvi

// MaxDN is the digital number that encodes NDVI 1.0; 0 encodes -1.0.
const MaxDN = 254

// Decode converts a digital number to NDVI.
func Decode(dn float64) float64 {
	return dn/MaxDN*2 - 1
}

// Encode converts NDVI to a digital number. Encode(Decode(dn)) == dn.
func Encode(v float64) float64 {
	return (v + 1) / 2 * MaxDN
}
