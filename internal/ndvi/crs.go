package ndvi

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/uhi-cli/internal/grid"
)

const webMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

// epsgProj4 covers the CRSs the composites are published in.
var epsgProj4 = map[int]string{
	4326: grid.WGS84,
	4258: "+proj=longlat +ellps=GRS80 +no_defs",
	3857: webMercator,
	3035: "+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80 +units=m +no_defs",
}

// Proj4ForEPSG returns the proj4 definition for an EPSG code. WGS84 UTM
// zones (326xx north, 327xx south) are generated.
func Proj4ForEPSG(code int) (string, error) {
	if p, ok := epsgProj4[code]; ok {
		return p, nil
	}
	switch {
	case code > 32600 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), nil
	case code > 32700 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), nil
	}
	return "", eris.Errorf("ndvi: unsupported EPSG:%d, set ndvi.proj4", code)
}
