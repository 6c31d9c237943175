package align

import (
	"math"

	"github.com/sells-group/uhi-cli/internal/geo"
	"github.com/sells-group/uhi-cli/internal/grid"
	"github.com/sells-group/uhi-cli/internal/model"
)

// MaskLand nulls every cell of g whose centre is not on land. When the mask
// cannot be trusted (empty, or not in geographic WGS84) g is returned
// unchanged together with a warning.
func MaskLand(g *grid.ScalarGrid, mask *geo.LandMask) (*grid.ScalarGrid, *model.AlignmentWarning) {
	if mask.Empty() {
		return g, &model.AlignmentWarning{Stage: StageMask, Message: "land mask is empty, temperature left unmasked"}
	}
	if mask.SRID != geo.SRIDWGS84 {
		return g, &model.AlignmentWarning{
			Stage:   StageMask,
			Message: "land mask is not in EPSG:4326, temperature left unmasked",
		}
	}

	lat, lon := g.Lat(), g.Lon()
	values := g.Values()
	for i, y := range lat {
		for j, x := range lon {
			if !mask.Contains(x, y) {
				values[i*len(lon)+j] = math.NaN()
			}
		}
	}
	masked, err := g.WithValues(values)
	if err != nil {
		// same shape by construction
		return g, &model.AlignmentWarning{Stage: StageMask, Message: err.Error()}
	}
	return masked, nil
}

// MaskPair applies MaskLand to the temperature side of pair.
func MaskPair(pair *grid.AlignedPair, mask *geo.LandMask) (*grid.AlignedPair, *model.AlignmentWarning, error) {
	masked, warning := MaskLand(pair.Temperature(), mask)
	if warning != nil {
		return pair, warning, nil
	}
	out, err := pair.WithTemperature(masked)
	if err != nil {
		return nil, nil, err
	}
	return out, nil, nil
}
