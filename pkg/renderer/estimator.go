package renderer

import "github.com/df07/go-progressive-photonmapper/pkg/core"

// EstimateIrradiance overwrites frame with the photon-mapped image after
// round completed rounds. Each HitPoint contributes its flux density
// scale·phi/(r2·round) times its path weight; each background HitPoint
// contributes the background color times its weight.
func EstimateIrradiance(frame *Frame, index *SpatialIndex, background []BackgroundHitPoint, backgroundColor core.Vec3, round int, scale float64) {
	frame.Reset()

	if round > 0 {
		for i := range index.sites {
			st := &index.stats[i]
			if st.R2 <= 0 || st.Phi.IsZero() {
				continue
			}
			hp := &index.sites[i]
			irradiance := st.Phi.Multiply(scale / (st.R2 * float64(round)))
			frame.Add(hp.Col, hp.Row, irradiance.MultiplyVec(hp.Weight))
		}
	}

	for _, bg := range background {
		frame.Add(bg.Col, bg.Row, backgroundColor.MultiplyVec(bg.Weight))
	}
}
