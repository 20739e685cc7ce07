package power

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"godce/domain/core"
)

// WTPInterval computes a delta-method confidence interval for
// willingness-to-pay, WTP = -beta / priceBeta, from estimated coefficients
// and their standard errors.
func WTPInterval(beta, seBeta, priceBeta, priceSE, alpha float64) (lower, upper float64, err error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, 0, core.NewInvalidPowerTargetError("alpha", alpha)
	}
	if priceBeta == 0 {
		return 0, 0, core.NewInvalidPowerTargetError("price_beta", priceBeta)
	}

	z := distuv.UnitNormal.Quantile(1 - alpha/2)

	wtp := -beta / priceBeta
	variance := (seBeta*seBeta*priceBeta*priceBeta + beta*beta*priceSE*priceSE) /
		math.Pow(priceBeta, 4)
	margin := z * math.Sqrt(variance)

	return wtp - margin, wtp + margin, nil
}
