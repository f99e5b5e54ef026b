package risk

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// CalculateVaR estimates VaR/CVaR by historical simulation.
// returns are periodic returns (gain > 0, loss < 0); results follow VaRConvention.
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	out := VaRResult{Confidence: confidence}
	n := len(returns)
	if n == 0 {
		return out
	}

	ordered := slices.Clone(returns)
	slices.Sort(ordered) // 최악의 손실이 맨 앞

	cut := min(int(math.Floor((1-confidence)*float64(n))), n-1)
	tail := ordered[:cut+1]

	out.VaR = asLoss(ordered[cut])
	out.CVaR = asLoss(floats.Sum(tail) / float64(len(tail)))
	return out
}

// CalculateParametricVaR assumes normally distributed returns with the given moments.
// 분산이 0이거나 신뢰수준이 (0,1) 밖이면 평균만으로 손실을 정함
func CalculateParametricVaR(mean, stdDev, confidence float64) VaRResult {
	if stdDev <= 0 || confidence <= 0 || confidence >= 1 {
		loss := asLoss(mean)
		return VaRResult{Confidence: confidence, VaR: loss, CVaR: loss}
	}

	z := distuv.UnitNormal.Quantile(confidence)
	tailMean := stdDev * distuv.UnitNormal.Prob(z) / (1 - confidence) // E[-X | X < -VaR] + μ

	return VaRResult{
		Confidence: confidence,
		VaR:        math.Max(0, z*stdDev-mean),
		CVaR:       math.Max(0, tailMean-mean),
	}
}

// asLoss converts a return into a non-negative loss
func asLoss(r float64) float64 {
	return math.Max(0, -r)
}
