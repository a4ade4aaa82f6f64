package util

import (
	"cosmossdk.io/math"
)

// CalcMean returns the arithmetic mean of numbers, or zero for none.
func CalcMean(numbers []math.LegacyDec) math.LegacyDec {
	if len(numbers) == 0 {
		return math.LegacyZeroDec()
	}
	sum := math.LegacyZeroDec()
	for _, num := range numbers {
		sum = sum.Add(num)
	}
	return sum.QuoInt64(int64(len(numbers)))
}

// CalcStandardDeviation returns the population standard deviation.
func CalcStandardDeviation(numbers []math.LegacyDec) (math.LegacyDec, error) {
	if len(numbers) == 0 {
		return math.LegacyZeroDec(), nil
	}
	mean := CalcMean(numbers)
	variance := math.LegacyZeroDec()
	for _, num := range numbers {
		diff := num.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.QuoInt64(int64(len(numbers)))
	return variance.ApproxSqrt()
}

// CalcCoeficientOfVariation returns the standard deviation as a percentage
// of the mean. A zero mean yields zero.
func CalcCoeficientOfVariation(numbers []math.LegacyDec) (math.LegacyDec, error) {
	mean := CalcMean(numbers)
	if mean.IsZero() {
		return math.LegacyZeroDec(), nil
	}
	stdDev, err := CalcStandardDeviation(numbers)
	if err != nil {
		return math.LegacyDec{}, err
	}
	return stdDev.Quo(mean).MulInt64(100), nil
}

// RelativeDeviation returns |value - reference| / reference. A non-positive
// reference yields zero.
func RelativeDeviation(value, reference math.LegacyDec) math.LegacyDec {
	if !reference.IsPositive() {
		return math.LegacyZeroDec()
	}
	return value.Sub(reference).Abs().Quo(reference)
}
