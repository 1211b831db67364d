package bmp280

// The two functions below follow the BMP280 datasheet's integer reference
// code. Shift amounts and multiplication order are part of the algorithm;
// int32/int64 overflow wraps exactly as the reference expects.

// CompensateTemperature converts a raw 20-bit temperature into hundredths of
// a degree Celsius. fine is the carried t_fine value that pressure
// compensation of the same sample needs.
func CompensateTemperature(adcT int32, c Coefficients) (centiC int32, fine int32) {
	t1 := int32(c.T1)
	t2 := int32(c.T2)
	t3 := int32(c.T3)

	var1 := (((adcT >> 3) - (t1 << 1)) * t2) >> 11
	d := (adcT >> 4) - t1
	var2 := (((d * d) >> 12) * t3) >> 14

	fine = var1 + var2
	centiC = (fine*5 + 128) >> 8
	return centiC, fine
}

// CompensatePressure converts a raw 20-bit pressure into Pa in Q24.8 (divide
// by 256 for Pa). fine must come from CompensateTemperature of the same
// sample. A zero first-stage divisor yields 0.
func CompensatePressure(adcP int32, fine int32, c Coefficients) int64 {
	var1 := int64(fine) - 128000
	var2 := var1 * var1 * int64(c.P6)
	var2 = var2 + ((var1 * int64(c.P5)) << 17)
	var2 = var2 + (int64(c.P4) << 35)
	var1 = ((var1 * var1 * int64(c.P3)) >> 8) + ((var1 * int64(c.P2)) << 12)
	var1 = (((int64(1) << 47) + var1) * int64(c.P1)) >> 33
	if var1 == 0 {
		return 0
	}

	p := 1048576 - int64(adcP)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.P9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.P8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.P7) << 4)
	return p
}

// Celsius converts CompensateTemperature output to °C.
func Celsius(centiC int32) float64 { return float64(centiC) / 100 }

// HectoPascal converts CompensatePressure output to hPa.
func HectoPascal(q248 int64) float64 { return float64(q248) / 256 / 100 }
