package telemetry

// Alert names a condition an operator dashboard should highlight.
type Alert string

const (
	AlertLeak     Alert = "LEAK"
	AlertLowVolt  Alert = "LOW_VOLT"
	AlertHighTemp Alert = "HIGH_TEMP"
	AlertLowSoc   Alert = "LOW_SOC"
)

// Dashboard thresholds.
const (
	LowVoltThreshold  = 12.0
	HighTempThreshold = 50.0
	LowSocThreshold   = 20.0
)

// Alerts lists the alert conditions present in r, in a stable order.
func Alerts(r Record) []Alert {
	var out []Alert
	if r.Leak {
		out = append(out, AlertLeak)
	}
	if r.Battery.Voltage < LowVoltThreshold {
		out = append(out, AlertLowVolt)
	}
	if r.TempC > HighTempThreshold {
		out = append(out, AlertHighTemp)
	}
	if r.Battery.SocPct < LowSocThreshold {
		out = append(out, AlertLowSoc)
	}
	return out
}
