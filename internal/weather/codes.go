package weather

// WMO weather interpretation codes, as used by Open-Meteo. Conditions
// and icons come from coarse buckets, descriptions from an exact-match
// table.

type codeBucket struct {
	max       int
	condition string
	icon      string
}

// Buckets are checked in order; the first one whose upper bound covers
// the code wins.
var codeBuckets = []codeBucket{
	{max: 0, condition: "Clear", icon: "sun"},
	{max: 3, condition: "Partly cloudy", icon: "cloud_sun"},
	{max: 48, condition: "Fog", icon: "fog"},
	{max: 67, condition: "Rain", icon: "rain"},
	{max: 77, condition: "Snow", icon: "snow"},
	{max: 82, condition: "Rain showers", icon: "showers"},
	{max: 99, condition: "Thunderstorm", icon: "storm"},
}

var codeDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

func classifyCode(code int) (condition, icon string) {
	if code >= 0 {
		for _, b := range codeBuckets {
			if code <= b.max {
				return b.condition, b.icon
			}
		}
	}
	return "Unknown", "unknown"
}

func describeCode(code int) string {
	if desc, ok := codeDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}
