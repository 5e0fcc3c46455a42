package engine

import (
	"strings"
	"time"
)

// cityTimezones maps common city, country and abbreviation spellings to IANA
// zone names. Lookup is best-effort; an unresolved city just means slots are
// shown in the owner's timezone.
var cityTimezones = map[string]string{
	"kyiv": "Europe/Kyiv", "kiev": "Europe/Kyiv", "kharkiv": "Europe/Kyiv",
	"odesa": "Europe/Kyiv", "odessa": "Europe/Kyiv", "lviv": "Europe/Kyiv",
	"dnipro": "Europe/Kyiv", "ukraine": "Europe/Kyiv",
	"moscow": "Europe/Moscow",
	"london": "Europe/London", "uk": "Europe/London",
	"paris": "Europe/Paris", "france": "Europe/Paris",
	"berlin": "Europe/Berlin", "germany": "Europe/Berlin", "munich": "Europe/Berlin",
	"amsterdam": "Europe/Amsterdam", "netherlands": "Europe/Amsterdam",
	"warsaw": "Europe/Warsaw", "krakow": "Europe/Warsaw", "poland": "Europe/Warsaw",
	"prague": "Europe/Prague", "vienna": "Europe/Vienna",
	"rome": "Europe/Rome", "milan": "Europe/Rome", "italy": "Europe/Rome",
	"madrid": "Europe/Madrid", "barcelona": "Europe/Madrid", "spain": "Europe/Madrid",
	"lisbon": "Europe/Lisbon", "portugal": "Europe/Lisbon",
	"zurich": "Europe/Zurich", "geneva": "Europe/Zurich", "switzerland": "Europe/Zurich",
	"istanbul": "Europe/Istanbul", "turkey": "Europe/Istanbul",
	"bucharest": "Europe/Bucharest", "romania": "Europe/Bucharest",
	"helsinki": "Europe/Helsinki", "finland": "Europe/Helsinki",
	"stockholm": "Europe/Stockholm", "sweden": "Europe/Stockholm",
	"oslo": "Europe/Oslo", "copenhagen": "Europe/Copenhagen",
	"dublin": "Europe/Dublin", "ireland": "Europe/Dublin",
	"athens": "Europe/Athens", "sofia": "Europe/Sofia",
	"new york": "America/New_York", "nyc": "America/New_York",
	"boston": "America/New_York", "miami": "America/New_York", "washington": "America/New_York",
	"chicago": "America/Chicago", "dallas": "America/Chicago", "houston": "America/Chicago",
	"denver": "America/Denver",
	"los angeles": "America/Los_Angeles", "san francisco": "America/Los_Angeles",
	"seattle": "America/Los_Angeles",
	"toronto": "America/Toronto", "canada": "America/Toronto",
	"vancouver": "America/Vancouver",
	"sao paulo": "America/Sao_Paulo", "brazil": "America/Sao_Paulo",
	"mexico city": "America/Mexico_City", "mexico": "America/Mexico_City",
	"buenos aires": "America/Argentina/Buenos_Aires", "argentina": "America/Argentina/Buenos_Aires",
	"tokyo": "Asia/Tokyo", "japan": "Asia/Tokyo",
	"seoul": "Asia/Seoul", "korea": "Asia/Seoul",
	"shanghai": "Asia/Shanghai", "beijing": "Asia/Shanghai", "china": "Asia/Shanghai",
	"hong kong": "Asia/Hong_Kong", "singapore": "Asia/Singapore",
	"mumbai": "Asia/Kolkata", "delhi": "Asia/Kolkata", "bangalore": "Asia/Kolkata",
	"india": "Asia/Kolkata",
	"dubai": "Asia/Dubai", "uae": "Asia/Dubai",
	"bangkok": "Asia/Bangkok", "thailand": "Asia/Bangkok",
	"jakarta": "Asia/Jakarta", "bali": "Asia/Makassar",
	"tel aviv": "Asia/Jerusalem", "israel": "Asia/Jerusalem",
	"taipei": "Asia/Taipei", "taiwan": "Asia/Taipei",
	"hanoi": "Asia/Ho_Chi_Minh", "ho chi minh": "Asia/Ho_Chi_Minh", "vietnam": "Asia/Ho_Chi_Minh",
	"kuala lumpur": "Asia/Kuala_Lumpur", "malaysia": "Asia/Kuala_Lumpur",
	"sydney": "Australia/Sydney", "melbourne": "Australia/Melbourne",
	"australia": "Australia/Sydney",
	"auckland": "Pacific/Auckland", "new zealand": "Pacific/Auckland",
	"cairo": "Africa/Cairo", "johannesburg": "Africa/Johannesburg",
	"nairobi": "Africa/Nairobi", "lagos": "Africa/Lagos",
	"est": "America/New_York", "cst": "America/Chicago",
	"mst": "America/Denver", "pst": "America/Los_Angeles",
	"gmt": "Europe/London", "cet": "Europe/Berlin",
}

// resolveTimezone turns a city, country, abbreviation or literal IANA name
// into an IANA timezone. Empty string means unrecognized.
func resolveTimezone(cityOrTZ string) string {
	normalized := strings.ToLower(strings.TrimSpace(cityOrTZ))
	if normalized == "" {
		return ""
	}

	if tz, ok := cityTimezones[normalized]; ok {
		return tz
	}

	if strings.Contains(cityOrTZ, "/") {
		if _, err := time.LoadLocation(strings.TrimSpace(cityOrTZ)); err == nil {
			return strings.TrimSpace(cityOrTZ)
		}
	}

	// Substring match handles "Kyiv, Ukraine". Keys shorter than three
	// characters are skipped to avoid accidental hits.
	for key, tz := range cityTimezones {
		if len(key) >= 3 && strings.Contains(normalized, key) {
			return tz
		}
	}
	return ""
}
