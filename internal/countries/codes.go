package countries

import "strings"

// legacyCodes maps two-letter prefixes found in older datasets to real
// ISO 3166-1 alpha-2 codes.
var legacyCodes = map[string]string{
	"ME": "MX", // Mexico
	"SW": "SE", // Sweden
	"NE": "NL", // Netherlands
	"CH": "CN", // China
	"MA": "MY", // Malaysia
	"IS": "IL", // Israel
	"TU": "TR", // Turkey
	"JA": "JP", // Japan
	"PA": "PK", // Pakistan
	"PO": "PL", // Poland
	"SP": "ES", // Spain
	"IN": "ID", // Indonesia
	"GE": "DE", // Germany
	"SI": "SG", // Singapore
	"UN": "US", // United States
	"SO": "KR", // South Korea
	"VI": "VN", // Vietnam
}

// NormalizeCode upper-cases code and rewrites legacy prefixes.
func NormalizeCode(code string) string {
	up := strings.ToUpper(strings.TrimSpace(code))
	if fixed, ok := legacyCodes[up]; ok {
		return fixed
	}
	return up
}

// FlagURL returns the flag image for an ISO code, or "" for an empty code.
func FlagURL(code string) string {
	code = NormalizeCode(code)
	if code == "" {
		return ""
	}
	return "https://flagcdn.com/w320/" + strings.ToLower(code) + ".png"
}

var productIcons = map[string]string{
	"Cars":                  "🚗",
	"Electronics":           "📱",
	"Energy":                "⚡",
	"Oil":                   "🛢️",
	"Food Products":         "🍲",
	"Agricultural Products": "🌾",
	"Textiles":              "🧵",
	"Metals":                "⚙️",
	"Chemicals":             "🧪",
	"Pharmaceuticals":       "💊",
	"Plastics":              "📦",
	"Machinery":             "🔧",
}

// ProductIcon returns an emoji for a top product; unknown products get a box.
func ProductIcon(product string) string {
	if icon, ok := productIcons[product]; ok {
		return icon
	}
	return "📦"
}
