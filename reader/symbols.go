package reader

import "strings"

// contractUnits lists the markers exchanges put on symbols whose price covers
// a bundle of base units, such as 1000PEPEUSDT or SHIB1000USDT. Longer
// markers come first.
var contractUnits = []struct {
	marker string
	prefix bool
	units  int64
}{
	{"1000000", true, 1000000},
	{"1000", true, 1000},
	{"1000", false, 1000},
}

var assetAliases = map[string]string{
	"XBT": "BTC",
}

// CanonicalAsset maps an exchange base asset to the asset it prices and the
// number of units one quoted price covers.
func CanonicalAsset(base string) (string, int64) {
	base = strings.ToUpper(strings.TrimSpace(base))
	units := int64(1)
	for _, cu := range contractUnits {
		var trimmed string
		if cu.prefix {
			if !strings.HasPrefix(base, cu.marker) {
				continue
			}
			trimmed = strings.TrimPrefix(base, cu.marker)
		} else {
			if !strings.HasSuffix(base, cu.marker) {
				continue
			}
			trimmed = strings.TrimSuffix(base, cu.marker)
		}
		if trimmed == "" || (cu.prefix && trimmed[0] >= '0' && trimmed[0] <= '9') {
			continue
		}
		base, units = trimmed, cu.units
		break
	}
	if alias, ok := assetAliases[base]; ok {
		base = alias
	}
	return base, units
}
