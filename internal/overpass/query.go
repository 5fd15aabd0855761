// Package overpass retrieves raw power elements from an Overpass API
// endpoint, caching every response by region and download type.
package overpass

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/model"
)

// searchArea is the set name a country query binds its boundary to.
const searchArea = "searchArea"

// BuildQuery renders the Overpass QL query for a region. Every query asks
// for full inline geometry so no second round trip is needed to resolve
// way and relation members.
func BuildQuery(region model.Region, downloadType model.DownloadType, serverTimeout time.Duration) (string, error) {
	if err := region.Validate(); err != nil {
		return "", err
	}
	downloadType, err := model.ParseDownloadType(string(downloadType))
	if err != nil {
		return "", err
	}

	var roles []string
	if downloadType.IncludesPlants() {
		roles = append(roles, model.PowerPlant)
	}
	if downloadType.IncludesGenerators() {
		roles = append(roles, model.PowerGenerator)
	}

	var scope string
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", int(serverTimeout.Seconds()))

	switch region.Kind {
	case model.RegionCountry:
		fmt.Fprintf(&b, "area[\"ISO3166-1\"=%q][admin_level=2]->.%s;\n", region.CountryCode, searchArea)
		scope = "(area." + searchArea + ")"
	case model.RegionBBox:
		scope = fmt.Sprintf("(%s,%s,%s,%s)",
			coord(region.Bounds[0]), coord(region.Bounds[1]), coord(region.Bounds[2]), coord(region.Bounds[3]))
	case model.RegionRadius:
		scope = fmt.Sprintf("(around:%d,%s,%s)",
			int(region.RadiusKm*1000), coord(region.Center.Lat), coord(region.Center.Lon))
	}

	b.WriteString("(\n")
	for _, role := range roles {
		fmt.Fprintf(&b, "  nwr[\"power\"=%q]%s;\n", role, scope)
	}
	b.WriteString(");\n")
	b.WriteString("out geom;\n")

	return b.String(), nil
}

func coord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
