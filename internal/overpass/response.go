package overpass

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// response is the top-level Overpass JSON document.
type response struct {
	Remark   string          `json:"remark"`
	Elements json.RawMessage `json:"elements"`
}

// errServerRuntime marks a 200 response whose remark reports that the
// server gave up on the query. These are worth retrying.
var errServerRuntime = fmt.Errorf("%w: server runtime error", common.ErrFetchFailed)

// decodeElements parses a payload and splits it by power role. Elements
// with any other power value are ignored.
func decodeElements(payload []byte, downloadType model.DownloadType) (*model.ElementSet, error) {
	var doc response
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if strings.Contains(strings.ToLower(doc.Remark), "runtime error") {
		return nil, fmt.Errorf("%w: %s", errServerRuntime, doc.Remark)
	}
	if len(doc.Elements) == 0 || string(doc.Elements) == "null" {
		return nil, fmt.Errorf("%w: no elements array", common.ErrMalformedResponse)
	}

	var elements []model.RawElement
	if err := json.Unmarshal(doc.Elements, &elements); err != nil {
		return nil, fmt.Errorf("%w: elements: %v", common.ErrMalformedResponse, err)
	}

	set := &model.ElementSet{}
	for i, el := range elements {
		switch el.Kind {
		case model.KindNode, model.KindWay, model.KindRelation:
		default:
			return nil, fmt.Errorf("%w: element %d has type %q", common.ErrMalformedResponse, i, el.Kind)
		}

		switch el.PowerRole() {
		case model.PowerPlant:
			if downloadType.IncludesPlants() {
				set.Plants = append(set.Plants, el)
			}
		case model.PowerGenerator:
			if downloadType.IncludesGenerators() {
				set.Generators = append(set.Generators, el)
			}
		}
	}
	return set, nil
}
