package workflow

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/osm-powerplants/internal/geometry"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/normalize"
)

// resolved is an element with its geometry.
type resolved struct {
	element model.RawElement
	geom    geometry.Geometry
	located bool
}

// candidate is a plant with the generators it contains, or a standalone
// generator.
type candidate struct {
	resolved
	members []resolved
}

// failure is the outcome of a failed validation rule.
type failure struct {
	keyword string
	reason  model.RejectionReason
}

func (w *Workflow) classify(region model.Region, set *model.ElementSet, result *RegionResult) {
	plants := w.dedupe(region, set.Plants, result)
	generators := w.dedupe(region, set.Generators, result)

	plantGeoms := w.resolveAll(region, plants, result)
	generatorGeoms := w.resolveAll(region, generators, result)

	candidates := make([]candidate, len(plantGeoms))
	for i, p := range plantGeoms {
		candidates[i] = candidate{resolved: p}
	}

	for _, g := range generatorGeoms {
		if i := enclosingPlant(candidates, g.geom.Center); i >= 0 {
			candidates[i].members = append(candidates[i].members, g)
			result.MergedGenerators++
			continue
		}
		if w.cfg.PlantsOnly {
			result.DroppedGenerators++
			continue
		}
		candidates = append(candidates, candidate{resolved: g})
	}

	for _, c := range candidates {
		unit, fail := w.evaluate(region, c)
		if fail != nil {
			w.reject(region, c.resolved, fail.reason, fail.keyword, result)
			result.RejectedMembers += len(c.members)
			continue
		}
		if err := w.units.Add(unit); err != nil {
			if errors.Is(err, model.ErrDuplicateUnit) {
				w.reject(region, c.resolved, model.ReasonDuplicateElement, "", result)
				result.RejectedMembers += len(c.members)
				continue
			}
			slog.Error("Failed to add unit", "project_id", unit.ProjectID, "error", err)
			continue
		}
		result.Units = append(result.Units, unit)
	}
}

// dedupe drops elements repeated within the region and rejects elements
// already handled in an earlier region of this run.
func (w *Workflow) dedupe(region model.Region, elements []model.RawElement, result *RegionResult) []model.RawElement {
	label := region.Label()
	inRegion := make(map[string]struct{}, len(elements))
	out := make([]model.RawElement, 0, len(elements))

	for _, el := range elements {
		key := el.Key()
		if _, dup := inRegion[key]; dup {
			result.Duplicates++
			continue
		}
		inRegion[key] = struct{}{}

		if first, seen := w.seen[key]; seen {
			geom, ok := geometry.Resolve(el)
			w.reject(region, resolved{element: el, geom: geom, located: ok}, model.ReasonDuplicateElement, first, result)
			continue
		}
		w.seen[key] = label
		out = append(out, el)
	}
	return out
}

// resolveAll resolves geometries and rejects elements without any.
func (w *Workflow) resolveAll(region model.Region, elements []model.RawElement, result *RegionResult) []resolved {
	out := make([]resolved, 0, len(elements))
	for _, el := range elements {
		geom, ok := geometry.Resolve(el)
		if !ok {
			w.recorder.Record(model.RejectionRecord{
				ElementID:   el.Key(),
				ElementKind: el.Kind,
				Region:      region.Label(),
				Reason:      model.ReasonUnresolvableGeometry,
			})
			result.Rejected++
			continue
		}
		out = append(out, resolved{element: el, geom: geom, located: true})
	}
	return out
}

// enclosingPlant returns the index of the first plant in discovery order
// whose surface contains p, or -1.
func enclosingPlant(candidates []candidate, p model.LatLon) int {
	for i, c := range candidates {
		if c.geom.HasSurface() && geometry.Contains(c.geom, p) {
			return i
		}
	}
	return -1
}

// evaluate applies the validation rules in order and builds the unit. The
// first failing rule wins.
func (w *Workflow) evaluate(region model.Region, c candidate) (model.Unit, *failure) {
	tags := c.element.Tags

	source, hasSource := normalize.SourceValue(tags)
	fuel, hasFuel := w.mapper.FuelType(tags)
	for _, m := range c.members {
		if !hasSource {
			source, hasSource = normalize.SourceValue(m.element.Tags)
		}
		if !hasFuel {
			fuel, hasFuel = w.mapper.FuelType(m.element.Tags)
		}
	}
	if !hasSource {
		return model.Unit{}, &failure{reason: model.ReasonMissingSourceTag}
	}
	if !hasFuel && !w.cfg.UnknownSourceAllowed {
		return model.Unit{}, &failure{reason: model.ReasonUnknownSource, keyword: source}
	}

	capacity, capacityText := w.capacity(c)
	if capacity != nil && *capacity == 0 {
		return model.Unit{}, &failure{reason: model.ReasonCapacityZero, keyword: capacityText}
	}

	name, hasName := normalize.Name(tags)
	if !hasName && !w.cfg.MissingNameAllowed {
		return model.Unit{}, &failure{reason: model.ReasonMissingName}
	}

	techValue, _ := normalize.TechnologyValue(tags)
	technology, hasTechnology := w.mapper.Technology(tags)
	for _, m := range c.members {
		if hasTechnology {
			break
		}
		technology, hasTechnology = w.mapper.Technology(m.element.Tags)
		if techValue == "" {
			techValue, _ = normalize.TechnologyValue(m.element.Tags)
		}
	}
	if !hasTechnology && !w.cfg.MissingTechnologyAllowed {
		return model.Unit{}, &failure{reason: model.ReasonMissingTechnology, keyword: techValue}
	}

	lat, lon := geometry.Centroid(c.geom)
	unit := model.Unit{
		ProjectID: w.projectID(c.element),
		Country:   region.Label(),
		Lat:       &lat,
		Lon:       &lon,
		Capacity:  capacity,
		Source:    model.SourceOSM,
	}
	if hasFuel {
		unit.Fueltype = &fuel
	}
	if hasName {
		unit.Name = &name
	}
	if hasTechnology {
		unit.Technology = &technology
		if set, ok := w.mapper.SetType(technology); ok {
			unit.Set = &set
		}
	}
	if year, ok := normalize.CommissioningYear(tags); ok {
		unit.DateIn = &year
	}
	return unit, nil
}

// capacity returns the element's own capacity, or the sum of its member
// generators' capacities when it has none. The text is the tag value the
// number came from.
func (w *Workflow) capacity(c candidate) (*float64, string) {
	advanced := w.cfg.CapacityExtraction.Advanced

	if text, ok := normalize.CapacityText(c.element.Tags); ok {
		if parsed, ok := normalize.ParseCapacity(text, advanced); ok {
			mw := parsed.Megawatts
			return &mw, text
		}
	}

	var sum float64
	var text string
	found := false
	for _, m := range c.members {
		mt, ok := normalize.CapacityText(m.element.Tags)
		if !ok {
			continue
		}
		parsed, ok := normalize.ParseCapacity(mt, advanced)
		if !ok {
			continue
		}
		if !found {
			text = mt
		}
		sum += parsed.Megawatts
		found = true
	}
	if !found {
		return nil, ""
	}
	return &sum, text
}

// projectID is stable for an element under one configuration and differs
// between configurations.
func (w *Workflow) projectID(el model.RawElement) string {
	return fmt.Sprintf("OSM_%c%d_%s", el.Kind[0], el.ID, w.fingerprint[:8])
}

func (w *Workflow) reject(region model.Region, r resolved, reason model.RejectionReason, keyword string, result *RegionResult) {
	rec := model.RejectionRecord{
		ElementID:   r.element.Key(),
		ElementKind: r.element.Kind,
		Region:      region.Label(),
		Reason:      reason,
		Keyword:     keyword,
	}
	if r.located {
		lat, lon := geometry.Centroid(r.geom)
		rec.Center = &model.LatLon{Lat: lat, Lon: lon}
		if ring := r.geom.OuterRing(); len(ring) > 0 {
			rec.Ring = ring
		}
	}
	w.recorder.Record(rec)
	result.Rejected++
}
