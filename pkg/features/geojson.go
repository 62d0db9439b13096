package features

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
)

// geoJSONHeader captures the members orb does not decode: the object type and
// the pre-RFC 7946 named CRS.
type geoJSONHeader struct {
	Type string `json:"type"`
	CRS  *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func decodeGeoJSON(data []byte, layer string) (*Collection, error) {
	var hdr geoJSONHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid GeoJSON: %v", apperrors.ErrMalformedInput, layer, err)
	}

	crs := CRS{}
	if hdr.CRS != nil {
		crs = ParseCRSName(hdr.CRS.Properties.Name)
	}

	var feats []*geojson.Feature
	switch hdr.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedInput, layer, err)
		}
		feats = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedInput, layer, err)
		}
		feats = []*geojson.Feature{f}
	case "":
		return nil, fmt.Errorf("%w: %s has no GeoJSON type member", apperrors.ErrMalformedInput, layer)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedInput, layer, err)
		}
		feats = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}

	out := &Collection{}
	for _, f := range feats {
		if f == nil {
			continue
		}
		props := make(map[string]any, len(f.Properties))
		names := make([]string, 0, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
			names = append(names, k)
		}
		sort.Strings(names)
		out.addFields(names)
		out.Features = append(out.Features, Feature{
			Geometry:   f.Geometry,
			Properties: props,
			CRS:        crs,
			Layer:      layer,
		})
	}
	return out, nil
}
