// Package schema maps dataset identifiers to the granule field names needed
// for gridding: center coordinates and footprint vertex coordinates.
package schema

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownDataset is returned when no built-in schema matches a dataset.
var ErrUnknownDataset = errors.New("unknown dataset")

// Schema names the granule variables holding pixel geolocation.
type Schema struct {
	Name            string
	LatField        string
	LonField        string
	VertexLatField  string
	VertexLonField  string

	datasetRe *regexp.Regexp
	fileRe    *regexp.Regexp
}

var builtin = []Schema{
	{
		Name:           "oco-lite-sif",
		LatField:       "Latitude",
		LonField:       "Longitude",
		VertexLatField: "Geolocation/footprint_latitude_vertices",
		VertexLonField: "Geolocation/footprint_longitude_vertices",
		datasetRe:      regexp.MustCompile(`OCO[23]_L2_Lite_SIF.*r`),
		fileRe:         regexp.MustCompile(`oco[23]_LtSIF`),
	},
	{
		Name:           "oco-lite-fp",
		LatField:       "latitude",
		LonField:       "longitude",
		VertexLatField: "vertex_latitude",
		VertexLonField: "vertex_longitude",
		datasetRe:      regexp.MustCompile(`OCO[23]_L2_Lite_FP.*r`),
		fileRe:         regexp.MustCompile(`oco[23]_LtCO2`),
	},
}

// Resolve returns the schema for a dataset identifier, matching either the
// catalog dataset id or the granule file naming convention.
func Resolve(dataset string) (Schema, error) {
	for _, s := range builtin {
		if s.datasetRe.MatchString(dataset) || s.fileRe.MatchString(dataset) {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("%w: %s", ErrUnknownDataset, dataset)
}
