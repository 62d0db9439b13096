package features

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
)

// maxEntryBytes caps how much of a single archive entry is read into memory.
const maxEntryBytes = 1 << 30

// ReadArchive decodes the file at filePath. Zip archives may carry one or
// more shapefile layers (.shp with optional .dbf, .prj, .cpg siblings) or a
// GeoJSON document; a bare .geojson/.json file is accepted as well.
func ReadArchive(filePath string) (*Collection, error) {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".geojson", ".json":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path.Base(filePath), err)
		}
		return decodeGeoJSON(data, path.Base(filePath))
	}

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %v", apperrors.ErrMalformedInput, err)
	}
	defer zr.Close()

	return readZip(&zr.Reader)
}

// entrySet indexes zip entries by lower-cased path so sibling files are
// paired by extension regardless of case.
type entrySet map[string]*zip.File

func indexEntries(zr *zip.Reader) (entrySet, []string, []string) {
	entries := make(entrySet, len(zr.File))
	var shpBases, jsonNames []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(path.Base(f.Name), "._") {
			continue
		}
		lower := strings.ToLower(f.Name)
		entries[lower] = f
		switch path.Ext(lower) {
		case ".shp":
			shpBases = append(shpBases, strings.TrimSuffix(lower, ".shp"))
		case ".geojson", ".json":
			jsonNames = append(jsonNames, lower)
		}
	}
	sort.Strings(shpBases)
	sort.Strings(jsonNames)
	return entries, shpBases, jsonNames
}

func (e entrySet) sibling(base, ext string) *zip.File {
	return e[base+ext]
}

func readZip(zr *zip.Reader) (*Collection, error) {
	entries, shpBases, jsonNames := indexEntries(zr)

	if len(shpBases) == 0 {
		if len(jsonNames) == 0 {
			return nil, fmt.Errorf("%w: archive contains no .shp geometry file", apperrors.ErrMalformedInput)
		}
		f := entries[jsonNames[0]]
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		return decodeGeoJSON(data, f.Name)
	}

	out := &Collection{}
	for _, base := range shpBases {
		layer, err := readShapefileLayer(entries, base)
		if err != nil {
			return nil, err
		}
		out.Features = append(out.Features, layer.Features...)
		out.addFields(layer.Fields)
	}
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", apperrors.ErrMalformedInput, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", apperrors.ErrMalformedInput, f.Name, err)
	}
	return data, nil
}
