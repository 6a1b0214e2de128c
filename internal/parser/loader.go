// Package parser loads building models exported from IFC authoring tools
// into the in-memory element model.
//
// The model file is JSON:
//
//	{
//	  "elements": [{"id": "...", "type": "IfcWall", "name": "...",
//	                "geometry": {"vertices": [[x, y, z], ...], "faces": [[0, 1, 2], ...]}}],
//	  "containment":     [{"container": "...", "members": ["..."]}],
//	  "aggregation":     [{"parent": "...", "children": ["..."]}],
//	  "openings":        [{"filling": "...", "opening": "...", "host": "..."}],
//	  "spaceBoundaries": [{"space": "...", "element": "..."}]
//	}
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEmptyModel is returned when a file holds no usable element.
var ErrEmptyModel = errors.New("parser: model has no elements")

type fileElement struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Geometry *model.Geometry `json:"geometry"`
}

type containmentEntry struct {
	Container string   `json:"container"`
	Members   []string `json:"members"`
}

type aggregationEntry struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
}

type modelFile struct {
	Elements        []fileElement         `json:"elements"`
	Containment     []containmentEntry    `json:"containment"`
	Aggregation     []aggregationEntry    `json:"aggregation"`
	Openings        []model.Opening       `json:"openings"`
	SpaceBoundaries []model.SpaceBoundary `json:"spaceBoundaries"`
}

// Stats reports what the loader kept and skipped.
type Stats struct {
	Elements        int            `json:"elements"`
	ByType          map[string]int `json:"by_type"`
	WithGeometry    int            `json:"with_geometry"`
	SkippedNoID     int            `json:"skipped_no_id"`
	Duplicates      int            `json:"duplicates"`
	DanglingLinks   int            `json:"dangling_links"`
	UnknownIFCTypes map[string]int `json:"unknown_ifc_types,omitempty"`
}

// Loader decodes model files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("parser")}
}

// LoadFile reads and decodes the model file at path.
func (l *Loader) LoadFile(path string) (*model.Model, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	m, stats, err := l.Decode(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	l.logger.Info("Model loaded",
		zap.String("path", path),
		zap.Int("elements", stats.Elements),
		zap.Int("with_geometry", stats.WithGeometry),
		zap.Int("skipped", stats.SkippedNoID+stats.Duplicates))
	return m, stats, nil
}

// Decode reads one model from r. Elements without an id and repeated ids
// are skipped. Relationship entries are kept as given; references to
// unknown elements are only counted, since every consumer checks ids.
func (l *Loader) Decode(r io.Reader) (*model.Model, Stats, error) {
	var file modelFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, Stats{}, fmt.Errorf("decode model: %w", err)
	}

	stats := Stats{ByType: map[string]int{}, UnknownIFCTypes: map[string]int{}}
	seen := make(map[string]bool, len(file.Elements))
	elements := make([]model.Element, 0, len(file.Elements))
	for _, fe := range file.Elements {
		id := strings.TrimSpace(fe.ID)
		if id == "" {
			stats.SkippedNoID++
			continue
		}
		if seen[id] {
			stats.Duplicates++
			l.logger.Debug("Duplicate element id", zap.String("id", id))
			continue
		}
		seen[id] = true

		t := model.ParseElementType(fe.Type)
		if t == model.TypeOther && fe.Type != "" && !strings.EqualFold(fe.Type, string(model.TypeOther)) {
			stats.UnknownIFCTypes[fe.Type]++
		}
		el := model.Element{ID: id, Type: t, Name: NormalizeName(fe.Name), Geometry: fe.Geometry}
		if el.Geometry != nil && len(el.Geometry.Vertices) == 0 {
			el.Geometry = nil
		}
		if el.Geometry != nil {
			stats.WithGeometry++
		}
		stats.ByType[string(t)]++
		elements = append(elements, el)
	}
	if len(elements) == 0 {
		return nil, stats, ErrEmptyModel
	}
	stats.Elements = len(elements)

	containment := make(map[string][]string, len(file.Containment))
	for _, c := range file.Containment {
		stats.DanglingLinks += dangling(seen, append([]string{c.Container}, c.Members...)...)
		containment[c.Container] = append(containment[c.Container], c.Members...)
	}
	aggregation := make(map[string][]string, len(file.Aggregation))
	for _, a := range file.Aggregation {
		stats.DanglingLinks += dangling(seen, append([]string{a.Parent}, a.Children...)...)
		aggregation[a.Parent] = append(aggregation[a.Parent], a.Children...)
	}
	for _, o := range file.Openings {
		stats.DanglingLinks += dangling(seen, o.FillingID, o.HostID)
	}
	for _, b := range file.SpaceBoundaries {
		stats.DanglingLinks += dangling(seen, b.SpaceID, b.ElementID)
	}
	if stats.DanglingLinks > 0 {
		l.logger.Warn("Model references unknown elements", zap.Int("references", stats.DanglingLinks))
	}
	if len(stats.UnknownIFCTypes) == 0 {
		stats.UnknownIFCTypes = nil
	}

	return model.NewModel(elements, containment, aggregation, file.Openings, file.SpaceBoundaries), stats, nil
}

func dangling(seen map[string]bool, ids ...string) int {
	n := 0
	for _, id := range ids {
		if !seen[id] {
			n++
		}
	}
	return n
}

// NormalizeName trims an IFC name and strips the ":<tag>" suffix that
// authoring tools append to family instance names.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexByte(name, ':'); i > 0 {
		if isDigits(name[i+1:]) {
			name = strings.TrimSpace(name[:i])
		}
	}
	return name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
