package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
)

// RelationshipInfo describes one relationship type of the graph.
type RelationshipInfo struct {
	Type        string `json:"type"`
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description"`
}

// Schema is the graph vocabulary handed to the LLM.
type Schema struct {
	NodeLabels     []string           `json:"node_labels"`
	NodeProperties []string           `json:"node_properties"`
	Relationships  []RelationshipInfo `json:"relationships"`
	EdgeProperties []string           `json:"edge_properties"`
}

// DescribeSchema returns the labels, relationship types and properties that
// every ingested graph carries.
func DescribeSchema() Schema {
	labels := []string{"IfcSpace", "IfcBuildingStorey", "IfcBuilding", "IfcSite", "Element"}
	for _, t := range []model.ElementType{
		model.TypeWall, model.TypeSlab, model.TypeRoof, model.TypeBeam,
		model.TypeColumn, model.TypeDoor, model.TypeWindow, model.TypeMember,
	} {
		labels = append(labels, string(t))
	}

	return Schema{
		NodeLabels:     labels,
		NodeProperties: []string{"GlobalId", "Name", "IFCType"},
		Relationships: []RelationshipInfo{
			{string(model.KindAdjacent), "Element", "Element", "physical elements touching each other, stored in both directions"},
			{string(model.KindContains), "IfcSpace|IfcBuildingStorey", "Element|IfcSpace", "spatial container holds the target"},
			{string(model.KindIsContainedIn), "Element|IfcSpace", "IfcSpace|IfcBuildingStorey", "inverse of CONTAINS"},
			{string(model.KindBounds), "Element", "IfcSpace", "wall, slab, door or window forming the boundary of a space"},
			{string(model.KindIsBoundedBy), "IfcSpace", "Element", "inverse of BOUNDS"},
			{string(model.KindConnects), "IfcSpace", "IfcSpace", "spaces joined through a door or window, property via holds its GlobalId"},
		},
		EdgeProperties: []string{"relationshipSource", "provenance", "via", "viaType"},
	}
}

// Merge adds live labels and relationship types missing from s.
func (s Schema) Merge(live repository.GraphSchema) Schema {
	out := s
	out.NodeLabels = slices.Clone(s.NodeLabels)
	for _, l := range live.Labels {
		if !slices.Contains(out.NodeLabels, l) {
			out.NodeLabels = append(out.NodeLabels, l)
		}
	}
	out.Relationships = slices.Clone(s.Relationships)
	for _, t := range live.RelationshipTypes {
		if !slices.ContainsFunc(out.Relationships, func(r RelationshipInfo) bool { return r.Type == t }) {
			out.Relationships = append(out.Relationships, RelationshipInfo{Type: t})
		}
	}
	return out
}

// String renders the schema as prompt text.
func (s Schema) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Node labels: %s\n", strings.Join(s.NodeLabels, ", "))
	fmt.Fprintf(&sb, "Node properties: %s\n", strings.Join(s.NodeProperties, ", "))
	sb.WriteString("Relationships:\n")
	for _, r := range s.Relationships {
		if r.From == "" {
			fmt.Fprintf(&sb, "  [:%s]\n", r.Type)
			continue
		}
		fmt.Fprintf(&sb, "  (:%s)-[:%s]->(:%s)  %s\n", r.From, r.Type, r.To, r.Description)
	}
	fmt.Fprintf(&sb, "Relationship properties: %s\n", strings.Join(s.EdgeProperties, ", "))
	return sb.String()
}
