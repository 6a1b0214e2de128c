package neo4j

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
)

// Labels and relationship types cannot be parameterized in Cypher, so they
// are interpolated after validation against this pattern.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validIdentifier(kind, s string) error {
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("invalid %s %q", kind, s)
	}
	return nil
}

// ConstraintQuery returns the uniqueness constraint statement for label.
func ConstraintQuery(label string) (string, error) {
	if err := validIdentifier("label", label); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s_global_id IF NOT EXISTS FOR (n:`%s`) REQUIRE n.GlobalId IS UNIQUE",
		strings.ToLower(label), label,
	), nil
}

// MergeNodesQuery builds the UNWIND/MERGE statement for a node batch and its
// row parameters. The first label is merged on, the rest are added with SET.
func MergeNodesQuery(batch repository.NodeBatch) (string, map[string]any, error) {
	if len(batch.Labels) == 0 {
		return "", nil, fmt.Errorf("node batch has no labels")
	}
	for _, l := range batch.Labels {
		if err := validIdentifier("label", l); err != nil {
			return "", nil, err
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UNWIND $rows AS row\nMERGE (n:`%s` {GlobalId: row.GlobalId})\n", batch.Labels[0])
	sb.WriteString("SET n.Name = row.Name, n.IFCType = row.IFCType")
	for _, l := range batch.Labels[1:] {
		fmt.Fprintf(&sb, ", n:`%s`", l)
	}

	rows := make([]map[string]any, len(batch.Rows))
	for i, r := range batch.Rows {
		rows[i] = map[string]any{"GlobalId": r.GlobalID, "Name": r.Name, "IFCType": r.IFCType}
	}
	return sb.String(), map[string]any{"rows": rows}, nil
}

// MergeEdgesQuery builds the MERGE statement for an edge batch. Properties
// are merged with += so a rerun updates rather than duplicates.
func MergeEdgesQuery(batch repository.EdgeBatch) (string, map[string]any, error) {
	if _, err := model.ParseKind(batch.Type); err != nil {
		return "", nil, err
	}
	if err := validIdentifier("label", batch.SourceLabel); err != nil {
		return "", nil, err
	}
	if err := validIdentifier("label", batch.TargetLabel); err != nil {
		return "", nil, err
	}

	q := fmt.Sprintf("UNWIND $rows AS row\n"+
		"MATCH (a:`%s` {GlobalId: row.source})\n"+
		"MATCH (b:`%s` {GlobalId: row.target})\n"+
		"MERGE (a)-[r:`%s`]->(b)\n"+
		"SET r += row.props",
		batch.SourceLabel, batch.TargetLabel, batch.Type)

	rows := make([]map[string]any, len(batch.Rows))
	for i, r := range batch.Rows {
		props := r.Properties
		if props == nil {
			props = map[string]any{}
		}
		rows[i] = map[string]any{"source": r.Source, "target": r.Target, "props": props}
	}
	return q, map[string]any{"rows": rows}, nil
}

const clearTopologicalQuery = `MATCH ()-[r]->() WHERE r.relationshipSource = $source DELETE r`

// PathQuery builds a read-only shortestPath query between two GlobalIds
// restricted to kinds. Empty kinds means the default path kinds. When start
// equals end the query returns the single node, or no row if it is absent.
func PathQuery(start, end string, kinds []model.RelationshipKind, maxDepth int) (string, map[string]any, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if len(kinds) == 0 {
		kinds = model.DefaultPathKinds
	}
	types := make([]string, len(kinds))
	for i, k := range kinds {
		if _, err := model.ParseKind(string(k)); err != nil {
			return "", nil, err
		}
		types[i] = "`" + string(k) + "`"
	}

	// shortestPath rejects identical endpoints, so a self path is a lookup
	// of the one node in the same row shape.
	if start == end {
		q := "MATCH (a {GlobalId: $start})\n" +
			"RETURN [a.GlobalId] AS ids, [a.Name] AS names, [] AS kinds LIMIT 1"
		return q, map[string]any{"start": start}, nil
	}

	q := fmt.Sprintf("MATCH (a {GlobalId: $start}), (b {GlobalId: $end})\n"+
		"MATCH p = shortestPath((a)-[:%s*..%d]->(b))\n"+
		"RETURN [n IN nodes(p) | n.GlobalId] AS ids, [n IN nodes(p) | n.Name] AS names, [r IN relationships(p) | type(r)] AS kinds",
		strings.Join(types, "|"), maxDepth)
	return q, map[string]any{"start": start, "end": end}, nil
}
