package neo4j

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v6/neo4j/config"
	"github.com/neo4j/neo4j-go-driver/v6/neo4j/dbtype"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/config"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
)

// Client implements repository.GraphStore and repository.GraphReader using
// the official Neo4j Go driver.
type Client struct {
	driver   neo4j.Driver
	database string
	logger   *zap.Logger
}

var (
	_ repository.GraphStore  = (*Client)(nil)
	_ repository.GraphReader = (*Client)(nil)
)

// NewClient creates a new Neo4j client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("neo4j")

	driver, err := neo4j.NewDriver(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4jconfig.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver for %s: %w", cfg.URI, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			logger.Warn("Failed to close driver after connectivity check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to verify Neo4j connectivity at %s: %w", cfg.URI, err)
	}

	logger.Info("Connected", zap.String("uri", cfg.URI), zap.String("user", cfg.User))
	return &Client{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.Session {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: c.database})
}

// write runs one statement in a managed write transaction and returns its
// counters.
func (c *Client) write(ctx context.Context, query string, params map[string]any) (neo4j.Counters, error) {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters(), nil
	})
	if err != nil {
		return nil, err
	}
	return out.(neo4j.Counters), nil
}

func toWriteCounters(c neo4j.Counters) repository.WriteCounters {
	return repository.WriteCounters{
		NodesCreated:         c.NodesCreated(),
		RelationshipsCreated: c.RelationshipsCreated(),
		PropertiesSet:        c.PropertiesSet(),
		LabelsAdded:          c.LabelsAdded(),
	}
}

// EnsureConstraints creates a GlobalId uniqueness constraint per label.
func (c *Client) EnsureConstraints(ctx context.Context, labels []string) error {
	for _, label := range labels {
		q, err := ConstraintQuery(label)
		if err != nil {
			return err
		}
		if _, err := neo4j.ExecuteQuery(ctx, c.driver, q, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(c.database),
		); err != nil {
			return fmt.Errorf("neo4j constraint for %s failed: %w", label, err)
		}
	}
	c.logger.Debug("Constraints ensured", zap.Strings("labels", labels))
	return nil
}

// MergeNodes writes one node batch in a single transaction.
func (c *Client) MergeNodes(ctx context.Context, batch repository.NodeBatch) (repository.WriteCounters, error) {
	q, params, err := MergeNodesQuery(batch)
	if err != nil {
		return repository.WriteCounters{}, err
	}
	counters, err := c.write(ctx, q, params)
	if err != nil {
		return repository.WriteCounters{}, fmt.Errorf("neo4j node merge (%v, %d rows) failed: %w", batch.Labels, len(batch.Rows), err)
	}
	return toWriteCounters(counters), nil
}

// MergeEdges writes one edge batch in a single transaction. Rows whose
// endpoints are missing match nothing and are silently skipped by Cypher.
func (c *Client) MergeEdges(ctx context.Context, batch repository.EdgeBatch) (repository.WriteCounters, error) {
	q, params, err := MergeEdgesQuery(batch)
	if err != nil {
		return repository.WriteCounters{}, err
	}
	counters, err := c.write(ctx, q, params)
	if err != nil {
		return repository.WriteCounters{}, fmt.Errorf("neo4j edge merge (%s, %d rows) failed: %w", batch.Type, len(batch.Rows), err)
	}
	return toWriteCounters(counters), nil
}

// ClearTopological deletes the relationships written by the analysis engine
// and leaves everything else untouched.
func (c *Client) ClearTopological(ctx context.Context) (int64, error) {
	counters, err := c.write(ctx, clearTopologicalQuery, map[string]any{"source": model.SourceTopologicalAnalysis})
	if err != nil {
		return 0, fmt.Errorf("neo4j clear failed: %w", err)
	}
	deleted := int64(counters.RelationshipsDeleted())
	c.logger.Info("Cleared topological relationships", zap.Int64("deleted", deleted))
	return deleted, nil
}

// Counts returns node and relationship totals per label and type.
func (c *Client) Counts(ctx context.Context) (repository.GraphCounts, error) {
	counts := repository.GraphCounts{ByLabel: map[string]int64{}, ByType: map[string]int64{}}

	labels, err := c.read(ctx, `MATCH (n) UNWIND labels(n) AS label RETURN label AS key, count(*) AS cnt`, nil)
	if err != nil {
		return counts, fmt.Errorf("neo4j label count failed: %w", err)
	}
	for _, row := range labels {
		key, _ := row["key"].(string)
		cnt, _ := row["cnt"].(int64)
		counts.ByLabel[key] = cnt
	}

	types, err := c.read(ctx, `MATCH ()-[r]->() RETURN type(r) AS key, count(*) AS cnt`, nil)
	if err != nil {
		return counts, fmt.Errorf("neo4j relationship count failed: %w", err)
	}
	for _, row := range types {
		key, _ := row["key"].(string)
		cnt, _ := row["cnt"].(int64)
		counts.ByType[key] = cnt
		counts.Relationships += cnt
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, `MATCH (n) RETURN count(n) AS cnt`, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return counts, fmt.Errorf("neo4j node count failed: %w", err)
	}
	if len(result.Records) > 0 {
		cnt, _, err := neo4j.GetRecordValue[int64](result.Records[0], "cnt")
		if err != nil {
			return counts, fmt.Errorf("neo4j result parse failed: %w", err)
		}
		counts.Nodes = cnt
	}
	return counts, nil
}

// FetchSchema reads the live labels, relationship types and property keys.
func (c *Client) FetchSchema(ctx context.Context) (repository.GraphSchema, error) {
	var schema repository.GraphSchema
	for _, item := range []struct {
		query string
		dst   *[]string
	}{
		{`CALL db.labels() YIELD label RETURN label AS name`, &schema.Labels},
		{`CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType AS name`, &schema.RelationshipTypes},
		{`CALL db.propertyKeys() YIELD propertyKey RETURN propertyKey AS name`, &schema.PropertyKeys},
	} {
		rows, err := c.read(ctx, item.query, nil)
		if err != nil {
			return schema, fmt.Errorf("neo4j schema fetch failed: %w", err)
		}
		for _, row := range rows {
			if name, ok := row["name"].(string); ok {
				*item.dst = append(*item.dst, name)
			}
		}
		sort.Strings(*item.dst)
	}
	return schema, nil
}

// RunReadQuery executes cypher in a read transaction and returns each record
// as a map. Graph values are flattened to plain maps.
func (c *Client) RunReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := c.read(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("neo4j read query failed: %w", err)
	}
	return rows, nil
}

func (c *Client) read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(records))
		for i, rec := range records {
			row := make(map[string]any, len(rec.Keys))
			for j, key := range rec.Keys {
				row[key] = flatten(rec.Values[j])
			}
			rows[i] = row
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]map[string]any), nil
}

func flatten(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		m := make(map[string]any, len(val.Props)+1)
		for k, p := range val.Props {
			m[k] = p
		}
		m["_labels"] = val.Labels
		return m
	case dbtype.Relationship:
		m := make(map[string]any, len(val.Props)+1)
		for k, p := range val.Props {
			m[k] = p
		}
		m["_type"] = val.Type
		return m
	case dbtype.Path:
		nodes := make([]any, len(val.Nodes))
		for i, n := range val.Nodes {
			nodes[i] = flatten(n)
		}
		return nodes
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = flatten(e)
		}
		return out
	}
	return v
}

// FindPath runs the shortest-path query against the stored graph.
func (c *Client) FindPath(ctx context.Context, start, end string, kinds []model.RelationshipKind, maxDepth int) (model.Path, error) {
	q, params, err := PathQuery(start, end, kinds, maxDepth)
	if err != nil {
		return model.Path{}, err
	}
	rows, err := c.read(ctx, q, params)
	if err != nil {
		return model.Path{}, fmt.Errorf("neo4j path query failed: %w", err)
	}
	if len(rows) == 0 {
		return model.Path{}, nil
	}
	return pathFromRow(rows[0]), nil
}

func pathFromRow(row map[string]any) model.Path {
	ids, _ := row["ids"].([]any)
	names, _ := row["names"].([]any)
	kinds, _ := row["kinds"].([]any)

	var p model.Path
	for i, raw := range ids {
		id, _ := raw.(string)
		hop := model.Hop{Node: model.Node{ID: id}}
		if i < len(names) {
			hop.Node.Name, _ = names[i].(string)
		}
		if i > 0 && i-1 < len(kinds) {
			k, _ := kinds[i-1].(string)
			hop.Kind = model.RelationshipKind(k)
		}
		p.Hops = append(p.Hops, hop)
	}
	return p
}

// Close closes the underlying Neo4j driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
