package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSink_Document(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)
	ctx := context.Background()

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.WriteFile(ctx, sampleRelations("a.go")))
	require.NoError(t, s.Close())

	var doc map[string]NamedRows
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc, 3)

	nodes := doc["nodes"]
	assert.Equal(t, []string{"path", "id", "kind", "is_error", "source"}, nodes.Headers)
	require.Len(t, nodes.Rows, 3)

	// Rows are positional under the headers.
	root := nodes.Rows[0]
	assert.Equal(t, "a.go", root[0])
	assert.Equal(t, float64(0), root[1])
	assert.Equal(t, "source_file", root[2])
	assert.Equal(t, false, root[3])
	assert.Nil(t, root[4], "internal nodes serialize a null source")

	leaf := nodes.Rows[1]
	assert.Equal(t, "x", leaf[4])

	locs := doc["node_locations"]
	assert.Equal(t, []string{
		"path", "id", "start_byte", "start_row", "start_column",
		"end_byte", "end_row", "end_column"}, locs.Headers)
	assert.Len(t, locs.Rows, 3)

	edges := doc["edges"]
	assert.Equal(t, []string{"path", "parent", "child", "field"}, edges.Headers)
	require.Len(t, edges.Rows, 2)
	assert.Equal(t, "name", edges.Rows[0][3])
	assert.Nil(t, edges.Rows[1][3], "unlabeled edges serialize a null field")
}

func TestJSONSink_AccumulatesAcrossFiles(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)
	ctx := context.Background()

	require.NoError(t, s.WriteFile(ctx, sampleRelations("a.go")))
	require.NoError(t, s.WriteFile(ctx, sampleRelations("b.go")))
	require.NoError(t, s.Close())

	var doc map[string]NamedRows
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc["nodes"].Rows, 6)
	assert.Len(t, doc["edges"].Rows, 4)
}

func TestJSONSink_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)
	require.NoError(t, s.Close())

	var doc map[string]NamedRows
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc, 3, "all three relations appear even with no rows")
	assert.Empty(t, doc["nodes"].Rows)
}
