// Package ingest turns parsed source files into the three relational
// streams every export backend consumes: one Node record per CST node, one
// Location record per node, and one Edge record per parent-child link.
package ingest

// Node is one row of the nodes relation. Source is non-nil exactly when the
// node is a terminal (zero children); internal-node text is reconstructable
// from descendant terminals and is omitted to avoid duplication.
type Node struct {
	Path    string  `json:"path"`
	ID      int64   `json:"id"`
	Kind    string  `json:"kind"`
	IsError bool    `json:"is_error"`
	Source  *string `json:"source"`
}

// Location is one row of the node_locations relation, 1:1 with Node on
// (path, id). Offsets are zero-based; EndByte is exclusive.
type Location struct {
	Path        string `json:"path"`
	ID          int64  `json:"id"`
	StartByte   int64  `json:"start_byte"`
	StartRow    int64  `json:"start_row"`
	StartColumn int64  `json:"start_column"`
	EndByte     int64  `json:"end_byte"`
	EndRow      int64  `json:"end_row"`
	EndColumn   int64  `json:"end_column"`
}

// Edge is one row of the edges relation. Field is nil when the grammar
// assigns no field name to the child slot.
type Edge struct {
	Path   string  `json:"path"`
	Parent int64   `json:"parent"`
	Child  int64   `json:"child"`
	Field  *string `json:"field"`
}

// FileRelations is the full replacement set for one path, produced by a
// single flattening pass and delivered to sinks as an atomic batch.
type FileRelations struct {
	Path      string     `json:"path"`
	Nodes     []Node     `json:"nodes"`
	Locations []Location `json:"node_locations"`
	Edges     []Edge     `json:"edges"`
}
