// Package report turns the final state of a planned dbgraph.Database into plain
// values that formatters render. Nothing here mutates the graph.
package report

import (
	"strconv"

	"github.com/nibrivia/dbgraph"
)

// State is the tri-state of a node.
type State struct {
	Wanted    bool `json:"wanted"`
	Needed    bool `json:"needed"`
	Available bool `json:"available"`
}

// Label returns the strongest state as a word.
func (s State) Label() string {
	switch {
	case s.Wanted:
		return "wanted"
	case s.Needed:
		return "needed"
	case s.Available:
		return "available"
	default:
		return "-"
	}
}

// StateOf reads the tri-state of n.
func StateOf(n *dbgraph.Node) State {
	return State{Wanted: n.Wanted(), Needed: n.Needed(), Available: n.Available()}
}

// FieldRow is one column of a table in a plan.
type FieldRow struct {
	Column     string `json:"column"`
	GlobalName string `json:"global_name"`
	Key        bool   `json:"key,omitempty"`
	Computed   bool   `json:"computed,omitempty"`
	State      State  `json:"state"`
}

// TableBlock is a table and its columns in a plan.
type TableBlock struct {
	Name   string     `json:"name"`
	State  State      `json:"state"`
	Fields []FieldRow `json:"fields"`
}

// NodeRow describes a computed node that no table lists.
type NodeRow struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Fn     string   `json:"fn"`
	Params []string `json:"params"`
	State  State    `json:"state"`
}

// Counts summarises a plan.
type Counts struct {
	Nodes     int `json:"nodes"`
	Wanted    int `json:"wanted"`
	Needed    int `json:"needed"`
	Available int `json:"available"`
}

// Plan is the per-node labelling of a Database after planning.
type Plan struct {
	Targets  []string     `json:"targets"`
	Tables   []TableBlock `json:"tables"`
	Detached []NodeRow    `json:"detached,omitempty"`
	Counts   Counts       `json:"counts"`
}

// BuildPlan captures the current state of db.
func BuildPlan(db *dbgraph.Database) *Plan {
	p := &Plan{Tables: []TableBlock{}}

	for _, t := range db.Tables() {
		block := TableBlock{Name: t.Name(), State: StateOf(t)}

		for _, f := range t.Fields() {
			block.Fields = append(block.Fields, FieldRow{
				Column:     t.Column(f),
				GlobalName: f.Name(),
				Key:        t.IsKey(f),
				Computed:   f.Kind().IsComputed(),
				State:      StateOf(f),
			})
		}

		p.Tables = append(p.Tables, block)
	}

	p.Detached = detached(db)

	for _, n := range db.Nodes() {
		p.Counts.Nodes++

		if n.Wanted() {
			p.Counts.Wanted++
			p.Targets = append(p.Targets, n.Name())
		}

		if n.Needed() {
			p.Counts.Needed++
		}

		if n.Available() {
			p.Counts.Available++
		}
	}

	return p
}

// ExportHeader is the column header of the flat export.
var ExportHeader = []string{"tablename", "column", "global_name", "is_table_key", "is_computed"}

// ExportRow is one (table, field) pair of the flat export.
type ExportRow struct {
	TableName  string `json:"tablename"`
	Column     string `json:"column"`
	GlobalName string `json:"global_name"`
	IsTableKey bool   `json:"is_table_key"`
	IsComputed bool   `json:"is_computed"`
}

// Record returns the row in ExportHeader order.
func (r ExportRow) Record() []string {
	return []string{
		r.TableName,
		r.Column,
		r.GlobalName,
		strconv.FormatBool(r.IsTableKey),
		strconv.FormatBool(r.IsComputed),
	}
}

// Export is the flat tabular description of a schema.
type Export struct {
	Rows     []ExportRow `json:"rows"`
	Detached []NodeRow   `json:"detached,omitempty"`
}

// BuildExport lists every (table, field) pair once. Computed nodes that belong to
// no table are listed in Detached instead.
func BuildExport(db *dbgraph.Database) *Export {
	e := &Export{Rows: []ExportRow{}}

	for _, t := range db.Tables() {
		for _, f := range t.Fields() {
			e.Rows = append(e.Rows, ExportRow{
				TableName:  t.Name(),
				Column:     t.Column(f),
				GlobalName: f.Name(),
				IsTableKey: t.IsKey(f),
				IsComputed: f.Kind().IsComputed(),
			})
		}
	}

	e.Detached = detached(db)

	return e
}

func detached(db *dbgraph.Database) []NodeRow {
	var out []NodeRow

	for _, n := range db.Fields() {
		if !n.Kind().IsComputed() || inTable(n) {
			continue
		}

		row := NodeRow{
			Name:   n.Name(),
			Kind:   n.Kind().String(),
			Fn:     n.Fn(),
			Params: []string{},
			State:  StateOf(n),
		}

		for _, p := range n.Params() {
			row.Params = append(row.Params, p.Name())
		}

		out = append(out, row)
	}

	return out
}

func inTable(n *dbgraph.Node) bool {
	for _, p := range n.Parents() {
		if p.Kind() == dbgraph.KindTable {
			return true
		}
	}

	return false
}
