package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/integrators"
)

type ExportData struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Forcing string             `json:"forcing,omitempty"`
	Params  map[string]float64 `json:"params"`
	Options dynamo.Options     `json:"options"`
	Stats   integrators.Stats  `json:"stats"`
	Columns []string           `json:"columns"`
	Times   []float64          `json:"times"`
	States  [][]float64        `json:"states"`
	Metrics map[string]float64 `json:"metrics"`
}

// ExportJSON writes a stored run and its states as one indented JSON
// document.
func ExportJSON(w io.Writer, meta *RunMetadata, table *Table) error {
	data := ExportData{
		ID:      meta.ID,
		Model:   meta.Model,
		Forcing: meta.Forcing,
		Params:  meta.Params,
		Options: meta.Options,
		Stats:   meta.Stats,
		Columns: table.Header,
		Times:   table.Times,
		States:  table.Rows,
		Metrics: meta.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Export loads a stored run and writes it as JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	table, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, meta, table)
}
