package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/integrators"
	"github.com/san-kum/hydrosim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	dischargeCol = "q"
)

var ErrNoStates = errors.New("storage: run has no states")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Timestamp time.Time          `json:"timestamp"`
	Forcing   string             `json:"forcing,omitempty"`
	Params    map[string]float64 `json:"params"`
	Options   dynamo.Options     `json:"options"`
	Outputs   int                `json:"outputs"`
	Stats     integrators.Stats  `json:"stats"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Run is everything needed to persist one simulation.
type Run struct {
	Name    string // run id prefix; Model when empty
	Model   string
	Forcing string
	Params  map[string]float64
	Options dynamo.Options
	Labels  []string       // state column names; x0, x1, ... when empty
	Outflow dynamo.Outflow // adds a discharge column when set
	Result  *sim.Result
}

func (r *Run) header(n int) []string {
	header := []string{"time"}
	for i := 0; i < n; i++ {
		if i < len(r.Labels) {
			header = append(header, r.Labels[i])
		} else {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if r.Outflow != nil {
		header = append(header, dischargeCol)
	}
	return header
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) Save(run Run) (string, error) {
	if run.Result == nil || run.Result.Trajectory == nil {
		return "", ErrNoStates
	}
	runID, runDir, err := s.claim(run.prefix())
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     run.Model,
		Timestamp: time.Now(),
		Forcing:   run.Forcing,
		Params:    run.Params,
		Options:   run.Options,
		Outputs:   len(run.Result.Times),
		Stats:     run.Result.Stats,
		Metrics:   finiteMetrics(run.Result.Metrics),
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := writeStates(csvFile, run); err != nil {
		return "", err
	}
	return runID, nil
}

func (r *Run) prefix() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Model
}

// claim creates a fresh run directory, suffixing the id when a run was
// saved in the same millisecond.
func (s *Store) claim(prefix string) (string, string, error) {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", prefix, time.Now().UnixMilli())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

func writeStates(out io.Writer, run Run) error {
	w := csv.NewWriter(out)
	n, _ := run.Result.Trajectory.Dims()

	if err := w.Write(run.header(n)); err != nil {
		return err
	}
	for k, t := range run.Result.Times {
		x := run.Result.State(k)
		row := make([]string, 0, n+2)
		row = append(row, formatFloat(t))
		for _, val := range x {
			row = append(row, formatFloat(val))
		}
		if run.Outflow != nil {
			row = append(row, formatFloat(run.Outflow.Discharge(x)))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// finiteMetrics drops NaN and Inf values, which encoding/json rejects.
func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if dynamo.State([]float64{v}).IsValid() {
			out[k] = v
		}
	}
	return out
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Table is a stored states.csv: one row per output time.
type Table struct {
	Header []string // column names after time
	Times  []float64
	Rows   [][]float64
}

// Series returns column i (0 is the first state) across all rows.
func (t *Table) Series(i int) []float64 {
	out := make([]float64, len(t.Rows))
	for k, row := range t.Rows {
		if i < len(row) {
			out[k] = row[i]
		}
	}
	return out
}

func (t *Table) Column(name string) ([]float64, bool) {
	for i, h := range t.Header {
		if h == name {
			return t.Series(i), true
		}
	}
	return nil, false
}

// Discharge returns the stored discharge column, if the run had one.
func (t *Table) Discharge() ([]float64, bool) {
	return t.Column(dischargeCol)
}

func (s *Store) LoadStates(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, ErrNoStates
	}

	table := &Table{
		Header: records[0][1:],
		Times:  make([]float64, 0, len(records)-1),
		Rows:   make([][]float64, 0, len(records)-1),
	}
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		row := make([]float64, len(record)-1)
		for j := range row {
			row[j], err = strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		table.Times = append(table.Times, t)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// CopyStates streams the raw states.csv of a run to w.
func (s *Store) CopyStates(w io.Writer, runID string) error {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}
