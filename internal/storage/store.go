// Package storage keeps solved trajectories on disk, one directory per run
// holding metadata.json, trajectory.csv and splines.json.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/trajgen/internal/planner"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	splinesFile    = "splines.json"
)

var ErrRunNotFound = errors.New("run not found")

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
	ID               string             `json:"id"`
	Problem          string             `json:"problem"`
	Timestamp        time.Time          `json:"timestamp"`
	Success          bool               `json:"success"`
	Phase            string             `json:"phase"`
	Residual         float64            `json:"residual"`
	Refinements      int                `json:"refinements"`
	SolverIterations int                `json:"solver_iterations"`
	SegmentsX        int                `json:"segments_x"`
	SegmentsU        int                `json:"segments_u"`
	Seconds          float64            `json:"seconds"`
	Chains           []string           `json:"chains,omitempty"`
	States           []string           `json:"states"`
	Inputs           []string           `json:"inputs"`
	Checks           planner.Checks     `json:"checks"`
	Config           planner.Config     `json:"config"`
	Metrics          map[string]float64 `json:"metrics,omitempty"`
}

// Save writes the result sampled at n points. Metrics are optional.
func (s *Store) Save(res *planner.Result, cfg planner.Config, n int, metrics map[string]float64) (string, error) {
	data, err := res.Sample(n)
	if err != nil {
		return "", err
	}
	splines, err := Capture(res.Trajectory)
	if err != nil {
		return "", err
	}

	now := time.Now()
	runID := fmt.Sprintf("%s_%s_%s", res.Problem, now.Format("20060102T150405"), uuid.New().String()[:8])
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:               runID,
		Problem:          res.Problem,
		Timestamp:        now,
		Success:          res.Success,
		Phase:            res.Phase.String(),
		Residual:         res.Residual,
		Refinements:      res.Refinements,
		SolverIterations: res.SolverIterations,
		SegmentsX:        res.SegmentsX,
		SegmentsU:        res.SegmentsU,
		Seconds:          res.Duration.Seconds(),
		States:           data.StateNames,
		Inputs:           data.InputNames,
		Checks:           res.Checks,
		Config:           cfg,
		Metrics:          metrics,
	}
	for _, c := range res.Chains {
		meta.Chains = append(meta.Chains, c.String())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, splinesFile), splines); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, trajectoryFile), data); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(path string, data *planner.SimData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string{"time"}, data.StateNames...), data.InputNames...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range data.Times {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(t, 'g', -1, 64))
		for _, v := range data.States[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range data.Inputs[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
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
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := s.readJSON(runID, metadataFile, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSamples reads the sampled trajectory back.
func (s *Store) LoadSamples(runID string) (*planner.SimData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 1 + len(meta.States) + len(meta.Inputs)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trajectoryFile, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: missing header", trajectoryFile)
	}

	ns := len(meta.States)
	data := &planner.SimData{
		StateNames: meta.States,
		InputNames: meta.Inputs,
	}
	for line, rec := range records[1:] {
		vals := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
			}
			vals[j] = v
		}
		data.Times = append(data.Times, vals[0])
		data.States = append(data.States, vals[1:1+ns])
		data.Inputs = append(data.Inputs, vals[1+ns:])
	}
	return data, nil
}

// LoadSplines restores the evaluation-only splines of a run.
func (s *Store) LoadSplines(runID string) (*Splines, error) {
	var sp Splines
	if err := s.readJSON(runID, splinesFile, &sp); err != nil {
		return nil, err
	}
	if err := sp.restore(); err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) readJSON(runID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s/%s: %w", runID, name, err)
	}
	return nil
}
