package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run    RunMetadata `json:"run"`
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
	Inputs [][]float64 `json:"inputs"`
	// Splines lets consumers evaluate the trajectory between samples.
	Splines *Splines `json:"splines,omitempty"`
}

// Export collects everything stored for a run.
func (s *Store) Export(runID string, withSplines bool) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data, err := s.LoadSamples(runID)
	if err != nil {
		return nil, err
	}
	out := &ExportData{
		Run:    *meta,
		Times:  data.Times,
		States: data.States,
		Inputs: data.Inputs,
	}
	if withSplines {
		if out.Splines, err = s.LoadSplines(runID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSON writes the run to path, or to stdout when path is "-".
func (s *Store) ExportJSON(runID, path string, withSplines bool) error {
	data, err := s.Export(runID, withSplines)
	if err != nil {
		return err
	}
	return toPath(path, func(w io.Writer) error { return WriteJSON(w, data) })
}

// ExportSVG plots the stored samples of a run to path, or to stdout when
// path is "-".
func (s *Store) ExportSVG(runID, path string) error {
	data, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}
	return toPath(path, func(w io.Writer) error { return WriteSVG(w, data, svgWidth, svgPanelHeight) })
}

func toPath(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
