package spline

import "fmt"

// Snapshot is the serializable form of a spline with coefficients set.
type Snapshot struct {
	A            float64   `json:"a"`
	B            float64   `json:"b"`
	Segments     int       `json:"segments"`
	Degree       int       `json:"degree"`
	Kind         string    `json:"kind"`
	Coefficients []float64 `json:"coefficients"`
}

func (s *Spline) Snapshot() (Snapshot, error) {
	c, err := s.Coefficients()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		A:            s.a,
		B:            s.b,
		Segments:     s.segments,
		Degree:       s.degree,
		Kind:         s.kind.String(),
		Coefficients: c,
	}, nil
}

// Restore rebuilds an evaluation-only spline from a snapshot.
func Restore(snap Snapshot) (*Spline, error) {
	if !(snap.B > snap.A) || snap.Segments < 1 || snap.Degree < 1 {
		return nil, fmt.Errorf("spline: invalid snapshot domain [%g,%g] with %d segments of degree %d",
			snap.A, snap.B, snap.Segments, snap.Degree)
	}
	want := snap.Segments * (snap.Degree + 1)
	if len(snap.Coefficients) != want {
		return nil, fmt.Errorf("spline: snapshot has %d coefficients, want %d", len(snap.Coefficients), want)
	}
	kind := State
	if snap.Kind == "u" {
		kind = Input
	}
	return &Spline{
		a:        snap.A,
		b:        snap.B,
		segments: snap.Segments,
		degree:   snap.Degree,
		h:        (snap.B - snap.A) / float64(snap.Segments),
		kind:     kind,
		restored: true,
		coeffs:   append([]float64(nil), snap.Coefficients...),
	}, nil
}
