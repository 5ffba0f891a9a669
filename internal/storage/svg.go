package storage

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/trajgen/internal/planner"
)

const (
	svgWidth       = 640
	svgPanelHeight = 120
	svgMargin      = 8
)

var svgColors = []string{"#00ccff", "#00ff88", "#ffaa00", "#ff66cc", "#aa88ff"}

// WriteSVG plots every state and then every input over time, one panel per
// variable stacked top to bottom.
func WriteSVG(w io.Writer, data *planner.SimData, width, panelHeight int) error {
	if data == nil || len(data.Times) < 2 {
		return fmt.Errorf("storage: need at least two samples to plot")
	}

	type panel struct {
		name   string
		values []float64
	}
	var panels []panel
	for i, name := range data.StateNames {
		panels = append(panels, panel{name, column(data.States, i)})
	}
	for i, name := range data.InputNames {
		panels = append(panels, panel{name, column(data.Inputs, i)})
	}

	height := len(panels) * panelHeight
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	t0, t1 := data.Times[0], data.Times[len(data.Times)-1]
	for k, p := range panels {
		top := float64(k * panelHeight)
		lo, hi := bounds(p.values)
		plotW := float64(width - 2*svgMargin)
		plotH := float64(panelHeight - 2*svgMargin)

		fmt.Fprintf(bw, `<g id="%s">
<text x="%d" y="%.1f" fill="#888899" font-family="monospace" font-size="11">%s  [%.3g, %.3g]</text>
<path fill="none" stroke="%s" stroke-width="1.5" d="`,
			p.name, svgMargin, top+svgMargin+10, p.name, lo, hi, svgColors[k%len(svgColors)])
		for i, v := range p.values {
			x := svgMargin + (data.Times[i]-t0)/(t1-t0)*plotW
			y := top + svgMargin + plotH - (v-lo)/(hi-lo)*plotH
			if i == 0 {
				fmt.Fprintf(bw, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
			}
		}
		bw.WriteString("\"/>\n</g>\n")
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func column(rows [][]float64, i int) []float64 {
	col := make([]float64, len(rows))
	for j, r := range rows {
		col[j] = r[i]
	}
	return col
}

// bounds returns the value range padded by 10%, never empty.
func bounds(v []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - 0.1*span, hi + 0.1*span
}
