package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Summary is the structured section of the terminal payload. Every field is
// optional; presence is checked explicitly so a numeric zero still counts
// as present. The upstream service substitutes {"error": "..."} objects for
// sections it failed to compute, which decode here as sections with no
// numeric fields and are skipped.
type Summary struct {
	Dem         *RasterStats `json:"dem"`
	Temperature *Temperature `json:"temperature"`
	NDVI        *NDVI        `json:"ndvi"`
	Landcover   Landcover    `json:"landcover"`
}

// RasterStats describes clipped-raster statistics (elevation).
type RasterStats struct {
	Mean *float64 `json:"mean"`
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	Std  *float64 `json:"std"`
}

// Temperature describes land-surface temperature statistics in °C.
type Temperature struct {
	AnnualMeanC *float64 `json:"annual_mean_C"`
	MinC        *float64 `json:"min_C"`
	MaxC        *float64 `json:"max_C"`
}

// NDVI describes vegetation-index statistics on the -1..+1 scale.
type NDVI struct {
	AnnualMean *float64 `json:"annual_mean"`
}

// LandcoverEntry is one land-cover class share.
type LandcoverEntry struct {
	Code    string
	Percent float64
}

// Landcover preserves the payload's own key order. Go maps iterate
// randomly, but the rendered composition must follow the mapping's
// insertion order, so decoding walks the object token by token. A nil
// slice means the field was absent.
type Landcover []LandcoverEntry

// UnmarshalJSON decodes a JSON object of code -> percentage in key order.
// Non-numeric values (e.g. an upstream "error" note) are skipped.
func (lc *Landcover) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*lc = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("landcover: expected object, got %v", tok)
	}

	entries := Landcover{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			continue
		}
		pct, err := num.Float64()
		if err != nil {
			continue
		}
		entries = append(entries, LandcoverEntry{Code: key, Percent: pct})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*lc = entries
	return nil
}

// landcoverLabels maps ESA WorldCover class codes to display labels.
var landcoverLabels = map[string]string{
	"10":  "Tree cover",
	"20":  "Shrubland",
	"30":  "Grassland",
	"40":  "Cropland",
	"50":  "Built-up areas",
	"60":  "Bare/sparse vegetation",
	"70":  "Snow & Ice",
	"80":  "Permanent water",
	"90":  "Herbaceous wetlands",
	"95":  "Mangroves",
	"100": "Moss & Lichen",
}

// LandcoverLabel resolves a class code to its display label.
func LandcoverLabel(code string) string {
	if label, ok := landcoverLabels[code]; ok {
		return label
	}
	return fmt.Sprintf("Class %s", code)
}

// Summarize renders the summary as deterministic natural-language text.
// Sections are produced independently and joined with single spaces; a
// section whose source field is absent is omitted. The "warm" and
// "moderate" adjectives are fixed wording, not data-driven.
func Summarize(s *Summary) string {
	if s == nil {
		return "No summary available."
	}

	var parts []string

	if d := s.Dem; d != nil && d.Mean != nil && d.Min != nil && d.Max != nil && d.Std != nil {
		parts = append(parts, fmt.Sprintf("Elevation: averages around %s m (range: %s–%s m, σ %.1f).",
			formatNumber(math.Round(*d.Mean)), formatNumber(*d.Min), formatNumber(*d.Max), *d.Std))
	}

	if t := s.Temperature; t != nil && t.AnnualMeanC != nil {
		parts = append(parts, fmt.Sprintf("Climate: warm with a mean annual temperature of %s °C.",
			formatNumber(*t.AnnualMeanC)))
	}

	if n := s.NDVI; n != nil && n.AnnualMean != nil {
		parts = append(parts, fmt.Sprintf("Vegetation health: moderate (NDVI ≈ %.2f, scale -1 to +1).",
			*n.AnnualMean))
	}

	if len(s.Landcover) > 0 {
		classes := make([]string, 0, len(s.Landcover))
		for _, e := range s.Landcover {
			classes = append(classes, fmt.Sprintf("%s (%.1f%%)", LandcoverLabel(e.Code), e.Percent))
		}
		parts = append(parts, fmt.Sprintf("Land cover composition: %s.", strings.Join(classes, ", ")))
	}

	if len(parts) == 0 {
		return "No summary available."
	}
	return strings.Join(parts, " ")
}

// formatNumber prints a float the way a template literal would: no
// trailing zeros, no forced decimals.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
