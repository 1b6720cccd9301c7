package assessment

import "fmt"

// Band is one threshold band of a grading system. A score belongs to the
// highest band whose threshold it reaches.
type Band struct {
	Threshold float64
	Code      string
	Label     string
	Color     string
}

// GradingSystem maps a final score to a status band and a display value.
type GradingSystem interface {
	// Name identifies the system ("percentage", "letter", "color").
	Name() string

	// Bands returns the threshold bands ordered highest first. The last
	// band must have threshold 0 so every score matches something.
	Bands() []Band

	// Format renders the final score for display under this system.
	Format(score float64, band Band) string
}

// bandFor picks the first (highest) band the score reaches.
func bandFor(system GradingSystem, score float64) Band {
	bands := system.Bands()
	for _, band := range bands {
		if score >= band.Threshold {
			return band
		}
	}
	return bands[len(bands)-1]
}

type percentageSystem struct{}

// Percentage grades on a 0-100 scale with EXCELLENT/GOOD/AVERAGE/POOR bands.
func Percentage() GradingSystem {
	return percentageSystem{}
}

func (percentageSystem) Name() string { return "percentage" }

func (percentageSystem) Bands() []Band {
	return []Band{
		{Threshold: 90, Code: "EXCELLENT", Label: "Excellent", Color: "bg-green-600 text-white"},
		{Threshold: 75, Code: "GOOD", Label: "Bien", Color: "bg-green-100 text-green-800"},
		{Threshold: 50, Code: "AVERAGE", Label: "Moyen", Color: "bg-orange-100 text-orange-800"},
		{Threshold: 0, Code: "POOR", Label: "Insuffisant", Color: "bg-red-100 text-red-800"},
	}
}

func (percentageSystem) Format(score float64, band Band) string {
	return fmt.Sprintf("%.1f%%", score)
}

type letterSystem struct{}

// Letter grades with the D/A/PA/NA competency codes.
func Letter() GradingSystem {
	return letterSystem{}
}

func (letterSystem) Name() string { return "letter" }

func (letterSystem) Bands() []Band {
	return []Band{
		{Threshold: 90, Code: "D", Label: "Dépassé", Color: "bg-green-600 text-white"},
		{Threshold: 75, Code: "A", Label: "Acquis", Color: "bg-green-100 text-green-800"},
		{Threshold: 40, Code: "PA", Label: "Partiellement Acquis", Color: "bg-orange-100 text-orange-800"},
		{Threshold: 0, Code: "NA", Label: "Non Atteint", Color: "bg-red-100 text-red-800"},
	}
}

func (letterSystem) Format(score float64, band Band) string {
	return band.Code
}

type colorSystem struct{}

// Color grades with color swatches at the letter cut points.
func Color() GradingSystem {
	return colorSystem{}
}

func (colorSystem) Name() string { return "color" }

func (colorSystem) Bands() []Band {
	return []Band{
		{Threshold: 90, Code: "GREEN", Label: "Vert", Color: "bg-green-600"},
		{Threshold: 75, Code: "LIME", Label: "Vert clair", Color: "bg-lime-400"},
		{Threshold: 40, Code: "ORANGE", Label: "Orange", Color: "bg-orange-400"},
		{Threshold: 0, Code: "RED", Label: "Rouge", Color: "bg-red-500"},
	}
}

func (colorSystem) Format(score float64, band Band) string {
	return band.Label
}
