package exporter

import (
	"httpgen/internal/model"

	"github.com/xuri/excelize/v2"
)

// Styler holds the cell styles of the catalog workbook
type Styler struct {
	File *excelize.File

	HeaderStyle    int
	ResourceStyle  int
	ReferenceStyle int
	BackrefStyle   int
	DefaultStyle   int
}

// NewStyler registers the catalog styles on the workbook
func NewStyler(f *excelize.File) (*Styler, error) {
	s := &Styler{File: f}
	var err error

	// Header: bold, gray background, centered
	s.HeaderStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#000000"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    createBorder(),
	})
	if err != nil {
		return nil, err
	}

	// Collections and their items: blue
	s.ResourceStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#0000FF"},
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    createBorder(),
	})
	if err != nil {
		return nil, err
	}

	s.ReferenceStyle, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    createBorder(),
	})
	if err != nil {
		return nil, err
	}

	// Backrefs: gray italic
	s.BackrefStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#757575", Italic: true},
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    createBorder(),
	})
	if err != nil {
		return nil, err
	}

	s.DefaultStyle, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border:    createBorder(),
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ForType picks the row style of an endpoint
func (s *Styler) ForType(t model.EndpointType) int {
	switch {
	case t == model.Collection || t == model.CollectionItem:
		return s.ResourceStyle
	case t.IsReference():
		return s.ReferenceStyle
	case t.IsBackref():
		return s.BackrefStyle
	default:
		return s.DefaultStyle
	}
}

func createBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "D4D4D4", Style: 1},
		{Type: "top", Color: "D4D4D4", Style: 1},
		{Type: "bottom", Color: "D4D4D4", Style: 1},
		{Type: "right", Color: "D4D4D4", Style: 1},
	}
}
