package exporter

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"httpgen/internal/config"
	"httpgen/internal/exporter/common"
	"httpgen/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	overviewSheet  = "Overview"
	endpointsSheet = "Endpoints"
)

// CatalogExporter writes an endpoint catalog workbook
type CatalogExporter struct{}

func NewCatalogExporter() *CatalogExporter {
	return &CatalogExporter{}
}

func (e *CatalogExporter) Name() string { return PluginCatalog }

func (e *CatalogExporter) OutputFilenames(cfg *config.Config, _ []string) []string {
	return []string{cfg.GetCatalogPath()}
}

// Export generates the workbook
func (e *CatalogExporter) Export(_ context.Context, run *Run) ([]string, error) {
	outputFile := run.Config.GetCatalogPath()
	f := excelize.NewFile()
	defer f.Close()

	styler, err := NewStyler(f)
	if err != nil {
		return nil, err
	}

	rows := common.FlattenTree(run.Roots)

	// 1. Overview sheet
	if err := e.writeOverview(f, styler, run.Roots, rows); err != nil {
		return nil, err
	}

	// 2. Endpoints sheet
	if err := e.writeEndpoints(f, styler, rows); err != nil {
		return nil, err
	}

	if idx, err := f.GetSheetIndex("Sheet1"); err == nil && idx != -1 {
		f.DeleteSheet("Sheet1")
	}

	if err := f.SaveAs(outputFile); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", outputFile, err)
	}
	return []string{outputFile}, nil
}

func (e *CatalogExporter) writeOverview(f *excelize.File, s *Styler, roots []*model.Root, rows []*common.FlattenedEndpoint) error {
	sheet := overviewSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	// Section A: totals
	row := 1
	e.writeRow(f, sheet, row, []string{"Metric", "Count"}, s.HeaderStyle)
	row++

	var methods, responses int
	perType := make(map[model.EndpointType]map[model.Verb]int)
	endpoints := make(map[model.EndpointType]int)
	for _, r := range rows {
		t := r.Endpoint.Type
		endpoints[t]++
		if perType[t] == nil {
			perType[t] = make(map[model.Verb]int)
		}
		for _, m := range r.Endpoint.Methods {
			methods++
			responses += len(m.Responses)
			perType[t][m.Verb]++
		}
	}

	metrics := []struct {
		Key string
		Val int
	}{
		{"Documents", len(roots)},
		{"Endpoints", len(rows)},
		{"Methods", methods},
		{"Responses", responses},
	}
	for _, m := range metrics {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), m.Key)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.Val)
		row++
	}

	row += 2

	// Section B: methods per endpoint type and verb
	headers := []string{"Endpoint Type", "Endpoints"}
	for _, v := range model.Verbs {
		headers = append(headers, string(v))
	}
	e.writeRow(f, sheet, row, headers, s.HeaderStyle)
	row++

	for t := model.EndpointType(0); t <= model.BackrefItem; t++ {
		if endpoints[t] == 0 {
			continue
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.String())
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), endpoints[t])
		for i, v := range model.Verbs {
			cell, _ := excelize.CoordinatesToCellName(i+3, row)
			f.SetCellValue(sheet, cell, perType[t][v])
		}
		last, _ := excelize.CoordinatesToCellName(len(headers), row)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), last, s.ForType(t))
		row++
	}

	f.SetColWidth(sheet, "A", "A", 28)
	return nil
}

func (e *CatalogExporter) writeEndpoints(f *excelize.File, s *Styler, rows []*common.FlattenedEndpoint) error {
	sheet := endpointsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"No", "File", "Full URI", "Unique Name", "Type", "Verb", "Summary", "Response Codes"}
	e.writeRow(f, sheet, 1, headers, s.HeaderStyle)

	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	row := 2
	for i, r := range rows {
		ep := r.Endpoint
		methods := common.SortMethods(ep.Methods)

		// An endpoint without methods still gets a row to keep the hierarchy visible
		if len(methods) == 0 {
			e.writeEndpointRow(f, sheet, row, i+1, r, nil, s)
			row++
			continue
		}
		for _, m := range methods {
			e.writeEndpointRow(f, sheet, row, i+1, r, m, s)
			row++
		}
	}

	f.SetColWidth(sheet, "B", "B", 24) // File
	f.SetColWidth(sheet, "C", "D", 40) // URI, name
	f.SetColWidth(sheet, "E", "E", 26) // Type
	f.SetColWidth(sheet, "G", "G", 50) // Summary
	f.SetColWidth(sheet, "H", "H", 24)
	return nil
}

func (e *CatalogExporter) writeEndpointRow(f *excelize.File, sheet string, row, no int, r *common.FlattenedEndpoint, m *model.Method, s *Styler) {
	ep := r.Endpoint

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), no)
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), filepath.Base(r.Root.Filename))
	f.SetCellValue(sheet, fmt.Sprintf("C%d", row), ep.FullURI)
	f.SetCellValue(sheet, fmt.Sprintf("D%d", row), ep.UniqueName)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), ep.Type.String())

	summary := ep.Summary
	if m != nil {
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(m.Verb))
		if m.Summary != "" {
			summary = m.Summary
		}

		codes := common.ResponseCodes(m)
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = strconv.Itoa(c)
		}
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), strings.Join(parts, ", "))
	}
	f.SetCellValue(sheet, fmt.Sprintf("G%d", row), summary)

	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), s.ForType(ep.Type))
}

func (e *CatalogExporter) writeRow(f *excelize.File, sheet string, row int, values []string, style int) {
	for i, val := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, val)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}
