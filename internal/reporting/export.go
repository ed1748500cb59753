package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetVolume     = "Volume"
	sheetSLA        = "SLA"
	sheetTeams      = "Teams"
	sheetIssueTypes = "IssueTypes"
)

// ExportWorkbook renders the report as an xlsx workbook.
func ExportWorkbook(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetVolume); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetSLA, sheetTeams, sheetIssueTypes} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	volume := [][]any{{"Day", "Created", "Resolved"}}
	for _, d := range report.Volume {
		volume = append(volume, []any{d.Day.Format("2006-01-02"), d.Created, d.Resolved})
	}
	slaRows := [][]any{{"Bucket", "Count", "Percent"}}
	for _, s := range report.SLA {
		slaRows = append(slaRows, []any{s.Bucket, s.Count, s.Percent})
	}
	teams := [][]any{{"Team", "Total", "Resolved or closed", "Rate %"}}
	for _, t := range report.Teams {
		teams = append(teams, []any{t.TeamName, t.Total, t.Completed, t.RatePercent})
	}
	issueTypes := [][]any{{"Issue type", "Tickets"}}
	for _, it := range report.IssueTypes {
		issueTypes = append(issueTypes, []any{it.Name, it.Count})
	}

	for sheet, rows := range map[string][][]any{
		sheetVolume:     volume,
		sheetSLA:        slaRows,
		sheetTeams:      teams,
		sheetIssueTypes: issueTypes,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
