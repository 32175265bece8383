// Package report renders creator-facing progress exports.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/contentcoach/coachbot/internal/agent"
	"github.com/contentcoach/coachbot/internal/course"
	"github.com/contentcoach/coachbot/internal/progress"
)

const sheetName = "Progress"

// BuildWorkbook renders one row per student session with overall and
// per-phase completion against the bot's course map. The caller owns the
// returned file and must Close it.
func BuildWorkbook(m course.Map, rows []agent.Progress) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	// An empty completed set still yields the full phase skeleton, which
	// fixes the column order for every row.
	skeleton := progress.Compute(m, nil)

	headers := []any{"Session", "Completed", "Total", "Updated"}
	for _, phase := range skeleton.Phases {
		headers = append(headers, phase.PhaseTitle)
	}
	if err := setRow(f, 1, headers); err != nil {
		f.Close()
		return nil, err
	}

	for i, row := range rows {
		summary := progress.Compute(m, row.CompletedIDs)

		cells := []any{
			row.SessionID,
			summary.CompletedModules,
			summary.TotalModules,
			row.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for _, phase := range summary.Phases {
			cells = append(cells, fmt.Sprintf("%d/%d", phase.Completed, phase.Total))
		}
		if err := setRow(f, i+2, cells); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
