package Reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BuildDailySummaryWorkbook renders the org-wide summary plus the per-user
// and per-project breakdowns into one workbook.
func BuildDailySummaryWorkbook(summary *DailySummary, rates []UserCompletionRate, pending []ProjectPendingCount) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Summary"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, styleErr := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})

	summaryRows := [][]interface{}{
		{"Daily Task Summary", summary.Date},
		{"Tasks Created", summary.TasksCreated},
		{"Tasks Completed", summary.TasksCompleted},
		{"Projects Created", summary.ProjectsCreated},
		{"Projects Completed", summary.ProjectsCompleted},
		{"Active Users", summary.ActiveUsers},
	}
	for i, row := range summaryRows {
		for j, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+j, i+1)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	if styleErr == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	if err := writeRateSheet(f, rates, headerStyle, styleErr == nil); err != nil {
		return nil, err
	}
	if err := writePendingSheet(f, pending, headerStyle, styleErr == nil); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRateSheet(f *excelize.File, rates []UserCompletionRate, style int, styled bool) error {
	sheetName := "Completion Rates"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}

	headers := []string{"User ID", "Name", "Total Tasks", "Completed", "Completion Rate"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	if styled {
		f.SetRowStyle(sheetName, 1, 1, style)
	}

	for rowIndex, rate := range rates {
		row := rowIndex + 2
		values := []interface{}{
			rate.UserID,
			rate.UserName,
			rate.TotalTasks,
			rate.CompletedTasks,
			fmt.Sprintf("%.2f%%", rate.CompletionRate),
		}
		for i, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+i, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

func writePendingSheet(f *excelize.File, pending []ProjectPendingCount, style int, styled bool) error {
	sheetName := "Pending Tasks"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}

	headers := []string{"Project ID", "Project", "Pending Tasks"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	if styled {
		f.SetRowStyle(sheetName, 1, 1, style)
	}

	for rowIndex, count := range pending {
		row := rowIndex + 2
		values := []interface{}{count.ProjectID, count.ProjectTitle, count.PendingTasksCount}
		for i, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+i, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

// BuildUserReportWorkbook renders one user's task detail.
func BuildUserReportWorkbook(report *UserReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Tasks"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheetName, "A1", "Report for")
	f.SetCellValue(sheetName, "B1", report.UserName)
	f.SetCellValue(sheetName, "A2", "Completion rate")
	f.SetCellValue(sheetName, "B2", fmt.Sprintf("%.2f%%", report.CompletionRate))

	headers := []string{"Title", "Status", "Project", "Due Date"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c4", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, task := range report.Tasks {
		row := rowIndex + 5
		values := []interface{}{
			task.Title,
			task.Status,
			task.Project,
			task.DueDate.Format("2006-01-02 15:04"),
		}
		for i, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+i, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
