package export

import (
	"fmt"

	"github.com/frahmantamala/hrm-access/internal/account"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Users"

// Workbook renders account rosters as xlsx.
type Workbook struct{}

func NewWorkbook() *Workbook {
	return &Workbook{}
}

// Columns is the header row of the roster sheet.
func Columns() []string {
	cols := []string{"ID", "Username", "Full Name", "Role", "Department Access", "Active", "Created At", "Last Login"}
	for _, c := range permission.Capabilities {
		m, _ := permission.Describe(c)
		cols = append(cols, m.Label)
	}
	return cols
}

func (w *Workbook) Roster(accounts []*account.Account) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	columns := Columns()
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetName, cell, col)
		f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	for rowIdx, acc := range accounts {
		values := []interface{}{
			acc.ID,
			acc.Username,
			acc.FullName,
			string(acc.Role),
			departmentAccess(acc.DepartmentAccess),
			yesNo(acc.IsActive),
			acc.CreatedAt.Format("2006-01-02 15:04:05"),
			"",
		}
		if acc.LastLogin != nil {
			values[7] = acc.LastLogin.Format("2006-01-02 15:04:05")
		}
		for _, c := range permission.Capabilities {
			values = append(values, yesNo(acc.Permissions.Has(c)))
		}

		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rowIdx+2, err)
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(SheetName, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func departmentAccess(d *string) string {
	if d == nil || *d == "" {
		return "All"
	}
	return *d
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
