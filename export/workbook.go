// Package export renders dispatch data as xlsx workbooks.
package export

import (
	"bytes"
	"dispatch-backend/models"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	dispatchSheet = "Dispatches"
	scheduleSheet = "Schedule"
	leaveSheet    = "Leaves"

	headerRow = 4
)

type column struct {
	label string
	width float64
}

var dispatchColumns = []column{
	{"Dispatch #", 22},
	{"Status", 14},
	{"Priority", 10},
	{"Scheduled Date", 14},
	{"Start", 8},
	{"End", 8},
	{"Technicians", 30},
	{"Job", 16},
	{"Service Order", 16},
	{"Completion %", 12},
	{"Actual Duration (min)", 20},
}

var scheduleColumns = []column{
	{"Date", 12},
	{"Dispatch #", 22},
	{"Status", 14},
	{"Start", 8},
	{"End", 8},
	{"Minutes", 10},
	{"Priority", 10},
}

var leaveColumns = []column{
	{"Type", 16},
	{"From", 12},
	{"To", 12},
	{"Reason", 40},
}

// DispatchList writes one row per dispatch below a title block
func DispatchList(dispatches []*models.Dispatch, generatedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dispatchSheet); err != nil {
		return nil, err
	}
	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	if err := writeTitle(f, dispatchSheet, "Dispatches", generatedAt, styles); err != nil {
		return nil, err
	}
	if err := writeHeader(f, dispatchSheet, dispatchColumns, styles.header); err != nil {
		return nil, err
	}

	for i, d := range dispatches {
		duration := ""
		if d.ActualDuration != nil {
			duration = fmt.Sprint(*d.ActualDuration)
		}
		row := []interface{}{
			d.DispatchNumber,
			string(d.Status),
			string(d.Priority),
			d.ScheduledDate,
			d.StartTime,
			d.EndTime,
			technicianNames(d),
			d.JobID,
			d.ServiceOrderID,
			d.CompletionPercentage,
			duration,
		}
		if err := writeRow(f, dispatchSheet, headerRow+1+i, row, styles.data); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

// TechnicianSchedule writes the schedule's dispatches with a totals block, plus a sheet of leaves
func TechnicianSchedule(schedule *models.TechnicianSchedule, generatedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scheduleSheet); err != nil {
		return nil, err
	}
	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s: %s to %s", schedule.TechnicianName, schedule.StartDate, schedule.EndDate)
	if err := writeTitle(f, scheduleSheet, title, generatedAt, styles); err != nil {
		return nil, err
	}
	if err := writeHeader(f, scheduleSheet, scheduleColumns, styles.header); err != nil {
		return nil, err
	}

	for i, d := range schedule.Dispatches {
		w := d.Window()
		row := []interface{}{
			d.ScheduledDate,
			d.DispatchNumber,
			string(d.Status),
			models.FormatClock(w.Start),
			models.FormatClock(w.End),
			w.Minutes(),
			string(d.Priority),
		}
		if err := writeRow(f, scheduleSheet, headerRow+1+i, row, styles.data); err != nil {
			return nil, err
		}
	}

	summary := headerRow + len(schedule.Dispatches) + 2
	totals := [][]interface{}{
		{"Scheduled hours", schedule.TotalScheduledHours},
		{"Available hours", schedule.AvailableHours},
	}
	for i, t := range totals {
		if err := writeRow(f, scheduleSheet, summary+i, t, styles.summary); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(leaveSheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, leaveSheet, leaveColumns, styles.header); err != nil {
		return nil, err
	}
	for i, l := range schedule.Leaves {
		row := []interface{}{l.LeaveType, l.StartDate, l.EndDate, l.Reason}
		if err := writeRow(f, leaveSheet, headerRow+1+i, row, styles.data); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

// FileName builds an attachment name such as dispatches_20240601.xlsx
func FileName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, at.Format("20060102"))
}

type styles struct {
	title   int
	header  int
	data    int
	summary int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border("000000"),
	})
	if err != nil {
		return s, err
	}

	s.data, err = f.NewStyle(&excelize.Style{Border: border("CCCCCC")})
	if err != nil {
		return s, err
	}

	s.summary, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
	})
	return s, err
}

func border(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
	}
}

func writeTitle(f *excelize.File, sheet, title string, generatedAt time.Time, s styles) error {
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", s.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, 1, 30); err != nil {
		return err
	}
	return f.SetCellValue(sheet, "A2", "Generated: "+generatedAt.Format("2006-01-02 15:04:05"))
}

func writeHeader(f *excelize.File, sheet string, columns []column, style int) error {
	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, c.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, c.width); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, first, &values); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func technicianNames(d *models.Dispatch) string {
	names := make([]string, 0, len(d.Technicians))
	for _, t := range d.Technicians {
		if t.TechnicianName != "" {
			names = append(names, t.TechnicianName)
		} else {
			names = append(names, t.TechnicianID)
		}
	}
	return strings.Join(names, ", ")
}
