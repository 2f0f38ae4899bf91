package admin

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"topicspin-api/internal/models"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportTimeLayout = "2006-01-02 15:04:05"
	sheetName        = "Assignments"
)

var exportHeaders = []string{"Employee ID", "Name", "Channel", "Category", "Topic", "Room", "Assigned At"}

// FileName is the download name for an export made at now, e.g.
// trainer-assignments-2024-05-01.csv.
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("trainer-assignments-%s.%s", now.UTC().Format("2006-01-02"), ext)
}

func exportRow(a models.Assignment) []string {
	room := ""
	if a.Room > 0 {
		room = fmt.Sprintf("Room %d", a.Room)
	}
	at := ""
	if !a.AssignedAt.IsZero() {
		at = a.AssignedAt.UTC().Format(exportTimeLayout)
	}
	return []string{a.EmployeeID, a.Name, string(a.Channel), string(a.Category), a.Topic, room, at}
}

func WriteCSV(w io.Writer, list []models.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, a := range list {
		if err := cw.Write(exportRow(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, list []models.Assignment) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for r, a := range list {
		for c, v := range exportRow(a) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}
	_, err = f.WriteTo(w)
	return err
}
