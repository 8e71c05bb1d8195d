package annotation

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/timecode"
)

//csvHeader is the exact export header. Import matches these names
//case-insensitively and accepts them in any order; Down is optional there.
var csvHeader = []string{"TagName", "StartTime", "EndTime", "Modifiers", "Down"}

//exportRow is the field set shared by the CSV and JSON exports
type exportRow struct {
	TagName   string `json:"TagName"`
	StartTime string `json:"StartTime"`
	EndTime   string `json:"EndTime"`
	Modifiers string `json:"Modifiers"`
	Down      string `json:"Down"`
}

func recordToRow(r Record) exportRow {
	row := exportRow{
		TagName:   r.TagName,
		StartTime: timecode.FormatMinuteSecond(r.StartKey),
		Modifiers: r.Modifier,
		Down:      r.Down,
	}
	if r.EndKey != nil {
		row.EndTime = timecode.FormatMinuteSecond(*r.EndKey)
	}
	return row
}

//WriteCSV writes the store's snapshot as strict CSV: the fixed header row,
//then one row per record in ascending start order. Fields containing commas,
//quotes or newlines are quoted with internal quotes doubled.
func (s *Store) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range s.Snapshot() {
		row := recordToRow(r)
		if err := cw.Write([]string{row.TagName, row.StartTime, row.EndTime, row.Modifiers, row.Down}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

//ExportCSV returns the store's contents in the CSV schema format
func (s *Store) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//ExportJSON returns the store's contents as a pretty-printed JSON array
//using the same field names and time encoding as the CSV export
func (s *Store) ExportJSON() ([]byte, error) {
	rows := make([]exportRow, 0, s.Len())
	for _, r := range s.Snapshot() {
		rows = append(rows, recordToRow(r))
	}
	return json.MarshalIndent(rows, "", "  ")
}

//ExportFileName returns the conventional export file name for given
//extension, e.g. "annotations_1700000000000.csv"
func ExportFileName(ext string) string {
	return fmt.Sprintf("annotations_%d.%s", time.Now().UnixMilli(), ext)
}

//ImportResult summarizes a schema import
type ImportResult struct {
	Imported int
	Skipped  int
}

//ImportCSV replaces the store's contents with the annotations in given CSV.
//The header must contain at least TagName, StartTime, EndTime and Modifiers
//(any casing, any order) or the whole import is rejected and the store is
//left untouched. Individual rows with an empty tag or an undecodable start
//time are skipped; an undecodable end time falls back to the start so the
//row becomes a zero-width window. Rows are inserted through Add, so the
//usual quantization and duplicate rules apply.
func (s *Store) ImportCSV(r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("ImportCSV: could not parse CSV, got '%v'", err)
	}
	if len(rows) == 0 {
		return ImportResult{}, fmt.Errorf("ImportCSV: empty file")
	}

	idx := make(map[string]int)
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"tagname", "starttime", "endtime", "modifiers"} {
		if _, ok := idx[required]; !ok {
			return ImportResult{}, fmt.Errorf("ImportCSV: missing required header '%s'", required)
		}
	}

	//header validated - from here on the import is a wholesale replace
	s.Clear()

	cell := func(row []string, name string) string {
		i := idx[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var res ImportResult
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		tag := cell(row, "tagname")
		start, okStart := timecode.ParseImportTime(cell(row, "starttime"))
		if tag == "" || !okStart {
			res.Skipped++
			continue
		}

		end := start
		if v, ok := timecode.ParseImportTime(cell(row, "endtime")); ok {
			end = v
		}

		down := ""
		if _, ok := idx["down"]; ok {
			down = cell(row, "down")
		}

		if _, ok := s.Add(start, &end, tag, cell(row, "modifiers"), down); ok {
			res.Imported++
		} else {
			res.Skipped++
		}
	}

	return res, nil
}
