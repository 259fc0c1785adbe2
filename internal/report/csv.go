package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"tidybids/internal/apply"
	"tidybids/internal/errkind"
)

// WriteCSV emits the table as CSV.
func WriteCSV(w io.Writer, t Table) error {
	tw := table.NewWriter()
	header := make(table.Row, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	_, err := io.WriteString(w, tw.RenderCSV()+"\n")
	return err
}

// ParseEditedSummary reads a summary CSV the operator has filled in and
// returns the edit batch it encodes. Rows with both editable cells blank are
// skipped; everything informational is ignored, so a re-emitted summary with
// no edits parses to an empty batch.
func ParseEditedSummary(r io.Reader) ([]apply.EditInstruction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrValidation, "report", "parse summary csv", "", err)
	}
	if len(rows) == 0 {
		return nil, errkind.Wrap(errkind.ErrValidation, "report", "parse summary csv",
			"empty file", nil)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColEntitySet, ColParamGroup, ColRenameTo, ColMergeInto} {
		if _, ok := columns[required]; !ok {
			return nil, errkind.Wrap(errkind.ErrValidation, "report", "parse summary csv",
				fmt.Sprintf("missing column %q", required), nil)
		}
	}

	cell := func(row []string, name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var instructions []apply.EditInstruction
	for line, row := range rows[1:] {
		renameTo := cell(row, ColRenameTo)
		mergeInto := cell(row, ColMergeInto)
		if renameTo == "" && mergeInto == "" {
			continue
		}
		rank, err := strconv.Atoi(cell(row, ColParamGroup))
		if err != nil {
			return nil, errkind.Wrap(errkind.ErrValidation, "report", "parse summary csv",
				fmt.Sprintf("row %d: param_group %q is not a number", line+2, cell(row, ColParamGroup)), nil)
		}
		instruction := apply.EditInstruction{
			EntityKey: cell(row, ColEntitySet),
			Rank:      rank,
			RenameTo:  renameTo,
		}
		if mergeInto != "" {
			target, err := strconv.Atoi(mergeInto)
			if err != nil || target < 0 {
				return nil, errkind.Wrap(errkind.ErrValidation, "report", "parse summary csv",
					fmt.Sprintf("row %d: merge_into %q is not a group rank or 0", line+2, mergeInto), nil)
			}
			instruction.MergeInto = &target
		}
		instructions = append(instructions, instruction)
	}
	return instructions, nil
}
