// Package report exports the review status of every project manager as an
// xlsx workbook.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// SummarySheet is the name of the first worksheet
const SummarySheet = "Summary"

// FileExt is the extension of generated reports
const FileExt = ".xlsx"

const maxSheetName = 31

var (
	summaryHeader = []interface{}{"Manager ID", "Manager", "Total Tasks", "Updated Today", "Pending", "Due Today"}
	queueHeader   = []interface{}{"Opportunity ID", "Opportunity", "Project Status", "Priority", "Last Review", "Next Meeting", "Next Steps"}
)

// Source is the part of the task backend the report reads
type Source interface {
	GetManagerList(ctx context.Context) ([]entity.ProjectManager, error)
	GetTaskQueue(ctx context.Context, managerID string, mode entity.Mode, statusFilter string) ([]string, error)
	GetTaskDetail(ctx context.Context, taskID string) (*entity.TaskDetail, error)
}

// Summary counts what a generated report contains
type Summary struct {
	Managers int
	DueTasks int
	Sheets   []string
}

// Generator builds status workbooks
type Generator struct {
	source Source
	logger *zap.Logger
}

// NewGenerator creates a report generator
func NewGenerator(source Source, logger *zap.Logger) *Generator {
	return &Generator{
		source: source,
		logger: logger,
	}
}

// Build creates the workbook: a summary row per manager and one sheet per
// manager listing the projects still due for an update today. The caller
// closes the returned file.
func (g *Generator) Build(ctx context.Context, asOf time.Time) (*excelize.File, *Summary, error) {
	managers, err := g.source.GetManagerList(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get manager list: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, SummarySheet, summaryHeader, headerStyle); err != nil {
		f.Close()
		return nil, nil, err
	}

	summary := &Summary{Sheets: []string{SummarySheet}}
	used := map[string]bool{strings.ToLower(SummarySheet): true}

	for i, m := range managers {
		ids, err := g.source.GetTaskQueue(ctx, m.ID, entity.ModeUpdate, entity.FilterDueToday)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("get task queue of %s: %w", m.ID, err)
		}

		row := []interface{}{m.ID, m.Name, m.TotalTasks, m.UpdatedToday, m.Pending(), len(ids)}
		if err := f.SetSheetRow(SummarySheet, cellName(1, i+2), &row); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to write summary row: %w", err)
		}

		sheet := uniqueSheetName(m.Name, m.ID, used)
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
		if err := writeHeader(f, sheet, queueHeader, headerStyle); err != nil {
			f.Close()
			return nil, nil, err
		}
		if err := g.writeQueue(ctx, f, sheet, ids); err != nil {
			f.Close()
			return nil, nil, err
		}

		summary.Managers++
		summary.DueTasks += len(ids)
		summary.Sheets = append(summary.Sheets, sheet)
	}

	if err := f.SetCellValue(SummarySheet, cellName(1, len(managers)+3), "Generated "+asOf.Format("2006-01-02 15:04")); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to write footer: %w", err)
	}

	g.logger.Info("Status report built",
		zap.Int("managers", summary.Managers),
		zap.Int("due_tasks", summary.DueTasks))
	return f, summary, nil
}

// WriteFile builds the workbook and saves it to path
func (g *Generator) WriteFile(ctx context.Context, asOf time.Time, path string) (*Summary, error) {
	f, summary, err := g.Build(ctx, asOf)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	g.logger.Info("Status report saved", zap.String("output_path", path))
	return summary, nil
}

// Render builds the workbook and returns it encoded as xlsx
func (g *Generator) Render(ctx context.Context, asOf time.Time) ([]byte, *Summary, error) {
	f, summary, err := g.Build(ctx, asOf)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), summary, nil
}

// DefaultFileName names the report of a day
func DefaultFileName(asOf time.Time) string {
	return "status_review_" + asOf.Format("20060102") + FileExt
}

func (g *Generator) writeQueue(ctx context.Context, f *excelize.File, sheet string, ids []string) error {
	for i, id := range ids {
		detail, err := g.source.GetTaskDetail(ctx, id)
		if err != nil {
			return fmt.Errorf("get task detail of %s: %w", id, err)
		}

		row := []interface{}{id, "", "", "", "", "", ""}
		if cur := detail.Current; cur != nil {
			row[1] = cur.OpportunityName
			row[2] = cur.OppProjectStatus
			if cur.IsOpportunityPriorityRecord {
				row[3] = "Yes"
			}
		}
		if prev := detail.Previous; prev != nil {
			row[4] = prev.CreatedAt.Format("2006-01-02")
			if prev.NextMeetingDate != nil {
				row[5] = meetingTime(*prev.NextMeetingDate)
			}
			row[6] = prev.NextSteps
		}

		if err := f.SetSheetRow(sheet, cellName(1, i+2), &row); err != nil {
			return fmt.Errorf("failed to write queue row: %w", err)
		}
	}
	return nil
}

// meetingTime shows the time of day only when one was set
func meetingTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}
	last := cellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet, err)
	}
	lastCol := strings.TrimRight(last, "0123456789")
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to size columns of %q: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// uniqueSheetName derives a valid worksheet name from a manager name,
// falling back to the id and suffixing duplicates. Sheet names compare
// case-insensitively, so used holds lower-cased names.
func uniqueSheetName(name, id string, used map[string]bool) string {
	base := sanitizeSheetName(name)
	if base == "" {
		base = sanitizeSheetName(id)
	}
	if base == "" {
		base = "Manager"
	}

	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func sanitizeSheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, s)
	s = strings.Trim(strings.TrimSpace(s), "'")
	return truncate(s, maxSheetName)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
