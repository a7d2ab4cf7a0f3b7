package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/schoolplan/timetable-api/internal/models"
	"github.com/schoolplan/timetable-api/pkg/export"
)

type rosterSource interface {
	ListByTeacher(ctx context.Context, actor models.Actor, teacherRef string) ([]models.BindingDetail, error)
}

type csvRenderer interface {
	Render(roster export.Roster) ([]byte, error)
}

type pdfRenderer interface {
	Render(roster export.Roster) ([]byte, error)
}

// ExportService renders a teacher's binding roster as CSV or PDF.
type ExportService struct {
	bindings rosterSource
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService creates a service instance.
func NewExportService(bindings rosterSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{bindings: bindings, csv: csv, pdf: pdf, logger: logger}
}

// TeacherRosterCSV renders the roster as CSV bytes.
func (s *ExportService) TeacherRosterCSV(ctx context.Context, actor models.Actor, teacherRef string) ([]byte, string, error) {
	roster, filename, err := s.buildRoster(ctx, actor, teacherRef)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(roster)
	if err != nil {
		return nil, "", err
	}
	return payload, filename + ".csv", nil
}

// TeacherRosterPDF renders the roster as PDF bytes.
func (s *ExportService) TeacherRosterPDF(ctx context.Context, actor models.Actor, teacherRef string) ([]byte, string, error) {
	roster, filename, err := s.buildRoster(ctx, actor, teacherRef)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.pdf.Render(roster)
	if err != nil {
		return nil, "", err
	}
	return payload, filename + ".pdf", nil
}

func (s *ExportService) buildRoster(ctx context.Context, actor models.Actor, teacherRef string) (export.Roster, string, error) {
	details, err := s.bindings.ListByTeacher(ctx, actor, teacherRef)
	if err != nil {
		return export.Roster{}, "", err
	}

	roster := export.Roster{
		Columns: []string{"Subject", "Target", "Room", "Periods/Week", "Fixed", "Priority"},
	}
	total := 0
	for i := range details {
		detail := &details[i]
		target := ""
		if detail.ClassName != nil {
			target = *detail.ClassName
		} else if detail.ClassBandName != nil {
			target = *detail.ClassBandName + " (band)"
		}
		fixed := "no"
		if detail.IsFixed {
			fixed = "yes"
		}
		roster.Rows = append(roster.Rows, []string{
			detail.SubjectName,
			target,
			detail.RoomCode,
			strconv.Itoa(detail.PeriodsPerWeek),
			fixed,
			strconv.Itoa(detail.Priority),
		})
		total += detail.PeriodsPerWeek
		if roster.Title == "" {
			roster.Title = "Teaching roster: " + detail.TeacherName
		}
	}
	if roster.Title == "" {
		roster.Title = "Teaching roster"
	}
	roster.Subtitle = fmt.Sprintf("%d bindings, %d periods per week", len(details), total)

	s.logger.Debug("roster export built", zap.String("teacher_ref", teacherRef), zap.Int("rows", len(roster.Rows)))
	return roster, "teacher-roster-" + teacherRef, nil
}
