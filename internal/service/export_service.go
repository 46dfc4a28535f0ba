package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/export"
)

// ExportFormat selects the report card encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts csv or pdf, case-insensitively; empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type gradeSource interface {
	Period(ctx context.Context, accountID, periodID string, refresh bool) (*models.Period, error)
	Grades(ctx context.Context, accountID, periodID string, refresh bool) (*models.PeriodGrades, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders report cards from normalized grades.
type ExportService struct {
	grades gradeSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(grades gradeSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(';')
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(4, 2, 2, 1)
	}
	return &ExportService{grades: grades, csv: csv, pdf: pdf, logger: logger}
}

// ReportCard renders the grades of one period.
func (s *ExportService) ReportCard(ctx context.Context, accountID, periodID string, format ExportFormat) (*ExportFile, error) {
	target, err := s.grades.Period(ctx, accountID, periodID, false)
	if err != nil {
		return nil, err
	}
	grades, _, err := s.grades.Grades(ctx, accountID, periodID, false)
	if err != nil {
		return nil, err
	}

	dataset := ReportCardDataset(*target, *grades)
	var (
		data        []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		format = ExportFormatCSV
		data, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}

	s.logger.Debug("report card rendered",
		zap.String("account_id", accountID),
		zap.String("period_id", periodID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)))
	return &ExportFile{
		Filename:    fmt.Sprintf("bulletin-%s.%s", sanitizeFilename(target.ID), format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ReportCardDataset lays out one row per subject plus an overall row.
func ReportCardDataset(p models.Period, grades models.PeriodGrades) export.Dataset {
	rows := make([][]string, 0, len(grades.Subjects)+1)
	total := 0
	for _, subject := range grades.Subjects {
		rows = append(rows, []string{
			subject.Name,
			formatScore(subject.StudentAverage),
			formatScore(subject.ClassAverage),
			strconv.Itoa(len(subject.Grades)),
		})
		total += len(subject.Grades)
	}
	rows = append(rows, []string{
		"Moyenne générale",
		formatScore(grades.StudentOverall),
		formatScore(grades.ClassAverage),
		strconv.Itoa(total),
	})

	return export.Dataset{
		Title:   "Bulletin - " + p.Name,
		Headers: []string{"Matière", "Moyenne élève", "Moyenne classe", "Notes"},
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("Période du %s au %s", p.Start.Format("02/01/2006"), p.End.Format("02/01/2006")),
		},
	}
}

func formatScore(score models.GradeScore) string {
	if score.Disabled {
		return "-"
	}
	return strconv.FormatFloat(score.Value, 'f', 2, 64)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
