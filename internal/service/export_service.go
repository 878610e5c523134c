package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
	"github.com/acadrecords/portal-api/pkg/export"
	"github.com/acadrecords/portal-api/pkg/storage"
)

type exportMarkReader interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error)
}

type exportClaimReader interface {
	List(ctx context.Context, filter models.ClaimFilter) ([]models.ClaimDetail, error)
}

type exportCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type exportEnrollmentReader interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult points at a rendered file and its signed download token.
type ExportResult struct {
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExportService renders course mark sheets (CSV) and claim resolution
// reports (PDF) and persists them for signed download.
type ExportService struct {
	marks       exportMarkReader
	claims      exportClaimReader
	courses     exportCourseReader
	enrollments exportEnrollmentReader
	storage     fileStorage
	signer      *storage.SignedURLSigner
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(marks exportMarkReader, claims exportClaimReader, courses exportCourseReader, enrollments exportEnrollmentReader, files fileStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		marks:       marks,
		claims:      claims,
		courses:     courses,
		enrollments: enrollments,
		storage:     files,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MarkSheet renders every mark row of a course, drafts included, as CSV.
func (s *ExportService) MarkSheet(ctx context.Context, courseID string) (*ExportResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	marks, err := s.marks.List(ctx, models.MarkFilter{CourseID: courseID, IncludeDrafts: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	enrollments, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{CourseID: courseID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	students := make(map[string]models.EnrollmentDetail, len(enrollments))
	for _, e := range enrollments {
		students[e.StudentID] = e
	}

	headers := append([]string{"Reg Number", "Student"}, models.AssessmentTypes()...)
	headers = append(headers, "Total", "Published")
	dataset := export.Dataset{Headers: headers}
	for _, mark := range marks {
		row := map[string]string{
			"Total":     fmt.Sprintf("%.2f", mark.Total),
			"Published": fmt.Sprintf("%t", mark.IsPublished),
		}
		if student, ok := students[mark.StudentID]; ok {
			row["Reg Number"] = student.StudentRegNumber
			row["Student"] = student.StudentName
		} else {
			row["Reg Number"] = mark.StudentID
		}
		for _, name := range models.AssessmentTypes() {
			value, _ := mark.Component(name)
			row[name] = fmt.Sprintf("%.2f", value)
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render mark sheet")
	}
	filename := fmt.Sprintf("mark-sheet-%s-%d.csv", slugify(course.Code), s.now().Unix())
	return s.store(filename, "text/csv", payload)
}

// ClaimReport renders the claims matching the filter as a tabular PDF.
func (s *ExportService) ClaimReport(ctx context.Context, filter models.ClaimFilter) (*ExportResult, error) {
	claims, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load claims")
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Component", "Original", "Status", "Comment", "Submitted", "Resolved"},
	}
	for _, claim := range claims {
		resolved := ""
		if claim.ResolvedAt != nil {
			resolved = claim.ResolvedAt.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":    claim.CourseCode,
			"Component": claim.AssessmentType,
			"Original":  fmt.Sprintf("%.2f", claim.OriginalMark),
			"Status":    string(claim.Status),
			"Comment":   claim.LecturerComment,
			"Submitted": claim.SubmittedAt.Format("2006-01-02"),
			"Resolved":  resolved,
		})
	}

	payload, err := s.pdf.Render(dataset, "Claim Resolution Report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render claim report")
	}
	filename := fmt.Sprintf("claim-report-%d.pdf", s.now().Unix())
	return s.store(filename, "application/pdf", payload)
}

// Open validates a download token and returns the stored file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, nil
}

func (s *ExportService) store(filename, contentType string, payload []byte) (*ExportResult, error) {
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(uuid.NewString(), relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	s.logger.Info("export generated", zap.String("file", filename))
	return &ExportResult{FileName: filename, ContentType: contentType, Token: token, ExpiresAt: expiresAt}, nil
}

func slugify(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, v)
}
