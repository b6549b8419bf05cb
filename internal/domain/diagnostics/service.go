package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/domain/notification"
	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/internal/platform/db"
	"github.com/appointease/appointease/internal/platform/search"
)

const (
	dateLayout       = "2006-01-02"
	maxTestNameLen   = 200
	maxSummaryLen    = 2000
	maxFileURLLength = 2048
)

var ErrForbidden = errors.New("not allowed to view these reports")

type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// StatsInvalidator drops cached dashboard stats of users whose counts a
// committed write changed.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

type Service struct {
	repo     Repository
	tx       db.Transactor
	notifier Notifier
	stats    StatsInvalidator
	now      func() time.Time
}

func NewService(repo Repository, tx db.Transactor, notifier Notifier) *Service {
	return &Service{repo: repo, tx: tx, notifier: notifier, now: time.Now}
}

// SetStatsInvalidator registers the dashboard cache to clear after a report
// is filed.
func (s *Service) SetStatsInvalidator(inv StatsInvalidator) { s.stats = inv }

func (s *Service) ListTests(ctx context.Context, f ListFilter, limit, offset int) ([]*Test, int, error) {
	if err := search.ValidateTerm(f.Search); err != nil {
		return nil, 0, apierror.Validation(err.Error())
	}
	return s.repo.ListTests(ctx, f, limit, offset)
}

// ListReports returns patientID's reports, newest test first. The patient
// and admins see all of them; a doctor sees only the reports they wrote and
// is refused if there are none.
func (s *Service) ListReports(ctx context.Context, caller *auth.Principal, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	if caller.CanAccessUser(patientID) {
		return s.repo.ListReports(ctx, patientID, nil, limit, offset)
	}
	if caller.UserType != auth.UserTypeDoctor {
		return nil, 0, ErrForbidden
	}
	ok, err := s.repo.HasAuthored(ctx, caller.UserID, patientID)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrForbidden
	}
	author := caller.UserID
	return s.repo.ListReports(ctx, patientID, &author, limit, offset)
}

// CreateReport files a report authored by caller and notifies the patient
// in the same transaction.
func (s *Service) CreateReport(ctx context.Context, caller *auth.Principal, in ReportInput) (*Report, error) {
	rep, err := s.validateReport(in)
	if err != nil {
		return nil, err
	}
	author := caller.UserID
	rep.DoctorID = &author

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.UserType(ctx, rep.PatientID)
		if err != nil {
			return err
		}
		if t != auth.UserTypePatient {
			return ErrPatientNotFound
		}
		if err := s.repo.CreateReport(ctx, rep); err != nil {
			return err
		}
		ref := rep.ID
		return s.notifier.Notify(ctx, &notification.Notification{
			UserID:      rep.PatientID,
			Title:       "New test report",
			Message:     fmt.Sprintf("Your %s report from %s is available.", rep.TestName, rep.TestDate),
			Type:        notification.TypeReport,
			ReferenceID: &ref,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, rep.PatientID)
	}
	return rep, nil
}

func (s *Service) validateReport(in ReportInput) (*Report, error) {
	patientID, err := uuid.Parse(strings.TrimSpace(in.PatientID))
	if err != nil {
		return nil, apierror.Validation("patientId must be a valid id")
	}

	name := strings.TrimSpace(in.TestName)
	if name == "" || len(name) > maxTestNameLen {
		return nil, apierror.Validationf("testName is required and must be at most %d characters", maxTestNameLen)
	}

	date := strings.TrimSpace(in.TestDate)
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, apierror.Validation("testDate must be YYYY-MM-DD")
	}
	if day.After(s.now().UTC()) {
		return nil, apierror.Validation("testDate must not be in the future")
	}

	rep := &Report{
		PatientID: patientID,
		TestName:  name,
		TestDate:  date,
		Status:    ReportStatusReady,
	}

	if in.Status != nil {
		switch *in.Status {
		case ReportStatusPending, ReportStatusReady:
			rep.Status = *in.Status
		default:
			return nil, apierror.Validation("status must be pending or ready")
		}
	}
	if in.ResultSummary != nil {
		summary := strings.TrimSpace(*in.ResultSummary)
		if len(summary) > maxSummaryLen {
			return nil, apierror.Validationf("resultSummary must be at most %d characters", maxSummaryLen)
		}
		if summary != "" {
			rep.ResultSummary = &summary
		}
	}
	if in.FileURL != nil && strings.TrimSpace(*in.FileURL) != "" {
		raw := strings.TrimSpace(*in.FileURL)
		u, err := url.Parse(raw)
		if err != nil || len(raw) > maxFileURLLength || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apierror.Validation("fileUrl must be an http or https URL")
		}
		rep.FileURL = &raw
	}
	return rep, nil
}
