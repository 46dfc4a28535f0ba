package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/repository"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

// homeworkNamespace scopes the name-based homework ids.
var homeworkNamespace = uuid.MustParse("6f2b8a52-93c4-4d0e-9a51-0c7e2b1f4d3a")

type homeworkRepository interface {
	List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, int, error)
	FindByID(ctx context.Context, accountID, id string) (*models.Homework, error)
	Create(ctx context.Context, hw *models.Homework) error
	Update(ctx context.Context, hw *models.Homework) error
	SetDone(ctx context.Context, accountID, id string, done bool) error
	Delete(ctx context.Context, accountID, id string) error
}

type accountLookup interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

// HomeworkService manages custom homework entries.
type HomeworkService struct {
	repo      homeworkRepository
	accounts  accountLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHomeworkService constructs a HomeworkService.
func NewHomeworkService(repo homeworkRepository, accounts accountLookup, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HomeworkService{repo: repo, accounts: accounts, validator: validate, logger: logger}
}

// HomeworkID derives the stable id of an entry from what the user typed.
func HomeworkID(subject, content, accountID string) string {
	return uuid.NewSHA1(homeworkNamespace, []byte(subject+content+accountID)).String()
}

// List returns a page of homework for the account.
func (s *HomeworkService) List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 50
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}
	if items == nil {
		items = []models.Homework{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one entry.
func (s *HomeworkService) Get(ctx context.Context, accountID, id string) (*models.Homework, error) {
	hw, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, homeworkError(err, "failed to load homework")
	}
	return hw, nil
}

// Create stores a custom entry. Subject and content are trimmed and must not
// be blank; the entry starts not done.
func (s *HomeworkService) Create(ctx context.Context, accountID string, req models.HomeworkRequest) (*models.Homework, error) {
	subject, content, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	hw := &models.Homework{
		ID:         HomeworkID(req.Subject, req.Content, accountID),
		AccountID:  accountID,
		Subject:    subject,
		Content:    content,
		DueDate:    req.DueDate,
		IsDone:     false,
		Evaluation: req.Evaluation,
		Custom:     true,
		KidName:    account.DisplayName,
	}
	if err := s.repo.Create(ctx, hw); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "homework already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}
	s.logger.Debug("homework created", zap.String("account_id", accountID), zap.String("homework_id", hw.ID))
	return hw, nil
}

// Update edits subject, content, due date and evaluation flag.
func (s *HomeworkService) Update(ctx context.Context, accountID, id string, req models.HomeworkRequest) (*models.Homework, error) {
	subject, content, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	hw, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, homeworkError(err, "failed to load homework")
	}
	hw.Subject = subject
	hw.Content = content
	hw.DueDate = req.DueDate
	hw.Evaluation = req.Evaluation
	if err := s.repo.Update(ctx, hw); err != nil {
		return nil, homeworkError(err, "failed to update homework")
	}
	return hw, nil
}

// SetDone marks an entry done or not done.
func (s *HomeworkService) SetDone(ctx context.Context, accountID, id string, req models.HomeworkDoneRequest) (*models.Homework, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework status payload")
	}
	if err := s.repo.SetDone(ctx, accountID, id, *req.IsDone); err != nil {
		return nil, homeworkError(err, "failed to update homework")
	}
	return s.Get(ctx, accountID, id)
}

// Delete removes an entry.
func (s *HomeworkService) Delete(ctx context.Context, accountID, id string) error {
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		return homeworkError(err, "failed to delete homework")
	}
	return nil
}

func (s *HomeworkService) validate(req models.HomeworkRequest) (string, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	subject := strings.TrimSpace(req.Subject)
	content := strings.TrimSpace(req.Content)
	if subject == "" || content == "" {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "subject and content are required")
	}
	return subject, content, nil
}

func homeworkError(err error, message string) error {
	if repository.IsNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, "homework not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
