package service

import (
	"context"

	"github.com/loanserve/support-desk/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CannedService serves the static reply templates agents pick from.
type CannedService struct {
	db *gorm.DB
}

func NewCannedService(db *gorm.DB) *CannedService {
	return &CannedService{db: db}
}

// List returns all canned responses ordered by title.
func (s *CannedService) List(ctx context.Context) ([]model.CannedResponse, error) {
	var out []model.CannedResponse
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&out).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

var defaultCannedResponses = []model.CannedResponse{
	{Title: "Greeting", Body: "Hello! How can I assist you today?"},
	{Title: "Loan Status", Body: "Your loan application is currently under review. We will update you shortly."},
	{Title: "Disbursement", Body: "The loan amount has been disbursed to your registered bank account."},
	{Title: "Repayment", Body: "You can repay your loan via the app or through bank transfer."},
	{Title: "Closing Ticket", Body: "I am closing this ticket now as the issue seems resolved. Feel free to open a new one if you need further assistance."},
}

// Seed replaces the canned-response table with the default set.
func (s *CannedService) Seed(ctx context.Context) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Where("1 = 1").Delete(&model.CannedResponse{}).Error; err != nil {
		return errors.WithStack(err)
	}
	responses := make([]model.CannedResponse, len(defaultCannedResponses))
	copy(responses, defaultCannedResponses)
	if err := tx.Create(&responses).Error; err != nil {
		return errors.WithStack(err)
	}
	return nil
}
