package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentCreated   PaymentStatus = "CREATED"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Payment struct {
	Id                string        `gorm:"primaryKey"`
	UserId            string        `gorm:"not null;index"`
	CompetitionId     string        `gorm:"not null;index"`
	RazorpayOrderId   string        `gorm:"uniqueIndex;not null"`
	RazorpayPaymentId *string       `gorm:"null"`
	Amount            int           `gorm:"not null"`
	Status            PaymentStatus `gorm:"type:vibtrix.payment_status;not null;default:'CREATED'"`
	CreatedAt         time.Time     `gorm:"not null;autoCreateTime"`
	UpdatedAt         time.Time     `gorm:"not null;autoUpdateTime"`

	User        *User        `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Competition *Competition `gorm:"foreignKey:CompetitionId;constraint:OnDelete:CASCADE"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Id == "" {
		p.Id = uuid.NewString()
	}
	return nil
}

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) SavePayment(payment *Payment) (*Payment, error) {
	result := r.DB.Save(payment)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save payment: %v", result.Error)
	}
	return payment, nil
}

func (r *PaymentRepository) GetPaymentByOrderId(orderId string) (*Payment, error) {
	var payment Payment
	result := r.DB.First(&payment, "razorpay_order_id = ?", orderId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &payment, nil
}

// HasCompletedPayment answers the entry gate for paid competitions.
func (r *PaymentRepository) HasCompletedPayment(userId string, competitionId string) (bool, error) {
	var count int64
	result := r.DB.Model(&Payment{}).
		Where("user_id = ? AND competition_id = ? AND status = ?", userId, competitionId, PaymentCompleted).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}
