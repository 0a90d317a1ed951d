package service

import (
	"fmt"

	"vibtrix/client"
	"vibtrix/repository"

	"gorm.io/gorm"
)

type PaymentService struct {
	paymentRepository     *repository.PaymentRepository
	competitionRepository *repository.CompetitionRepository
	razorpayClient        *client.RazorpayClient
}

func NewPaymentService(db *gorm.DB, razorpayClient *client.RazorpayClient) *PaymentService {
	return &PaymentService{
		paymentRepository:     repository.NewPaymentRepository(db),
		competitionRepository: repository.NewCompetitionRepository(db),
		razorpayClient:        razorpayClient,
	}
}

// CreateOrder registers a Razorpay order for a competition's entry fee and
// records it locally in CREATED state.
func (s *PaymentService) CreateOrder(userId string, competitionId string) (*repository.Payment, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	if !comp.IsPaid || comp.EntryFee <= 0 {
		return nil, fmt.Errorf("competition %q has no entry fee", comp.Title)
	}
	receipt := fmt.Sprintf("comp-%s-user-%s", competitionId, userId)
	order, err := s.razorpayClient.CreateOrder(comp.EntryFee, receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %v", err)
	}
	return s.paymentRepository.SavePayment(&repository.Payment{
		UserId:          userId,
		CompetitionId:   competitionId,
		RazorpayOrderId: order.Id,
		Amount:          comp.EntryFee,
		Status:          repository.PaymentCreated,
	})
}

// VerifyPayment validates the checkout callback signature, confirms the
// capture with Razorpay and marks the local record COMPLETED. A failed
// check marks it FAILED; the join gate only accepts COMPLETED.
func (s *PaymentService) VerifyPayment(orderId string, paymentId string, signature string) (*repository.Payment, error) {
	payment, err := s.paymentRepository.GetPaymentByOrderId(orderId)
	if err != nil {
		return nil, fmt.Errorf("payment order %s not found", orderId)
	}
	if !s.razorpayClient.VerifySignature(orderId, paymentId, signature) {
		payment.Status = repository.PaymentFailed
		if _, saveErr := s.paymentRepository.SavePayment(payment); saveErr != nil {
			return nil, saveErr
		}
		return nil, fmt.Errorf("payment signature verification failed")
	}
	remote, err := s.razorpayClient.GetPayment(paymentId)
	if err != nil {
		return nil, err
	}
	if remote.Status != "captured" {
		return nil, fmt.Errorf("payment %s is not captured yet (status %s)", paymentId, remote.Status)
	}
	payment.RazorpayPaymentId = &paymentId
	payment.Status = repository.PaymentCompleted
	return s.paymentRepository.SavePayment(payment)
}

// HasCompletedPayment answers the entry gate for paid competitions.
func (s *PaymentService) HasCompletedPayment(userId string, competitionId string) (bool, error) {
	return s.paymentRepository.HasCompletedPayment(userId, competitionId)
}
