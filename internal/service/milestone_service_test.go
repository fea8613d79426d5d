package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/notify"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

type mockMilestoneRepo struct {
	mock.Mock
}

func (m *mockMilestoneRepo) Create(ctx context.Context, milestone *models.Milestone) error {
	args := m.Called(ctx, milestone)
	return args.Error(0)
}

func (m *mockMilestoneRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, reviewNotes *string) error {
	args := m.Called(ctx, id, fromStatus, toStatus, reviewNotes)
	return args.Error(0)
}

func (m *mockMilestoneRepo) SubmitWithAttachments(ctx context.Context, id uuid.UUID, fromStatus string, attachments []models.MilestoneAttachment) error {
	args := m.Called(ctx, id, fromStatus, attachments)
	return args.Error(0)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, milestoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockPaymentRepo) ReleaseMilestonePayments(ctx context.Context, milestoneID uuid.UUID) error {
	args := m.Called(ctx, milestoneID)
	return args.Error(0)
}

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, recipientID uuid.UUID, role notify.Role, event notify.EventType, evctx notify.EventContext) error {
	args := m.Called(ctx, recipientID, role, event, evctx)
	return args.Error(0)
}

type milestoneFixture struct {
	milestones *mockMilestoneRepo
	payments   *mockPaymentRepo
	projects   *mockProjectRepo
	notifier   *mockNotifier
	svc        *MilestoneService

	clientID     uuid.UUID
	freelancerID uuid.UUID
	project      *models.Project
}

func newMilestoneFixture() *milestoneFixture {
	f := &milestoneFixture{
		milestones:   new(mockMilestoneRepo),
		payments:     new(mockPaymentRepo),
		projects:     new(mockProjectRepo),
		notifier:     new(mockNotifier),
		clientID:     uuid.New(),
		freelancerID: uuid.New(),
	}
	f.project = &models.Project{
		ID:           uuid.New(),
		ClientID:     f.clientID,
		FreelancerID: &f.freelancerID,
		Title:        "Интернет-магазин",
		Status:       models.ProjectStatusInProgress,
	}
	f.svc = NewMilestoneService(f.milestones, f.payments, f.projects, f.notifier, nil)
	return f
}

func (f *milestoneFixture) milestone(status string) *models.Milestone {
	return &models.Milestone{
		ID:        uuid.New(),
		ProjectID: f.project.ID,
		Title:     "Каталог товаров",
		Amount:    500,
		Status:    status,
	}
}

func TestMilestoneTransition_InvalidTransition(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusPending)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	_, err := f.svc.Transition(ctx, m.ID, f.clientID, models.MilestoneStatusApproved, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
	f.milestones.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneTransition_UnknownStatus(t *testing.T) {
	f := newMilestoneFixture()

	_, err := f.svc.Transition(context.Background(), uuid.New(), f.clientID, "archived", nil)
	assert.Error(t, err)
}

func TestMilestoneTransition_SameTargetIsIdempotent(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	result, err := f.svc.Transition(ctx, m.ID, f.freelancerID, models.MilestoneStatusSubmitted, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusSubmitted, result.Status)

	// Повтор не трогает хранилище и не шлёт второе уведомление.
	f.milestones.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneTransition_RoleGate(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	// Фрилансер не вправе утверждать собственную работу.
	_, err := f.svc.Transition(ctx, m.ID, f.freelancerID, models.MilestoneStatusApproved, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestMilestoneTransition_OutsiderForbidden(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	_, err := f.svc.Transition(ctx, m.ID, uuid.New(), models.MilestoneStatusApproved, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestMilestoneTransition_ApproveReleasesEscrowAndNotifiesFreelancer(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.milestones.On("UpdateStatus", ctx, m.ID, models.MilestoneStatusSubmitted, models.MilestoneStatusApproved, (*string)(nil)).Return(nil)
	f.payments.On("ReleaseMilestonePayments", ctx, m.ID).Return(nil)
	f.notifier.On("Notify", ctx, f.freelancerID, notify.RoleFreelancer, notify.EventMilestoneApproved, mock.Anything).Return(nil).Once()

	result, err := f.svc.Transition(ctx, m.ID, f.clientID, models.MilestoneStatusApproved, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusApproved, result.Status)

	f.payments.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestMilestoneTransition_RevisionRequestedCarriesNotes(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)
	notes := "Поправьте фильтры каталога"

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.milestones.On("UpdateStatus", ctx, m.ID, models.MilestoneStatusSubmitted, models.MilestoneStatusRevisionRequested, &notes).Return(nil)
	f.notifier.On("Notify", ctx, f.freelancerID, notify.RoleFreelancer, notify.EventRevisionRequested,
		mock.MatchedBy(func(evctx notify.EventContext) bool { return evctx.Notes == notes })).Return(nil)

	result, err := f.svc.Transition(ctx, m.ID, f.clientID, models.MilestoneStatusRevisionRequested, &notes)
	assert.NoError(t, err)
	assert.Equal(t, &notes, result.ReviewNotes)
	f.notifier.AssertExpectations(t)
}

func TestMilestoneTransition_InProgressHasNoNotification(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusFunded)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.milestones.On("UpdateStatus", ctx, m.ID, models.MilestoneStatusFunded, models.MilestoneStatusInProgress, (*string)(nil)).Return(nil)

	result, err := f.svc.Transition(ctx, m.ID, f.freelancerID, models.MilestoneStatusInProgress, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusInProgress, result.Status)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneTransition_ConcurrentLoserGetsIdempotentSuccess(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)

	won := *m
	won.Status = models.MilestoneStatusApproved

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil).Once()
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	// Конкурирующий запрос успел первым: CAS не нашёл строку в исходном статусе.
	f.milestones.On("UpdateStatus", ctx, m.ID, models.MilestoneStatusSubmitted, models.MilestoneStatusApproved, (*string)(nil)).
		Return(repository.ErrMilestoneNotFound)
	f.milestones.On("GetByID", ctx, m.ID).Return(&won, nil).Once()

	result, err := f.svc.Transition(ctx, m.ID, f.clientID, models.MilestoneStatusApproved, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusApproved, result.Status)
	// Эффекты применяет только победивший запрос.
	f.payments.AssertNotCalled(t, "ReleaseMilestonePayments", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWork_RequiresAttachment(t *testing.T) {
	f := newMilestoneFixture()

	_, err := f.svc.SubmitWork(context.Background(), uuid.New(), f.freelancerID, nil)
	assert.Error(t, err)
	f.milestones.AssertNotCalled(t, "SubmitWithAttachments", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWork_UnfundedRejectedBeforeStore(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusPending)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	_, err := f.svc.SubmitWork(ctx, m.ID, f.freelancerID, []models.MilestoneAttachment{{FileName: "result.zip"}})
	assert.Error(t, err)
	assert.True(t, apperror.IsPreconditionNotMet(err))
	f.milestones.AssertNotCalled(t, "SubmitWithAttachments", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWork_ClientForbidden(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusFunded)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	_, err := f.svc.SubmitWork(ctx, m.ID, f.clientID, []models.MilestoneAttachment{{FileName: "result.zip"}})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestSubmitWork_AtomicSubmitNotifiesClient(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusFunded)
	attachments := []models.MilestoneAttachment{{FileName: "result.zip", FilePath: m.ID.String() + "/result.zip"}}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.milestones.On("SubmitWithAttachments", ctx, m.ID, models.MilestoneStatusFunded, attachments).Return(nil)
	f.notifier.On("Notify", ctx, f.clientID, notify.RoleClient, notify.EventMilestoneSubmitted, mock.Anything).Return(nil).Once()

	result, err := f.svc.SubmitWork(ctx, m.ID, f.freelancerID, attachments)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusSubmitted, result.Status)
	assert.Len(t, result.Attachments, 1)
	f.milestones.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestSubmitWork_ResubmitAfterRevision(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusRevisionRequested)
	attachments := []models.MilestoneAttachment{{FileName: "result_v2.zip"}}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.milestones.On("SubmitWithAttachments", ctx, m.ID, models.MilestoneStatusRevisionRequested, attachments).Return(nil)
	f.notifier.On("Notify", ctx, f.clientID, notify.RoleClient, notify.EventMilestoneSubmitted, mock.Anything).Return(nil)

	result, err := f.svc.SubmitWork(ctx, m.ID, f.freelancerID, attachments)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusSubmitted, result.Status)
}

func TestSubmitWork_RepeatIsIdempotent(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusSubmitted)

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	result, err := f.svc.SubmitWork(ctx, m.ID, f.freelancerID, []models.MilestoneAttachment{{FileName: "result.zip"}})
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusSubmitted, result.Status)
	f.milestones.AssertNotCalled(t, "SubmitWithAttachments", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmFunding_HoldsPaymentAndFunds(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusPending)
	payment := &models.Payment{
		ID:          uuid.New(),
		MilestoneID: m.ID,
		ProjectID:   f.project.ID,
		PayerID:     f.clientID,
		Amount:      500,
		Status:      models.PaymentStatusPending,
	}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	f.payments.On("UpdateStatus", ctx, payment.ID, models.PaymentStatusHeld).Return(nil)
	f.payments.On("ListByMilestone", ctx, m.ID).Return([]models.Payment{
		{ID: payment.ID, MilestoneID: m.ID, Amount: 500, Status: models.PaymentStatusHeld},
	}, nil)
	f.milestones.On("UpdateStatus", ctx, m.ID, models.MilestoneStatusPending, models.MilestoneStatusFunded, (*string)(nil)).Return(nil)
	f.notifier.On("Notify", ctx, f.freelancerID, notify.RoleFreelancer, notify.EventMilestoneFunded, mock.Anything).Return(nil).Once()

	result, err := f.svc.ConfirmFunding(ctx, m.ID, f.clientID, payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusFunded, result.Status)
	f.payments.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestConfirmFunding_PartialPaymentRejected(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusPending)
	payment := &models.Payment{
		ID:          uuid.New(),
		MilestoneID: m.ID,
		Amount:      200,
		Status:      models.PaymentStatusHeld,
	}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	f.payments.On("ListByMilestone", ctx, m.ID).Return([]models.Payment{*payment}, nil)

	_, err := f.svc.ConfirmFunding(ctx, m.ID, f.clientID, payment.ID)
	assert.Error(t, err)
	assert.True(t, apperror.IsPreconditionNotMet(err))
	f.milestones.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmFunding_FailedPaymentRejected(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusPending)
	payment := &models.Payment{
		ID:          uuid.New(),
		MilestoneID: m.ID,
		Amount:      500,
		Status:      models.PaymentStatusFailed,
	}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := f.svc.ConfirmFunding(ctx, m.ID, f.clientID, payment.ID)
	assert.Error(t, err)
	assert.True(t, apperror.IsPreconditionNotMet(err))
}

func TestConfirmFunding_RepeatIsIdempotent(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusFunded)
	payment := &models.Payment{
		ID:          uuid.New(),
		MilestoneID: m.ID,
		Amount:      500,
		Status:      models.PaymentStatusHeld,
	}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	result, err := f.svc.ConfirmFunding(ctx, m.ID, f.clientID, payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusFunded, result.Status)
	f.milestones.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApprovePlan_CreatesPendingMilestones(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()

	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.milestones.On("Create", ctx, mock.MatchedBy(func(m *models.Milestone) bool {
		return m.Status == models.MilestoneStatusPending && m.ProjectID == f.project.ID
	})).Return(nil).Twice()
	f.notifier.On("Notify", ctx, f.freelancerID, notify.RoleFreelancer, notify.EventGeneral, mock.Anything).Return(nil)

	created, err := f.svc.ApprovePlan(ctx, f.project.ID, f.clientID, []PlanStep{
		{Title: "Каталог", Amount: 500},
		{Title: "Оплата", Amount: 300},
	})
	assert.NoError(t, err)
	assert.Len(t, created, 2)
	f.milestones.AssertExpectations(t)
}

func TestApprovePlan_FreelancerForbidden(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()

	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)

	_, err := f.svc.ApprovePlan(ctx, f.project.ID, f.freelancerID, []PlanStep{{Title: "Каталог", Amount: 500}})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	f.milestones.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEscrowView_DerivesFromPayments(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusApproved)

	held := models.Payment{ID: uuid.New(), MilestoneID: m.ID, Amount: 200, Status: models.PaymentStatusHeld}
	released := models.Payment{ID: uuid.New(), MilestoneID: m.ID, Amount: 300, Status: models.PaymentStatusReleased}
	failed := models.Payment{ID: uuid.New(), MilestoneID: m.ID, Amount: 100, Status: models.PaymentStatusFailed}

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(f.project, nil)
	f.payments.On("ListByMilestone", ctx, m.ID).Return([]models.Payment{held, released, failed}, nil)

	view, err := f.svc.EscrowView(ctx, m.ID, f.clientID)
	assert.NoError(t, err)
	// Неудачный платёж эскроу-транзакции не порождает.
	assert.Len(t, view, 2)
	assert.Equal(t, models.EscrowStatusHeld, view[0].Status)
	assert.Equal(t, models.EscrowStatusReleased, view[1].Status)
}

func TestEscrowView_CancelledProjectShowsRefunds(t *testing.T) {
	f := newMilestoneFixture()
	ctx := context.Background()
	m := f.milestone(models.MilestoneStatusFunded)

	cancelled := *f.project
	cancelled.Status = models.ProjectStatusCancelled

	f.milestones.On("GetByID", ctx, m.ID).Return(m, nil)
	f.projects.On("GetByID", ctx, f.project.ID).Return(&cancelled, nil)
	f.payments.On("ListByMilestone", ctx, m.ID).Return([]models.Payment{
		{ID: uuid.New(), MilestoneID: m.ID, Amount: 500, Status: models.PaymentStatusHeld},
	}, nil)

	view, err := f.svc.EscrowView(ctx, m.ID, f.clientID)
	assert.NoError(t, err)
	assert.Len(t, view, 1)
	assert.Equal(t, models.EscrowStatusRefunded, view[0].Status)
}
