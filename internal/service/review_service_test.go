package service

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type memoryNotifications struct {
	items []*models.Notification
	err   error
}

func (m *memoryNotifications) Create(ctx context.Context, n *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, n)
	return nil
}

type memoryStore struct {
	files     map[string]bool
	removeErr error
}

func (m *memoryStore) Upload(ctx context.Context, key string, r io.Reader) (int64, error) {
	n, err := io.Copy(io.Discard, r)
	m.files[key] = true
	return n, err
}

func (m *memoryStore) Open(key string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *memoryStore) Remove(ctx context.Context, key string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.files, key)
	return nil
}

type reviewFixture struct {
	svc           *ReviewService
	receipts      *memoryReceipts
	ledger        *memoryLedger
	notifications *memoryNotifications
	store         *memoryStore
	audit         *recordingAudit
	mail          *recordingMailer
	events        *recordingPublisher
	semesters     *memorySemesters
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		receipts:      newMemoryReceipts(),
		ledger:        newMemoryLedger(),
		notifications: &memoryNotifications{},
		store:         &memoryStore{files: map[string]bool{}},
		audit:         &recordingAudit{},
		mail:          &recordingMailer{},
		events:        &recordingPublisher{},
		semesters:     &memorySemesters{current: &models.Semester{ID: "sem1", IsCurrent: true}},
	}
	f.svc = NewReviewService(ReviewServiceDeps{
		Receipts:      f.receipts,
		Students:      newMemoryStudents(&models.Student{ID: "s1", UserID: "u1", Name: "Ada Obi", Email: "ada@example.com"}),
		Fees:          newFeeRepoStub(&models.Fee{ID: "F1", Name: "School Fees", Amount: 10000, UnitID: models.UnitBursary}),
		Semesters:     f.semesters,
		Notifications: f.notifications,
		Ledger:        NewLedger(f.ledger, nil, nil),
		Tx:            &passthroughTx{},
		Store:         f.store,
		Audit:         f.audit,
		Mailer:        f.mail,
		Events:        f.events,
		Policy:        NewReviewPolicy([]string{"bursary", "accounts"}),
	})
	return f
}

// seed stores a pending bursary receipt and moves the ledger to pending.
func (f *reviewFixture) seed(t *testing.T, unit models.UnitID) *models.Receipt {
	t.Helper()
	receipt := &models.Receipt{
		StudentID:  "s1",
		FeeID:      "F1",
		UnitID:     unit,
		SemesterID: "sem1",
		FilePath:   "receipts/s1-F1-1.png",
		Amount:     10000,
		Status:     models.ReceiptStatusPending,
		UploadedAt: time.Now(),
	}
	require.NoError(t, f.receipts.Create(context.Background(), receipt))
	f.store.files[receipt.FilePath] = true
	f.ledger.rows[ledgerKey("s1", unit)] = models.ClearanceStatus{StudentID: "s1", UnitID: unit, Status: models.StatePending}
	return receipt
}

func TestReviewServiceApprove(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitLibrary)

	decided, err := f.svc.Decide(context.Background(), staff(models.UnitLibrary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusApproved, decided.Status)
	assert.Equal(t, models.StateCleared, f.ledger.state("s1", models.UnitLibrary))
	assert.Empty(t, f.notifications.items)
	assert.True(t, f.store.files[receipt.FilePath], "approved receipts keep their file")
	assert.Equal(t, []models.EventType{models.EventReceiptDecided, models.EventUnitCleared}, f.events.types())
	assert.Equal(t, []string{models.AuditActionReceiptApprove}, f.audit.actions())
}

func TestReviewServiceRejectRetainsReceipt(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)

	decided, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "Blurry image"})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusRejected, decided.Status)

	stored, err := f.receipts.FindByID(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusRejected, stored.Status)
	require.NotNil(t, stored.RejectionReason)
	assert.Equal(t, "Blurry image", *stored.RejectionReason)

	assert.Equal(t, models.StateRejected, f.ledger.state("s1", models.UnitBursary))
	assert.Equal(t, "Blurry image", *f.ledger.rows[ledgerKey("s1", models.UnitBursary)].RejectionReason)
	assert.False(t, f.store.files[receipt.FilePath])

	require.Len(t, f.notifications.items, 1)
	n := f.notifications.items[0]
	assert.Equal(t, "Your receipt for School Fees (₦10,000) has been rejected: Blurry image. Please resubmit with a valid receipt.", n.Message)
	assert.Equal(t, models.NotificationRejection, n.Type)
	assert.False(t, n.IsDismissable)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "ada@example.com", f.mail.sent[0].ToEmail)
	assert.Equal(t, []models.EventType{models.EventReceiptDecided, models.EventUnitRejected}, f.events.types())
}

func TestReviewServiceRejectRequiresReason(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.StatePending, f.ledger.state("s1", models.UnitBursary))
}

func TestReviewServiceAuthorization(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitLibrary)

	_, err := f.svc.Decide(context.Background(), staff(models.UnitExams), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.StatePending, f.ledger.state("s1", models.UnitLibrary))

	_, err = f.svc.Decide(context.Background(), staff(models.UnitAccounts), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err, "accounts staff review every unit")
}

func TestReviewServiceSecondDecisionIsRejected(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err)
	writes := f.ledger.writes

	_, err = f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyDecided.Code, appErrors.FromError(err).Code)
	assert.Equal(t, writes, f.ledger.writes)
	assert.Equal(t, models.StateCleared, f.ledger.state("s1", models.UnitBursary))
}

func TestReviewServiceLatestDecisionAcrossFeesWins(t *testing.T) {
	cases := []struct {
		name   string
		first  models.DecideReceiptRequest
		second models.DecideReceiptRequest
		want   models.ClearanceState
		events []models.EventType
	}{
		{
			name:   "reject then approve",
			first:  models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "illegible"},
			second: models.DecideReceiptRequest{Action: models.ReviewActionApprove},
			want:   models.StateCleared,
			events: []models.EventType{models.EventReceiptDecided, models.EventUnitRejected, models.EventReceiptDecided, models.EventUnitCleared},
		},
		{
			name:   "approve then reject",
			first:  models.DecideReceiptRequest{Action: models.ReviewActionApprove},
			second: models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "wrong amount"},
			want:   models.StateRejected,
			events: []models.EventType{models.EventReceiptDecided, models.EventUnitCleared, models.EventReceiptDecided, models.EventUnitRejected},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReviewFixture(t)
			a := f.seed(t, models.UnitBursary)
			b := f.seed(t, models.UnitBursary)
			require.NotEqual(t, a.ID, b.ID)

			_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), a.ID, tc.first)
			require.NoError(t, err)
			decided, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), b.ID, tc.second)
			require.NoError(t, err)

			assert.Equal(t, tc.want, f.ledger.state("s1", models.UnitBursary))
			assert.NotEqual(t, models.ReceiptStatusPending, decided.Status)
			assert.Equal(t, tc.events, f.events.types())
		})
	}
}

func TestReviewServiceDecisionOnResetUnitEmitsNoUnitEvent(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)
	f.ledger.rows[ledgerKey("s1", models.UnitBursary)] = models.ClearanceStatus{StudentID: "s1", UnitID: models.UnitBursary, Status: models.StateSubmitReceipt}

	decided, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusApproved, decided.Status)
	assert.Equal(t, models.StateSubmitReceipt, f.ledger.state("s1", models.UnitBursary))
	assert.Equal(t, []models.EventType{models.EventReceiptDecided}, f.events.types())
}

// staleReceipts serves the receipt as it was read before a concurrent
// reviewer decided it.
type staleReceipts struct {
	*memoryReceipts
	snapshot models.Receipt
}

func (s *staleReceipts) FindByID(ctx context.Context, id string) (*models.Receipt, error) {
	clone := s.snapshot
	return &clone, nil
}

func TestReviewServiceConcurrentDecisionLosesGuard(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)
	stale := &staleReceipts{memoryReceipts: f.receipts, snapshot: *receipt}
	f.svc.deps.Receipts = stale

	require.NoError(t, f.receipts.Decide(context.Background(), models.ReceiptDecision{ReceiptID: receipt.ID, Status: models.ReceiptStatusApproved, ReviewerID: "other"}))
	f.ledger.rows[ledgerKey("s1", models.UnitBursary)] = models.ClearanceStatus{StudentID: "s1", UnitID: models.UnitBursary, Status: models.StateCleared}
	writes := f.ledger.writes

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyDecided.Code, appErrors.FromError(err).Code)
	assert.Equal(t, writes, f.ledger.writes)
	assert.Equal(t, models.StateCleared, f.ledger.state("s1", models.UnitBursary))
	assert.Empty(t, f.notifications.items)
}

func TestReviewServiceStaleSemester(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)
	f.semesters.current = &models.Semester{ID: "sem2", IsCurrent: true}

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceUnknownReceipt(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), "missing", models.DecideReceiptRequest{Action: models.ReviewActionApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceOrphanedFileIsAudited(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)
	f.store.removeErr = errBoom

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "wrong fee"})
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, f.ledger.state("s1", models.UnitBursary))
	assert.Contains(t, f.audit.actions(), models.AuditActionReceiptOrphan)
}

func TestReviewServiceNotificationFailureRollsBack(t *testing.T) {
	f := newReviewFixture(t)
	receipt := f.seed(t, models.UnitBursary)
	f.notifications.err = errBoom

	_, err := f.svc.Decide(context.Background(), staff(models.UnitBursary), receipt.ID, models.DecideReceiptRequest{Action: models.ReviewActionReject, Reason: "wrong fee"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBackendUnavailable.Code, appErrors.FromError(err).Code)
	assert.True(t, f.store.files[receipt.FilePath], "file stays until the decision commits")
	assert.Empty(t, f.events.types())
}

func TestReviewServiceQueue(t *testing.T) {
	f := newReviewFixture(t)
	f.seed(t, models.UnitLibrary)
	f.seed(t, models.UnitExams)

	mine, err := f.svc.Queue(context.Background(), staff(models.UnitLibrary), nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.UnitLibrary, mine[0].UnitID)

	other := models.UnitExams
	_, err = f.svc.Queue(context.Background(), staff(models.UnitLibrary), &other)
	require.Error(t, err)

	all, err := f.svc.Queue(context.Background(), staff(models.UnitBursary), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.Queue(context.Background(), models.Reviewer{UserID: "u1", Role: models.RoleStudent}, nil)
	require.Error(t, err)
}

func TestReviewServiceOverride(t *testing.T) {
	f := newReviewFixture(t)

	err := f.svc.Override(context.Background(), staff(models.UnitBursary), models.UnitLibrary, models.OverrideRequest{StudentID: "s1"})
	require.Error(t, err, "super reviewers are not exempt")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = f.svc.Override(context.Background(), models.Reviewer{UserID: "admin", Role: models.RoleAdmin}, models.UnitLibrary, models.OverrideRequest{StudentID: "s1"})
	require.Error(t, err)

	err = f.svc.Override(context.Background(), staff(models.UnitLibrary), models.UnitLibrary, models.OverrideRequest{StudentID: "s1", Note: "book returned"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCleared, f.ledger.state("s1", models.UnitLibrary))
	assert.Equal(t, []string{models.AuditActionManualOverride}, f.audit.actions())
	assert.Equal(t, []models.EventType{models.EventUnitCleared}, f.events.types())

	err = f.svc.Override(context.Background(), staff(models.UnitLibrary), models.UnitLibrary, models.OverrideRequest{StudentID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFormatNaira(t *testing.T) {
	assert.Equal(t, "0", formatNaira(0))
	assert.Equal(t, "999", formatNaira(999))
	assert.Equal(t, "10,000", formatNaira(10000))
	assert.Equal(t, "1,250,000", formatNaira(1250000))
}
