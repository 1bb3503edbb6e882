package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

type memoryReceipts struct {
	mu        sync.Mutex
	rows      map[string]*models.Receipt
	seq       int
	createErr error
}

func newMemoryReceipts() *memoryReceipts {
	return &memoryReceipts{rows: map[string]*models.Receipt{}}
}

func (m *memoryReceipts) Create(ctx context.Context, receipt *models.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if receipt.ID == "" {
		m.seq++
		receipt.ID = fmt.Sprintf("r%d", m.seq)
	}
	clone := *receipt
	m.rows[receipt.ID] = &clone
	return nil
}

func (m *memoryReceipts) FindByID(ctx context.Context, id string) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (m *memoryReceipts) FindPending(ctx context.Context, studentID, feeID, semesterID string) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.StudentID == studentID && r.FeeID == feeID && r.SemesterID == semesterID && r.Status == models.ReceiptStatusPending {
			clone := *r
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryReceipts) DeletePending(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != models.ReceiptStatusPending {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryReceipts) Decide(ctx context.Context, d models.ReceiptDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[d.ReceiptID]
	if !ok || r.Status != models.ReceiptStatusPending {
		return sql.ErrNoRows
	}
	r.Status = d.Status
	r.RejectionReason = d.Reason
	r.ReviewedBy = &d.ReviewerID
	at := d.ReviewedAt
	r.ReviewedAt = &at
	return nil
}

func (m *memoryReceipts) ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.ReceiptDetail, error) {
	return m.filter(func(r *models.Receipt) bool {
		return r.StudentID == studentID && r.SemesterID == semesterID
	}), nil
}

func (m *memoryReceipts) ListPending(ctx context.Context, semesterID string, unit *models.UnitID) ([]models.ReceiptDetail, error) {
	return m.filter(func(r *models.Receipt) bool {
		return r.Status == models.ReceiptStatusPending && r.SemesterID == semesterID && (unit == nil || r.UnitID == *unit)
	}), nil
}

func (m *memoryReceipts) filter(keep func(r *models.Receipt) bool) []models.ReceiptDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ReceiptDetail{}
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, models.ReceiptDetail{Receipt: *r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryReceipts) byStatus(status models.ReceiptStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Status == status {
			n++
		}
	}
	return n
}

type memoryStudents struct {
	byID map[string]*models.Student
}

func newMemoryStudents(students ...*models.Student) *memoryStudents {
	m := &memoryStudents{byID: map[string]*models.Student{}}
	for _, s := range students {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memoryStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range m.byID {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStudents) FindByTrackNo(ctx context.Context, trackNo string) (*models.Student, error) {
	for _, s := range m.byID {
		if s.TrackNo == trackNo {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memorySemesters struct {
	current   *models.Semester
	created   []*models.Semester
	err       error
	createErr error
}

func (m *memorySemesters) Current(ctx context.Context) (*models.Semester, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.current == nil {
		return nil, sql.ErrNoRows
	}
	return m.current, nil
}

var errBoom = errors.New("boom")
