package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// fakeRepo implements Repository with per-method function fields; unconfigured
// methods panic so a test cannot silently depend on behavior it never set up.
type fakeRepo struct {
	getProviderByID   func(ctx context.Context, id uuid.UUID) (*Provider, error)
	getActiveService  func(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error)
	getCustomerByID   func(ctx context.Context, providerID, customerID uuid.UUID) (*Customer, error)
	getWorkingHours   func(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error)
	getBreakWindows   func(ctx context.Context, providerID uuid.UUID) ([]BreakWindow, error)
	findActiveInRange func(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Interval, error)
	findConflicting   func(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Interval, error)
	getAppointment    func(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error)
	listAppointments  func(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)
	createIfFree      func(ctx context.Context, appt *Appointment) (*Appointment, error)
	rescheduleIfFree  func(ctx context.Context, providerID, id uuid.UUID, newStart, newEnd time.Time) (*Appointment, error)
	updateStatus      func(ctx context.Context, providerID, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus, appendNotes string) (*Appointment, error)
	findMissed        func(ctx context.Context, now time.Time) ([]Appointment, error)
	markMissed        func(ctx context.Context, id uuid.UUID, at time.Time) error
}

func (f *fakeRepo) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	if f.getProviderByID == nil {
		panic("GetProviderByID not configured")
	}
	return f.getProviderByID(ctx, id)
}

func (f *fakeRepo) GetActiveService(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error) {
	if f.getActiveService == nil {
		panic("GetActiveService not configured")
	}
	return f.getActiveService(ctx, providerID, serviceID)
}

func (f *fakeRepo) GetCustomerByID(ctx context.Context, providerID, customerID uuid.UUID) (*Customer, error) {
	if f.getCustomerByID == nil {
		panic("GetCustomerByID not configured")
	}
	return f.getCustomerByID(ctx, providerID, customerID)
}

func (f *fakeRepo) GetWorkingHours(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error) {
	if f.getWorkingHours == nil {
		panic("GetWorkingHours not configured")
	}
	return f.getWorkingHours(ctx, providerID)
}

func (f *fakeRepo) GetBreakWindows(ctx context.Context, providerID uuid.UUID) ([]BreakWindow, error) {
	if f.getBreakWindows == nil {
		panic("GetBreakWindows not configured")
	}
	return f.getBreakWindows(ctx, providerID)
}

func (f *fakeRepo) FindActiveInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Interval, error) {
	if f.findActiveInRange == nil {
		panic("FindActiveInRange not configured")
	}
	return f.findActiveInRange(ctx, providerID, from, to)
}

func (f *fakeRepo) FindConflicting(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Interval, error) {
	if f.findConflicting == nil {
		panic("FindConflicting not configured")
	}
	return f.findConflicting(ctx, providerID, start, end, exclude)
}

func (f *fakeRepo) GetAppointmentByID(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	if f.getAppointment == nil {
		panic("GetAppointmentByID not configured")
	}
	return f.getAppointment(ctx, providerID, id)
}

func (f *fakeRepo) ListAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if f.listAppointments == nil {
		panic("ListAppointments not configured")
	}
	return f.listAppointments(ctx, providerID, from, to)
}

func (f *fakeRepo) CreateIfFree(ctx context.Context, appt *Appointment) (*Appointment, error) {
	if f.createIfFree == nil {
		panic("CreateIfFree not configured")
	}
	return f.createIfFree(ctx, appt)
}

func (f *fakeRepo) RescheduleIfFree(ctx context.Context, providerID, id uuid.UUID, newStart, newEnd time.Time) (*Appointment, error) {
	if f.rescheduleIfFree == nil {
		panic("RescheduleIfFree not configured")
	}
	return f.rescheduleIfFree(ctx, providerID, id, newStart, newEnd)
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, providerID, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus, appendNotes string) (*Appointment, error) {
	if f.updateStatus == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatus(ctx, providerID, id, from, to, appendNotes)
}

func (f *fakeRepo) FindMissed(ctx context.Context, now time.Time) ([]Appointment, error) {
	if f.findMissed == nil {
		panic("FindMissed not configured")
	}
	return f.findMissed(ctx, now)
}

func (f *fakeRepo) MarkMissed(ctx context.Context, id uuid.UUID, at time.Time) error {
	if f.markMissed == nil {
		panic("MarkMissed not configured")
	}
	return f.markMissed(ctx, id, at)
}

// passLocker runs the critical section directly.
type passLocker struct{}

func (passLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// busyLocker refuses every acquisition.
type busyLocker struct{ err error }

func (l busyLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	return l.err
}
