package service_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

// fakeStore is an in-memory repository.Store.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]model.User
	devices  map[string]model.Device
	readings []model.SensorReading
	alerts   map[int64]model.Alert
	scores   []model.RiskScore

	deviceLookups atomic.Int32
	pingErr       error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[int64]model.User{},
		devices: map[string]model.Device{},
		alerts:  map[int64]model.Alert{},
	}
}

func (f *fakeStore) id() int64 { f.nextID++; return f.nextID }

func (f *fakeStore) CreateUser(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.users {
		if x.Email == u.Email {
			return model.User{}, repository.ErrConflict
		}
	}
	u.ID = f.id()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeStore) UserIDsByRole(_ context.Context, role string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for id, u := range f.users {
		if u.Role == role {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateDevice(_ context.Context, d model.Device) (model.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[d.DeviceUID]; ok {
		return model.Device{}, repository.ErrConflict
	}
	d.ID = f.id()
	f.devices[d.DeviceUID] = d
	return d, nil
}

func (f *fakeStore) GetDeviceByUID(_ context.Context, uid string) (model.Device, error) {
	f.deviceLookups.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[uid]
	if !ok {
		return model.Device{}, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) InsertReading(_ context.Context, r model.SensorReading) (model.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.id()
	f.readings = append(f.readings, r)
	return r, nil
}

func (f *fakeStore) RecentReadings(_ context.Context, userID int64, limit int) ([]model.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owned := map[int64]bool{}
	for _, d := range f.devices {
		if d.OwnerUserID != nil && *d.OwnerUserID == userID {
			owned[d.ID] = true
		}
	}
	var out []model.SensorReading
	for i := len(f.readings) - 1; i >= 0 && len(out) < limit; i-- {
		if owned[f.readings[i].DeviceID] {
			out = append(out, f.readings[i])
		}
	}
	return out, nil
}

func (f *fakeStore) CreateEvent(_ context.Context, e model.Event, recipients *string) (model.Event, model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.id()
	a := model.Alert{ID: f.id(), EventID: e.ID, Recipients: recipients, Status: model.AlertStatusNew}
	f.alerts[a.ID] = a
	return e, a, nil
}

func (f *fakeStore) AlertsForUser(context.Context, int64, int) ([]model.Alert, error) {
	return nil, nil
}

func (f *fakeStore) AckAlert(_ context.Context, alertID int64, by string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[alertID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = model.AlertStatusAck
	a.AcknowledgedBy = &by
	f.alerts[alertID] = a
	return nil
}

func (f *fakeStore) MarkAlertSent(_ context.Context, alertID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[alertID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = model.AlertStatusSent
	f.alerts[alertID] = a
	return nil
}

func (f *fakeStore) InsertRiskScore(_ context.Context, s model.RiskScore) (model.RiskScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	f.scores = append(f.scores, s)
	return s, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) Close() error               { return nil }
