package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// deviceCache resolves device uids to rows. Concurrent misses for the same uid share one query.
// Unknown uids are not cached, so a device registered later is found on the next lookup.
type deviceCache struct {
	store  repository.Store
	cache  *lru.Cache[string, model.Device]
	flight singleflight.Group
}

func newDeviceCache(store repository.Store, size int) (*deviceCache, error) {
	c, err := lru.New[string, model.Device](size)
	if err != nil {
		return nil, err
	}
	return &deviceCache{store: store, cache: c}, nil
}

func (d *deviceCache) get(ctx context.Context, uid string) (model.Device, error) {
	if dev, ok := d.cache.Get(uid); ok {
		metrics.RecordDeviceCacheLookup(true)
		return dev, nil
	}
	metrics.RecordDeviceCacheLookup(false)

	v, err, _ := d.flight.Do(uid, func() (interface{}, error) {
		dev, err := d.store.GetDeviceByUID(ctx, uid)
		if err != nil {
			return nil, err
		}
		d.cache.Add(uid, dev)
		return dev, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, uid)
		}
		return model.Device{}, fmt.Errorf("lookup device %s: %w", uid, err)
	}
	return v.(model.Device), nil
}

func (d *deviceCache) put(dev model.Device) { d.cache.Add(dev.DeviceUID, dev) }

// NewDevice is the input of RegisterDevice.
type NewDevice struct {
	DeviceUID   string
	Type        string
	OwnerUserID *int64
}

// RegisterDevice creates a device. A taken uid yields ErrDeviceExists.
func (s *Service) RegisterDevice(ctx context.Context, in NewDevice) (model.Device, error) {
	if err := s.requireStore(); err != nil {
		return model.Device{}, err
	}
	dev, err := s.store.CreateDevice(ctx, model.Device{
		DeviceUID:   in.DeviceUID,
		Type:        in.Type,
		OwnerUserID: in.OwnerUserID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Device{}, ErrDeviceExists
		}
		return model.Device{}, fmt.Errorf("register device: %w", err)
	}
	s.devices.put(dev)
	return dev, nil
}

// IngestReading stores one reading for the device and bumps its last_seen.
func (s *Service) IngestReading(ctx context.Context, uid, sensorType string, value float64) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		metrics.RecordReadingRejected("non_finite")
		return fmt.Errorf("%w: value must be finite", ErrInvalidInput)
	}
	dev, err := s.devices.get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			metrics.RecordReadingRejected("unknown_device")
		}
		return err
	}
	if _, err := s.store.InsertReading(ctx, model.SensorReading{
		DeviceID:   dev.ID,
		TS:         s.now(),
		SensorType: sensorType,
		Value:      value,
	}); err != nil {
		metrics.RecordReadingRejected("store_error")
		return fmt.Errorf("store reading: %w", err)
	}
	metrics.RecordReadingAccepted()
	return nil
}
