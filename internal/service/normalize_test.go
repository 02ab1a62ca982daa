package service_test

import (
	"errors"
	"testing"

	"securewipe/internal/service"

	"github.com/google/uuid"
)

func TestNormalizeDeviceDefaults(t *testing.T) {
	owner := uuid.New()

	dev, err := service.NormalizeDevice(owner, map[string]any{"id": "/dev/sda"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if dev.OwnerID != owner || dev.DeviceKey != "/dev/sda" {
		t.Fatalf("identity fields wrong: %+v", dev)
	}
	if dev.Model != "unknown" || dev.Firmware != "unknown" {
		t.Fatalf("expected named defaults, got %q %q", dev.Model, dev.Firmware)
	}
	if dev.CapacityGB != 0 {
		t.Fatalf("expected zero capacity default, got %d", dev.CapacityGB)
	}
}

func TestNormalizeDeviceCoercions(t *testing.T) {
	owner := uuid.New()

	dev, err := service.NormalizeDevice(owner, map[string]any{
		"id":         "serial-123",
		"model":      "  WD Blue  ",
		"capacityGb": "500",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if dev.Model != "WD Blue" {
		t.Fatalf("expected trimmed model, got %q", dev.Model)
	}
	if dev.CapacityGB != 500 {
		t.Fatalf("expected string capacity coerced to 500, got %d", dev.CapacityGB)
	}

	dev, err = service.NormalizeDevice(owner, map[string]any{
		"id":         float64(42),
		"capacityGb": float64(256),
	})
	if err != nil {
		t.Fatalf("normalize numeric id: %v", err)
	}
	if dev.DeviceKey != "42" || dev.CapacityGB != 256 {
		t.Fatalf("unexpected coercion: %+v", dev)
	}
}

func TestNormalizeDeviceRequiresID(t *testing.T) {
	for _, doc := range []map[string]any{
		{},
		{"id": ""},
		{"id": "   "},
		{"model": "WD Blue"},
	} {
		if _, err := service.NormalizeDevice(uuid.New(), doc); !errors.Is(err, service.ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %v, got %v", doc, err)
		}
	}
}
