package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"securewipe/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultWipeMethod = "zero-fill-1pass"
	defaultModel      = "unknown"
	defaultFirmware   = "unknown"
)

// NormalizeDevice maps the untyped device document of a wipe request onto the
// typed device fields. It is total over its input: every optional field gets a
// named default, and only a missing identity key is an error.
func NormalizeDevice(ownerID uuid.UUID, doc map[string]any) (domain.Device, error) {
	key := strings.TrimSpace(asString(doc["id"]))
	if key == "" {
		return domain.Device{}, fmt.Errorf("%w: device id is required", ErrInvalidRequest)
	}
	return domain.Device{
		OwnerID:    ownerID,
		DeviceKey:  key,
		Model:      stringOr(doc["model"], defaultModel),
		Firmware:   stringOr(doc["firmware"], defaultFirmware),
		CapacityGB: asInt64(doc["capacityGb"]),
	}, nil
}

func stringOr(v any, def string) string {
	if s := strings.TrimSpace(asString(v)); s != "" {
		return s
	}
	return def
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case int:
		return int64(x)
	case int64:
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}
	return 0
}
