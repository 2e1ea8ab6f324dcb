// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-health-sync/models"
)

func TestContextKeyString(t *testing.T) {
	key := contextKey("testKey")
	if key.String() != "testKey" {
		t.Errorf("expected 'testKey', got '%s'", key.String())
	}
}

func TestTriggerSourceCtxKey(t *testing.T) {
	if TriggerSourceCtxKey.String() != "triggerSource" {
		t.Errorf("expected 'triggerSource', got '%s'", TriggerSourceCtxKey.String())
	}
}

func TestGetTriggerSourceFromContext_Success(t *testing.T) {
	ctx := WithTriggerSource(context.Background(), models.TriggerRemotePush)

	source, ok := GetTriggerSourceFromContext(ctx)

	if !ok {
		t.Fatal("expected ok=true, got false")
	}
	if source != models.TriggerRemotePush {
		t.Errorf("expected %q, got %q", models.TriggerRemotePush, source)
	}
}

func TestGetTriggerSourceFromContext_Missing(t *testing.T) {
	source, ok := GetTriggerSourceFromContext(context.Background())

	if ok {
		t.Fatal("expected ok=false, got true")
	}
	if source != "" {
		t.Errorf("expected empty source, got %q", source)
	}
}

func TestGetTriggerSourceFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), TriggerSourceCtxKey, "manual")

	_, ok := GetTriggerSourceFromContext(ctx)

	if ok {
		t.Fatal("expected ok=false for plain string value, got true")
	}
}
