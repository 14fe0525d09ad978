package service

import (
	"errors"
	"testing"

	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/models"
)

type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func TestNormalizeGoaffproSetting(t *testing.T) {
	setting := NormalizeGoaffproSetting(GoaffproSetting{
		Endpoint:        "  https://api.goaffpro.com/v1/sdk/user/register  ",
		ReferralBaseURL: "https://shop.example.com/",
	})
	if setting.Endpoint != "https://api.goaffpro.com/v1/sdk/user/register" {
		t.Fatalf("expected trimmed endpoint, got %q", setting.Endpoint)
	}
	if setting.ReferralBaseURL != "https://shop.example.com" {
		t.Fatalf("expected trailing slash removed, got %q", setting.ReferralBaseURL)
	}
	if setting.TimeoutMS != 10000 {
		t.Fatalf("expected default timeout 10000, got %d", setting.TimeoutMS)
	}

	clamped := NormalizeGoaffproSetting(GoaffproSetting{TimeoutMS: 100})
	if clamped.TimeoutMS != 1000 {
		t.Fatalf("expected timeout clamped to 1000, got %d", clamped.TimeoutMS)
	}
	clamped = NormalizeGoaffproSetting(GoaffproSetting{TimeoutMS: 600000})
	if clamped.TimeoutMS != 60000 {
		t.Fatalf("expected timeout clamped to 60000, got %d", clamped.TimeoutMS)
	}
}

func TestValidateGoaffproSetting(t *testing.T) {
	err := ValidateGoaffproSetting(GoaffproSetting{
		AttachCredentials: true,
		APIKey:            "public-token",
	})
	if !errors.Is(err, ErrGoaffproConfigInvalid) {
		t.Fatalf("expected credential validation error, got %v", err)
	}

	err = ValidateGoaffproSetting(GoaffproSetting{
		Endpoint: "not a url",
	})
	if !errors.Is(err, ErrGoaffproConfigInvalid) {
		t.Fatalf("expected endpoint validation error, got %v", err)
	}

	err = ValidateGoaffproSetting(GoaffproSetting{
		AttachCredentials: true,
		APIKey:            "public-token",
		APISecret:         "access-token",
		ReferralBaseURL:   "https://shop.example.com",
	})
	if err != nil {
		t.Fatalf("expected valid setting, got %v", err)
	}
}

func TestMaskGoaffproSettingForAdmin(t *testing.T) {
	masked := MaskGoaffproSettingForAdmin(GoaffproSetting{
		Enabled:   true,
		APIKey:    "public-token",
		APISecret: "access-token",
	})
	if masked["api_secret"] != "" {
		t.Fatalf("expected masked api_secret, got %v", masked["api_secret"])
	}
	if masked["has_api_secret"] != true {
		t.Fatalf("expected has_api_secret true, got %v", masked["has_api_secret"])
	}
	if masked["api_key"] != "public-token" {
		t.Fatalf("expected api_key preserved, got %v", masked["api_key"])
	}

	masked = MaskGoaffproSettingForAdmin(GoaffproSetting{})
	if masked["has_api_secret"] != false {
		t.Fatalf("expected has_api_secret false, got %v", masked["has_api_secret"])
	}
}

func TestPatchGoaffproSettingKeepSecretOnBlank(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())

	secret := "original-secret"
	enabled := true
	if _, err := svc.PatchGoaffproSetting(GoaffproSettingPatch{
		Enabled:   &enabled,
		APISecret: &secret,
	}); err != nil {
		t.Fatalf("init setting failed: %v", err)
	}

	blank := "  "
	endpoint := "https://api.goaffpro.com/v1/sdk/user/register"
	updated, err := svc.PatchGoaffproSetting(GoaffproSettingPatch{
		APISecret: &blank,
		Endpoint:  &endpoint,
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if updated.APISecret != "original-secret" {
		t.Fatalf("expected blank secret to keep old value, got %q", updated.APISecret)
	}
	if updated.Endpoint != endpoint {
		t.Fatalf("expected endpoint updated, got %q", updated.Endpoint)
	}

	reloaded, err := svc.GetGoaffproSetting()
	if err != nil {
		t.Fatalf("reload setting failed: %v", err)
	}
	if reloaded.APISecret != "original-secret" {
		t.Fatalf("expected persisted secret preserved, got %q", reloaded.APISecret)
	}
}

func TestPatchGoaffproSettingRejectInvalid(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())

	attach := true
	_, err := svc.PatchGoaffproSetting(GoaffproSettingPatch{
		AttachCredentials: &attach,
	})
	if !errors.Is(err, ErrGoaffproConfigInvalid) {
		t.Fatalf("expected config invalid error, got %v", err)
	}
}

func TestGetGoaffproSettingFallback(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())

	setting, err := svc.GetGoaffproSetting()
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if !setting.Enabled {
		t.Fatal("expected default setting enabled")
	}
	if setting.TimeoutMS != 10000 {
		t.Fatalf("expected default timeout, got %d", setting.TimeoutMS)
	}
}

func TestGoaffproSettingRoundTrip(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	enabled := true
	skip := true
	key := "public-token"
	if _, err := svc.PatchGoaffproSetting(GoaffproSettingPatch{
		Enabled:      &enabled,
		SkipIfLinked: &skip,
		APIKey:       &key,
	}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	raw, ok := repo.store[constants.SettingKeyGoaffproConfig]
	if !ok {
		t.Fatal("expected setting persisted")
	}
	if raw["skip_if_linked"] != true {
		t.Fatalf("expected skip_if_linked persisted, got %v", raw["skip_if_linked"])
	}

	reloaded, err := svc.GetGoaffproSetting()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.SkipIfLinked || reloaded.APIKey != "public-token" {
		t.Fatalf("unexpected reloaded setting: %+v", reloaded)
	}
}
