package public

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/storelink-next/internal/config"
	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/models"
	"github.com/storelink-next/internal/provider"
	"github.com/storelink-next/internal/repository"
	"github.com/storelink-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRegisterHandlerTest(t *testing.T, setting map[string]interface{}) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:register_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserMeta{},
		&models.AffiliateAccount{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		UserJWT: config.JWTConfig{
			SecretKey:   "register-handler-test-secret",
			ExpireHours: 24,
		},
	}
	userRepo := repository.NewUserRepository(db)
	metaRepo := repository.NewUserMetaRepository(db)
	accountRepo := repository.NewAffiliateAccountRepository(db)
	settingSvc := service.NewSettingService(repository.NewSettingRepository(db))
	if setting != nil {
		if _, err := settingSvc.Update(constants.SettingKeyGoaffproConfig, setting); err != nil {
			t.Fatalf("init goaffpro setting failed: %v", err)
		}
	}

	h := &Handler{Container: &provider.Container{
		Config:               cfg,
		UserAuthService:      service.NewUserAuthService(cfg, userRepo, metaRepo),
		SettingService:       settingSvc,
		AffiliateSyncService: service.NewAffiliateSyncService(userRepo, metaRepo, accountRepo, settingSvc),
	}}
	return h, db
}

func performRegisterRequest(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h.UserRegister(c)
	return w
}

func TestUserRegisterNameFieldsIgnoredWhenFlagOff(t *testing.T) {
	h, db := setupRegisterHandlerTest(t, map[string]interface{}{
		"enabled":                         false,
		"add_name_fields_to_registration": false,
	})

	w := performRegisterRequest(t, h, `{"email":"flagoff@example.com","password":"Password123","first_name":"Jane","last_name":"Doe"}`)
	statusCode, _, _ := decodeEnvelope(t, w)
	if statusCode != 0 {
		t.Fatalf("status_code want 0 got %d body=%s", statusCode, w.Body.String())
	}

	var user models.User
	if err := db.Where("email = ?", "flagoff@example.com").First(&user).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.FirstName != "" || user.LastName != "" {
		t.Fatalf("expected names dropped when collection is off, got %q %q", user.FirstName, user.LastName)
	}

	var metaCount int64
	if err := db.Model(&models.UserMeta{}).Where("user_id = ?", user.ID).Count(&metaCount).Error; err != nil {
		t.Fatalf("count meta failed: %v", err)
	}
	if metaCount != 0 {
		t.Fatalf("expected no name meta when collection is off, got %d rows", metaCount)
	}
}

func TestUserRegisterNameFieldsCollectedWhenFlagOn(t *testing.T) {
	h, db := setupRegisterHandlerTest(t, map[string]interface{}{
		"enabled":                         false,
		"add_name_fields_to_registration": true,
	})

	w := performRegisterRequest(t, h, `{"email":"flagon@example.com","password":"Password123","first_name":"Jane","last_name":"Doe"}`)
	statusCode, _, _ := decodeEnvelope(t, w)
	if statusCode != 0 {
		t.Fatalf("status_code want 0 got %d body=%s", statusCode, w.Body.String())
	}

	var user models.User
	if err := db.Where("email = ?", "flagon@example.com").First(&user).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.FirstName != "Jane" || user.LastName != "Doe" {
		t.Fatalf("expected names stored, got %q %q", user.FirstName, user.LastName)
	}

	metaRepo := repository.NewUserMetaRepository(db)
	first, err := metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateFirstName)
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	last, err := metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateLastName)
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	if first != "Jane" || last != "Doe" {
		t.Fatalf("expected name meta mirrored, got %q %q", first, last)
	}
}
