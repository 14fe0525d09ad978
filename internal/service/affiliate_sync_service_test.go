package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/goaffpro"
	"github.com/storelink-next/internal/models"
	"github.com/storelink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeAffiliateRegistrar struct {
	inputs []goaffpro.RegisterInput
	result *goaffpro.RegisterResult
	err    error
}

func (f *fakeAffiliateRegistrar) Register(ctx context.Context, input goaffpro.RegisterInput) (*goaffpro.RegisterResult, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &goaffpro.RegisterResult{AffiliateID: "1001"}, nil
}

func setupAffiliateSyncTest(t *testing.T, setting GoaffproSetting) (*AffiliateSyncService, *fakeAffiliateRegistrar, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:affiliate_sync_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.UserMeta{}, &models.AffiliateAccount{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.Update(constants.SettingKeyGoaffproConfig, GoaffproSettingToMap(setting)); err != nil {
		t.Fatalf("init goaffpro setting failed: %v", err)
	}

	registrar := &fakeAffiliateRegistrar{}
	svc := NewAffiliateSyncService(
		repository.NewUserRepository(db),
		repository.NewUserMetaRepository(db),
		repository.NewAffiliateAccountRepository(db),
		settingSvc,
	)
	svc.newClient = func(cfg goaffpro.Config) affiliateRegistrar {
		return registrar
	}
	return svc, registrar, db
}

func createSyncTestUser(t *testing.T, db *gorm.DB, email, firstName, lastName string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    firstName,
		LastName:     lastName,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func loadAffiliateAccount(t *testing.T, db *gorm.DB, userID uint) *models.AffiliateAccount {
	t.Helper()

	var account models.AffiliateAccount
	err := db.Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("load affiliate account failed: %v", err)
	}
	return &account
}

func TestSyncOnRegistrationLinksAccount(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "7788"}

	user := createSyncTestUser(t, db, "jane@example.com", "Jane", "Doe")
	other := createSyncTestUser(t, db, "other@example.com", "Other", "User")

	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	account := loadAffiliateAccount(t, db, user.ID)
	if account == nil || account.AffiliateID != "7788" {
		t.Fatalf("expected affiliate id 7788, got %+v", account)
	}
	if account.Status != constants.AffiliateStatusLinked {
		t.Fatalf("expected linked status, got %q", account.Status)
	}
	if account.SyncedAt == nil {
		t.Fatal("expected synced_at set")
	}
	if got := loadAffiliateAccount(t, db, other.ID); got != nil {
		t.Fatalf("expected no account for other user, got %+v", got)
	}

	metaValue, err := repository.NewUserMetaRepository(db).GetValue(user.ID, constants.MetaKeyAffiliateID)
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	if metaValue != "7788" {
		t.Fatalf("expected affiliate id meta 7788, got %q", metaValue)
	}
}

func TestSyncOnRegistrationNameConcat(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})

	jane := createSyncTestUser(t, db, "jane@example.com", "Jane", "Doe")
	if err := svc.SyncOnRegistration(jane.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(registrar.inputs) != 1 || registrar.inputs[0].Name != "Jane Doe" {
		t.Fatalf("expected name 'Jane Doe', got %+v", registrar.inputs)
	}

	// 名为空时保留拼接产生的前导空格
	doe := createSyncTestUser(t, db, "doe@example.com", "", "Doe")
	if err := svc.SyncOnRegistration(doe.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(registrar.inputs) != 2 || registrar.inputs[1].Name != " Doe" {
		t.Fatalf("expected name ' Doe', got %q", registrar.inputs[1].Name)
	}
	if registrar.inputs[1].Email != "doe@example.com" {
		t.Fatalf("expected email forwarded, got %q", registrar.inputs[1].Email)
	}
}

func TestSyncOnRegistrationCustomFormUsesMetaAndFormPassword(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})

	user := createSyncTestUser(t, db, "form@example.com", "RowFirst", "RowLast")
	metaRepo := repository.NewUserMetaRepository(db)
	if _, err := metaRepo.Upsert(user.ID, constants.MetaKeyAffiliateFirstName, "MetaFirst"); err != nil {
		t.Fatalf("write meta failed: %v", err)
	}
	if _, err := metaRepo.Upsert(user.ID, constants.MetaKeyAffiliateLastName, "MetaLast"); err != nil {
		t.Fatalf("write meta failed: %v", err)
	}

	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceCustomForm, "form-secret"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if len(registrar.inputs) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(registrar.inputs))
	}
	input := registrar.inputs[0]
	if input.Name != "MetaFirst MetaLast" {
		t.Fatalf("expected meta-based name, got %q", input.Name)
	}
	if input.Password != "form-secret" {
		t.Fatalf("expected form password forwarded, got %q", input.Password)
	}
}

func TestSyncOnRegistrationRandomPasswordForDefaultSource(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})

	user := createSyncTestUser(t, db, "random@example.com", "A", "B")
	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, "should-not-be-used"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	input := registrar.inputs[0]
	if input.Password == "" || input.Password == "should-not-be-used" {
		t.Fatalf("expected generated password, got %q", input.Password)
	}
	if len(input.Password) != affiliateRandomPasswordLength {
		t.Fatalf("expected password length %d, got %d", affiliateRandomPasswordLength, len(input.Password))
	}
}

func TestSyncFailureRecordsErrorWithoutLink(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})
	registrar.err = fmt.Errorf("%w: duplicate email", goaffpro.ErrRejected)

	user := createSyncTestUser(t, db, "rejected@example.com", "Jane", "Doe")
	err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, "")
	if !errors.Is(err, goaffpro.ErrRejected) {
		t.Fatalf("expected rejection error, got %v", err)
	}

	account := loadAffiliateAccount(t, db, user.ID)
	if account == nil {
		t.Fatal("expected failure recorded")
	}
	if account.Status != constants.AffiliateStatusFailed {
		t.Fatalf("expected failed status, got %q", account.Status)
	}
	if account.AffiliateID != "" {
		t.Fatalf("expected no affiliate id, got %q", account.AffiliateID)
	}
	if account.LastError == "" {
		t.Fatal("expected last_error recorded")
	}
}

func TestSyncFailureKeepsExistingLink(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "2001"}

	user := createSyncTestUser(t, db, "linked@example.com", "Jane", "Doe")
	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	registrar.err = fmt.Errorf("%w: connection refused", goaffpro.ErrRequestFailed)
	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); !errors.Is(err, goaffpro.ErrRequestFailed) {
		t.Fatalf("expected transport error, got %v", err)
	}

	account := loadAffiliateAccount(t, db, user.ID)
	if account == nil || account.AffiliateID != "2001" {
		t.Fatalf("expected existing link preserved, got %+v", account)
	}
	if account.Status != constants.AffiliateStatusLinked {
		t.Fatalf("expected linked status preserved, got %q", account.Status)
	}
	if account.LastError == "" {
		t.Fatal("expected last_error recorded alongside link")
	}
}

func TestSyncSecondSuccessOverwritesAffiliateID(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "3001"}

	user := createSyncTestUser(t, db, "rewrite@example.com", "Jane", "Doe")
	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	registrar.result = &goaffpro.RegisterResult{AffiliateID: "3002"}
	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	account := loadAffiliateAccount(t, db, user.ID)
	if account == nil || account.AffiliateID != "3002" {
		t.Fatalf("expected overwritten affiliate id 3002, got %+v", account)
	}
}

func TestSyncSkipIfLinked(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true, SkipIfLinked: true})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "4001"}

	user := createSyncTestUser(t, db, "skip@example.com", "Jane", "Doe")
	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, "")
	if !errors.Is(err, ErrAffiliateAlreadyLinked) {
		t.Fatalf("expected already linked error, got %v", err)
	}
	if len(registrar.inputs) != 1 {
		t.Fatalf("expected single upstream call, got %d", len(registrar.inputs))
	}
}

func TestSyncDisabledSetting(t *testing.T) {
	svc, _, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: false})

	user := createSyncTestUser(t, db, "disabled@example.com", "Jane", "Doe")
	err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, "")
	if !errors.Is(err, ErrAffiliateSyncDisabled) {
		t.Fatalf("expected sync disabled error, got %v", err)
	}
	if got := loadAffiliateAccount(t, db, user.ID); got != nil {
		t.Fatalf("expected no account created, got %+v", got)
	}
}

func TestSyncOnDemandMessages(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "5001"}

	user := createSyncTestUser(t, db, "demand@example.com", "", "")
	metaRepo := repository.NewUserMetaRepository(db)
	if _, err := metaRepo.Upsert(user.ID, constants.MetaKeyAffiliateFirstName, "Jane"); err != nil {
		t.Fatalf("write meta failed: %v", err)
	}
	if _, err := metaRepo.Upsert(user.ID, constants.MetaKeyAffiliateLastName, "Doe"); err != nil {
		t.Fatalf("write meta failed: %v", err)
	}

	message, err := svc.SyncOnDemand(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("sync on demand failed: %v", err)
	}
	if message != "联盟账号同步成功（ID: 5001）" {
		t.Fatalf("unexpected success message: %q", message)
	}
	if registrar.inputs[0].Name != "Jane Doe" {
		t.Fatalf("expected meta-based name, got %q", registrar.inputs[0].Name)
	}

	registrar.err = fmt.Errorf("%w: email exists", goaffpro.ErrRejected)
	message, err = svc.SyncOnDemand(context.Background(), user.ID)
	if !errors.Is(err, goaffpro.ErrRejected) {
		t.Fatalf("expected rejection error propagated, got %v", err)
	}
	if message != "" {
		t.Fatalf("expected no success message on rejection, got %q", message)
	}
	if got := goaffpro.RejectionMessage(err); got != "email exists" {
		t.Fatalf("expected rejection reason preserved, got %q", got)
	}

	registrar.err = fmt.Errorf("%w: connection refused", goaffpro.ErrRequestFailed)
	if _, err := svc.SyncOnDemand(context.Background(), user.ID); !errors.Is(err, goaffpro.ErrRequestFailed) {
		t.Fatalf("expected transport error propagated, got %v", err)
	}
}

func TestSyncOnDemandAlreadyLinkedMessage(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true, SkipIfLinked: true})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "5100"}

	user := createSyncTestUser(t, db, "linked-demand@example.com", "Jane", "Doe")
	if _, err := svc.SyncOnDemand(context.Background(), user.ID); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	message, err := svc.SyncOnDemand(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("expected already-linked mapped to message, got %v", err)
	}
	if message != "联盟账号已绑定，无需重复同步" {
		t.Fatalf("unexpected message: %q", message)
	}
	if len(registrar.inputs) != 1 {
		t.Fatalf("expected single upstream call, got %d", len(registrar.inputs))
	}
}

func TestReferralLink(t *testing.T) {
	svc, registrar, db := setupAffiliateSyncTest(t, GoaffproSetting{
		Enabled:          true,
		ShowReferAndEarn: true,
		ReferralBaseURL:  "https://shop.example.com",
	})
	registrar.result = &goaffpro.RegisterResult{AffiliateID: "6001"}

	user := createSyncTestUser(t, db, "link@example.com", "Jane", "Doe")
	if _, err := svc.ReferralLink(user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before link, got %v", err)
	}

	if err := svc.SyncOnRegistration(user.ID, constants.RegistrationSourceDefault, ""); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	link, err := svc.ReferralLink(user.ID)
	if err != nil {
		t.Fatalf("referral link failed: %v", err)
	}
	if link != "https://shop.example.com?ref=6001" {
		t.Fatalf("unexpected referral link: %q", link)
	}
}

func TestReferralLinkDisabledEntry(t *testing.T) {
	svc, _, db := setupAffiliateSyncTest(t, GoaffproSetting{Enabled: true})

	user := createSyncTestUser(t, db, "nolink@example.com", "Jane", "Doe")
	if _, err := svc.ReferralLink(user.ID); !errors.Is(err, ErrAffiliateSyncDisabled) {
		t.Fatalf("expected disabled entry error, got %v", err)
	}
}
