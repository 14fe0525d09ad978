package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/storelink-next/internal/cache"
	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/goaffpro"
	"github.com/storelink-next/internal/logger"
	"github.com/storelink-next/internal/models"
	"github.com/storelink-next/internal/repository"
)

const (
	affiliateRandomPasswordLength = 24
	affiliateSyncLockTTL          = 30 * time.Second
)

const affiliatePasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// affiliateRegistrar GoAffPro 注册客户端抽象，便于测试注入
type affiliateRegistrar interface {
	Register(ctx context.Context, input goaffpro.RegisterInput) (*goaffpro.RegisterResult, error)
}

// AffiliateSyncService 联盟账号同步业务服务
type AffiliateSyncService struct {
	userRepo    repository.UserRepository
	metaRepo    repository.UserMetaRepository
	accountRepo repository.AffiliateAccountRepository
	settingSvc  *SettingService
	newClient   func(cfg goaffpro.Config) affiliateRegistrar
}

// NewAffiliateSyncService 创建联盟同步服务
func NewAffiliateSyncService(
	userRepo repository.UserRepository,
	metaRepo repository.UserMetaRepository,
	accountRepo repository.AffiliateAccountRepository,
	settingSvc *SettingService,
) *AffiliateSyncService {
	return &AffiliateSyncService{
		userRepo:    userRepo,
		metaRepo:    metaRepo,
		accountRepo: accountRepo,
		settingSvc:  settingSvc,
		newClient: func(cfg goaffpro.Config) affiliateRegistrar {
			return goaffpro.NewClient(cfg)
		},
	}
}

// SyncOnRegistration 注册后同步联盟账号。
// 注册流程不等待上游结果，失败只落库不报错。
func (s *AffiliateSyncService) SyncOnRegistration(userID uint, source, formPassword string) error {
	setting, err := s.settingSvc.GetGoaffproSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return ErrAffiliateSyncDisabled
	}

	_, err = s.syncUser(setting, userID, source, formPassword)
	return err
}

// SyncOnDemand 用户主动触发同步。
// 成功返回可直接展示的提示语，上游失败原样返回错误，由调用方映射失败响应。
func (s *AffiliateSyncService) SyncOnDemand(ctx context.Context, userID uint) (string, error) {
	setting, err := s.settingSvc.GetGoaffproSetting()
	if err != nil {
		return "", err
	}
	if !setting.Enabled {
		return "", ErrAffiliateSyncDisabled
	}

	acquired, err := cache.AcquireSyncLock(ctx, userID, affiliateSyncLockTTL)
	if err != nil {
		logger.Warnw("affiliate_sync_lock_failed", "user_id", userID, "error", err)
	} else if !acquired {
		return "", ErrAffiliateSyncInFlight
	}
	defer func() {
		_ = cache.ReleaseSyncLock(context.Background(), userID)
	}()

	account, err := s.syncUser(setting, userID, constants.RegistrationSourceOnDemand, "")
	if err != nil {
		if errors.Is(err, ErrAffiliateAlreadyLinked) {
			return "联盟账号已绑定，无需重复同步", nil
		}
		return "", err
	}
	return fmt.Sprintf("联盟账号同步成功（ID: %s）", account.AffiliateID), nil
}

// ReferralLink 生成推广链接，仅在启用推广入口且账号已绑定时返回。
func (s *AffiliateSyncService) ReferralLink(userID uint) (string, error) {
	setting, err := s.settingSvc.GetGoaffproSetting()
	if err != nil {
		return "", err
	}
	if !setting.Enabled || !setting.ShowReferAndEarn || setting.ReferralBaseURL == "" {
		return "", ErrAffiliateSyncDisabled
	}

	account, err := s.accountRepo.GetByUserID(userID)
	if err != nil {
		return "", err
	}
	if account == nil || account.Status != constants.AffiliateStatusLinked || account.AffiliateID == "" {
		return "", ErrNotFound
	}
	return fmt.Sprintf("%s?ref=%s", setting.ReferralBaseURL, account.AffiliateID), nil
}

// Account 查询用户绑定记录
func (s *AffiliateSyncService) Account(userID uint) (*models.AffiliateAccount, error) {
	return s.accountRepo.GetByUserID(userID)
}

// syncUser 执行一次同步：组装身份、调用上游、落库结果。
// 上游调用使用独立超时上下文，调用方断开不影响本次同步。
func (s *AffiliateSyncService) syncUser(setting GoaffproSetting, userID uint, source, formPassword string) (*models.AffiliateAccount, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if setting.SkipIfLinked {
		existing, err := s.accountRepo.GetByUserID(userID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == constants.AffiliateStatusLinked && existing.AffiliateID != "" {
			return existing, ErrAffiliateAlreadyLinked
		}
	}

	name, err := s.resolveName(user, source)
	if err != nil {
		return nil, err
	}
	password := formPassword
	if source != constants.RegistrationSourceCustomForm || password == "" {
		password, err = randomAffiliatePassword()
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(setting.TimeoutMS)*time.Millisecond)
	defer cancel()

	client := s.newClient(setting.ToClientConfig())
	result, err := client.Register(ctx, goaffpro.RegisterInput{
		Name:     name,
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		reason := err.Error()
		if _, markErr := s.accountRepo.MarkFailed(userID, reason); markErr != nil {
			logger.Errorw("affiliate_sync_mark_failed_error", "user_id", userID, "error", markErr)
		}
		logger.Warnw("affiliate_sync_failed",
			"user_id", userID,
			"source", source,
			"error", err,
		)
		return nil, err
	}

	account, err := s.accountRepo.MarkLinked(userID, result.AffiliateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.metaRepo.Upsert(userID, constants.MetaKeyAffiliateID, result.AffiliateID); err != nil {
		logger.Warnw("affiliate_sync_meta_write_failed", "user_id", userID, "error", err)
	}
	logger.Infow("affiliate_sync_succeeded",
		"user_id", userID,
		"source", source,
		"affiliate_id", result.AffiliateID,
	)
	return account, nil
}

// resolveName 解析联盟账号姓名。
// 默认注册流程取用户表姓名，自定义表单与手动同步走元数据字段。
// 姓与名按原样拼接，空缺不做清洗。
func (s *AffiliateSyncService) resolveName(user *models.User, source string) (string, error) {
	firstName := user.FirstName
	lastName := user.LastName

	if source == constants.RegistrationSourceCustomForm || source == constants.RegistrationSourceOnDemand {
		metaFirst, err := s.metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateFirstName)
		if err != nil {
			return "", err
		}
		metaLast, err := s.metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateLastName)
		if err != nil {
			return "", err
		}
		firstName = metaFirst
		lastName = metaLast
	}

	return firstName + " " + lastName, nil
}

func randomAffiliatePassword() (string, error) {
	result := make([]byte, affiliateRandomPasswordLength)
	max := big.NewInt(int64(len(affiliatePasswordAlphabet)))
	for i := range result {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = affiliatePasswordAlphabet[idx.Int64()]
	}
	return string(result), nil
}
