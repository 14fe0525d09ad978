package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/goaffpro"
	"github.com/storelink-next/internal/models"
)

const (
	goaffproTimeoutMSMin = 1000
	goaffproTimeoutMSMax = 60000
	goaffproTimeoutMSDef = 10000
)

// GoaffproSetting GoAffPro 联盟同步配置
type GoaffproSetting struct {
	Enabled             bool   `json:"enabled"`
	Endpoint            string `json:"endpoint"`
	APIKey              string `json:"api_key"`
	APISecret           string `json:"api_secret"`
	AttachCredentials   bool   `json:"attach_credentials"`
	ShowReferAndEarn    bool   `json:"show_refer_and_earn"`
	AddNameFieldsToForm bool   `json:"add_name_fields_to_registration"`
	SkipIfLinked        bool   `json:"skip_if_linked"`
	ReferralBaseURL     string `json:"referral_base_url"`
	TimeoutMS           int    `json:"timeout_ms"`
}

// GoaffproSettingPatch GoAffPro 配置补丁（支持部分更新）
type GoaffproSettingPatch struct {
	Enabled             *bool   `json:"enabled"`
	Endpoint            *string `json:"endpoint"`
	APIKey              *string `json:"api_key"`
	APISecret           *string `json:"api_secret"`
	AttachCredentials   *bool   `json:"attach_credentials"`
	ShowReferAndEarn    *bool   `json:"show_refer_and_earn"`
	AddNameFieldsToForm *bool   `json:"add_name_fields_to_registration"`
	SkipIfLinked        *bool   `json:"skip_if_linked"`
	ReferralBaseURL     *string `json:"referral_base_url"`
	TimeoutMS           *int    `json:"timeout_ms"`
}

// GoaffproDefaultSetting 默认 GoAffPro 配置
func GoaffproDefaultSetting() GoaffproSetting {
	return GoaffproSetting{
		Enabled:   true,
		TimeoutMS: goaffproTimeoutMSDef,
	}
}

// NormalizeGoaffproSetting 归一化 GoAffPro 配置
func NormalizeGoaffproSetting(setting GoaffproSetting) GoaffproSetting {
	setting.Endpoint = strings.TrimSpace(setting.Endpoint)
	setting.APIKey = strings.TrimSpace(setting.APIKey)
	setting.APISecret = strings.TrimSpace(setting.APISecret)
	setting.ReferralBaseURL = strings.TrimRight(strings.TrimSpace(setting.ReferralBaseURL), "/")
	if setting.TimeoutMS <= 0 {
		setting.TimeoutMS = goaffproTimeoutMSDef
	}
	if setting.TimeoutMS < goaffproTimeoutMSMin {
		setting.TimeoutMS = goaffproTimeoutMSMin
	}
	if setting.TimeoutMS > goaffproTimeoutMSMax {
		setting.TimeoutMS = goaffproTimeoutMSMax
	}
	return setting
}

// ValidateGoaffproSetting 校验 GoAffPro 配置
func ValidateGoaffproSetting(setting GoaffproSetting) error {
	normalized := NormalizeGoaffproSetting(setting)
	if normalized.AttachCredentials && (normalized.APIKey == "" || normalized.APISecret == "") {
		return fmt.Errorf("%w: 开启凭证透传时 api_key 与 api_secret 不能为空", ErrGoaffproConfigInvalid)
	}
	if normalized.Endpoint != "" {
		if _, err := url.ParseRequestURI(normalized.Endpoint); err != nil {
			return fmt.Errorf("%w: endpoint 不是合法地址", ErrGoaffproConfigInvalid)
		}
	}
	if normalized.ReferralBaseURL != "" {
		if _, err := url.ParseRequestURI(normalized.ReferralBaseURL); err != nil {
			return fmt.Errorf("%w: referral_base_url 不是合法地址", ErrGoaffproConfigInvalid)
		}
	}
	return nil
}

// GoaffproSettingToMap 将 GoAffPro 配置转换为 settings 存储结构
func GoaffproSettingToMap(setting GoaffproSetting) map[string]interface{} {
	normalized := NormalizeGoaffproSetting(setting)
	return map[string]interface{}{
		"enabled":                         normalized.Enabled,
		"endpoint":                        normalized.Endpoint,
		"api_key":                         normalized.APIKey,
		"api_secret":                      normalized.APISecret,
		"attach_credentials":              normalized.AttachCredentials,
		"show_refer_and_earn":             normalized.ShowReferAndEarn,
		"add_name_fields_to_registration": normalized.AddNameFieldsToForm,
		"skip_if_linked":                  normalized.SkipIfLinked,
		"referral_base_url":               normalized.ReferralBaseURL,
		"timeout_ms":                      normalized.TimeoutMS,
	}
}

// MaskGoaffproSettingForAdmin 返回脱敏后的 GoAffPro 配置
func MaskGoaffproSettingForAdmin(setting GoaffproSetting) models.JSON {
	normalized := NormalizeGoaffproSetting(setting)
	return models.JSON{
		"enabled":                         normalized.Enabled,
		"endpoint":                        normalized.Endpoint,
		"api_key":                         normalized.APIKey,
		"api_secret":                      "",
		"has_api_secret":                  normalized.APISecret != "",
		"attach_credentials":              normalized.AttachCredentials,
		"show_refer_and_earn":             normalized.ShowReferAndEarn,
		"add_name_fields_to_registration": normalized.AddNameFieldsToForm,
		"skip_if_linked":                  normalized.SkipIfLinked,
		"referral_base_url":               normalized.ReferralBaseURL,
		"timeout_ms":                      normalized.TimeoutMS,
	}
}

// ToClientConfig 转换为 GoAffPro 客户端配置
func (s GoaffproSetting) ToClientConfig() goaffpro.Config {
	normalized := NormalizeGoaffproSetting(s)
	return goaffpro.Config{
		Endpoint:          normalized.Endpoint,
		PublicToken:       normalized.APIKey,
		AccessToken:       normalized.APISecret,
		AttachCredentials: normalized.AttachCredentials,
		TimeoutMS:         normalized.TimeoutMS,
	}
}

func goaffproSettingFromJSON(raw models.JSON, fallback GoaffproSetting) GoaffproSetting {
	result := fallback

	if v, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(v)
	}
	if v, ok := raw["endpoint"]; ok {
		result.Endpoint = normalizeSettingText(v)
	}
	if v, ok := raw["api_key"]; ok {
		result.APIKey = normalizeSettingText(v)
	}
	if v, ok := raw["api_secret"]; ok {
		result.APISecret = normalizeSettingText(v)
	}
	if v, ok := raw["attach_credentials"]; ok {
		result.AttachCredentials = parseSettingBool(v)
	}
	if v, ok := raw["show_refer_and_earn"]; ok {
		result.ShowReferAndEarn = parseSettingBool(v)
	}
	if v, ok := raw["add_name_fields_to_registration"]; ok {
		result.AddNameFieldsToForm = parseSettingBool(v)
	}
	if v, ok := raw["skip_if_linked"]; ok {
		result.SkipIfLinked = parseSettingBool(v)
	}
	if v, ok := raw["referral_base_url"]; ok {
		result.ReferralBaseURL = normalizeSettingText(v)
	}
	if v, ok := raw["timeout_ms"]; ok {
		if parsed, err := parseSettingInt(v); err == nil {
			result.TimeoutMS = parsed
		}
	}

	return NormalizeGoaffproSetting(result)
}

// GetGoaffproSetting 获取 GoAffPro 设置（优先 settings，空时回退默认）
func (s *SettingService) GetGoaffproSetting() (GoaffproSetting, error) {
	fallback := GoaffproDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyGoaffproConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return goaffproSettingFromJSON(value, fallback), nil
}

// PatchGoaffproSetting 基于补丁更新 GoAffPro 设置。
// api_secret 传空保留原值，避免后台回显后误清空。
func (s *SettingService) PatchGoaffproSetting(patch GoaffproSettingPatch) (GoaffproSetting, error) {
	current, err := s.GetGoaffproSetting()
	if err != nil {
		return GoaffproSetting{}, err
	}

	next := current
	if patch.Enabled != nil {
		next.Enabled = *patch.Enabled
	}
	if patch.Endpoint != nil {
		next.Endpoint = strings.TrimSpace(*patch.Endpoint)
	}
	if patch.APIKey != nil {
		next.APIKey = strings.TrimSpace(*patch.APIKey)
	}
	if patch.APISecret != nil {
		secret := strings.TrimSpace(*patch.APISecret)
		if secret != "" {
			next.APISecret = secret
		}
	}
	if patch.AttachCredentials != nil {
		next.AttachCredentials = *patch.AttachCredentials
	}
	if patch.ShowReferAndEarn != nil {
		next.ShowReferAndEarn = *patch.ShowReferAndEarn
	}
	if patch.AddNameFieldsToForm != nil {
		next.AddNameFieldsToForm = *patch.AddNameFieldsToForm
	}
	if patch.SkipIfLinked != nil {
		next.SkipIfLinked = *patch.SkipIfLinked
	}
	if patch.ReferralBaseURL != nil {
		next.ReferralBaseURL = strings.TrimSpace(*patch.ReferralBaseURL)
	}
	if patch.TimeoutMS != nil {
		next.TimeoutMS = *patch.TimeoutMS
	}

	next = NormalizeGoaffproSetting(next)
	if err := ValidateGoaffproSetting(next); err != nil {
		return GoaffproSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeyGoaffproConfig, GoaffproSettingToMap(next)); err != nil {
		return GoaffproSetting{}, err
	}
	return next, nil
}
