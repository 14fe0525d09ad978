package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 联盟账号同步状态常量
const (
	AffiliateStatusLinked = "linked"
	AffiliateStatusFailed = "failed"
)

// 注册来源常量
const (
	RegistrationSourceDefault    = "registration"
	RegistrationSourceCustomForm = "custom_form"
	RegistrationSourceOnDemand   = "on_demand"
)

// 用户元数据键常量
const (
	MetaKeyAffiliateID        = "goaffpro_affiliate_id"
	MetaKeyAffiliateFirstName = "goaffpro_first_name"
	MetaKeyAffiliateLastName  = "goaffpro_last_name"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin    = "login"
	CaptchaSceneRegister = "register"
)

// 队列常量
const (
	QueueDefault      = "default"
	TaskAffiliateSync = "affiliate:sync"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sl"
)

// 设置键常量
const (
	SettingKeySiteConfig     = "site_config"
	SettingKeyGoaffproConfig = "goaffpro_config"
)
