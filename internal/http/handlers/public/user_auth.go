package public

import (
	"errors"
	"strings"

	"github.com/storelink-next/internal/constants"
	handlershared "github.com/storelink-next/internal/http/handlers/shared"
	"github.com/storelink-next/internal/http/response"
	"github.com/storelink-next/internal/logger"
	"github.com/storelink-next/internal/queue"
	"github.com/storelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	FirstName      string                              `json:"first_name"`
	LastName       string                              `json:"last_name"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserRegister 用户注册。
// 注册成功后异步触发联盟账号同步，同步结果不影响注册响应。
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if !h.verifyCaptcha(c, constants.CaptchaSceneRegister, req.CaptchaPayload) {
		return
	}

	// 姓名字段只在后台开启采集开关时生效，未开启时忽略表单提交的姓名
	firstName, lastName := "", ""
	if h.collectRegistrationNames(c) {
		firstName = req.FirstName
		lastName = req.LastName
	}

	user, token, expiresAt, err := h.UserAuthService.Register(service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "邮箱格式不正确", nil)
		case errors.Is(err, service.ErrEmailTaken):
			respondError(c, response.CodeBadRequest, "该邮箱已注册", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "注册失败，请稍后重试", err)
		}
		return
	}

	// 采集到姓名时走自定义表单来源，密码原样转发给联盟端
	source := constants.RegistrationSourceDefault
	formPassword := ""
	if strings.TrimSpace(firstName) != "" || strings.TrimSpace(lastName) != "" {
		source = constants.RegistrationSourceCustomForm
		formPassword = req.Password
	}
	h.dispatchAffiliateSync(c, user.ID, source, formPassword)

	response.Success(c, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"nickname":   user.DisplayName,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// dispatchAffiliateSync 分发注册同步任务。
// 默认来源走队列，自定义表单来源需要转发密码，只在进程内异步执行，
// 避免明文密码进入队列存储。
func (h *Handler) dispatchAffiliateSync(c *gin.Context, userID uint, source, formPassword string) {
	if source != constants.RegistrationSourceCustomForm && h.QueueClient != nil && h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueAffiliateSync(queue.AffiliateSyncPayload{
			UserID: userID,
			Source: source,
		})
		if err == nil {
			return
		}
		requestLog(c).Warnw("affiliate_sync_enqueue_failed", "user_id", userID, "error", err)
	}

	go func() {
		if err := h.AffiliateSyncService.SyncOnRegistration(userID, source, formPassword); err != nil {
			if errors.Is(err, service.ErrAffiliateSyncDisabled) || errors.Is(err, service.ErrAffiliateAlreadyLinked) {
				return
			}
			logger.Warnw("affiliate_sync_dispatch_failed", "user_id", userID, "source", source, "error", err)
		}
	}()
}

// collectRegistrationNames 判断注册表单是否采集姓名字段。
func (h *Handler) collectRegistrationNames(c *gin.Context) bool {
	if h.SettingService == nil {
		return false
	}
	setting, err := h.SettingService.GetGoaffproSetting()
	if err != nil {
		requestLog(c).Warnw("affiliate_setting_load_failed", "error", err)
		return false
	}
	return setting.AddNameFieldsToForm
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	RememberMe     bool                                `json:"remember_me"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if !h.verifyCaptcha(c, constants.CaptchaSceneLogin, req.CaptchaPayload) {
		return
	}

	user, token, expiresAt, err := h.UserAuthService.LoginWithRememberMe(req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "邮箱格式不正确", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "邮箱或密码错误", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeUnauthorized, "账号已被禁用", nil)
		default:
			respondError(c, response.CodeInternal, "登录失败，请稍后重试", err)
		}
		return
	}

	response.Success(c, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"nickname":   user.DisplayName,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetUserMe 获取当前用户信息
func (h *Handler) GetUserMe(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.UserAuthService.GetByID(uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "用户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取用户信息失败", err)
		return
	}

	response.Success(c, gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"nickname":      user.DisplayName,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"status":        user.Status,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
	})
}

func (h *Handler) verifyCaptcha(c *gin.Context, scene string, payload handlershared.CaptchaPayloadRequest) bool {
	if h.CaptchaService == nil {
		return true
	}
	captchaErr := h.CaptchaService.Verify(scene, payload.ToServicePayload())
	if captchaErr == nil {
		return true
	}
	switch {
	case errors.Is(captchaErr, service.ErrCaptchaRequired):
		respondError(c, response.CodeBadRequest, "请完成验证码校验", nil)
	case errors.Is(captchaErr, service.ErrCaptchaInvalid):
		respondError(c, response.CodeBadRequest, "验证码不正确或已过期", nil)
	case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
		respondError(c, response.CodeInternal, "验证码配置无效", captchaErr)
	default:
		respondError(c, response.CodeInternal, "验证码校验失败", captchaErr)
	}
	return false
}
