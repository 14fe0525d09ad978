package public

import (
	"errors"
	"strings"

	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/goaffpro"
	"github.com/storelink-next/internal/http/response"
	"github.com/storelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// rejectionMessage 提取联盟端拒绝原因，缺失时使用兜底提示。
func rejectionMessage(err error) string {
	if msg := goaffpro.RejectionMessage(err); msg != "" {
		return msg
	}
	return "联盟端拒绝了本次注册"
}

// SyncAffiliate 用户主动触发联盟账号同步
func (h *Handler) SyncAffiliate(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if h.AffiliateSyncService == nil {
		respondError(c, response.CodeInternal, "联盟同步服务不可用", nil)
		return
	}

	message, err := h.AffiliateSyncService.SyncOnDemand(c.Request.Context(), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateSyncDisabled):
			respondError(c, response.CodeBadRequest, "联盟同步未启用", nil)
		case errors.Is(err, service.ErrAffiliateSyncInFlight):
			respondError(c, response.CodeTooManyRequests, "同步正在进行中，请稍后再试", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "用户不存在", nil)
		case errors.Is(err, goaffpro.ErrRejected):
			respondError(c, response.CodeBadRequest, rejectionMessage(err), nil)
		case errors.Is(err, goaffpro.ErrRequestFailed), errors.Is(err, goaffpro.ErrResponseInvalid):
			respondError(c, response.CodeInternal, "联盟服务暂时不可用，请稍后重试", err)
		case errors.Is(err, goaffpro.ErrConfigInvalid):
			respondError(c, response.CodeInternal, "联盟同步配置无效", err)
		default:
			respondError(c, response.CodeInternal, "联盟同步失败，请稍后重试", err)
		}
		return
	}

	response.Success(c, gin.H{"message": message})
}

// GetAffiliateAccount 查询当前用户联盟绑定状态
func (h *Handler) GetAffiliateAccount(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if h.AffiliateSyncService == nil {
		respondError(c, response.CodeInternal, "联盟同步服务不可用", nil)
		return
	}

	account, err := h.AffiliateSyncService.Account(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "获取联盟账号失败", err)
		return
	}
	if account == nil {
		response.Success(c, gin.H{"status": "none"})
		return
	}

	response.Success(c, gin.H{
		"status":       account.Status,
		"affiliate_id": account.AffiliateID,
		"last_error":   account.LastError,
		"synced_at":    account.SyncedAt,
	})
}

// GetAffiliateReferralLink 获取推广链接
func (h *Handler) GetAffiliateReferralLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if h.AffiliateSyncService == nil {
		respondError(c, response.CodeInternal, "联盟同步服务不可用", nil)
		return
	}

	link, err := h.AffiliateSyncService.ReferralLink(uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateSyncDisabled):
			respondError(c, response.CodeBadRequest, "推广入口未启用", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "联盟账号未绑定", nil)
		default:
			respondError(c, response.CodeInternal, "获取推广链接失败", err)
		}
		return
	}

	response.Success(c, gin.H{"referral_link": link})
}

// UpdateAffiliateProfileRequest 更新联盟档案请求
type UpdateAffiliateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateAffiliateProfile 更新联盟同步使用的姓名元数据
func (h *Handler) UpdateAffiliateProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req UpdateAffiliateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if err := h.UserAuthService.UpdateAffiliateNames(uid, firstName, lastName); err != nil {
		respondError(c, response.CodeInternal, "保存失败", err)
		return
	}

	response.Success(c, gin.H{
		constants.MetaKeyAffiliateFirstName: firstName,
		constants.MetaKeyAffiliateLastName:  lastName,
	})
}
