package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/goaffpro"
	handlershared "github.com/storelink-next/internal/http/handlers/shared"
	"github.com/storelink-next/internal/http/response"
	"github.com/storelink-next/internal/repository"
	"github.com/storelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminUsers 获取用户列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	keyword := strings.TrimSpace(c.Query("keyword"))
	status := strings.TrimSpace(c.Query("status"))

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	lastLoginFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("last_login_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	lastLoginTo, err := parseTimeNullable(strings.TrimSpace(c.Query("last_login_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	users, total, err := h.UserRepo.List(repository.UserListFilter{
		Page:          page,
		PageSize:      pageSize,
		Keyword:       keyword,
		Status:        status,
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
		LastLoginFrom: lastLoginFrom,
		LastLoginTo:   lastLoginTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户列表失败", err)
		return
	}

	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// GetAdminUser 获取用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户信息失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "用户不存在", nil)
		return
	}

	response.Success(c, user)
}

// GetAdminUserAffiliate 获取用户联盟绑定详情
func (h *Handler) GetAdminUserAffiliate(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户信息失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "用户不存在", nil)
		return
	}

	account, err := h.AffiliateAccountRepo.GetByUserID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取联盟账号失败", err)
		return
	}

	metaFirst, err := h.UserMetaRepo.GetValue(userID, constants.MetaKeyAffiliateFirstName)
	if err != nil {
		respondError(c, response.CodeInternal, "获取联盟账号失败", err)
		return
	}
	metaLast, err := h.UserMetaRepo.GetValue(userID, constants.MetaKeyAffiliateLastName)
	if err != nil {
		respondError(c, response.CodeInternal, "获取联盟账号失败", err)
		return
	}

	accountView := gin.H{"status": "none"}
	if account != nil {
		accountView = gin.H{
			"status":       account.Status,
			"affiliate_id": account.AffiliateID,
			"last_error":   account.LastError,
			"synced_at":    account.SyncedAt,
		}
	}

	response.Success(c, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"status":     user.Status,
		},
		"account": accountView,
		"meta": gin.H{
			constants.MetaKeyAffiliateFirstName: metaFirst,
			constants.MetaKeyAffiliateLastName:  metaLast,
		},
	})
}

// SyncAdminUserAffiliate 管理员手动触发用户联盟同步
func (h *Handler) SyncAdminUserAffiliate(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}
	if h.AffiliateSyncService == nil {
		respondError(c, response.CodeInternal, "联盟同步服务不可用", nil)
		return
	}

	message, err := h.AffiliateSyncService.SyncOnDemand(c.Request.Context(), userID)
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

// rejectionMessage 提取联盟端拒绝原因，缺失时使用兜底提示。
func rejectionMessage(err error) string {
	if msg := goaffpro.RejectionMessage(err); msg != "" {
		return msg
	}
	return "联盟端拒绝了本次注册"
}

// BatchUpdateUserStatusRequest 批量更新用户状态请求
type BatchUpdateUserStatusRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// BatchUpdateAdminUserStatus 批量更新用户状态
func (h *Handler) BatchUpdateAdminUserStatus(c *gin.Context) {
	var req BatchUpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	status := strings.TrimSpace(req.Status)
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		respondError(c, response.CodeBadRequest, "用户状态无效", nil)
		return
	}
	if len(req.UserIDs) == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	if err := h.UserRepo.BatchUpdateStatus(req.UserIDs, status); err != nil {
		respondError(c, response.CodeInternal, "保存失败", err)
		return
	}

	response.Success(c, gin.H{"updated": len(req.UserIDs)})
}

func parseUserIDParam(c *gin.Context) (uint, bool) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "用户 ID 无效", nil)
		return 0, false
	}
	return uint(rawID), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
