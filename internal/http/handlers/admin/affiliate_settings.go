package admin

import (
	"errors"

	"github.com/storelink-next/internal/http/response"
	"github.com/storelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAffiliateSettings 获取联盟同步配置（脱敏）
func (h *Handler) GetAffiliateSettings(c *gin.Context) {
	setting, err := h.SettingService.GetGoaffproSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "获取配置失败", err)
		return
	}
	response.Success(c, service.MaskGoaffproSettingForAdmin(setting))
}

// UpdateAffiliateSettings 更新联盟同步配置。
// api_secret 传空串表示保留现有值。
func (h *Handler) UpdateAffiliateSettings(c *gin.Context) {
	var req service.GoaffproSettingPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	setting, err := h.SettingService.PatchGoaffproSetting(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGoaffproConfigInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "保存配置失败", err)
		}
		return
	}

	response.Success(c, service.MaskGoaffproSettingForAdmin(setting))
}
