package admin

import (
	"strconv"

	handlershared "github.com/storelink-next/internal/http/handlers/shared"
	"github.com/storelink-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

func parseAdminIDParam(c *gin.Context) (uint, bool) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "管理员 ID 无效", nil)
		return 0, false
	}
	return uint(rawID), true
}
