package goaffpro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrConfigInvalid   = errors.New("goaffpro config invalid")
	ErrRequestFailed   = errors.New("goaffpro request failed")
	ErrResponseInvalid = errors.New("goaffpro response invalid")
	ErrRejected        = errors.New("goaffpro registration rejected")
)

// DefaultEndpoint GoAffPro SDK 注册接口地址
const DefaultEndpoint = "https://api.goaffpro.com/v1/sdk/user/register"

const defaultTimeoutMS = 10000

// Config GoAffPro 客户端配置
type Config struct {
	Endpoint          string `json:"endpoint"`           // 注册接口地址，留空使用官方地址
	PublicToken       string `json:"api_key"`            // X-GOAFFPRO-PUBLIC-TOKEN
	AccessToken       string `json:"api_secret"`         // X-GOAFFPRO-ACCESS-TOKEN
	AttachCredentials bool   `json:"attach_credentials"` // 请求时是否携带凭证头
	TimeoutMS         int    `json:"timeout_ms"`         // 请求超时（毫秒）
}

// ParseConfig 解析配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.PublicToken = strings.TrimSpace(c.PublicToken)
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = defaultTimeoutMS
	}
}

// RegisterInput 联盟账号注册输入
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResult 联盟账号注册结果
type RegisterResult struct {
	AffiliateID string                 // 上游分配的联盟账号 ID
	Raw         map[string]interface{} // 原始响应
}

// Client GoAffPro API 客户端
type Client struct {
	cfg        Config
	httpClient *resty.Client
}

// NewClient 创建 GoAffPro 客户端
func NewClient(cfg Config) *Client {
	cfg.normalize()
	httpClient := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutMS)*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Register 调用 GoAffPro 注册联盟账号。
// 上游以 success 布尔标记业务结果，HTTP 状态码不可靠，按响应体判定。
func (c *Client) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrConfigInvalid)
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(input)
	if c.cfg.AttachCredentials {
		if c.cfg.PublicToken == "" || c.cfg.AccessToken == "" {
			return nil, fmt.Errorf("%w: credentials required when attach_credentials is on", ErrConfigInvalid)
		}
		req.SetHeader("X-GOAFFPRO-PUBLIC-TOKEN", c.cfg.PublicToken)
		req.SetHeader("X-GOAFFPRO-ACCESS-TOKEN", c.cfg.AccessToken)
	}

	resp, err := req.Post(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	return parseRegisterResponse(resp.Body())
}

// parseRegisterResponse 防御式解析注册响应
func parseRegisterResponse(body []byte) (*RegisterResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	success, ok := raw["success"].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: missing success flag", ErrResponseInvalid)
	}
	if !success {
		message := "registration was not accepted"
		if m, ok := raw["message"].(string); ok && strings.TrimSpace(m) != "" {
			message = strings.TrimSpace(m)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, message)
	}

	data, ok := raw["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing data object", ErrResponseInvalid)
	}
	affiliateID := stringifyID(data["affiliate_id"])
	if affiliateID == "" {
		return nil, fmt.Errorf("%w: missing affiliate_id", ErrResponseInvalid)
	}

	return &RegisterResult{AffiliateID: affiliateID, Raw: raw}, nil
}

// stringifyID 兼容上游返回数字或字符串形式的 ID
func stringifyID(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// RejectionMessage 提取拒绝原因，便于直接展示给用户
func RejectionMessage(err error) string {
	if err == nil || !errors.Is(err, ErrRejected) {
		return ""
	}
	message := strings.TrimPrefix(err.Error(), ErrRejected.Error())
	return strings.TrimSpace(strings.TrimPrefix(message, ":"))
}
