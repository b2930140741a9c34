// Package analysis interprets analyzer output: structured result parsing, keyword tagging
// and classification of analyzer failures.
package analysis

import (
	"strings"
	"time"

	"github.com/m-mizutani/glimpse/pkg/model"
)

type errorRule struct {
	errType    model.ModelErrorType
	message    string
	suggestion string
	// lower-case tokens matched against the lower-cased detail
	tokens []string
	// tokens matched against the original detail
	rawTokens []string
	match     func(lower string) bool
}

// Rules are evaluated in order; the first match wins.
var errorRules = []errorRule{
	{
		errType:    model.ModelErrorUnauthorized,
		message:    "API 未授权或 Key 无效",
		suggestion: "检查 API Key、权限和接口地址是否匹配",
		tokens:     []string{"401", "403", "unauthorized", "invalid api key", "authentication"},
	},
	{
		errType:    model.ModelErrorInsufficientQuota,
		message:    "余额或配额不足",
		suggestion: "检查账户余额或更换可用账号",
		tokens:     []string{"insufficient_quota", "quota", "balance", "billing", "payment"},
		rawTokens:  []string{"余额", "欠费", "配额"},
	},
	{
		errType:    model.ModelErrorRateLimit,
		message:    "请求过于频繁或触发限流",
		suggestion: "降低频率或稍后重试",
		tokens:     []string{"429", "rate limit", "too many requests"},
	},
	{
		errType:    model.ModelErrorTimeout,
		message:    "请求超时",
		suggestion: "检查网络或稍后重试",
		tokens:     []string{"timeout", "timed out", "deadline exceeded"},
	},
	{
		errType:    model.ModelErrorNetwork,
		message:    "网络连接失败",
		suggestion: "检查网络、代理或接口地址",
		tokens:     []string{"dns", "failed to lookup address", "no such host", "connection refused", "connection reset", "connect", "network"},
		rawTokens:  []string{"网络", "无法连接", "连接失败"},
	},
	{
		errType:    model.ModelErrorInvalidRequest,
		message:    "请求参数或模型名称无效",
		suggestion: "确认模型名称与接口是否兼容",
		tokens:     []string{"400", "404", "invalid"},
		match: func(lower string) bool {
			return strings.Contains(lower, "model") && strings.Contains(lower, "not found")
		},
	},
	{
		errType:    model.ModelErrorServer,
		message:    "服务端错误",
		suggestion: "稍后重试或切换节点",
		tokens:     []string{"500", "502", "503", "504"},
	},
}

var unknownRule = errorRule{
	errType:    model.ModelErrorUnknown,
	message:    "模型调用失败",
	suggestion: "查看错误详情或日志",
}

func (r *errorRule) matches(detail, lower string) bool {
	for _, t := range r.tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	for _, t := range r.rawTokens {
		if strings.Contains(detail, t) {
			return true
		}
	}
	return r.match != nil && r.match(lower)
}

// ClassifyModelError maps a failure description to an error type with a user-facing
// message and suggestion.
func ClassifyModelError(detail string) (errType model.ModelErrorType, message, suggestion string) {
	lower := strings.ToLower(detail)
	for i := range errorRules {
		r := &errorRules[i]
		if r.matches(detail, lower) {
			return r.errType, r.message, r.suggestion
		}
	}
	return unknownRule.errType, unknownRule.message, unknownRule.suggestion
}

// BuildModelErrorAlert builds the model-error event payload for a failed analyzer call.
// source names the operation that failed, e.g. "capture".
func BuildModelErrorAlert(detail, source string, now time.Time) *model.ModelErrorAlert {
	errType, message, suggestion := ClassifyModelError(detail)
	return &model.ModelErrorAlert{
		Timestamp:  now.Format(time.RFC3339),
		ErrorType:  errType,
		Message:    message,
		Suggestion: suggestion,
		Detail:     detail,
		Source:     source,
	}
}
