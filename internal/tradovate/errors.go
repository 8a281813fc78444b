package tradovate

import (
	"bytes"
	"fmt"
)

// AuthError 表示登录失败或应答中缺少可用令牌。
type AuthError struct {
	Status int
	Body   string
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tradovate: 登录失败: %s", e.Reason)
	}
	return fmt.Sprintf("tradovate: 登录失败 status=%d body=%s", e.Status, e.Body)
}

// RequestError 表示经纪商端点返回了非成功状态。
type RequestError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("tradovate: 调用 %s 失败 status=%d body=%s", e.Endpoint, e.Status, e.Body)
}

// 会话过期在不同环境下表现不一致：401 状态码，或 200/4xx 应答体中
// 出现文本标记。两种都按过期处理。
var expiredMarkers = [][]byte{
	[]byte("expired"),
	[]byte("Access is denied"),
}

// IsAuthExpired 判断一次下单应答是否意味着会话令牌失效。
func IsAuthExpired(status int, body []byte) bool {
	if status == 401 {
		return true
	}
	for _, marker := range expiredMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
