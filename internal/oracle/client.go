package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tactician/internal/logger"
)

// 中文说明：
// ChatClient：兼容 OpenAI / Gemini(OpenAI 相容端点) 的聊天补全接口（/chat/completions）。
// 所有请求/响应会写入 oracle 审计日志，便于事后覆盘。

const systemPromptAdvisor = "You are a professional Taiwan-stock trading advisor. Follow the requested output format exactly. Reply in Traditional Chinese."

type ChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// 简易重试（用于 429/5xx）：若为 0 则默认重试 2 次
	MaxRetries int
}

func (c *ChatClient) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.APIKey == "" {
		return "", ErrUnavailable
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	// 规范化 BaseURL，避免配置里把完整的 /chat/completions 也写进来导致重复路径
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions") + "/chat/completions"

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	body := map[string]any{"model": c.Model, "messages": messages, "temperature": 0.5}
	b, _ := json.Marshal(body)

	logger.LogOracleRequest("chat", systemPrompt, userPrompt, string(b))

	httpc := &http.Client{Timeout: c.Timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

		resp, err := httpc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			break
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			out := strings.TrimSpace(r.Choices[0].Message.Content)
			logger.LogOracleResponse("chat", out)
			return out, nil
		}
		// 非 2xx：尝试解析错误消息
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		// 对 429/5xx 进行有限重试（带 Retry-After 支持）
		if retryableStatus(resp.StatusCode) && attempt < maxRetries {
			wait := time.Duration(0)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			if wait == 0 {
				// 基本指数退避：0.8s, 1.6s, 3.2s ...
				wait = (800 * time.Millisecond) << attempt
				if wait > 8*time.Second {
					wait = 8 * time.Second
				}
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}
		break
	}
	return "", lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// ChatAdvisor：把 ChatClient 包装成 Advisor。
// 未配置 API Key 时所有方法返回 ErrUnavailable，调用方按“先知缺席”处理。
type ChatAdvisor struct {
	client *ChatClient
}

func NewChatAdvisor(client *ChatClient) *ChatAdvisor {
	return &ChatAdvisor{client: client}
}

func (a *ChatAdvisor) available() bool {
	return a != nil && a.client != nil && a.client.APIKey != ""
}

func (a *ChatAdvisor) call(ctx context.Context, purpose, prompt string) (string, error) {
	if !a.available() {
		return "", ErrUnavailable
	}
	out, err := a.client.CallWithMessages(ctx, systemPromptAdvisor, prompt)
	if err != nil {
		logger.Warnf("[先知] %s 请求失败: %v", purpose, err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (a *ChatAdvisor) Consult(ctx context.Context, in ConsultInput) (string, error) {
	return a.call(ctx, "consult", renderConsultPrompt(in))
}

func (a *ChatAdvisor) Compare(ctx context.Context, in CompareInput) (string, error) {
	return a.call(ctx, "compare", renderComparePrompt(in))
}

func (a *ChatAdvisor) ReviewHolding(ctx context.Context, in ReviewInput) (string, error) {
	return a.call(ctx, "review", renderReviewPrompt(in))
}

func (a *ChatAdvisor) PostMortem(ctx context.Context, in PostMortemInput) (string, error) {
	return a.call(ctx, "postmortem", renderPostMortemPrompt(in))
}
