package app

import (
	"strings"
	"time"

	"tactician/internal/config"
	"tactician/internal/logger"
	"tactician/internal/oracle"
)

// buildAdvisor 构造投资长顾问。缺 API Key 时默认仍走线上顾问，
// 调用会回报「不可用」并由流水线跳过该标的；只有显式打开
// oracle.offline_stub 才换成本地保守顾问做离线演练。
func buildAdvisor(cfg config.OracleConfig) oracle.Advisor {
	if strings.TrimSpace(cfg.APIKey) == "" {
		if cfg.OfflineStub {
			logger.Warnf("[先知] offline_stub 已开启，改用本地保守顾问（僅供演練，不具備真實判斷力）")
			return &oracle.StubAdvisor{}
		}
		logger.Warnf("[先知] 未配置 API Key，顾问调用将一律回报不可用（离线演练请开启 oracle.offline_stub）")
	}
	client := &oracle.ChatClient{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.APIKey != "" {
		logger.Infof("✓ 投资长连线已就绪: model=%s", cfg.Model)
	}
	return oracle.NewChatAdvisor(client)
}
