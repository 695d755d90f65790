package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// 顾问（LLM）请求/响应的独立审计日志：与主日志分离，便于事后回放提示词。

var (
	oracleMu          sync.Mutex
	oracleLog         *log.Logger
	oracleDumpPayload bool
)

func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

func EnableOraclePayloadDump(enabled bool) {
	oracleMu.Lock()
	oracleDumpPayload = enabled
	oracleMu.Unlock()
}

type oracleSection struct {
	Title string
	Body  string
}

func logOracle(kind, purpose string, sections []oracleSection) {
	oracleMu.Lock()
	lg := oracleLog
	oracleMu.Unlock()
	if lg == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE]")
	if kind != "" {
		b.WriteString("[")
		b.WriteString(kind)
		b.WriteString("]")
	}
	if purpose != "" {
		b.WriteString("[")
		b.WriteString(purpose)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	lg.Print(b.String())
}

func LogOracleRequest(purpose, systemPrompt, userPrompt, payload string) {
	sections := []oracleSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	if oracleDumpPayload && strings.TrimSpace(payload) != "" {
		sections = append(sections, oracleSection{Title: "PAYLOAD", Body: payload})
	}
	logOracle("request", purpose, sections)
}

func LogOracleResponse(purpose, raw string) {
	logOracle("response", purpose, []oracleSection{{Title: "RAW", Body: raw}})
}
