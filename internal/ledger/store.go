package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"tactician/internal/logger"
)

// 帐本文件是单一 JSON 文档 {cash, positions, history}，每次变更整体重写。
// 读取端必须容忍未知字段与旧版写法（数字代号、cost 取代 avg_cost、type=Stock）。

const snapshotSchema = `{
	"type": "object",
	"required": ["cash"],
	"properties": {
		"cash": {"type": "number", "minimum": 0},
		"positions": {"type": "array"},
		"history": {"type": "array"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("portfolio.schema.json", snapshotSchema)

// FileStore 把帐本快照持久化为单一 JSON 文件。
type FileStore struct {
	path        string
	openingCash float64

	// 顶层未知字段在重写时原样保留。
	extras map[string]json.RawMessage
}

func NewFileStore(path string, openingCash float64) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger store: path cannot be empty")
	}
	s := &FileStore{path: path, openingCash: openingCash}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Save(&Snapshot{Cash: openingCash}); err != nil {
			return nil, fmt.Errorf("initializing ledger file failed: %w", err)
		}
		logger.Infof("[Ledger] 初始化帐本文件 %s（现金 %.0f）", path, openingCash)
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

// Load 读取并解析帐本快照。
func (s *FileStore) Load() (*Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading ledger file failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ledger file is not valid json: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("ledger file failed schema validation: %w", err)
	}

	snap := &Snapshot{}
	root := gjson.ParseBytes(raw)
	snap.Cash = root.Get("cash").Float()
	root.Get("positions").ForEach(func(_, pos gjson.Result) bool {
		snap.Positions = append(snap.Positions, parsePosition(pos))
		return true
	})
	root.Get("history").ForEach(func(_, rec gjson.Result) bool {
		snap.History = append(snap.History, parseTransaction(rec))
		return true
	})

	s.extras = map[string]json.RawMessage{}
	root.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "cash", "positions", "history":
		default:
			s.extras[key.String()] = json.RawMessage(value.Raw)
		}
		return true
	})
	return snap, nil
}

// parsePosition 宽容读取持仓：代号一律转字符串去空白，
// 旧字段 cost 在缺少 avg_cost 时顶上。
func parsePosition(pos gjson.Result) Position {
	avgCost := pos.Get("avg_cost")
	if !avgCost.Exists() {
		avgCost = pos.Get("cost")
	}
	return Position{
		Symbol:      trimSymbol(pos.Get("stock_id")),
		Type:        NormalizeInstrumentType(pos.Get("type").String()),
		AvgCost:     avgCost.Float(),
		Qty:         pos.Get("qty").Int(),
		StopLoss:    pos.Get("stop_loss").Float(),
		TargetPrice: pos.Get("target_price").Float(),
		Note:        pos.Get("note").String(),
	}
}

func parseTransaction(rec gjson.Result) Transaction {
	return Transaction{
		Date:    rec.Get("date").String(),
		Action:  Action(rec.Get("action").String()),
		Symbol:  trimSymbol(rec.Get("stock_id")),
		Type:    NormalizeInstrumentType(rec.Get("type").String()),
		Price:   rec.Get("price").Float(),
		Qty:     rec.Get("qty").Int(),
		Fee:     rec.Get("fee").Int(),
		Tax:     rec.Get("tax").Int(),
		NetCash: rec.Get("net_cash").Float(),
		Note:    rec.Get("note").String(),
	}
}

func trimSymbol(v gjson.Result) string {
	return strings.TrimSpace(v.String())
}

type persistedDoc struct {
	Cash      float64       `json:"cash"`
	Positions []Position    `json:"positions"`
	History   []Transaction `json:"history"`
}

// Save 原子化重写帐本文件（临时文件 + rename）。
func (s *FileStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	doc := persistedDoc{
		Cash:      snap.Cash,
		Positions: snap.Positions,
		History:   snap.History,
	}
	if doc.Positions == nil {
		doc.Positions = []Position{}
	}
	if doc.History == nil {
		doc.History = []Transaction{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if len(s.extras) > 0 {
		merged := map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &merged); err != nil {
			return err
		}
		for k, v := range s.extras {
			if _, known := merged[k]; !known {
				merged[k] = v
			}
		}
		if raw, err = json.Marshal(merged); err != nil {
			return err
		}
	}
	var pretty json.RawMessage = raw
	indented, err := json.MarshalIndent(pretty, "", "    ")
	if err == nil {
		raw = indented
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
