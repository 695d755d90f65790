package tacticianhttp

import (
	"context"
	"net/http"
	"strings"

	"tactician/internal/ledger"
	"tactician/internal/store/decisionlog"
	"tactician/internal/tactics"

	"github.com/gin-gonic/gin"
)

// TacticsRunner 触发一次战术生成。
type TacticsRunner interface {
	GenerateDailyTactics(ctx context.Context) (*tactics.Report, error)
}

// Router 暴露帐本与战术接口。
type Router struct {
	ledger *ledger.Ledger
	runner TacticsRunner
	logs   *decisionlog.Store
}

// NewRouter 构造 router。runner/logs 可为 nil，对应接口返回 503/404。
func NewRouter(l *ledger.Ledger, runner TacticsRunner, logs *decisionlog.Store) *Router {
	return &Router{ledger: l, runner: runner, logs: logs}
}

// Register 将接口挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/portfolio", r.handlePortfolio)
	group.POST("/ledger/transactions", r.handleTransaction)
	group.PUT("/ledger/cash", r.handleUpdateCash)
	group.POST("/tactics/run", r.handleRunTactics)
	group.GET("/tactics/latest", r.handleLatestTactics)
}

func (r *Router) handlePortfolio(c *gin.Context) {
	snap, err := r.ledger.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	positions := snap.Positions
	if positions == nil {
		positions = []ledger.Position{}
	}
	history := snap.History
	if history == nil {
		history = []ledger.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{
		"cash":      snap.Cash,
		"positions": positions,
		"history":   history,
	})
}

type transactionRequest struct {
	Action      string  `json:"action" binding:"required"`
	Symbol      string  `json:"stock_id" binding:"required"`
	Type        string  `json:"type"`
	Price       float64 `json:"price"`
	Qty         int64   `json:"qty"`
	Note        string  `json:"note"`
	StopLoss    float64 `json:"stop_loss"`
	TargetPrice float64 `json:"target_price"`
}

func (r *Router) handleTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action := ledger.Action(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action != ledger.ActionBuy && action != ledger.ActionSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action 必須為 BUY 或 SELL"})
		return
	}
	ok, msg := r.ledger.RecordTransaction(ledger.TransactionRequest{
		Action:      action,
		Symbol:      req.Symbol,
		Type:        ledger.NormalizeInstrumentType(req.Type),
		Price:       req.Price,
		Qty:         req.Qty,
		Note:        req.Note,
		StopLoss:    req.StopLoss,
		TargetPrice: req.TargetPrice,
	})
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"ok": ok, "message": msg})
}

type updateCashRequest struct {
	Cash *float64 `json:"cash" binding:"required"`
}

func (r *Router) handleUpdateCash(c *gin.Context) {
	var req updateCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Cash < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "現金不可為負數"})
		return
	}
	if err := r.ledger.UpdateCash(*req.Cash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cash": *req.Cash})
}

func (r *Router) handleRunTactics(c *gin.Context) {
	if r.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "戰術流水線未啟用"})
		return
	}
	report, err := r.runner.GenerateDailyTactics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (r *Router) handleLatestTactics(c *gin.Context) {
	if r.logs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "決策日誌未啟用"})
		return
	}
	run, consultations, err := r.logs.LatestRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "尚無戰術紀錄"})
		return
	}
	if consultations == nil {
		consultations = []decisionlog.ConsultationModel{}
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "consultations": consultations})
}
