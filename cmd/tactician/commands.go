package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tactician/internal/ledger"
	"tactician/internal/logger"
	"tactician/internal/tactics"

	"github.com/spf13/cobra"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	var skipRebalance bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "执行每日战术会议：扫描→预测→投资长逐檔审核",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			report, err := a.Tactics().GenerateDailyTactics(ctx)
			if err != nil {
				return fmt.Errorf("战术生成失败: %w", err)
			}
			fmt.Println(report.Markdown())

			if !skipRebalance && report.Status == tactics.StatusAction {
				snap, err := a.Ledger().Snapshot()
				if err == nil {
					for _, pos := range snap.Positions {
						if pos.Symbol == report.Symbol {
							continue
						}
						verdict := a.Rebalancer().Evaluate(ctx, report, pos.Symbol)
						fmt.Printf("\n## ⚔️ 换股对决 (%s vs %s)\n\n%s\n", report.Symbol, pos.Symbol, verdict)
						break
					}
				}
			}

			return writeReport(cfg.Review.ReportsDir,
				fmt.Sprintf("tactics_%s.md", time.Now().Format("2006-01-02")), report.Markdown())
		},
	}
	cmd.Flags().BoolVar(&skipRebalance, "no-rebalance", false, "跳过与既有持股的换股对决")
	return cmd
}

func newReviewCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "盘后深度覆盘：异动标的再预测与 AI 定性",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := a.Reviewer().PerformDailyReview(cmd.Context())
			if err != nil {
				return fmt.Errorf("覆盘失败: %w", err)
			}
			fmt.Println(out)

			return writeReport(cfg.Review.ReportsDir,
				fmt.Sprintf("review_%s.md", time.Now().Format("2006-01-02")), out)
		},
	}
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务（帐本与战术 API）",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
}

func newRebalanceCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance <incumbent> <challenger>",
		Short: "手动发起换股对决：指定持股与挑战者代码",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			incumbent, challenger := args[0], args[1]
			verdict := a.Rebalancer().EvaluateSymbols(cmd.Context(), challenger, incumbent)
			fmt.Printf("## ⚔️ 换股对决 (%s vs %s)\n\n%s\n", challenger, incumbent, verdict)
			return nil
		},
	}
}

func newLedgerCmd(cfgPath *string) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "帐本操作：查看持仓、手动入帐、校正现金",
	}
	ledgerCmd.AddCommand(newLedgerShowCmd(cfgPath))
	ledgerCmd.AddCommand(newLedgerTradeCmd(cfgPath, ledger.ActionBuy))
	ledgerCmd.AddCommand(newLedgerTradeCmd(cfgPath, ledger.ActionSell))
	ledgerCmd.AddCommand(newLedgerCashCmd(cfgPath))
	return ledgerCmd
}

func newLedgerShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "显示现金、持仓与最近成交",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := a.Ledger().Snapshot()
			if err != nil {
				return err
			}
			fmt.Printf("现金: %.0f 元\n", snap.Cash)
			if len(snap.Positions) == 0 {
				fmt.Println("持仓: (空手)")
			} else {
				fmt.Println("持仓:")
				for _, p := range snap.Positions {
					fmt.Printf("  %s [%s] %d 股 @ %.2f（停损 %.2f / 目标 %.2f）\n",
						p.Symbol, p.Type, p.Qty, p.AvgCost, p.StopLoss, p.TargetPrice)
				}
			}
			limit := 5
			if len(snap.History) < limit {
				limit = len(snap.History)
			}
			for _, tx := range snap.History[:limit] {
				fmt.Printf("  %s %s %s %d @ %.2f（费 %d 税 %d）\n",
					tx.Date, tx.Action, tx.Symbol, tx.Qty, tx.Price, tx.Fee, tx.Tax)
			}
			return nil
		},
	}
}

func newLedgerTradeCmd(cfgPath *string, action ledger.Action) *cobra.Command {
	var (
		symbol   string
		qty      int64
		price    float64
		instType string
		note     string
		stopLoss float64
		target   float64
	)
	use := "buy"
	short := "买进入帐（自动计算手续费）"
	if action == ledger.ActionSell {
		use = "sell"
		short = "卖出入帐（自动计算手续费与交易税）"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ok, msg := a.Ledger().RecordTransaction(ledger.TransactionRequest{
				Action:      action,
				Symbol:      symbol,
				Type:        ledger.NormalizeInstrumentType(instType),
				Price:       price,
				Qty:         qty,
				Note:        note,
				StopLoss:    stopLoss,
				TargetPrice: target,
			})
			fmt.Println(msg)
			if !ok {
				return fmt.Errorf("入帐被拒绝")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "股票代码")
	cmd.Flags().Int64Var(&qty, "qty", 0, "股数")
	cmd.Flags().Float64Var(&price, "price", 0, "成交价")
	cmd.Flags().StringVar(&instType, "type", string(ledger.Equity), "Equity 或 Warrant")
	cmd.Flags().StringVar(&note, "note", "", "备注")
	if action == ledger.ActionBuy {
		cmd.Flags().Float64Var(&stopLoss, "stop-loss", 0, "停损价")
		cmd.Flags().Float64Var(&target, "target", 0, "目标价")
	}
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("qty")
	cmd.MarkFlagRequired("price")
	return cmd
}

func newLedgerCashCmd(cfgPath *string) *cobra.Command {
	var amount float64
	cmd := &cobra.Command{
		Use:   "cash",
		Short: "覆写现金数字（不产生成交纪录）",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := setupApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if amount < 0 {
				return fmt.Errorf("现金不可为负")
			}
			if err := a.Ledger().UpdateCash(amount); err != nil {
				return err
			}
			fmt.Printf("✅ 现金已更新为 %.0f 元\n", amount)
			return nil
		},
	}
	cmd.Flags().Float64Var(&amount, "set", 0, "新的现金数字")
	cmd.MarkFlagRequired("set")
	return cmd
}

func writeReport(dir, name, content string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	logger.Infof("✓ 报告已写入 %s", path)
	return nil
}
