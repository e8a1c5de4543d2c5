// Médiathèque 排班命令行工具
// 读取输入工作簿，生成整月排班并写出带周表的工作簿

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/paiban/mediatheque/internal/config"
	"github.com/paiban/mediatheque/internal/metrics"
	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/solver"
	"github.com/paiban/mediatheque/pkg/stats"
	"github.com/paiban/mediatheque/pkg/validator"
	"github.com/paiban/mediatheque/pkg/workbook"
)

type options struct {
	input    string
	output   string
	jsonOut  string
	rules    string
	workers  int
	timeout  time.Duration
	logLevel string
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "", "输入工作簿 (.xlsx，必填)")
	flag.StringVar(&opts.output, "output", "", "输出工作簿，默认在输入旁生成 planning_<mois>_<année>.xlsx")
	flag.StringVar(&opts.jsonOut, "json", "", "另存排班结果为 JSON 文件")
	flag.StringVar(&opts.rules, "rules", "", "TOML 规则文件，覆盖默认规则")
	flag.IntVar(&opts.workers, "workers", 4, "并行计算的周数")
	flag.DurationVar(&opts.timeout, "timeout", time.Minute, "计算超时")
	flag.StringVar(&opts.logLevel, "log-level", "info", "日志级别: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus 指标监听地址 (如 :9090)")
	pushURL := flag.String("push-url", "", "Pushgateway 地址 (如 http://localhost:9091)")
	wait := flag.Bool("wait", false, "完成后保持运行以便抓取指标")
	flag.Parse()

	logger.Init(logger.Config{Level: opts.logLevel, Format: "console", Output: "stderr", TimeFormat: time.Kitchen})

	if opts.input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input flag is required")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info().Str("addr", *metricsAddr).Msg("指标服务启动")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("指标服务失败")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, opts)

	if *pushURL != "" {
		if perr := metrics.Push(*pushURL, "mediatheque_planning"); perr != nil {
			logger.Error().Err(perr).Str("url", *pushURL).Msg("推送指标失败")
		} else {
			logger.Info().Str("url", *pushURL).Msg("指标已推送")
		}
	}

	if err != nil {
		logger.Error().Err(err).Str("code", string(errors.GetCode(err))).Msg("排班失败")
		os.Exit(1)
	}

	if *wait && *metricsAddr != "" {
		logger.Info().Msg("保持运行以便抓取指标，Ctrl+C 退出")
		<-ctx.Done()
	}
}

// run 执行一次完整的工作簿排班
func run(ctx context.Context, opts options) error {
	rules, err := loadRules(opts.rules)
	if err != nil {
		return err
	}

	start := time.Now()
	reader, err := workbook.OpenFile(opts.input)
	if err != nil {
		metrics.RecordWorkbookRead(string(errors.GetCode(err)), time.Since(start))
		return err
	}
	defer reader.Close()

	in, err := reader.WithRules(rules).Read()
	metrics.RecordWorkbookRead(codeOf(err), time.Since(start))
	if err != nil {
		return err
	}
	logger.Info().
		Str("input", opts.input).
		Int("year", in.Year).
		Str("month", workbook.MonthLabel(in.Month)).
		Int("agents", len(in.Agents)).
		Int("slots", len(in.Slots)).
		Msg("工作簿已读取")

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	planStart := time.Now()
	res, err := solver.NewDefaultPlanner(opts.workers).Plan(ctx, in)
	metrics.RecordPlanGeneration("cli", res, err, time.Since(planStart))
	if err != nil {
		return err
	}

	report(in, res)

	writer, err := workbook.NewWriter(in, reader.File())
	if err != nil {
		return err
	}
	if err := writer.WritePlan(res.Plan); err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = defaultOutput(opts.input, in)
	}
	if err := writer.File().SaveAs(output); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "保存工作簿失败").WithField("path", output)
	}
	logger.Info().Str("output", output).Int("weeks", len(res.Plan.Weeks)).Msg("排班工作簿已保存")

	if opts.jsonOut != "" {
		data, err := json.MarshalIndent(res.Plan, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "序列化排班失败")
		}
		if err := os.WriteFile(opts.jsonOut, data, 0o644); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "保存 JSON 失败").WithField("path", opts.jsonOut)
		}
		logger.Info().Str("json", opts.jsonOut).Msg("排班 JSON 已保存")
	}
	return nil
}

// report 输出统计摘要与复核结果
func report(in *model.Input, res *solver.PlanResult) {
	weeks := stats.NewWorkloadAnalyzer().AnalyzePlan(in, res.Plan)
	fairness := stats.NewFairnessAnalyzer().Analyze(weeks)
	coverage := stats.NewCoverageAnalyzer().WithAgents(in.Agents).Analyze(res.Plan)
	metrics.SetFairnessGini(fairness.WorkloadGini)
	metrics.SetCoverageRate(coverage.OverallCoverage)

	for _, w := range weeks {
		logger.Info().
			Int("week", w.Week).
			Bool("saturday", w.WithSaturday).
			Int("under", w.Under).
			Int("over", w.Over).
			Msg("周工作量")
	}
	logger.Info().
		Float64("coverage", coverage.OverallCoverage).
		Int("uncovered", len(coverage.UncoveredSlots)).
		Float64("gini", fairness.WorkloadGini).
		Float64("fairness_score", fairness.OverallFairnessScore).
		Int("alerts", res.Plan.AlertCount()).
		Dur("duration", res.Duration).
		Msg("排班摘要")

	conflicts := validator.NewConflictDetector(nil).DetectPlan(in, res.Plan)
	for _, c := range conflicts {
		event := logger.Warn()
		if c.Severity == validator.SeverityError {
			event = logger.Error()
		}
		event.
			Str("type", string(c.Type)).
			Int("week", c.Week).
			Str("date", c.Date).
			Str("slot", c.Slot).
			Str("agent", c.Agent).
			Msg(c.Message)
	}
}

func loadRules(path string) (model.Rules, error) {
	rules := model.DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, errors.Wrap(err, errors.CodeInvalidInput, "读取规则文件失败").WithField("path", path)
	}
	parsed, err := config.ParseRules(data, rules)
	if err != nil {
		return rules, errors.Wrap(err, errors.CodeInvalidInput, "规则文件无效").WithField("path", path)
	}
	return parsed, nil
}

// defaultOutput 输入文件旁的 planning_<mois>_<année>.xlsx
func defaultOutput(input string, in *model.Input) string {
	name := fmt.Sprintf("planning_%s_%d.xlsx", strings.ToLower(workbook.MonthLabel(in.Month)), in.Year)
	return filepath.Join(filepath.Dir(input), name)
}

func codeOf(err error) string {
	if err == nil {
		return ""
	}
	return string(errors.GetCode(err))
}
