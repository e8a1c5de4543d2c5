package solver

import (
	"context"
	"sync"
	"time"

	"github.com/paiban/mediatheque/pkg/calendar"
	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint/builtin"
)

// Planner 月度规划器：各周相互独立，在固定大小的协程池中并行求解
type Planner struct {
	solver  Solver
	workers int
	logger  *logger.PlanningLogger
}

// NewPlanner 创建月度规划器
func NewPlanner(solver Solver, workers int) *Planner {
	if workers <= 0 {
		workers = 4
	}
	return &Planner{
		solver:  solver,
		workers: workers,
		logger:  logger.NewPlanningLogger(),
	}
}

// NewDefaultPlanner 使用内置约束集的周求解器
func NewDefaultPlanner(workers int) *Planner {
	cm := constraint.NewManager()
	builtin.RegisterDefaultConstraints(cm)
	return NewPlanner(NewWeeklySolver(cm), workers)
}

// PlanResult 月度规划结果
type PlanResult struct {
	Plan       *model.Plan   `json:"plan"`
	Statistics []*Statistics `json:"statistics"` // 与 Plan.Weeks 一一对应
	Duration   time.Duration `json:"duration"`
}

// weekJob 单周任务
type weekJob struct {
	index int
	week  calendar.Week
}

// weekOutcome 单周任务结果
type weekOutcome struct {
	index  int
	result *WeekResult
	err    error
}

// Plan 校验输入并生成整月排班，结果按周序返回
// 输入结构缺失时返回错误，约束层面的问题只记录为告警
func (p *Planner) Plan(ctx context.Context, in *model.Input) (*PlanResult, error) {
	startTime := time.Now()

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	weeks := calendar.WeeksOfMonth(in.Year, in.Month)
	if len(weeks) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "目标月份没有服务周")
	}

	plan := model.NewPlan(in.Year, in.Month)
	log := p.logger.ForPlan(plan.ID.String())
	log.StartPlan(in.Year, int(in.Month), len(in.Agents), len(weeks))

	outcomes := p.solveWeeks(ctx, in, weeks)

	result := &PlanResult{Plan: plan}
	for _, o := range outcomes {
		if o.err != nil {
			code := errors.CodeInternal
			if ctx.Err() != nil {
				code = errors.CodeTimeout
			}
			return nil, errors.Wrap(o.err, code, "周排班生成失败").
				WithField("week", weeks[o.index].Index)
		}
		plan.Weeks = append(plan.Weeks, o.result.Week)
		result.Statistics = append(result.Statistics, o.result.Statistics)
	}

	result.Duration = time.Since(startTime)
	log.PlanComplete(result.Duration, len(plan.Weeks), plan.AlertCount())
	return result, nil
}

// solveWeeks 并行求解各周，每周的上下文只在一个协程中使用
func (p *Planner) solveWeeks(ctx context.Context, in *model.Input, weeks []calendar.Week) []weekOutcome {
	jobChan := make(chan weekJob, len(weeks))
	resultChan := make(chan weekOutcome, len(weeks))

	workers := p.workers
	if workers > len(weeks) {
		workers = len(weeks)
	}

	// 启动工作协程
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				select {
				case <-ctx.Done():
					resultChan <- weekOutcome{index: job.index, err: ctx.Err()}
				default:
					res, err := p.solver.SolveWeek(ctx, in, job.week)
					resultChan <- weekOutcome{index: job.index, result: res, err: err}
				}
			}
		}()
	}

	// 发送任务
	for i, w := range weeks {
		jobChan <- weekJob{index: i, week: w}
	}
	close(jobChan)

	// 等待完成
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果
	outcomes := make([]weekOutcome, len(weeks))
	for o := range resultChan {
		outcomes[o.index] = o
	}
	return outcomes
}
