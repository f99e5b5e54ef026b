package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/carteira/internal/scheduler"
	"github.com/wonny/carteira/internal/scheduler/jobs"
)

// dataCollectionSchedule runs before the default refresh (19:00)
const dataCollectionSchedule = "30 18 * * 1-5"

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 즉시 실행합니다.

등록되는 작업:
- ranking_refresh: strategy meta.refresh_schedule (전체 파이프라인)
- data_collection: 평일 18:30 (지표 스냅샷 저장, DB 사용 시)

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/carteira scheduler start
  go run ./cmd/carteira scheduler run ranking_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sched.Start()

	w := cmd.OutOrStdout()
	printSuccess(w, "Scheduler started")
	for _, name := range sched.GetAllJobs() {
		if next, ok := sched.NextRun(name); ok {
			printKeyValue(w, name, next.In(a.location).Format("2006-01-02 15:04 MST"), 16)
		}
	}

	// Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	w := cmd.OutOrStdout()
	for name, stats := range sched.GetJobStats() {
		printKeyValue(w, name, stats.Schedule, 16)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := sched.RunJob(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", result.JobName, result.Attempts, result.Error)
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Job %s completed in %.2fs", result.JobName, result.Duration.Seconds()))
	return nil
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	config := scheduler.DefaultConfig()
	config.Location = a.location
	sched := scheduler.New(config, a.log)

	if a.strategy.Meta.RefreshSchedule != "" {
		job := jobs.NewRankingRefreshJob(a.orchestrator, a.strategy.Meta.RefreshSchedule, a.location, a.log)
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, err
		}
	}
	if a.db != nil {
		job := jobs.NewDataCollectionJob(a.collector, dataCollectionSchedule, a.location, a.log)
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}
