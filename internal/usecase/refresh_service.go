package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rwrpulse/rwrpulse/internal/domain/player"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

const (
	refreshStatusSuccess = "success"
	refreshStatusFailed  = "failed"

	refreshTargetServers = "servers"
	refreshTargetMaps    = "maps"
	refreshTargetPlayers = "players"
)

type RefreshResult struct {
	TaskCount    int                 `json:"task_count"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	WorkerCount  int                 `json:"worker_count"`
	Tasks        []RefreshTaskResult `json:"tasks"`
}

type RefreshTaskResult struct {
	Target     string `json:"target"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

type refreshTask struct {
	target   string
	database string
}

type RefreshServiceConfig struct {
	// PlayerDatabases lists the stat database tags warmed per cycle.
	PlayerDatabases []string
	// PlayerWindow is the leaderboard window size warmed per database.
	PlayerWindow int
	MaxWorkers   int
}

// RefreshService warms the offline cache in the background so the fallback
// path has fresh data before the upstream ever goes down. A cycle is never
// fatal: each target reports its own status and the next cycle retries.
type RefreshService struct {
	servers *ServerService
	players *PlayerService
	maps    *MapService
	logger  *logging.Logger
	cfg     RefreshServiceConfig
}

func NewRefreshService(
	servers *ServerService,
	players *PlayerService,
	maps *MapService,
	logger *logging.Logger,
	cfg RefreshServiceConfig,
) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PlayerWindow <= 0 {
		cfg.PlayerWindow = 100
	}
	return &RefreshService{
		servers: servers,
		players: players,
		maps:    maps,
		logger:  logger,
		cfg:     cfg,
	}
}

func (s *RefreshService) Refresh(ctx context.Context) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Refresh")
	defer span.End()

	tasks := s.buildTasks()
	workerCount := normalizeRefreshWorkerCount(s.cfg.MaxWorkers, len(tasks))

	result := RefreshResult{
		TaskCount:   len(tasks),
		WorkerCount: workerCount,
		Tasks:       make([]RefreshTaskResult, 0, len(tasks)),
	}
	if len(tasks) == 0 {
		return result, nil
	}

	results := make(chan RefreshTaskResult, len(tasks))

	var successCount atomic.Int32
	var failedCount atomic.Int32

	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create refresh worker pool: %w", err)
	}
	defer workerPool.Release()

	var workers sync.WaitGroup
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := RefreshTaskResult{Target: taskLabel(task)}

			records, runErr := s.runTask(ctx, task)
			row.Records = records
			row.DurationMs = time.Since(start).Milliseconds()
			if runErr != nil {
				row.Status = refreshStatusFailed
				row.Message = runErr.Error()
				failedCount.Add(1)
			} else {
				row.Status = refreshStatusSuccess
				successCount.Add(1)
			}

			results <- row
		}); err != nil {
			// A rejected submission is one failed task, not a failed
			// cycle; results from tasks already running still count.
			workers.Done()
			failedCount.Add(1)
			results <- RefreshTaskResult{
				Target:  taskLabel(task),
				Status:  refreshStatusFailed,
				Message: fmt.Sprintf("submit refresh task: %v", err),
			}
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}
	sort.SliceStable(result.Tasks, func(i, j int) bool {
		return result.Tasks[i].Target < result.Tasks[j].Target
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())

	s.logger.InfoContext(ctx, "cache refresh cycle finished",
		"tasks", result.TaskCount,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

func (s *RefreshService) buildTasks() []refreshTask {
	tasks := make([]refreshTask, 0, 2+len(s.cfg.PlayerDatabases))
	if s.servers != nil {
		tasks = append(tasks, refreshTask{target: refreshTargetServers})
	}
	if s.maps != nil {
		tasks = append(tasks, refreshTask{target: refreshTargetMaps})
	}
	if s.players != nil {
		for _, db := range s.cfg.PlayerDatabases {
			db = strings.TrimSpace(db)
			if db == "" {
				continue
			}
			tasks = append(tasks, refreshTask{target: refreshTargetPlayers, database: db})
		}
	}
	return tasks
}

func (s *RefreshService) runTask(ctx context.Context, task refreshTask) (int, error) {
	switch task.target {
	case refreshTargetServers:
		items, err := s.servers.ListServers(ctx)
		if err != nil {
			return 0, err
		}
		return len(items), nil
	case refreshTargetMaps:
		catalog, err := s.maps.Catalog(ctx)
		if err != nil {
			return 0, err
		}
		return len(catalog), nil
	case refreshTargetPlayers:
		page, err := s.players.ListPlayers(ctx, player.Query{
			Database: task.database,
			Size:     s.cfg.PlayerWindow,
		})
		if err != nil {
			return 0, err
		}
		return len(page.Items), nil
	default:
		return 0, fmt.Errorf("unsupported refresh target %q", task.target)
	}
}

func taskLabel(task refreshTask) string {
	if task.database == "" {
		return task.target
	}
	return task.target + ":" + task.database
}

func normalizeRefreshWorkerCount(value, taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = 2
	}
	if value > taskCount {
		value = taskCount
	}
	return value
}
