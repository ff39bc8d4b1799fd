package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

// transportCancelledMessage is surfaced when a dispatch dies because the
// service itself is shutting down, as opposed to a platform-side failure.
const transportCancelledMessage = "sync service shutting down, please retry"

// SyncService fans one article out to a set of platforms. Platform tasks
// are pushed through the shared queue so at most one request is in flight
// at any time, and every settled task lands in the status ledger whether it
// succeeded or not. The store and publisher are optional; when nil the
// batch still settles normally and only the side effects are skipped.
type SyncService struct {
	adapters        map[platform.ID]Adapter
	queue           *Queue
	dispatcher      Dispatcher
	store           RunStore
	publisher       Publisher
	logger          *slog.Logger
	dispatchTimeout time.Duration

	mu     sync.Mutex
	status domain.SyncStatus
}

// NewSyncService wires the orchestrator. store and publisher may be nil.
func NewSyncService(
	adapters map[platform.ID]Adapter,
	queue *Queue,
	dispatcher Dispatcher,
	store RunStore,
	publisher Publisher,
	logger *slog.Logger,
	dispatchTimeout time.Duration,
) *SyncService {
	return &SyncService{
		adapters:        adapters,
		queue:           queue,
		dispatcher:      dispatcher,
		store:           store,
		publisher:       publisher,
		logger:          logger.With(slog.String("component", "sync_service")),
		dispatchTimeout: dispatchTimeout,
	}
}

// StartSync runs one batch: the article is attempted once per requested
// platform, in the given order, and the method returns only after every
// task has settled. One platform failing never aborts the rest.
func (s *SyncService) StartSync(ctx context.Context, article *domain.Article, platforms []platform.ID) []domain.SyncResult {
	s.mu.Lock()
	s.status = domain.SyncStatus{
		Total:     len(platforms),
		StartTime: time.Now(),
		Results:   make([]domain.SyncResult, 0, len(platforms)),
	}
	s.mu.Unlock()

	s.logger.Info("sync batch started",
		slog.String("title", article.Title),
		slog.Int("platforms", len(platforms)))

	for _, id := range platforms {
		s.setCurrentTask(string(id))

		pending := s.queue.Enqueue(func() (any, error) {
			return s.syncToPlatform(ctx, id, article), nil
		})
		settled, err := pending.Wait()

		result, ok := settled.(domain.SyncResult)
		if err != nil || !ok {
			result = domain.SyncResult{
				Platform: string(id),
				Message:  fmt.Sprintf("sync task crashed: %v", err),
			}
		}
		s.recordResult(result)
		s.publishResult(&result)
	}

	s.mu.Lock()
	s.status.CurrentTask = ""
	s.status.EndTime = time.Now()
	done := s.status
	s.mu.Unlock()

	s.logger.Info("sync batch finished",
		slog.Int("completed", done.Completed),
		slog.Int("failed", done.Failed))

	s.saveRun(&done)
	return done.Results
}

// Status returns a snapshot of the progress ledger.
func (s *SyncService) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.status
	snapshot.Results = make([]domain.SyncResult, len(s.status.Results))
	copy(snapshot.Results, s.status.Results)
	return snapshot
}

// CheckLogin probes one platform's session without publishing anything.
func (s *SyncService) CheckLogin(ctx context.Context, id platform.ID) (bool, string, error) {
	adapter, ok := s.adapters[id]
	if !ok {
		return false, "", fmt.Errorf("unknown platform %q", id)
	}
	loggedIn := adapter.ProbeLogin(ctx)
	name := adapter.Descriptor().Name
	if loggedIn {
		return true, fmt.Sprintf("%s logged in", name), nil
	}
	return false, fmt.Sprintf("%s not logged in", name), nil
}

// syncToPlatform runs the full pipeline for one platform: probe the
// session, build the request, dispatch it, interpret the response. Every
// exit path produces a SyncResult; nothing here returns an error.
func (s *SyncService) syncToPlatform(ctx context.Context, id platform.ID, article *domain.Article) domain.SyncResult {
	logger := s.logger.With(slog.String("platform", string(id)))

	adapter, ok := s.adapters[id]
	if !ok {
		return domain.SyncResult{
			Platform: string(id),
			Message:  fmt.Sprintf("platform %q is not configured", id),
		}
	}
	name := adapter.Descriptor().Name

	if !adapter.ProbeLogin(ctx) {
		logger.Warn("session probe negative")
		return domain.SyncResult{
			Platform: string(id),
			Message:  fmt.Sprintf("%s not logged in", name),
		}
	}

	req, err := adapter.BuildRequest(ctx, article)
	if err != nil || req == nil {
		if err == nil {
			err = errors.New("adapter returned no request")
		}
		logger.Error("request construction failed", slog.Any("error", err))
		return domain.SyncResult{
			Platform: string(id),
			Message:  fmt.Sprintf("failed to build %s request: %v", name, err),
			Error:    err.Error(),
		}
	}

	// Some flows cannot be completed server-side; the operator finishes
	// the publish in the platform's own editor.
	if req.Kind == platform.RequestInteractiveRedirect {
		return domain.SyncResult{
			Success:  true,
			Platform: string(id),
			Message:  fmt.Sprintf("draft prepared, complete it in the %s editor", name),
		}
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	resp, err := s.dispatcher.Do(dispatchCtx, req)
	if err != nil {
		msg := fmt.Sprintf("failed to reach %s: %v", name, err)
		if errors.Is(ctx.Err(), context.Canceled) {
			msg = transportCancelledMessage
		}
		logger.Error("dispatch failed", slog.Any("error", err))
		return domain.SyncResult{
			Platform: string(id),
			Message:  msg,
			Error:    err.Error(),
		}
	}

	return interpretResponse(id, name, resp, adapter, logger)
}

// interpretResponse maps one platform response onto the result taxonomy.
// A structured errors list outranks the HTTP status: platforms report some
// failures inside a 200.
func interpretResponse(id platform.ID, name string, resp *platform.Response, adapter Adapter, logger *slog.Logger) domain.SyncResult {
	if messages, duplicate := platform.CheckErrors(resp.Body); len(messages) > 0 {
		if duplicate {
			logger.Info("duplicate title reported", slog.Int("status", resp.StatusCode))
			return domain.SyncResult{
				Duplicate:  true,
				Platform:   string(id),
				Message:    fmt.Sprintf("%s already has a post with this title", name),
				Error:      messages,
				StatusCode: resp.StatusCode,
			}
		}
		logger.Warn("platform reported errors", slog.Any("errors", messages))
		return domain.SyncResult{
			Platform:   string(id),
			Message:    strings.Join(messages, "; "),
			Error:      messages,
			StatusCode: resp.StatusCode,
		}
	}

	if !resp.OK() {
		msg := platform.FailureMessage(resp.Body, resp.StatusCode)
		logger.Warn("publish rejected", slog.Int("status", resp.StatusCode), slog.String("message", msg))
		return domain.SyncResult{
			Platform:   string(id),
			Message:    fmt.Sprintf("%s rejected the post: %s", name, msg),
			Error:      resp.Body,
			StatusCode: resp.StatusCode,
		}
	}

	if !adapter.IsSuccess(resp.Body) {
		msg := platform.FailureMessage(resp.Body, resp.StatusCode)
		logger.Warn("publish not acknowledged", slog.String("message", msg))
		return domain.SyncResult{
			Platform:   string(id),
			Message:    fmt.Sprintf("%s did not accept the post: %s", name, msg),
			Error:      resp.Body,
			StatusCode: resp.StatusCode,
		}
	}

	logger.Info("publish accepted", slog.Int("status", resp.StatusCode))
	return domain.SyncResult{
		Success:    true,
		Platform:   string(id),
		Message:    fmt.Sprintf("synced to %s", name),
		Data:       resp.Body,
		StatusCode: resp.StatusCode,
	}
}

func (s *SyncService) setCurrentTask(id string) {
	s.mu.Lock()
	s.status.CurrentTask = id
	s.mu.Unlock()
}

func (s *SyncService) recordResult(result domain.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Results = append(s.status.Results, result)
	if result.Success {
		s.status.Completed++
	} else {
		s.status.Failed++
	}
}

// publishResult emits the settled result. Event delivery is best-effort and
// never affects the batch outcome.
func (s *SyncService) publishResult(result *domain.SyncResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), result); err != nil {
		s.logger.Warn("failed to publish sync result", slog.Any("error", err))
	}
}

// saveRun persists the settled batch. Best-effort, same as publishResult.
func (s *SyncService) saveRun(status *domain.SyncStatus) {
	if s.store == nil {
		return
	}
	if _, err := s.store.SaveRun(context.Background(), status); err != nil {
		s.logger.Warn("failed to save sync run", slog.Any("error", err))
	}
}
