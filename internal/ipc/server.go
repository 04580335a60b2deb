// Package ipc exposes daemon control to the CLI over JSON-RPC on a Unix
// domain socket.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"newswatch/internal/daemon"
	"newswatch/internal/logging"
	"newswatch/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Newswatch", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", slog.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					slog.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			slog.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func convertRun(run *store.CollectionRun) RunRecord {
	if run == nil {
		return RunRecord{}
	}
	return RunRecord{
		ID:               run.ID,
		StartedAt:        run.StartedAt,
		FinishedAt:       run.FinishedAt,
		Trigger:          string(run.Trigger),
		Mode:             run.Mode,
		Collected:        run.Collected,
		QueriesSucceeded: run.QueriesSucceeded,
		QueriesFailed:    run.QueriesFailed,
		APICalls:         run.APICalls,
		ErrorCount:       run.ErrorCount,
	}
}

func convertArticle(article *store.Article) ArticleRecord {
	return ArticleRecord{
		NewsID:          article.NewsID,
		Title:           article.Title,
		Source:          article.Source,
		PublishTime:     article.PublishTime,
		Summary:         article.Summary,
		Sentiment:       article.Sentiment,
		Topics:          article.Topics,
		ImportanceScore: article.ImportanceScore,
		HasImportance:   article.HasImportance,
		Rating:          article.Rating,
		IsRead:          article.IsRead,
		IsManual:        article.IsManual,
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.Mode = string(status.Mode.Mode)
	resp.ModeSince = status.Mode.Since
	resp.ModeReason = status.Mode.Reason
	resp.SourceAvailable = status.Source.Available
	resp.SourceMessage = status.Source.Message
	resp.SourceCheckedAt = status.Source.CheckedAt
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockPath
	resp.Articles = status.Articles
	resp.Runs24h = RunStats{
		Runs:             status.Runs.Runs,
		Collected:        status.Runs.Collected,
		QueriesSucceeded: status.Runs.QueriesSucceeded,
		QueriesFailed:    status.Runs.QueriesFailed,
		APICalls:         status.Runs.APICalls,
		ErrorCount:       status.Runs.ErrorCount,
	}
	resp.Analyzed = status.Analysis.Analyzed
	resp.AnalysisSkipped = status.Analysis.Skipped
	resp.AnalysisFailed = status.Analysis.Failed
	resp.ModelCalls = status.Analysis.Calls
	resp.SpentUSD = status.Analysis.CostUSD
	return nil
}

func (s *service) Collect(_ CollectRequest, resp *CollectResponse) error {
	s.logger.Debug("manual collection requested")
	run, err := s.daemon.CollectNow(s.ctx)
	if err != nil {
		return err
	}
	resp.Run = convertRun(run)
	s.logger.Info("manual collection finished",
		slog.Int("collected", resp.Run.Collected))
	return nil
}

func (s *service) SourceRecheck(_ SourceRecheckRequest, resp *SourceRecheckResponse) error {
	status := s.daemon.RecheckSource(s.ctx)
	resp.Available = status.Available
	resp.Message = status.Message
	resp.CheckedAt = status.CheckedAt
	return nil
}

func (s *service) Runs(req RunsRequest, resp *RunsResponse) error {
	runs, err := s.daemon.RecentRuns(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]RunRecord, 0, len(runs))
	for _, run := range runs {
		resp.Runs = append(resp.Runs, convertRun(run))
	}
	return nil
}

func (s *service) RunStats(req RunStatsRequest, resp *RunStatsResponse) error {
	hours := req.SinceHours
	if hours <= 0 {
		hours = 24
	}
	summary, err := s.daemon.RunStats(s.ctx, time.Now().UTC().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return err
	}
	if summary != nil {
		resp.Stats = RunStats{
			Runs:             summary.Runs,
			Collected:        summary.Collected,
			QueriesSucceeded: summary.QueriesSucceeded,
			QueriesFailed:    summary.QueriesFailed,
			APICalls:         summary.APICalls,
			ErrorCount:       summary.ErrorCount,
		}
	}
	return nil
}

func (s *service) Articles(req ArticlesRequest, resp *ArticlesResponse) error {
	articles, err := s.daemon.RecentArticles(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Articles = make([]ArticleRecord, 0, len(articles))
	for _, article := range articles {
		resp.Articles = append(resp.Articles, convertArticle(article))
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
