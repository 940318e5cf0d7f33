package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/video"
)

// ErrBusy is returned when a video is already being made.
var ErrBusy = errors.New("scheduler: a video is already being made")

type Maker interface {
	Make(ctx context.Context, opts video.Options) (*video.Result, error)
}

// Status is a snapshot of the service for status reports.
type Status struct {
	Running   bool
	Runs      int
	Failures  int
	LastStart time.Time
	LastEnd   time.Time
	LastVideo string
	LastError string
	Next      time.Time
}

// Service makes one video per cron tick. Runs never overlap: a tick that
// fires while a video is in progress is skipped.
type Service struct {
	maker Maker
	debug bool
	log   *logging.Logger
	cron  *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	running bool
	status  Status
}

// New schedules maker on spec, a six field cron expression with seconds.
func New(spec string, maker Maker, debug bool, log *logging.Logger) (*Service, error) {
	s := &Service{
		maker: maker,
		debug: debug,
		log:   log,
		cron:  cron.New(cron.WithSeconds()),
		ctx:   context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	if next := s.next(); !next.IsZero() {
		s.log.Infof("scheduler: next video at %s", next.Format(time.RFC3339))
	}

	<-ctx.Done()

	ctxStop := s.cron.Stop()
	select {
	case <-ctxStop.Done():
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("cron stop timeout")
	}
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.log.Infof("cron: making the scheduled video")
	if _, err := s.RunOnce(ctx, ""); err != nil {
		if errors.Is(err, ErrBusy) {
			s.log.Warnf("cron: previous video still in progress, skipping this run")
			return
		}
		s.log.Errorf("cron make video: %v", err)
	}
}

// RunOnce makes a video now. postID may be empty to let the source pick a
// thread.
func (s *Service) RunOnce(ctx context.Context, postID string) (*video.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.running = true
	s.status.LastStart = time.Now()
	s.mu.Unlock()

	res, err := s.maker.Make(ctx, video.Options{PostID: postID, Debug: s.debug})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.status.Runs++
	s.status.LastEnd = time.Now()
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
		return res, err
	}
	s.status.LastError = ""
	if res != nil {
		s.status.LastVideo = res.Video
	}
	return res, nil
}

func (s *Service) Status() Status {
	s.mu.Lock()
	st := s.status
	st.Running = s.running
	s.mu.Unlock()
	st.Next = s.next()
	return st
}

func (s *Service) next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
