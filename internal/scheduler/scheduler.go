package scheduler

import (
	"errors"
	"log/slog"
	"time"
)

type Parameters struct {
	SlotCapacity          int
	RecurrenceHorizonDays int
	NotesMaxLength        int
	Location              *time.Location
	// 为 false 时接受任意合法的目标状态，不检查当前状态
	StrictTransitions bool
	ExpansionLockTTL  time.Duration
}

func DefaultParameters() *Parameters {
	return &Parameters{
		SlotCapacity:          10,
		RecurrenceHorizonDays: 90,
		NotesMaxLength:        500,
		Location:              time.UTC,
		StrictTransitions:     true,
		ExpansionLockTTL:      time.Minute,
	}
}

type Scheduler struct {
	parameters *Parameters
	store      Store
	notifier   Notifier
	locker     Locker
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Scheduler)

// WithLocker 设置展开周期配送时使用的分布式锁
func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(parameters *Parameters, store Store, notifier Notifier, opts ...Option) (*Scheduler, error) {
	if parameters == nil {
		parameters = DefaultParameters()
	}
	if parameters.SlotCapacity <= 0 {
		return nil, errors.New("时段容量必须大于 0")
	}
	if parameters.RecurrenceHorizonDays <= 0 {
		return nil, errors.New("周期配送的展开天数必须大于 0")
	}
	if parameters.Location == nil {
		parameters.Location = time.UTC
	}
	if store == nil {
		return nil, errors.New("store 不能为空")
	}
	if notifier == nil {
		return nil, errors.New("notifier 不能为空")
	}

	s := &Scheduler{
		parameters: parameters,
		store:      store,
		notifier:   notifier,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Scheduler) Parameters() Parameters {
	return *s.parameters
}
