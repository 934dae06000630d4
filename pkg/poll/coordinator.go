package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrStopped = errors.New("coordinator stopped")

type CoordinatorCfg struct {
	Logger      Logger
	Broadcaster Broadcaster
	Voters      VoterCounter

	TickInterval time.Duration
	NewTicker    TickerFunc

	MaxDuration int
	MaxOptions  int

	Now func() time.Time
}

// Coordinator owns the current poll and the poll history. All state is
// confined to the main goroutine; public methods submit commands to it and
// wait for their completion.
type Coordinator struct {
	Cfg CoordinatorCfg
	Log Logger

	current    *Poll
	countdown  *countdown
	history    *History
	lastPollId PollId

	cmdChan chan command

	errorChan chan<- error
	stopChan  chan struct{}
	doneChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

type command struct {
	fn   func()
	done chan struct{}
}

func NewCoordinator(cfg CoordinatorCfg) (*Coordinator, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("missing logger")
	}

	if cfg.Broadcaster == nil {
		return nil, fmt.Errorf("missing broadcaster")
	}

	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}

	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTimeTicker
	}

	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = 3600
	}

	if cfg.MaxOptions == 0 {
		cfg.MaxOptions = 26
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Coordinator{
		Cfg: cfg,
		Log: cfg.Logger,

		history: NewHistory(),

		cmdChan: make(chan command),

		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	return c, nil
}

func (c *Coordinator) Start(errorChan chan<- error) error {
	c.Log.Debug(1, "starting")

	c.errorChan = errorChan

	c.wg.Add(1)
	go c.main()

	c.Log.Debug(1, "started")

	return nil
}

func (c *Coordinator) Stop() {
	c.Log.Debug(1, "stopping")

	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()

	c.Log.Debug(1, "stopped")
}

func (c *Coordinator) main() {
	defer c.wg.Done()
	defer close(c.doneChan)

	defer func() {
		if value := recover(); value != nil {
			err := PanicError(c.Log, value)
			c.shutdown()

			if c.errorChan != nil {
				c.errorChan <- err
			}
		}
	}()

	for {
		select {
		case <-c.stopChan:
			c.shutdown()
			return

		case cmd := <-c.cmdChan:
			c.runCommand(cmd)

		case <-c.countdownChan():
			c.onTick()
		}
	}
}

func (c *Coordinator) shutdown() {
	c.Log.Debug(1, "shutting down")

	c.stopCountdown()
}

func (c *Coordinator) runCommand(cmd command) {
	defer close(cmd.done)
	cmd.fn()
}

// call runs fn in the main goroutine and waits for it to complete.
func (c *Coordinator) call(ctx context.Context, fn func()) error {
	cmd := command{
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case c.cmdChan <- cmd:
	case <-c.stopChan:
		return ErrStopped
	case <-c.doneChan:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Commands never block, there is no need to watch the context once the
	// main goroutine has accepted the command.
	<-cmd.done

	return nil
}

func (c *Coordinator) CreatePoll(ctx context.Context, req PollRequest) (Poll, error) {
	var poll Poll
	var cmdErr error

	err := c.call(ctx, func() {
		var p *Poll

		p, cmdErr = c.createPoll(req)
		if cmdErr == nil {
			poll = *p.Clone()
		}
	})
	if err != nil {
		return Poll{}, err
	}

	return poll, cmdErr
}

// StopPoll ends the current poll. It returns false if no poll was active.
func (c *Coordinator) StopPoll(ctx context.Context) (Poll, bool, error) {
	var poll Poll
	var stopped bool

	err := c.call(ctx, func() {
		if c.current == nil {
			c.Log.Debug(1, "ignoring stop request: no active poll")
			return
		}

		p := c.endPoll(EndReasonStopped)
		poll = *p.Clone()
		stopped = true
	})

	return poll, stopped, err
}

// SubmitVote counts a vote for the current poll. It returns false if the
// vote was ignored, either because no poll is active or because the option
// does not exist.
func (c *Coordinator) SubmitVote(ctx context.Context, optionId OptionId) (bool, error) {
	var accepted bool

	err := c.call(ctx, func() {
		accepted = c.submitVote(optionId)
	})

	return accepted, err
}

func (c *Coordinator) History(ctx context.Context) ([]Poll, error) {
	var polls []Poll

	err := c.call(ctx, func() {
		polls = c.history.Snapshot()
	})

	return polls, err
}

// RequestHistory sends the history to a single session.
func (c *Coordinator) RequestHistory(ctx context.Context, sessionId SessionId) error {
	return c.call(ctx, func() {
		ev := EventHistoryData{Polls: c.history.Snapshot()}
		c.Cfg.Broadcaster.SendTo(sessionId, &ev)
	})
}

// Join brings a newly joined session up to date with the current poll.
func (c *Coordinator) Join(ctx context.Context, sessionId SessionId) error {
	return c.call(ctx, func() {
		if c.current == nil {
			return
		}

		c.Log.Debug(1, "sending poll %d to session %s", c.current.Id, sessionId)

		c.Cfg.Broadcaster.SendTo(sessionId, &EventNewPoll{Poll: c.current.Clone()})
		c.Cfg.Broadcaster.SendTo(sessionId,
			&EventTimerUpdate{TimeLeft: c.current.TimeLeft})
	})
}

func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	var status Status

	err := c.call(ctx, func() {
		if c.current != nil {
			status.Poll = c.current.Clone()
		}

		status.HistoryLength = c.history.Len()

		if last := c.history.Last(); last != nil {
			status.LastPoll = last.Clone()
		}
	})
	if err != nil {
		return Status{}, err
	}

	if c.Cfg.Voters != nil {
		status.EligibleVoters = c.Cfg.Voters.EligibleVoters()
	}

	return status, nil
}

func (c *Coordinator) createPoll(req PollRequest) (*Poll, error) {
	limits := requestLimits{
		maxDuration: c.Cfg.MaxDuration,
		maxOptions:  c.Cfg.MaxOptions,
	}

	req, err := validatePollRequest(req, limits)
	if err != nil {
		c.Log.Debug(1, "rejecting poll: %v", err)
		return nil, err
	}

	// Only one poll can be active: the current one is archived with its
	// current tally.
	if c.current != nil {
		c.Log.Info("replacing active poll %d", c.current.Id)
		c.endPoll(EndReasonReplaced)
	}

	now := c.Cfg.Now()

	poll := &Poll{
		Id:             c.nextPollId(now),
		Question:       req.Question,
		Options:        make([]Option, len(req.Options)),
		CorrectIndices: req.CorrectIndices,
		Duration:       req.Duration,
		TimeLeft:       req.Duration,
		IsActive:       true,
		CreatedAt:      now,
	}

	for i, text := range req.Options {
		poll.Options[i] = Option{Id: OptionId(i), Text: text}
	}

	c.current = poll
	c.startCountdown(poll)

	c.Log.Info("poll %d created with %d options, duration %ds",
		poll.Id, len(poll.Options), poll.Duration)

	c.Cfg.Broadcaster.Broadcast(&EventNewPoll{Poll: poll.Clone()})

	return poll, nil
}

func (c *Coordinator) nextPollId(now time.Time) PollId {
	id := PollId(now.UnixMilli())
	if id <= c.lastPollId {
		id = c.lastPollId + 1
	}

	c.lastPollId = id

	return id
}

func (c *Coordinator) submitVote(optionId OptionId) bool {
	poll := c.current
	if poll == nil {
		c.Log.Debug(1, "ignoring vote for option %d: no active poll", optionId)
		return false
	}

	if !poll.Vote(optionId) {
		c.Log.Debug(1, "ignoring vote for unknown option %d of poll %d",
			optionId, poll.Id)
		return false
	}

	c.Log.Debug(2, "vote for option %d of poll %d", optionId, poll.Id)

	c.Cfg.Broadcaster.Broadcast(&EventUpdateResults{Poll: poll.Clone()})

	return true
}

func (c *Coordinator) onTick() {
	poll := c.current
	if poll == nil || !poll.IsActive {
		Panicf("unexpected countdown tick without active poll")
	}

	if poll.TimeLeft > 0 {
		poll.TimeLeft--
	}

	if poll.TimeLeft > 0 {
		c.Cfg.Broadcaster.Broadcast(&EventTimerUpdate{TimeLeft: poll.TimeLeft})
		return
	}

	c.Log.Debug(1, "poll %d timed out", poll.Id)

	c.endPoll(EndReasonTimeout)
}

// endPoll finalizes the current poll, archives it and clears the current
// poll slot.
func (c *Coordinator) endPoll(reason EndReason) *Poll {
	poll := c.current
	if poll == nil {
		Panicf("cannot end poll: no active poll")
	}

	c.stopCountdown()

	if err := poll.CheckTally(); err != nil {
		Panicf("inconsistent tally: %v", err)
	}

	now := c.Cfg.Now()

	poll.IsActive = false
	poll.TimeLeft = 0
	poll.EndedAt = &now
	poll.EndReason = reason

	c.current = nil

	c.Log.Info("poll %d ended (%s) with %d votes",
		poll.Id, reason, poll.TotalVotes)

	c.Cfg.Broadcaster.Broadcast(&EventPollEnded{Poll: poll.Clone()})

	c.history.Append(poll)

	return poll
}

func (c *Coordinator) startCountdown(poll *Poll) {
	// The previous handle must be gone before a new one is installed.
	if c.countdown != nil {
		Panicf("cannot start countdown for poll %d: poll %d still has one",
			poll.Id, c.countdown.pollId)
	}

	c.countdown = &countdown{
		pollId: poll.Id,
		ticker: c.Cfg.NewTicker(c.Cfg.TickInterval),
	}
}

func (c *Coordinator) stopCountdown() {
	if c.countdown == nil {
		return
	}

	c.Log.Debug(2, "stopping countdown of poll %d", c.countdown.pollId)

	c.countdown.stop()
	c.countdown = nil
}

func (c *Coordinator) countdownChan() <-chan time.Time {
	if c.countdown == nil {
		return nil
	}

	return c.countdown.ticker.C()
}
