// internal/barrier/service.go
package barrier

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/barrier-gateway/internal/audit"
	"github.com/tamzrod/barrier-gateway/internal/board"
)

// Timing holds the actuation delays. Zero LiftPulse means a lift holds the
// coil until something else clears it.
type Timing struct {
	Settle    time.Duration // delay between the clear writes and the set write
	LiftPulse time.Duration // auto lift=false after this long (0 = hold)
	StopPulse time.Duration // auto stop=false after this long
	CloseHold time.Duration // auto close=false after this long
}

// Result is the outcome of a performed action.
type Result struct {
	BarrierName string
	Action      Action
	Channel     int
}

// Service is the actuation facade consumed by the HTTP/CLI layer. It owns
// the barriers, resolves tokens, enforces lock semantics and drives every
// coil write through the owning board's gate.
type Service struct {
	boards   *board.Registry
	barriers []*Barrier
	byID     map[int]*Barrier
	byString map[string]*Barrier
	timing   Timing
	sink     audit.Sink
	log      zerolog.Logger
}

func NewService(boards *board.Registry, cfgs []Config, timing Timing, sink audit.Sink, log zerolog.Logger) (*Service, error) {
	if sink == nil {
		sink = audit.Discard{}
	}
	s := &Service{
		boards:   boards,
		byID:     make(map[int]*Barrier, len(cfgs)),
		byString: make(map[string]*Barrier, len(cfgs)),
		timing:   timing,
		sink:     sink,
		log:      log,
	}
	for _, c := range cfgs {
		bd, ok := boards.Get(c.Board)
		if !ok {
			return nil, fmt.Errorf("barrier %q: no board %q", c.Name, c.Board)
		}
		br := &Barrier{
			id:       c.ID,
			stringID: c.StringID,
			name:     c.Name,
			board:    bd,
			lift:     c.LiftCoil,
			close:    c.CloseCoil,
			stop:     c.StopCoil,
		}
		s.barriers = append(s.barriers, br)
		s.byID[c.ID] = br
		s.byString[c.StringID] = br
	}
	return s, nil
}

// Resolve maps an identifier token onto a barrier: numeric id first,
// string id as fallback.
func (s *Service) Resolve(token string) (*Barrier, error) {
	if n, err := strconv.Atoi(token); err == nil {
		if br, ok := s.byID[n]; ok {
			return br, nil
		}
	}
	if br, ok := s.byString[token]; ok {
		return br, nil
	}
	return nil, &UnknownBarrierError{Token: token}
}

// Perform executes one logical action on the barrier identified by token.
// Rejected actions fail synchronously and never touch the network.
func (s *Service) Perform(token, action, source string) (Result, error) {
	br, err := s.Resolve(token)
	if err != nil {
		return Result{}, err
	}
	act, err := ParseAction(action)
	if err != nil {
		return Result{}, err
	}

	if br.Locked() && rejectedWhileLocked(act) {
		return Result{}, &LockedError{Barrier: br.name, Action: act}
	}

	switch act {
	case ActionLift:
		err = s.open(br, false)
	case ActionLatchOpen:
		err = s.open(br, true)
	case ActionClose:
		err = s.shut(br, false)
	case ActionLatchClose:
		err = s.shut(br, true)
	case ActionStop:
		err = s.halt(br)
	case ActionUnlatch:
		err = s.unlatch(br)
	case ActionLock:
		br.setLocked(true)
	case ActionUnlock:
		br.setLocked(false)
	}
	if err != nil {
		return Result{}, err
	}

	br.recordAction(act)
	s.emit(string(act), source, fmt.Sprintf("barrier=%s board=%s", br.name, br.board.Key()))

	return Result{
		BarrierName: br.name,
		Action:      act,
		Channel:     targetCoil(br, act),
	}, nil
}

// rejectedWhileLocked: a locked barrier still accepts the safety escape
// hatches (stop, unlatch) and the lock toggles themselves.
func rejectedWhileLocked(act Action) bool {
	switch act {
	case ActionLift, ActionClose, ActionLatchOpen, ActionLatchClose:
		return true
	default:
		return false
	}
}

func targetCoil(br *Barrier, act Action) int {
	switch act {
	case ActionClose, ActionLatchClose:
		return int(br.close)
	case ActionStop:
		return int(br.stop)
	default:
		return int(br.lift)
	}
}

// open raises the barrier: clear close and stop, settle, assert lift. A
// plain lift pulses (auto-releases) when a lift pulse is configured; latch
// holds the coil and sets the access-control bit.
func (s *Service) open(br *Barrier, latch bool) error {
	return br.board.WithGate(func() error {
		br.cancelRelease()
		if err := br.board.WriteCoil(br.close, false); err != nil {
			return err
		}
		if err := br.board.WriteCoil(br.stop, false); err != nil {
			return err
		}
		s.settle()
		if err := br.board.WriteCoil(br.lift, true); err != nil {
			return err
		}
		if latch {
			br.setLocked(true)
			br.setState(StateLatchedOpen)
			return nil
		}
		br.setState(StateLifting)
		if s.timing.LiftPulse > 0 {
			s.armAutoRelease(br, s.timing.LiftPulse, br.lift, StateIdle)
		}
		return nil
	})
}

// shut lowers the barrier: clear lift and stop, settle, assert close. A
// plain close always arms the auto-release; latch holds indefinitely.
func (s *Service) shut(br *Barrier, latch bool) error {
	return br.board.WithGate(func() error {
		br.cancelRelease()
		if err := br.board.WriteCoil(br.lift, false); err != nil {
			return err
		}
		if err := br.board.WriteCoil(br.stop, false); err != nil {
			return err
		}
		s.settle()
		if err := br.board.WriteCoil(br.close, true); err != nil {
			return err
		}
		if latch {
			br.setLocked(true)
			br.setState(StateLatchedClosed)
			return nil
		}
		br.setState(StateClosing)
		s.armAutoRelease(br, s.timing.CloseHold, br.close, StateIdle)
		return nil
	})
}

// halt pulses the stop coil after clearing both travel coils. Reachable
// even while locked.
func (s *Service) halt(br *Barrier) error {
	return br.board.WithGate(func() error {
		br.cancelRelease()
		if err := br.board.WriteCoil(br.lift, false); err != nil {
			return err
		}
		if err := br.board.WriteCoil(br.close, false); err != nil {
			return err
		}
		s.settle()
		if err := br.board.WriteCoil(br.stop, true); err != nil {
			return err
		}
		br.setState(StateStopped)
		s.armAutoRelease(br, s.timing.StopPulse, br.stop, StateStopped)
		return nil
	})
}

// unlatch releases every coil and clears the access-control bit.
func (s *Service) unlatch(br *Barrier) error {
	return br.board.WithGate(func() error {
		br.cancelRelease()
		if err := br.board.WriteCoil(br.lift, false); err != nil {
			return err
		}
		if err := br.board.WriteCoil(br.close, false); err != nil {
			return err
		}
		if err := br.board.WriteCoil(br.stop, false); err != nil {
			return err
		}
		br.setLocked(false)
		br.setState(StateIdle)
		return nil
	})
}

// armAutoRelease schedules coil=false after d. The firing callback takes
// the board gate before touching anything, so it can never interleave with
// an actuation sequence; a canceled timer that already fired is defused by
// the generation check.
func (s *Service) armAutoRelease(br *Barrier, d time.Duration, coil uint16, after State) {
	br.armRelease(d, func(gen uint64) {
		br.board.WithGate(func() error {
			if !br.claimRelease(gen) {
				return nil
			}
			if err := br.board.WriteCoil(coil, false); err != nil {
				// Logged, not retried: the next explicit action
				// re-asserts a consistent coil state.
				s.log.Error().Err(err).
					Str("barrier", br.name).
					Uint16("coil", coil).
					Msg("auto-release write failed")
				return err
			}
			br.setState(after)
			s.emit("auto-release", "system",
				fmt.Sprintf("barrier=%s coil=%d", br.name, coil))
			return nil
		})
	})
}

func (s *Service) settle() {
	if s.timing.Settle > 0 {
		time.Sleep(s.timing.Settle)
	}
}

func (s *Service) emit(action, source, details string) {
	s.sink.Emit(audit.Event{
		Timestamp: ctime.Now(),
		Action:    action,
		Source:    source,
		Details:   details,
	})
}
