// internal/barrier/status.go
package barrier

import "time"

// ChannelStatus is one coil's cached state.
type ChannelStatus struct {
	Index  int
	Active bool
}

// BoardStatus is one board's cached state.
type BoardStatus struct {
	Key       string
	Host      string
	Port      int
	Connected bool
	Dialect   string
	Channels  []ChannelStatus
}

// BarrierStatus is one barrier's current state.
type BarrierStatus struct {
	ID             int
	StringID       string
	Name           string
	Board          string
	Lift           int
	Close          int
	Stop           int
	Locked         bool
	LastAction     string
	LastActionTime time.Time
}

// Status is the full system view served to status queries.
type Status struct {
	Boards   []BoardStatus
	Barriers []BarrierStatus
}

// Status builds the system view from the monitor caches. It never blocks
// on live board I/O.
func (s *Service) Status() Status {
	st := Status{
		Boards:   make([]BoardStatus, 0, len(s.boards.All())),
		Barriers: make([]BarrierStatus, 0, len(s.barriers)),
	}

	for _, bd := range s.boards.All() {
		snap := bd.Snapshot()
		bs := BoardStatus{
			Key:       bd.Key(),
			Host:      bd.Host(),
			Port:      bd.Port(),
			Connected: snap.Reachable,
			Dialect:   snap.Dialect.String(),
			Channels:  make([]ChannelStatus, len(snap.Coils)),
		}
		for i, on := range snap.Coils {
			bs.Channels[i] = ChannelStatus{Index: i, Active: on}
		}
		st.Boards = append(st.Boards, bs)
	}

	for _, br := range s.barriers {
		br.mu.Lock()
		st.Barriers = append(st.Barriers, BarrierStatus{
			ID:             br.id,
			StringID:       br.stringID,
			Name:           br.name,
			Board:          br.board.Key(),
			Lift:           int(br.lift),
			Close:          int(br.close),
			Stop:           int(br.stop),
			Locked:         br.locked,
			LastAction:     br.lastAction,
			LastActionTime: br.lastActionTime,
		})
		br.mu.Unlock()
	}

	return st
}
