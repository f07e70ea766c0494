package session

import (
	"sync"

	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
)

// ResultStore receives final submissions as they arrive.
type ResultStore interface {
	SaveResult(result domain.StudentResult) error
}

// ScoreSink receives live per-team point deltas.
type ScoreSink interface {
	Apply(team string, points int)
}

// ExamSource supplies the snapshot sent to a freshly connected student.
type ExamSource interface {
	Exams() ([]domain.Exam, error)
}

// Teacher is the teacher-side peer session: one listening identity fanning
// out to many student connections. All roster and score state lives here
// and is destroyed by Teardown.
type Teacher struct {
	listener Listener
	results  ResultStore
	scores   ScoreSink
	exams    ExamSource
	log      zerolog.Logger

	mu         sync.Mutex
	conns      map[Conn]domain.PeerMeta
	teamCounts map[string]int
	closed     bool
	done       chan struct{}
}

func NewTeacher(listener Listener, results ResultStore, scores ScoreSink, exams ExamSource, log zerolog.Logger) *Teacher {
	return &Teacher{
		listener:   listener,
		results:    results,
		scores:     scores,
		exams:      exams,
		log:        log.With().Str("component", "teacher-session").Logger(),
		conns:      make(map[Conn]domain.PeerMeta),
		teamCounts: make(map[string]int),
		done:       make(chan struct{}),
	}
}

// Start begins accepting student connections. It returns immediately; the
// accept loop runs until Teardown closes the listener.
func (t *Teacher) Start() {
	go func() {
		for conn := range t.listener.Accept() {
			t.admit(conn)
		}
	}()
}

// Code returns the room code students enter to join.
func (t *Teacher) Code() string { return t.listener.Code() }

// NetworkStatus reports the broker link state.
func (t *Teacher) NetworkStatus() NetworkStatus { return t.listener.Status() }

func (t *Teacher) admit(conn Conn) {
	meta := conn.Meta()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	t.conns[conn] = meta
	if meta.Team != "" {
		t.teamCounts[meta.Team]++
	}
	t.mu.Unlock()

	t.log.Info().Str("student", meta.Name).Str("team", meta.Team).Msg("student connected")

	// One snapshot immediately after the handshake: the RUNNING exam if any,
	// otherwise the first known exam as a preview.
	if snapshot, ok := t.snapshotForNewcomer(); ok {
		if err := conn.Send(protocol.SyncExam{Exam: snapshot}); err != nil {
			t.log.Warn().Err(err).Str("student", meta.Name).Msg("initial sync failed")
		}
	}

	go t.readLoop(conn, meta)
}

func (t *Teacher) snapshotForNewcomer() (domain.Exam, bool) {
	exams, err := t.exams.Exams()
	if err != nil {
		t.log.Warn().Err(err).Msg("loading exams for sync")
		return domain.Exam{}, false
	}
	for _, exam := range exams {
		if exam.Status == domain.StatusRunning {
			return exam, true
		}
	}
	if len(exams) > 0 {
		return exams[0], true
	}
	return domain.Exam{}, false
}

func (t *Teacher) readLoop(conn Conn, meta domain.PeerMeta) {
	for msg := range conn.Inbound() {
		switch m := msg.(type) {
		case protocol.SubmitResult:
			if err := t.results.SaveResult(m.Result); err != nil {
				t.log.Error().Err(err).Str("student", m.Result.StudentName).Msg("saving result")
			}
		case protocol.LiveScoreUpdate:
			t.scores.Apply(m.Team, m.Points)
		default:
			t.log.Warn().Str("type", msg.Kind()).Msg("unexpected message from student")
		}
	}
	t.drop(conn, meta)
}

func (t *Teacher) drop(conn Conn, meta domain.PeerMeta) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[conn]; !ok {
		return
	}
	delete(t.conns, conn)
	if meta.Team != "" && t.teamCounts[meta.Team] > 0 {
		t.teamCounts[meta.Team]--
	}
	t.log.Info().Str("student", meta.Name).Msg("student disconnected")
}

// Broadcast sends an exam snapshot to every open connection. Connections
// that are no longer open are skipped; a stale connection is not an error.
func (t *Teacher) Broadcast(exam domain.Exam) {
	t.mu.Lock()
	conns := make([]Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	for _, conn := range conns {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.Send(protocol.SyncExam{Exam: exam}); err != nil {
			t.log.Warn().Err(err).Msg("broadcast send failed")
		}
	}
}

// ConnectedCount returns the number of live student connections.
func (t *Teacher) ConnectedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// TeamCounts returns a copy of the per-team membership counters.
func (t *Teacher) TeamCounts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[string]int, len(t.teamCounts))
	for team, n := range t.teamCounts {
		counts[team] = n
	}
	return counts
}

// Roster returns the declared metadata of every connected student.
func (t *Teacher) Roster() []domain.PeerMeta {
	t.mu.Lock()
	defer t.mu.Unlock()
	roster := make([]domain.PeerMeta, 0, len(t.conns))
	for _, meta := range t.conns {
		roster = append(roster, meta)
	}
	return roster
}

// Teardown destroys the listening identity and every student connection.
// Calling it again, or on a session that never started, is a no-op.
func (t *Teacher) Teardown() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conns := make([]Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.conns = make(map[Conn]domain.PeerMeta)
	t.teamCounts = make(map[string]int)
	close(t.done)
	t.mu.Unlock()

	_ = t.listener.Close()
	for _, conn := range conns {
		_ = conn.Close()
	}
	t.log.Info().Msg("teacher session torn down")
}
