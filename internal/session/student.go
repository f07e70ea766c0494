package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
	"exam-arena/internal/room"
)

// ConnStatus is the student's view of its single teacher connection.
type ConnStatus string

const (
	Disconnected ConnStatus = "DISCONNECTED"
	Connecting   ConnStatus = "CONNECTING"
	Connected    ConnStatus = "CONNECTED"
)

// Student is the student-side peer session: one outbound connection to a
// teacher's rendezvous address. Snapshots are surfaced on a channel; sends
// are fire-and-forget.
type Student struct {
	dialer Dialer
	log    zerolog.Logger

	mu     sync.Mutex
	status ConnStatus
	conn   Conn
	meta   domain.PeerMeta

	snapshots chan domain.Exam
	lost      chan struct{}
}

func NewStudent(dialer Dialer, log zerolog.Logger) *Student {
	return &Student{
		dialer:    dialer,
		log:       log.With().Str("component", "student-session").Logger(),
		status:    Disconnected,
		snapshots: make(chan domain.Exam, 4),
		lost:      make(chan struct{}, 1),
	}
}

// Snapshots yields exam snapshots pushed by the teacher.
func (s *Student) Snapshots() <-chan domain.Exam { return s.snapshots }

// Lost signals that the teacher connection closed unexpectedly. The exam
// session is not abandoned; the caller decides what to show.
func (s *Student) Lost() <-chan struct{} { return s.lost }

// Status returns the current connection status.
func (s *Student) Status() ConnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Join validates inputs, tears down any prior connection, and dials the
// teacher at the address derived from code. Dial failures resolve the
// session back to Disconnected and are classified so the caller can show a
// specific hint for an unknown room versus a general network problem.
func (s *Student) Join(ctx context.Context, name, team, code string) error {
	code = room.NormalizeCode(code)
	if name == "" {
		return domain.ErrNameRequired
	}
	if code == "" {
		return domain.ErrCodeRequired
	}

	s.Close()

	s.mu.Lock()
	s.status = Connecting
	s.meta = domain.PeerMeta{Name: name, Team: team}
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, room.Address(code), domain.PeerMeta{Name: name, Team: team})
	if err != nil {
		s.mu.Lock()
		s.status = Disconnected
		s.mu.Unlock()
		if errors.Is(err, domain.ErrRoomNotFound) {
			return fmt.Errorf("no teacher is hosting room %q: %w", code, domain.ErrRoomNotFound)
		}
		return fmt.Errorf("connecting to room %q: %w", code, domain.ErrNetworkUnreachable)
	}

	s.mu.Lock()
	s.conn = conn
	s.status = Connected
	s.mu.Unlock()
	s.log.Info().Str("room", code).Str("team", team).Msg("joined room")

	go s.readLoop(conn)
	return nil
}

func (s *Student) readLoop(conn Conn) {
	for msg := range conn.Inbound() {
		sync, ok := msg.(protocol.SyncExam)
		if !ok {
			s.log.Warn().Str("type", msg.Kind()).Msg("unexpected message from teacher")
			continue
		}
		select {
		case s.snapshots <- sync.Exam:
		default:
			// Snapshots are full replacements; drop the oldest.
			select {
			case <-s.snapshots:
			default:
			}
			s.snapshots <- sync.Exam
		}
	}

	s.mu.Lock()
	wasCurrent := s.conn == conn
	if wasCurrent {
		s.conn = nil
		s.status = Disconnected
	}
	s.mu.Unlock()

	if wasCurrent {
		s.log.Warn().Msg("teacher connection lost")
		select {
		case s.lost <- struct{}{}:
		default:
		}
	}
}

// SendLiveScore emits one team point delta. No acknowledgement, no retry.
func (s *Student) SendLiveScore(team string, points int) error {
	return s.send(protocol.LiveScoreUpdate{Team: team, Points: points})
}

// SendResult submits the final graded result.
func (s *Student) SendResult(result domain.StudentResult) error {
	return s.send(protocol.SubmitResult{Result: result})
}

// IsConnected reports whether a teacher connection is currently open.
func (s *Student) IsConnected() bool {
	return s.Status() == Connected
}

func (s *Student) send(msg protocol.Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil || !conn.IsOpen() {
		return domain.ErrNotConnected
	}
	return conn.Send(msg)
}

// Close tears down the current connection, if any. Idempotent; joining
// again never leaks a prior connection.
func (s *Student) Close() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.status = Disconnected
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
