package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no teacher is listening on a room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNetworkUnreachable is returned for transport-level dial failures.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrNameRequired is returned when a student joins without a name.
	ErrNameRequired = errors.New("student name required")
	// ErrCodeRequired is returned when a student joins without a room code.
	ErrCodeRequired = errors.New("room code required")
	// ErrExamNotFound indicates the exam could not be loaded.
	ErrExamNotFound = errors.New("exam not found")
	// ErrConfirmationRequired guards destructive exam deletion.
	ErrConfirmationRequired = errors.New("deletion requires confirmation")
	// ErrNotConnected is returned when sending without an open connection.
	ErrNotConnected = errors.New("not connected to teacher")
	// ErrNoQuestions rejects saving an exam without any questions.
	ErrNoQuestions = errors.New("exam has no questions")
	// ErrTitleRequired rejects saving an exam without a title.
	ErrTitleRequired = errors.New("exam title required")
)
