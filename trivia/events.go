package main

import "time"

// Event is what the core hands to the presentation layer. Events are
// immutable snapshots; the subscriber never shares memory with the state
// machine.
type Event interface{ isEvent() }

// RoomListing pairs one open room with its current occupants.
type RoomListing struct {
	Room    RoomData
	Players []string
}

// RoomList is emitted by the lobby poller with every refresh.
type RoomList struct {
	Rooms []RoomListing
}

// RoomSnapshot is emitted by the room-state poller while waiting for the
// game to start.
type RoomSnapshot struct {
	QuestionCount int
	AnswerTimeout int
	Players       []string
}

// RoomClosed means the admin closed the room; the client is back in the lobby.
type RoomClosed struct{}

// GameStarted announces the transition into the question loop.
type GameStarted struct{}

// Question starts one round. Answers are in display order; Deadline is when
// the no-answer sentinel will be submitted.
type Question struct {
	Round    int
	Total    int
	Text     string
	Answers  []string
	Deadline time.Time
}

// CountdownTick fires once per second while a question is open.
type CountdownTick struct {
	Remaining int
}

// AnswerResult closes one round. Selected is noAnswer when the countdown ran
// out before the user picked.
type AnswerResult struct {
	Selected        int
	CorrectAnswerID int
}

type LeaderboardEntry struct {
	Username string
	Score    uint
}

// Leaderboard is the between-rounds standing, ranked best first.
type Leaderboard struct {
	Entries []LeaderboardEntry
}

// GameOver carries the final standings.
type GameOver struct {
	Entries []LeaderboardEntry
}

// Notice is a user-visible message for a failed operation. The state machine
// has not advanced.
type Notice struct {
	Text string
}

// Disconnected means the connection is gone for good; the session must be
// re-dialed.
type Disconnected struct {
	Reason string
}

func (RoomList) isEvent()      {}
func (RoomSnapshot) isEvent()  {}
func (RoomClosed) isEvent()    {}
func (GameStarted) isEvent()   {}
func (Question) isEvent()      {}
func (CountdownTick) isEvent() {}
func (AnswerResult) isEvent()  {}
func (Leaderboard) isEvent()   {}
func (GameOver) isEvent()      {}
func (Notice) isEvent()        {}
func (Disconnected) isEvent()  {}
