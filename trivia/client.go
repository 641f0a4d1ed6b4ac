package main

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// State is where the client currently sits in the session lifecycle. Every
// transition is driven by a server response or a poll observation, never by
// local assumption.
type State int

const (
	LoggedOut State = iota
	Lobby
	AwaitingRoom
	InGame
	ShowingResults
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "LOGGED_OUT"
	case Lobby:
		return "LOBBY"
	case AwaitingRoom:
		return "AWAITING_ROOM"
	case InGame:
		return "IN_GAME"
	case ShowingResults:
		return "SHOWING_RESULTS"
	default:
		log.Fatalf("Unknown State: %d", int(s))
	}
	// Never here
	return ""
}

// errRejected marks a response whose status said failure. The operation did
// not happen; the state machine stays put and the user may repeat the action.
var errRejected = errors.New("rejected by server")

// Client is the session state machine. It owns the identity fields for the
// lifetime of a room/game session and funnels every exchange through the one
// shared Session.
type Client struct {
	session *Session

	mu       sync.Mutex
	state    State
	username string
	isAdmin  bool
	room     RoomData
	lost     bool

	listPoller  *Poller
	statePoller *Poller
	game        *gameLoop

	answerCh chan int
	events   chan Event

	pollInterval   time.Duration
	tick           time.Duration
	interRoundWait time.Duration
}

func NewClient(session *Session) *Client {
	return &Client{
		session:        session,
		state:          LoggedOut,
		answerCh:       make(chan int, 1),
		events:         make(chan Event, 32),
		pollInterval:   defaultPollInterval,
		tick:           time.Second,
		interRoundWait: 3 * time.Second,
	}
}

// Events is the channel the presentation layer subscribes to. A subscriber
// that stops draining loses events rather than blocking the core.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) SetPollInterval(d time.Duration) {
	c.pollInterval = d
}

// SetTickInterval scales the one-second countdown unit, for tests.
func (c *Client) SetTickInterval(d time.Duration) {
	c.tick = d
}

func (c *Client) SetInterRoundWait(d time.Duration) {
	c.interRoundWait = d
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) IsAdmin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAdmin
}

// Room returns the snapshot of the room the client is in or waiting in.
func (c *Client) Room() RoomData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("Dropping %T event: subscriber too slow", ev)
	}
}

// call performs one exchange and folds transport failures into the
// disconnect path. Server-level failures come back from decodeResponse, not
// from here.
func (c *Client) call(code Code, payload []byte) (*ResponseInfo, error) {
	info, err := c.session.Call(code, payload)
	if err != nil {
		return nil, c.fatalDisconnect(err)
	}
	return info, nil
}

// fatalDisconnect tears the session down after an unrecoverable transport
// error. Background loops are cancelled and retire on their own; only the
// first caller emits the Disconnected event.
func (c *Client) fatalDisconnect(err error) error {
	c.session.Close()
	c.mu.Lock()
	first := !c.lost
	c.lost = true
	c.state = LoggedOut
	c.username = ""
	c.isAdmin = false
	c.room = RoomData{}
	lp, sp, g := c.listPoller, c.statePoller, c.game
	c.listPoller, c.statePoller, c.game = nil, nil, nil
	c.mu.Unlock()
	if lp != nil {
		lp.Stop()
	}
	if sp != nil {
		sp.Stop()
	}
	if g != nil {
		g.cancel()
	}
	if first {
		log.Printf("Connection lost: %v", err)
		c.emit(Disconnected{Reason: err.Error()})
	}
	return err
}

// isTransport reports whether err came from the connection rather than from
// the server's reply. Transport errors have already torn the session down.
func isTransport(err error) bool {
	var srvErr *ServerError
	return !errors.As(err, &srvErr) && !errors.Is(err, errRejected)
}

func (c *Client) requireState(op string, allowed ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%s not allowed while %v", op, c.state)
}

// Login authenticates and moves LoggedOut → Lobby. A rejected login keeps
// the state and is reported for the user to retry.
func (c *Client) Login(username, password string) error {
	if err := c.requireState("login", LoggedOut); err != nil {
		return err
	}
	info, err := c.call(CodeLoginRequest, marshalRequest(LoginRequest{Username: username, Password: password}))
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeLoginResponse, &resp); err != nil {
		return err
	}
	if resp.Status != statusSuccess {
		return fmt.Errorf("login: %w", errRejected)
	}
	c.mu.Lock()
	c.username = username
	c.state = Lobby
	c.mu.Unlock()
	log.Printf("Logged in as %q", username)
	return nil
}

// Signup registers a new account; a successful signup is also a login.
func (c *Client) Signup(username, password, email string) error {
	if err := c.requireState("signup", LoggedOut); err != nil {
		return err
	}
	info, err := c.call(CodeSignupRequest, marshalRequest(SignupRequest{Username: username, Password: password, Email: email}))
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeSignupResponse, &resp); err != nil {
		return err
	}
	if resp.Status != statusSuccess {
		return fmt.Errorf("signup: %w", errRejected)
	}
	c.mu.Lock()
	c.username = username
	c.state = Lobby
	c.mu.Unlock()
	log.Printf("Signed up as %q", username)
	return nil
}

func (c *Client) Logout() error {
	if err := c.requireState("logout", Lobby); err != nil {
		return err
	}
	c.StopRoomListPolling()
	info, err := c.call(CodeLogoutRequest, nil)
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeLogoutResponse, &resp); err != nil {
		return err
	}
	if resp.Status == statusFailure {
		return fmt.Errorf("logout: %w", errRejected)
	}
	c.mu.Lock()
	c.username = ""
	c.state = LoggedOut
	c.mu.Unlock()
	return nil
}

func (c *Client) fetchRooms() ([]RoomData, error) {
	info, err := c.call(CodeGetRoomsRequest, nil)
	if err != nil {
		return nil, err
	}
	var resp GetRoomsResponse
	if err := decodeResponse(info, CodeGetRoomsResponse, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) PlayersInRoom(roomID int) ([]string, error) {
	info, err := c.call(CodeGetPlayersInRoomRequest, marshalRequest(GetPlayersInRoomRequest{RoomID: roomID}))
	if err != nil {
		return nil, err
	}
	var resp GetPlayersInRoomResponse
	if err := decodeResponse(info, CodeGetPlayersInRoomResponse, &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

// ListRooms fetches the joinable rooms with their occupants. Rooms whose
// game already started are filtered out.
func (c *Client) ListRooms() ([]RoomListing, error) {
	rooms, err := c.fetchRooms()
	if err != nil {
		return nil, err
	}
	listings := make([]RoomListing, 0, len(rooms))
	for _, room := range rooms {
		if room.State == roomStateStarted {
			continue
		}
		players, err := c.PlayersInRoom(room.ID)
		if err != nil {
			if isTransport(err) {
				return nil, err
			}
			// The room is still listed, just without occupant names.
			players = nil
		}
		listings = append(listings, RoomListing{Room: room, Players: players})
	}
	return listings, nil
}

// StartRoomListPolling begins the 1s lobby refresh, emitting RoomList
// events. No-op outside the lobby or when already polling.
func (c *Client) StartRoomListPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listPoller != nil || c.state != Lobby {
		return
	}
	c.listPoller = startPoller("room list", c.pollInterval, func() bool {
		if c.State() != Lobby {
			return false
		}
		rooms, err := c.ListRooms()
		if err != nil {
			if isTransport(err) {
				return false
			}
			log.Printf("Room list poll failed: %v", err)
			return true
		}
		c.emit(RoomList{Rooms: rooms})
		return true
	})
}

func (c *Client) StopRoomListPolling() {
	c.mu.Lock()
	lp := c.listPoller
	c.listPoller = nil
	c.mu.Unlock()
	if lp != nil {
		lp.Stop()
	}
}

// CreateRoom creates a room and moves Lobby → AwaitingRoom as its admin. The
// room snapshot is assembled from the request settings plus the returned id,
// the same data the server will report back on later polls.
func (c *Client) CreateRoom(name string, maxUsers, questionCount, answerTimeout uint) error {
	if err := c.requireState("create room", Lobby); err != nil {
		return err
	}
	req := CreateRoomRequest{
		RoomName:      name,
		MaxUsers:      maxUsers,
		QuestionCount: questionCount,
		AnswerTimeout: answerTimeout,
	}
	info, err := c.call(CodeCreateRoomRequest, marshalRequest(req))
	if err != nil {
		return err
	}
	var resp CreateRoomResponse
	if err := decodeResponse(info, CodeCreateRoomResponse, &resp); err != nil {
		return err
	}
	if resp.Status != statusSuccess {
		return fmt.Errorf("create room: %w", errRejected)
	}
	c.StopRoomListPolling()
	c.enterRoom(RoomData{
		ID:              resp.RoomID,
		State:           roomStateOpen,
		MaxPlayers:      int(maxUsers),
		Name:            name,
		QuestionCount:   int(questionCount),
		TimePerQuestion: int(answerTimeout),
	}, true)
	return nil
}

// JoinRoom joins a listed room and moves Lobby → AwaitingRoom as a member.
func (c *Client) JoinRoom(roomID int) error {
	if err := c.requireState("join room", Lobby); err != nil {
		return err
	}
	rooms, err := c.fetchRooms()
	if err != nil {
		return err
	}
	var room *RoomData
	for i := range rooms {
		if rooms[i].ID == roomID {
			room = &rooms[i]
			break
		}
	}
	if room == nil {
		return fmt.Errorf("join room: no room with id %d", roomID)
	}
	info, err := c.call(CodeJoinRoomRequest, marshalRequest(JoinRoomRequest{RoomID: roomID}))
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeJoinRoomResponse, &resp); err != nil {
		return err
	}
	if resp.Status == statusFailure {
		return fmt.Errorf("join room: %w", errRejected)
	}
	c.StopRoomListPolling()
	c.enterRoom(*room, false)
	return nil
}

func (c *Client) enterRoom(room RoomData, admin bool) {
	c.mu.Lock()
	c.room = room
	c.isAdmin = admin
	c.state = AwaitingRoom
	c.statePoller = startPoller("room state", c.pollInterval, c.pollRoomState)
	c.mu.Unlock()
	log.Printf("Entered room %q (id %d, admin %v)", room.Name, room.ID, admin)
}

// pollRoomState is the AwaitingRoom refresh. It observes, never asserts: the
// room's Started/Closed transitions arrive here and nowhere else for a
// member.
func (c *Client) pollRoomState() bool {
	if c.State() != AwaitingRoom {
		return false
	}
	info, err := c.session.Call(CodeGetRoomStateRequest, nil)
	if err != nil {
		c.fatalDisconnect(err)
		return false
	}
	var resp GetRoomStateResponse
	if err := decodeResponse(info, CodeGetRoomStateResponse, &resp); err != nil {
		// One bad poll is not a state change; retried next interval.
		log.Printf("Room state poll failed: %v", err)
		return true
	}
	switch resp.State {
	case roomStateClosed:
		c.mu.Lock()
		if c.state != AwaitingRoom {
			c.mu.Unlock()
			return false
		}
		c.statePoller = nil
		c.state = Lobby
		c.isAdmin = false
		c.room = RoomData{}
		c.mu.Unlock()
		log.Printf("Room closed by admin, back to lobby")
		c.emit(RoomClosed{})
		return false
	case roomStateStarted:
		if c.beginGame() {
			c.emit(GameStarted{})
		}
		return false
	default:
		c.emit(RoomSnapshot{
			QuestionCount: resp.QuestionCount,
			AnswerTimeout: resp.AnswerTimeout,
			Players:       resp.Players,
		})
		return true
	}
}

// LeaveRoom is the member's exit back to the lobby.
func (c *Client) LeaveRoom() error {
	if err := c.requireState("leave room", AwaitingRoom); err != nil {
		return err
	}
	info, err := c.call(CodeLeaveRoomRequest, nil)
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeLeaveRoomResponse, &resp); err != nil {
		return err
	}
	if resp.Status == statusFailure {
		return fmt.Errorf("leave room: %w", errRejected)
	}
	c.exitRoom()
	return nil
}

// CloseRoom is the admin's exit: the room is torn down for everyone. Members
// observe the closure on their next poll.
func (c *Client) CloseRoom() error {
	if err := c.requireState("close room", AwaitingRoom); err != nil {
		return err
	}
	if !c.IsAdmin() {
		return errors.New("close room: only the room admin may close")
	}
	info, err := c.call(CodeCloseRoomRequest, nil)
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeCloseRoomResponse, &resp); err != nil {
		return err
	}
	if resp.Status == statusFailure {
		return fmt.Errorf("close room: %w", errRejected)
	}
	c.exitRoom()
	return nil
}

func (c *Client) exitRoom() {
	c.mu.Lock()
	sp := c.statePoller
	c.statePoller = nil
	c.state = Lobby
	c.isAdmin = false
	c.room = RoomData{}
	c.mu.Unlock()
	if sp != nil {
		sp.Stop()
	}
}

// StartGame is the admin's transition into the question loop. Members follow
// on their next room-state poll.
func (c *Client) StartGame() error {
	if err := c.requireState("start game", AwaitingRoom); err != nil {
		return err
	}
	if !c.IsAdmin() {
		return errors.New("start game: only the room admin may start")
	}
	c.mu.Lock()
	sp := c.statePoller
	c.statePoller = nil
	c.mu.Unlock()
	if sp != nil {
		sp.Stop()
		sp.Wait()
	}
	info, err := c.call(CodeStartGameRequest, nil)
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeStartGameResponse, &resp); err != nil {
		// The admin enters the game regardless of the reply body.
		log.Printf("Start game reply: %v", err)
	}
	if c.beginGame() {
		c.emit(GameStarted{})
	}
	return nil
}

// GameResults fetches the per-player results used for the live leaderboard
// and the final standings.
func (c *Client) GameResults() ([]PlayerResults, error) {
	info, err := c.call(CodeGetGameResultsRequest, nil)
	if err != nil {
		return nil, err
	}
	var resp GetGameResultsResponse
	if err := decodeResponse(info, CodeGetGameResultsResponse, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// HighScores returns the all-time top games as preformatted lines.
func (c *Client) HighScores() ([]string, error) {
	if err := c.requireState("high scores", Lobby); err != nil {
		return nil, err
	}
	return c.fetchStatistics(CodeGetHighScoreRequest, CodeGetHighScoreResponse)
}

// PersonalStats returns the logged-in user's statistics as preformatted
// lines.
func (c *Client) PersonalStats() ([]string, error) {
	if err := c.requireState("personal stats", Lobby); err != nil {
		return nil, err
	}
	return c.fetchStatistics(CodeGetPersonalStatsRequest, CodeGetPersonalStatsResponse)
}

func (c *Client) fetchStatistics(req, want Code) ([]string, error) {
	info, err := c.call(req, nil)
	if err != nil {
		return nil, err
	}
	var resp StatisticsResponse
	if err := decodeResponse(info, want, &resp); err != nil {
		return nil, err
	}
	if resp.Status == statusFailure {
		return nil, fmt.Errorf("statistics: %w", errRejected)
	}
	return resp.Statistics, nil
}

// BackToLobby leaves the results screen.
func (c *Client) BackToLobby() error {
	if err := c.requireState("back to lobby", ShowingResults); err != nil {
		return err
	}
	c.mu.Lock()
	c.state = Lobby
	c.isAdmin = false
	c.room = RoomData{}
	c.mu.Unlock()
	return nil
}
