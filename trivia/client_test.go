package main

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	. "gopkg.in/check.v1"
)

type ClientSuite struct{}

var _ = Suite(&ClientSuite{})

func (s *ClientSuite) TestLoginSuccess(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		c.Check(code, Equals, CodeLoginRequest)
		var req LoginRequest
		c.Check(json.Unmarshal([]byte(data), &req), IsNil)
		c.Check(req.Username, Equals, "alice")
		return CodeLoginResponse, StatusResponse{Status: statusSuccess}
	})

	c.Assert(client.Login("alice", "secret"), IsNil)
	c.Check(client.State(), Equals, Lobby)
	c.Check(client.Username(), Equals, "alice")
}

func (s *ClientSuite) TestLoginRejectedKeepsState(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		return CodeLoginResponse, StatusResponse{Status: statusFailure}
	})

	err := client.Login("alice", "wrong")
	c.Assert(err, NotNil)
	c.Check(errors.Is(err, errRejected), Equals, true)
	c.Check(client.State(), Equals, LoggedOut)
	c.Check(client.Username(), Equals, "")
}

func (s *ClientSuite) TestLoginErrorPayloadKeepsState(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		return CodeErrorResponse, "No such user"
	})

	err := client.Login("nobody", "secret")
	c.Assert(err, NotNil)
	var srvErr *ServerError
	c.Check(errors.As(err, &srvErr), Equals, true)
	c.Check(srvErr.Message, Equals, "No such user")
	c.Check(client.State(), Equals, LoggedOut)
}

func (s *ClientSuite) TestSignupIsAlsoLogin(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		c.Check(code, Equals, CodeSignupRequest)
		var req SignupRequest
		c.Check(json.Unmarshal([]byte(data), &req), IsNil)
		c.Check(req.Email, Equals, "bob@example.com")
		return CodeSignupResponse, StatusResponse{Status: statusSuccess}
	})

	c.Assert(client.Signup("bob", "secret", "bob@example.com"), IsNil)
	c.Check(client.State(), Equals, Lobby)
	c.Check(client.Username(), Equals, "bob")
}

func (s *ClientSuite) TestOperationsCheckState(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)

	c.Check(client.Logout(), ErrorMatches, "logout not allowed while LOGGED_OUT")
	c.Check(client.StartGame(), ErrorMatches, "start game not allowed while LOGGED_OUT")
	c.Check(client.LeaveRoom(), ErrorMatches, "leave room not allowed while LOGGED_OUT")
	_, err := client.HighScores()
	c.Check(err, ErrorMatches, "high scores not allowed while LOGGED_OUT")
}

func (s *ClientSuite) TestListRoomsSkipsStartedGames(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeGetRoomsRequest:
			return CodeGetRoomsResponse, GetRoomsResponse{
				Status: statusSuccess,
				Rooms: []RoomData{
					{ID: 1, State: roomStateOpen, Name: "open", MaxPlayers: 4},
					{ID: 2, State: roomStateStarted, Name: "busy", MaxPlayers: 4},
				},
			}
		case CodeGetPlayersInRoomRequest:
			return CodeGetPlayersInRoomResponse, GetPlayersInRoomResponse{
				Status: statusSuccess, Players: []string{"alice", "bob"},
			}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	listings, err := client.ListRooms()
	c.Assert(err, IsNil)
	c.Assert(listings, HasLen, 1)
	c.Check(listings[0].Room.ID, Equals, 1)
	c.Check(listings[0].Players, DeepEquals, []string{"alice", "bob"})
}

func (s *ClientSuite) TestRoomListPolling(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomsRequest:
			return CodeGetRoomsResponse, GetRoomsResponse{
				Status: statusSuccess,
				Rooms:  []RoomData{{ID: 9, State: roomStateOpen, Name: "lounge"}},
			}
		case CodeGetPlayersInRoomRequest:
			return CodeGetPlayersInRoomResponse, GetPlayersInRoomResponse{
				Status: statusSuccess, Players: []string{"alice"},
			}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("alice", "secret"), IsNil)
	client.StartRoomListPolling()
	ev := waitForEventType(c, client, RoomList{}).(RoomList)
	c.Assert(ev.Rooms, HasLen, 1)
	c.Check(ev.Rooms[0].Room.Name, Equals, "lounge")
	client.StopRoomListPolling()
}

func (s *ClientSuite) TestCreateRoomBecomesAdmin(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeCreateRoomRequest:
			var req CreateRoomRequest
			c.Check(json.Unmarshal([]byte(data), &req), IsNil)
			c.Check(req.RoomName, Equals, "friday")
			c.Check(req.MaxUsers, Equals, uint(5))
			c.Check(req.QuestionCount, Equals, uint(10))
			c.Check(req.AnswerTimeout, Equals, uint(20))
			return CodeCreateRoomResponse, CreateRoomResponse{Status: statusSuccess, RoomID: 7}
		case CodeGetRoomStateRequest:
			return CodeGetRoomStateResponse, GetRoomStateResponse{
				Status:        statusSuccess,
				State:         roomStateOpen,
				QuestionCount: 10,
				AnswerTimeout: 20,
				Players:       []string{"alice"},
			}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("alice", "secret"), IsNil)
	c.Assert(client.CreateRoom("friday", 5, 10, 20), IsNil)
	c.Check(client.State(), Equals, AwaitingRoom)
	c.Check(client.IsAdmin(), Equals, true)
	c.Check(client.Room().ID, Equals, 7)

	snapshot := waitForEventType(c, client, RoomSnapshot{}).(RoomSnapshot)
	c.Check(snapshot.Players, DeepEquals, []string{"alice"})
	c.Check(snapshot.QuestionCount, Equals, 10)
}

func (s *ClientSuite) TestMemberObservesRoomClosed(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	var statePolls int32
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomsRequest:
			return CodeGetRoomsResponse, GetRoomsResponse{
				Status: statusSuccess,
				Rooms:  []RoomData{{ID: 3, State: roomStateOpen, Name: "doomed"}},
			}
		case CodeJoinRoomRequest:
			return CodeJoinRoomResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomStateRequest:
			if atomic.AddInt32(&statePolls, 1) < 3 {
				return CodeGetRoomStateResponse, GetRoomStateResponse{
					Status: statusSuccess, State: roomStateOpen, Players: []string{"bob"},
				}
			}
			return CodeGetRoomStateResponse, GetRoomStateResponse{
				Status: statusSuccess, State: roomStateClosed,
			}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("bob", "secret"), IsNil)
	c.Assert(client.JoinRoom(3), IsNil)
	c.Check(client.IsAdmin(), Equals, false)

	waitForEventType(c, client, RoomClosed{})
	waitForState(c, client, Lobby)
	c.Check(client.Room(), Equals, RoomData{})

	// The room state poller retired itself on the closed observation.
	settled := atomic.LoadInt32(&statePolls)
	time.Sleep(30 * time.Millisecond)
	c.Check(atomic.LoadInt32(&statePolls), Equals, settled)
}

func (s *ClientSuite) TestJoinUnknownRoom(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomsRequest:
			return CodeGetRoomsResponse, GetRoomsResponse{Status: statusSuccess}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("bob", "secret"), IsNil)
	c.Check(client.JoinRoom(42), ErrorMatches, "join room: no room with id 42")
	c.Check(client.State(), Equals, Lobby)
}

func (s *ClientSuite) TestLeaveRoomReturnsToLobby(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomsRequest:
			return CodeGetRoomsResponse, GetRoomsResponse{
				Status: statusSuccess,
				Rooms:  []RoomData{{ID: 3, State: roomStateOpen, Name: "brief"}},
			}
		case CodeJoinRoomRequest:
			return CodeJoinRoomResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomStateRequest:
			return CodeGetRoomStateResponse, GetRoomStateResponse{
				Status: statusSuccess, State: roomStateOpen,
			}
		case CodeLeaveRoomRequest:
			return CodeLeaveRoomResponse, StatusResponse{Status: statusSuccess}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("bob", "secret"), IsNil)
	c.Assert(client.JoinRoom(3), IsNil)
	c.Assert(client.LeaveRoom(), IsNil)
	c.Check(client.State(), Equals, Lobby)
	c.Check(client.Room(), Equals, RoomData{})
}

func (s *ClientSuite) TestCloseRoomRequiresAdmin(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomsRequest:
			return CodeGetRoomsResponse, GetRoomsResponse{
				Status: statusSuccess,
				Rooms:  []RoomData{{ID: 3, State: roomStateOpen, Name: "other"}},
			}
		case CodeJoinRoomRequest:
			return CodeJoinRoomResponse, StatusResponse{Status: statusSuccess}
		case CodeGetRoomStateRequest:
			return CodeGetRoomStateResponse, GetRoomStateResponse{
				Status: statusSuccess, State: roomStateOpen,
			}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("bob", "secret"), IsNil)
	c.Assert(client.JoinRoom(3), IsNil)
	c.Check(client.CloseRoom(), ErrorMatches, "close room: only the room admin may close")
	c.Check(client.StartGame(), ErrorMatches, "start game: only the room admin may start")
	c.Check(client.State(), Equals, AwaitingRoom)
}

func (s *ClientSuite) TestStatistics(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeGetHighScoreRequest:
			return CodeGetHighScoreResponse, StatisticsResponse{
				Status:     statusSuccess,
				Statistics: []string{"alice: 9500", "bob: 8700"},
			}
		case CodeGetPersonalStatsRequest:
			return CodeGetPersonalStatsResponse, StatisticsResponse{
				Status:     statusSuccess,
				Statistics: []string{"games: 12", "correct: 80"},
			}
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("alice", "secret"), IsNil)
	top, err := client.HighScores()
	c.Assert(err, IsNil)
	c.Check(top, DeepEquals, []string{"alice: 9500", "bob: 8700"})
	mine, err := client.PersonalStats()
	c.Assert(err, IsNil)
	c.Check(mine, DeepEquals, []string{"games: 12", "correct: 80"})
}

func (s *ClientSuite) TestTransportFailureDisconnects(c *C) {
	conn := NewFakeConn()
	client := newTestClient(conn)
	conn.serve(func(code Code, data string) (Code, interface{}) {
		switch code {
		case CodeLoginRequest:
			return CodeLoginResponse, StatusResponse{Status: statusSuccess}
		case CodeLogoutRequest:
			conn.Close()
			return CodeLogoutResponse, nil
		default:
			c.Errorf("unexpected request %v", code)
			return CodeErrorResponse, "unexpected"
		}
	})

	c.Assert(client.Login("alice", "secret"), IsNil)
	err := client.Logout()
	c.Assert(err, NotNil)
	c.Check(isTransport(err), Equals, true)
	waitForEventType(c, client, Disconnected{})
	c.Check(client.State(), Equals, LoggedOut)
}
