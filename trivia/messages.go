package main

import (
	"encoding/json"
	"fmt"
	"log"
)

// Code is the protocol opcode carried in every frame header. The numbering is
// owned by the server; request/response pairs are adjacent, with the generic
// error response usable in place of any expected response.
type Code byte

const (
	CodeLoginRequest Code = iota
	CodeLoginResponse
	CodeSignupRequest
	CodeSignupResponse
	CodeErrorResponse
	CodeLogoutRequest
	CodeLogoutResponse
	CodeGetPlayersInRoomRequest
	CodeGetPlayersInRoomResponse
	CodeJoinRoomRequest
	CodeJoinRoomResponse
	CodeCreateRoomRequest
	CodeCreateRoomResponse
	CodeGetRoomsRequest
	CodeGetRoomsResponse
	CodeGetHighScoreRequest
	CodeGetHighScoreResponse
	CodeGetPersonalStatsRequest
	CodeGetPersonalStatsResponse
	CodeCloseRoomRequest
	CodeCloseRoomResponse
	CodeStartGameRequest
	CodeStartGameResponse
	CodeGetRoomStateRequest
	CodeGetRoomStateResponse
	CodeLeaveRoomRequest
	CodeLeaveRoomResponse
	CodeSubmitAnswerRequest
	CodeSubmitAnswerResponse
	CodeGetQuestionRequest
	CodeGetQuestionResponse
	CodeGetGameResultsRequest
	CodeGetGameResultsResponse
	CodeLeaveGameRequest
	CodeLeaveGameResponse
)

// Server status values shared by every response.
const (
	statusFailure = 0
	statusSuccess = 1

	// A question response with a failure status means the game has ended; a
	// submit response with a failure status means not everyone answered yet.
	statusGameEnded = statusFailure

	// noAnswer is the sentinel answer id submitted when the countdown runs
	// out before the user picks anything.
	noAnswer = -1
)

// Room states as reported by the server.
const (
	roomStateOpen = iota
	roomStateClosed
	roomStateStarted
)

// Request payloads. Field names are the server's schema and case-sensitive.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type GetPlayersInRoomRequest struct {
	RoomID int `json:"roomId"`
}

type JoinRoomRequest struct {
	RoomID int `json:"roomId"`
}

type CreateRoomRequest struct {
	RoomName      string `json:"roomName"`
	MaxUsers      uint   `json:"maxUsers"`
	QuestionCount uint   `json:"questionCount"`
	AnswerTimeout uint   `json:"answerTimeout"`
}

type SubmitAnswerRequest struct {
	AnswerID int `json:"answerId"`
}

// Response payloads.

// StatusResponse covers the many responses that carry nothing but a status:
// login, signup, logout, join room, close room, start game, leave room and
// leave game.
type StatusResponse struct {
	Status int `json:"status"`
}

// RoomData is the immutable per-poll snapshot of one room. The client never
// mutates it, only replaces it with the next snapshot.
type RoomData struct {
	ID              int    `json:"id"`
	State           int    `json:"state"`
	MaxPlayers      int    `json:"maxPlayers"`
	Name            string `json:"name"`
	QuestionCount   int    `json:"numOfQuestionsInGame"`
	TimePerQuestion int    `json:"timePerQuestion"`
}

type GetRoomsResponse struct {
	Status int        `json:"status"`
	Rooms  []RoomData `json:"Rooms"`
}

type GetPlayersInRoomResponse struct {
	Status  int      `json:"status"`
	Players []string `json:"players"`
}

type CreateRoomResponse struct {
	Status int `json:"status"`
	RoomID int `json:"roomId"`
}

type GetRoomStateResponse struct {
	Status        int      `json:"status"`
	QuestionCount int      `json:"questionCount"`
	AnswerTimeout int      `json:"answerTimeout"`
	State         int      `json:"state"`
	Players       []string `json:"players"`
}

// GetQuestionResponse carries the answers as a JSON object keyed by the
// stringified answer id ("0".."3").
type GetQuestionResponse struct {
	Status   int            `json:"status"`
	Question string         `json:"question"`
	Answers  map[int]string `json:"answers"`
}

type SubmitAnswerResponse struct {
	Status          int `json:"status"`
	CorrectAnswerID int `json:"correctAnswerId"`
}

type PlayerResults struct {
	Username           string `json:"username"`
	CorrectAnswerCount uint   `json:"correctAnswerCount"`
	WrongAnswerCount   uint   `json:"wrongAnswerCount"`
	AverageAnswerTime  uint   `json:"averageAnswerTime"`
	HasRetired         uint   `json:"hasRetired"`
}

type GetGameResultsResponse struct {
	Status  int             `json:"status"`
	Results []PlayerResults `json:"results"`
}

// StatisticsResponse covers both the high score and the personal stats
// responses, which share a shape.
type StatisticsResponse struct {
	Status     int      `json:"status"`
	Statistics []string `json:"statistics"`
}

// ServerError is the generic error the server may return in place of any
// expected response. Its payload is a plain human-readable string, not JSON.
type ServerError struct {
	Code    Code
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

func marshalRequest(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		// All request types are plain structs of strings and integers.
		log.Fatalf("Implementation error: cannot marshal %T: %v", v, err)
	}
	return payload
}

// decodeResponse resolves a received envelope into either the expected record
// (parsed into out) or a *ServerError holding the error payload. A payload
// that does not parse structurally is treated as the plain error string the
// server sends on unexpected shapes.
func decodeResponse(info *ResponseInfo, want Code, out interface{}) error {
	if info.Code != want {
		return &ServerError{Code: info.Code, Message: info.Data}
	}
	if err := json.Unmarshal([]byte(info.Data), out); err != nil {
		return &ServerError{Code: info.Code, Message: info.Data}
	}
	return nil
}

// orderedAnswers flattens the id-keyed answer map into display order. Missing
// ids leave gaps empty rather than shifting later answers.
func orderedAnswers(answers map[int]string) []string {
	max := -1
	for id := range answers {
		if id > max {
			max = id
		}
	}
	ordered := make([]string, max+1)
	for id, text := range answers {
		if id >= 0 {
			ordered[id] = text
		}
	}
	return ordered
}

func (c Code) String() string {
	names := map[Code]string{
		CodeLoginRequest:             "LOGIN_REQUEST",
		CodeLoginResponse:            "LOGIN_RESPONSE",
		CodeSignupRequest:            "SIGNUP_REQUEST",
		CodeSignupResponse:           "SIGNUP_RESPONSE",
		CodeErrorResponse:            "ERROR_RESPONSE",
		CodeLogoutRequest:            "LOGOUT_REQUEST",
		CodeLogoutResponse:           "LOGOUT_RESPONSE",
		CodeGetPlayersInRoomRequest:  "GET_PLAYERS_IN_ROOM_REQUEST",
		CodeGetPlayersInRoomResponse: "GET_PLAYERS_IN_ROOM_RESPONSE",
		CodeJoinRoomRequest:          "JOIN_ROOM_REQUEST",
		CodeJoinRoomResponse:         "JOIN_ROOM_RESPONSE",
		CodeCreateRoomRequest:        "CREATE_ROOM_REQUEST",
		CodeCreateRoomResponse:       "CREATE_ROOM_RESPONSE",
		CodeGetRoomsRequest:          "GET_ROOMS_REQUEST",
		CodeGetRoomsResponse:         "GET_ROOMS_RESPONSE",
		CodeGetHighScoreRequest:      "GET_HIGH_SCORE_REQUEST",
		CodeGetHighScoreResponse:     "GET_HIGH_SCORE_RESPONSE",
		CodeGetPersonalStatsRequest:  "GET_PERSONAL_STATS_REQUEST",
		CodeGetPersonalStatsResponse: "GET_PERSONAL_STATS_RESPONSE",
		CodeCloseRoomRequest:         "CLOSE_ROOM_REQUEST",
		CodeCloseRoomResponse:        "CLOSE_ROOM_RESPONSE",
		CodeStartGameRequest:         "START_GAME_REQUEST",
		CodeStartGameResponse:        "START_GAME_RESPONSE",
		CodeGetRoomStateRequest:      "GET_ROOM_STATE_REQUEST",
		CodeGetRoomStateResponse:     "GET_ROOM_STATE_RESPONSE",
		CodeLeaveRoomRequest:         "LEAVE_ROOM_REQUEST",
		CodeLeaveRoomResponse:        "LEAVE_ROOM_RESPONSE",
		CodeSubmitAnswerRequest:      "SUBMIT_ANSWER_REQUEST",
		CodeSubmitAnswerResponse:     "SUBMIT_ANSWER_RESPONSE",
		CodeGetQuestionRequest:       "GET_QUESTION_REQUEST",
		CodeGetQuestionResponse:      "GET_QUESTION_RESPONSE",
		CodeGetGameResultsRequest:    "GET_GAME_RESULTS_REQUEST",
		CodeGetGameResultsResponse:   "GET_GAME_RESULTS_RESPONSE",
		CodeLeaveGameRequest:         "LEAVE_GAME_REQUEST",
		CodeLeaveGameResponse:        "LEAVE_GAME_RESPONSE",
	}
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_CODE_%d", byte(c))
}
