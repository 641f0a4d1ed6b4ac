package main

import (
	"log"
	"sync"
	"time"
)

// gameLoop is the handle for the background question/answer goroutine.
type gameLoop struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newGameLoop() *gameLoop {
	return &gameLoop{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (g *gameLoop) cancel() {
	g.once.Do(func() { close(g.stop) })
}

func (g *gameLoop) wait() {
	<-g.done
}

func (g *gameLoop) stopped() bool {
	select {
	case <-g.stop:
		return true
	default:
		return false
	}
}

// sleep waits d unless the loop is cancelled first.
func (g *gameLoop) sleep(d time.Duration) bool {
	select {
	case <-g.stop:
		return false
	case <-time.After(d):
		return true
	}
}

// beginGame moves AwaitingRoom → InGame and launches the question loop. Both
// the admin's StartGame and a member's room-state poll funnel through here;
// the state guard makes the transition happen exactly once.
func (c *Client) beginGame() bool {
	c.mu.Lock()
	if c.state != AwaitingRoom {
		c.mu.Unlock()
		return false
	}
	c.statePoller = nil
	c.state = InGame
	g := newGameLoop()
	c.game = g
	room := c.room
	c.mu.Unlock()
	go c.runGame(g, room)
	return true
}

// runGame drives the question → countdown → answer → leaderboard loop until
// the server reports the game ended, then settles into ShowingResults.
func (c *Client) runGame(g *gameLoop, room RoomData) {
	log.Printf("Starting Goroutine: game loop")
	defer close(g.done)
	defer log.Printf("Ending Goroutine: game loop")

	for round := 1; !g.stopped(); round++ {
		q, ended, err := c.nextQuestion()
		if err != nil {
			if isTransport(err) {
				return
			}
			// Shown to the user, same round retried next tick.
			c.emit(Notice{Text: err.Error()})
			if !g.sleep(c.tick) {
				return
			}
			round--
			continue
		}
		if ended {
			break
		}
		deadline := time.Now().Add(time.Duration(room.TimePerQuestion) * c.tick)
		c.emit(Question{
			Round:    round,
			Total:    room.QuestionCount,
			Text:     q.Question,
			Answers:  orderedAnswers(q.Answers),
			Deadline: deadline,
		})

		selected, correct, ok := c.runCountdown(g, room.TimePerQuestion)
		if !ok {
			return
		}
		c.emit(AnswerResult{Selected: selected, CorrectAnswerID: correct})

		if results, err := c.GameResults(); err == nil {
			c.emit(Leaderboard{Entries: buildLeaderboard(results)})
		} else if isTransport(err) {
			return
		}
		if !g.sleep(c.interRoundWait) {
			return
		}
	}
	if g.stopped() {
		return
	}

	results, err := c.GameResults()
	if err != nil && isTransport(err) {
		return
	}
	c.mu.Lock()
	if c.game == g {
		c.game = nil
		c.state = ShowingResults
	}
	c.mu.Unlock()
	c.emit(GameOver{Entries: buildLeaderboard(results)})
}

// runCountdown drives one open question: ticks, the user's pick, submission
// and the wait until everyone has answered. At most one pick is counted; a
// non-terminal submit status means "not everyone answered yet", so the same
// selection is resubmitted every tick until the server resolves the round.
// ok is false when the loop was cancelled or the connection died.
func (c *Client) runCountdown(g *gameLoop, seconds int) (selected, correct int, ok bool) {
	// Drop any pick left over from the previous round.
	select {
	case <-c.answerCh:
	default:
	}
	selected = noAnswer
	answered := false
	// One ticker for the whole countdown; answer traffic arriving mid-tick
	// must not reset the current second.
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for remaining := seconds; remaining > 0; {
		submit := false
		select {
		case <-g.stop:
			return selected, 0, false
		case id := <-c.answerCh:
			if !answered {
				selected = id
				answered = true
			}
			submit = true
		case <-ticker.C:
			remaining--
			c.emit(CountdownTick{Remaining: remaining})
			submit = answered
		}
		if !submit {
			continue
		}
		terminal, id, err := c.submitAnswer(selected)
		if err != nil {
			if isTransport(err) {
				return selected, 0, false
			}
			c.emit(Notice{Text: err.Error()})
			continue
		}
		if terminal {
			return selected, id, true
		}
	}
	// Deadline passed: submit the sentinel when nothing was picked, then
	// keep polling until the round resolves.
	for {
		terminal, id, err := c.submitAnswer(selected)
		if err != nil {
			if isTransport(err) {
				return selected, 0, false
			}
			c.emit(Notice{Text: err.Error()})
		} else if terminal {
			return selected, id, true
		}
		if !g.sleep(c.tick) {
			return selected, 0, false
		}
	}
}

func (c *Client) nextQuestion() (*GetQuestionResponse, bool, error) {
	info, err := c.call(CodeGetQuestionRequest, nil)
	if err != nil {
		return nil, false, err
	}
	var resp GetQuestionResponse
	if err := decodeResponse(info, CodeGetQuestionResponse, &resp); err != nil {
		return nil, false, err
	}
	if resp.Status == statusGameEnded {
		return nil, true, nil
	}
	return &resp, false, nil
}

func (c *Client) submitAnswer(id int) (terminal bool, correctID int, err error) {
	info, err := c.call(CodeSubmitAnswerRequest, marshalRequest(SubmitAnswerRequest{AnswerID: id}))
	if err != nil {
		return false, 0, err
	}
	var resp SubmitAnswerResponse
	if err := decodeResponse(info, CodeSubmitAnswerResponse, &resp); err != nil {
		return false, 0, err
	}
	if resp.Status == statusFailure {
		// Not everyone answered yet.
		return false, 0, nil
	}
	return true, resp.CorrectAnswerID, nil
}

// ChooseAnswer records the user's pick for the open question. The first pick
// of a round wins; the countdown keeps running for display only.
func (c *Client) ChooseAnswer(id int) {
	select {
	case c.answerCh <- id:
	default:
	}
}

// LeaveGame abandons the game (or the results screen) and returns to the
// lobby. The question loop is cancelled and drained first so its in-flight
// exchange cannot trail behind ours.
func (c *Client) LeaveGame() error {
	if err := c.requireState("leave game", InGame, ShowingResults); err != nil {
		return err
	}
	c.mu.Lock()
	g := c.game
	c.game = nil
	c.mu.Unlock()
	if g != nil {
		g.cancel()
		g.wait()
	}
	info, err := c.call(CodeLeaveGameRequest, nil)
	if err != nil {
		return err
	}
	var resp StatusResponse
	if err := decodeResponse(info, CodeLeaveGameResponse, &resp); err != nil {
		// Shown, but leaving proceeds; the server already dropped us.
		c.emit(Notice{Text: err.Error()})
	}
	c.mu.Lock()
	c.state = Lobby
	c.isAdmin = false
	c.room = RoomData{}
	c.mu.Unlock()
	return nil
}
