package main

import "log"

// Shutdown sends the best-effort goodbye sequence for the current state
// (leave game, leave room or close room depending on role, then logout) and
// closes the connection. Failures are logged and never block the shutdown.
func (c *Client) Shutdown() {
	c.mu.Lock()
	state := c.state
	admin := c.isAdmin
	lp, sp, g := c.listPoller, c.statePoller, c.game
	c.listPoller, c.statePoller, c.game = nil, nil, nil
	c.mu.Unlock()

	if lp != nil {
		lp.Stop()
	}
	if sp != nil {
		sp.Stop()
		sp.Wait()
	}
	if g != nil {
		g.cancel()
		g.wait()
	}

	switch state {
	case InGame, ShowingResults:
		c.goodbye(CodeLeaveGameRequest, CodeLeaveGameResponse, "leave game")
	case AwaitingRoom:
		if admin {
			c.goodbye(CodeCloseRoomRequest, CodeCloseRoomResponse, "close room")
		} else {
			c.goodbye(CodeLeaveRoomRequest, CodeLeaveRoomResponse, "leave room")
		}
	}
	if state != LoggedOut {
		c.goodbye(CodeLogoutRequest, CodeLogoutResponse, "logout")
	}

	c.session.Close()
	c.mu.Lock()
	c.state = LoggedOut
	c.username = ""
	c.isAdmin = false
	c.room = RoomData{}
	c.mu.Unlock()
	log.Printf("Session shut down")
}

// goodbye is a best-effort exchange on the way out. It talks to the session
// directly so a dead connection fails fast without another Disconnected
// event.
func (c *Client) goodbye(req, want Code, what string) {
	info, err := c.session.Call(req, nil)
	if err != nil {
		log.Printf("Shutdown: %s failed: %v", what, err)
		return
	}
	var resp StatusResponse
	if err := decodeResponse(info, want, &resp); err != nil {
		log.Printf("Shutdown: %s rejected: %v", what, err)
	}
}
