package main

import (
	. "gopkg.in/check.v1"
)

type ScoreSuite struct{}

var _ = Suite(&ScoreSuite{})

func (s *ScoreSuite) TestScore(c *C) {
	// 75% accuracy over an average of 10 seconds.
	c.Check(Score(PlayerResults{
		Username:           "alice",
		CorrectAnswerCount: 3,
		WrongAnswerCount:   1,
		AverageAnswerTime:  10,
	}), Equals, uint(750))

	c.Check(Score(PlayerResults{
		Username:           "flash",
		CorrectAnswerCount: 4,
		AverageAnswerTime:  2,
	}), Equals, uint(5000))
}

func (s *ScoreSuite) TestScoreAvoidsZeroDivision(c *C) {
	c.Check(Score(PlayerResults{Username: "idle"}), Equals, uint(0))
	c.Check(Score(PlayerResults{
		Username:           "instant",
		CorrectAnswerCount: 2,
		AverageAnswerTime:  0,
	}), Equals, uint(0))
}

func (s *ScoreSuite) TestLeaderboardRanksBestFirst(c *C) {
	board := buildLeaderboard([]PlayerResults{
		{Username: "slow", CorrectAnswerCount: 2, WrongAnswerCount: 2, AverageAnswerTime: 20},
		{Username: "fast", CorrectAnswerCount: 2, WrongAnswerCount: 2, AverageAnswerTime: 5},
		{Username: "idle"},
	})
	c.Assert(board, HasLen, 3)
	c.Check(board[0], Equals, LeaderboardEntry{Username: "fast", Score: 1000})
	c.Check(board[1], Equals, LeaderboardEntry{Username: "slow", Score: 250})
	c.Check(board[2], Equals, LeaderboardEntry{Username: "idle", Score: 0})
}

func (s *ScoreSuite) TestLeaderboardTiesSortByName(c *C) {
	board := buildLeaderboard([]PlayerResults{
		{Username: "zoe", CorrectAnswerCount: 1, AverageAnswerTime: 5},
		{Username: "adam", CorrectAnswerCount: 1, AverageAnswerTime: 5},
	})
	c.Check(board[0].Username, Equals, "adam")
	c.Check(board[1].Username, Equals, "zoe")
}
