package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	var configPath, serverIP string
	var serverPort int
	flag.StringVar(&configPath, "config", "config.txt", "Path of the legacy config file.")
	flag.StringVar(&serverIP, "ip", "", "Server address, overriding config file and environment.")
	flag.IntVar(&serverPort, "port", 0, "Server port, overriding config file and environment.")
	flag.Parse()

	godotenv.Load()
	cfg := LoadConfig(configPath)
	if serverIP != "" {
		cfg.ServerIP = serverIP
	}
	if serverPort != 0 {
		cfg.ServerPort = serverPort
	}

	stdin := bufio.NewScanner(os.Stdin)
	session, err := Dial(cfg.Addr(), func(dialErr error) bool {
		fmt.Printf("Can't find server on %s (%v). Try again? [y/N] ", cfg.Addr(), dialErr)
		if !stdin.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(stdin.Text()))
		return answer == "y" || answer == "yes"
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Giving up: %v\n", err)
		os.Exit(1)
	}

	client := NewClient(session)
	go renderEvents(client)
	runConsole(client, stdin)
	client.Shutdown()
}

// renderEvents is the bundled presentation adapter: a plain subscriber that
// turns core events into console output. Any richer UI would replace exactly
// this function.
func renderEvents(client *Client) {
	for ev := range client.Events() {
		switch ev := ev.(type) {
		case RoomList:
			fmt.Printf("Open rooms: %d\n", len(ev.Rooms))
			for _, listing := range ev.Rooms {
				fmt.Printf("  [%d] %q %d/%d players (%s)\n",
					listing.Room.ID, listing.Room.Name,
					len(listing.Players), listing.Room.MaxPlayers,
					strings.Join(listing.Players, ", "))
			}
		case RoomSnapshot:
			fmt.Printf("Waiting: %d players, %d questions, %ds per question: %s\n",
				len(ev.Players), ev.QuestionCount, ev.AnswerTimeout,
				strings.Join(ev.Players, ", "))
		case RoomClosed:
			fmt.Println("The room was closed; back to the menu.")
		case GameStarted:
			fmt.Println("The game begins!")
		case Question:
			fmt.Printf("Question %d/%d: %s\n", ev.Round, ev.Total, ev.Text)
			for i, answer := range ev.Answers {
				fmt.Printf("  %d) %s\n", i, answer)
			}
		case CountdownTick:
			fmt.Printf("  %ds left\n", ev.Remaining)
		case AnswerResult:
			if ev.Selected == ev.CorrectAnswerID {
				fmt.Println("Correct!")
			} else {
				fmt.Printf("Wrong, the answer was %d.\n", ev.CorrectAnswerID)
			}
		case Leaderboard:
			fmt.Println("Standings:")
			printEntries(ev.Entries)
		case GameOver:
			fmt.Println("Final results:")
			printEntries(ev.Entries)
			fmt.Println("Type 'menu' to return to the lobby.")
		case Notice:
			fmt.Printf("Server says: %s\n", ev.Text)
		case Disconnected:
			fmt.Printf("Disconnected: %s\n", ev.Reason)
			return
		}
	}
}

func printEntries(entries []LeaderboardEntry) {
	for pos, entry := range entries {
		fmt.Printf("  %d. %s %d\n", pos+1, entry.Username, entry.Score)
	}
}

func runConsole(client *Client, stdin *bufio.Scanner) {
	fmt.Println("Trivia client ready. Type 'help' for commands.")
	for fmt.Print("> "); stdin.Scan(); fmt.Print("> ") {
		words := strings.Fields(stdin.Text())
		if len(words) == 0 {
			continue
		}
		cmd, args := words[0], words[1:]
		if cmd == "quit" || cmd == "exit" {
			return
		}
		if err := dispatch(client, cmd, args); err != nil {
			fmt.Println(err)
		}
	}
}

func dispatch(client *Client, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Print(`login <user> <password>
signup <user> <password> <email>
rooms                         start/refresh the room list
create <name> <players> <questions> <seconds>
join <roomId>
start | leave | close         in a room
answer <0-3>                  during a question
menu                          back to lobby from the results
top | stats                   statistics
logout | quit
`)
		return nil
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <user> <password>")
		}
		return client.Login(args[0], args[1])
	case "signup":
		if len(args) != 3 {
			return fmt.Errorf("usage: signup <user> <password> <email>")
		}
		return client.Signup(args[0], args[1], args[2])
	case "rooms":
		client.StartRoomListPolling()
		return nil
	case "create":
		if len(args) != 4 {
			return fmt.Errorf("usage: create <name> <players> <questions> <seconds>")
		}
		numbers := make([]uint, 3)
		for i, arg := range args[1:] {
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				return fmt.Errorf("illegal room settings")
			}
			numbers[i] = uint(n)
		}
		return client.CreateRoom(args[0], numbers[0], numbers[1], numbers[2])
	case "join":
		if len(args) != 1 {
			return fmt.Errorf("usage: join <roomId>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: join <roomId>")
		}
		return client.JoinRoom(id)
	case "start":
		return client.StartGame()
	case "leave":
		switch client.State() {
		case AwaitingRoom:
			return client.LeaveRoom()
		default:
			return client.LeaveGame()
		}
	case "close":
		return client.CloseRoom()
	case "answer":
		if len(args) != 1 {
			return fmt.Errorf("usage: answer <0-3>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: answer <0-3>")
		}
		client.ChooseAnswer(id)
		return nil
	case "menu":
		return client.BackToLobby()
	case "top":
		lines, err := client.HighScores()
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(lines, "\n"))
		return nil
	case "stats":
		lines, err := client.PersonalStats()
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(lines, "\n"))
		return nil
	case "logout":
		return client.Logout()
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}
