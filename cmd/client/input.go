package main

import (
	"chat-rooms/protocol"
	stderrors "errors"
	"fmt"
	"strings"
)

var errExit = stderrors.New("exit requested")

// UsageError is a line the client refuses to send.
type UsageError struct {
	Usage string
}

func (e UsageError) Error() string {
	return "Usage: " + e.Usage
}

// ParseInput turns one typed line into a command. A blank line returns a nil
// command and no error; "exit" returns errExit.
func ParseInput(line string) (protocol.Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)
	fields := strings.Fields(args)

	switch strings.ToLower(name) {
	case "register":
		if len(fields) != 2 {
			return nil, UsageError{"register <username> <password>"}
		}
		return protocol.Register{Username: fields[0], Password: fields[1]}, nil
	case "login":
		if len(fields) != 2 {
			return nil, UsageError{"login <username> <password>"}
		}
		return protocol.Login{Username: fields[0], Password: fields[1]}, nil
	case "resume":
		if len(fields) != 1 {
			return nil, UsageError{"resume <token>"}
		}
		return protocol.Login{Token: fields[0]}, nil
	case "create_room":
		if len(fields) < 1 {
			return nil, UsageError{"create_room <room_name> [private]"}
		}
		private := false
		for _, f := range fields[1:] {
			if strings.EqualFold(f, "private") {
				private = true
			}
		}
		return protocol.CreateRoom{RoomName: fields[0], IsPrivate: private}, nil
	case "join_room":
		if args == "" {
			return nil, UsageError{"join_room <room_name>"}
		}
		return protocol.JoinRoom{RoomName: args}, nil
	case "send":
		if args == "" {
			return nil, UsageError{"send <your message>"}
		}
		return protocol.SendMessage{Message: args}, nil
	case "search":
		if args == "" {
			return nil, UsageError{"search <text>"}
		}
		return protocol.Search{Query: args}, nil
	case "leave_room":
		return protocol.LeaveRoom{}, nil
	case "list_rooms":
		return protocol.ListRooms{}, nil
	case "room_stats":
		return protocol.RoomStats{}, nil
	case "leaderboard":
		return protocol.Leaderboard{}, nil
	case "logout":
		return protocol.Logout{}, nil
	case "help":
		return protocol.Help{}, nil
	case "exit", "quit":
		return nil, errExit
	default:
		return nil, fmt.Errorf("unknown command %q, type 'help' for available commands", name)
	}
}
