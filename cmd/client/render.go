package main

import (
	"chat-rooms/protocol"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Renderer prints server frames for a human and tracks who is logged in where.
// It is safe for concurrent use by the reading and the typing goroutine.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	colours  bool
	username string
	room     string
	token    string
}

func NewRenderer(out io.Writer, colours bool) *Renderer {
	return &Renderer{out: out, colours: colours}
}

func (r *Renderer) paint(style color.Style, s string) string {
	if !r.colours {
		return s
	}
	return style.Render(s)
}

// Prompt prints the input marker, "guest" until a login succeeds.
func (r *Renderer) Prompt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompt()
}

func (r *Renderer) prompt() {
	who := r.username
	if who == "" {
		who = "guest"
	}
	if r.room != "" {
		who += "#" + r.room
	}
	fmt.Fprintf(r.out, "%s > ", r.paint(color.New(color.FgCyan), who+"@chat"))
}

// Println prints a client side note.
func (r *Renderer) Println(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, msg)
}

func (r *Renderer) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

func (r *Renderer) Render(f protocol.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case f.Type == protocol.TypePrompt:
		fmt.Fprintf(r.out, "\n%s %s\n", r.paint(color.New(color.FgYellow), "SERVER:"), f.Message)
	case f.Type == protocol.TypeInfo:
		fmt.Fprintln(r.out, f.Message)
	case f.Type == protocol.TypeChatMessage:
		sender := f.Sender
		if sender == protocol.ServerSender {
			sender = r.paint(color.New(color.FgYellow), sender)
		} else {
			sender = r.paint(color.New(color.FgGreen, color.OpBold), sender)
		}
		fmt.Fprintf(r.out, "\n[%s] <%s>: %s\n", clock(f.Timestamp), sender, f.Content)
	case f.Status == protocol.StatusError:
		fmt.Fprintf(r.out, "\n%s %s\n", r.paint(color.New(color.FgRed), "ERROR:"), f.Message)
	case f.Status == protocol.StatusSuccess:
		r.renderSuccess(f)
	default:
		fmt.Fprintf(r.out, "\nSERVER RESPONSE: %+v\n", f)
	}
	if f.Type != protocol.TypePrompt {
		r.prompt()
	}
}

func (r *Renderer) renderSuccess(f protocol.Frame) {
	if f.Message != "" {
		fmt.Fprintf(r.out, "\n%s %s\n", r.paint(color.New(color.FgYellow), "SERVER:"), f.Message)
	}
	switch {
	case f.UserID != nil:
		r.username = f.Username
		r.token = f.Token
		fmt.Fprintln(r.out, "You are now logged in. Type 'help' for commands.")
	case f.RoomID != nil:
		r.room = f.RoomName
		if len(f.History) > 0 {
			fmt.Fprintln(r.out, "\n--- Chat History ---")
			for _, h := range f.History {
				fmt.Fprintf(r.out, "[%s] <%s>: %s\n", clock(h.Timestamp), h.Username, h.Content)
			}
			fmt.Fprintln(r.out, "--------------------")
		}
		if f.RoomStats != nil {
			fmt.Fprintf(r.out, "Room Stats: Users in room: %d, Total messages: %d\n", f.RoomStats.TotalUsers, f.RoomStats.TotalMessages)
		}
		fmt.Fprintf(r.out, "Active Users in room: %s\n", strings.Join(f.ActiveUsersInRoom, ", "))
	case f.Rooms != nil:
		table := r.table("Room", "Visibility")
		for _, room := range f.Rooms {
			visibility := "Public"
			if room.IsPrivate {
				visibility = "Private"
			}
			table.Append([]string{room.Name, visibility})
		}
		table.Render()
	case f.RoomStats != nil:
		fmt.Fprintf(r.out, "\n--- Room Statistics for %s ---\n", r.room)
		fmt.Fprintf(r.out, "  Total Users (Currently Active): %d\n", f.RoomStats.TotalUsers)
		fmt.Fprintf(r.out, "  Total Messages (History): %d\n", f.RoomStats.TotalMessages)
		fmt.Fprintf(r.out, "  Active Users: %s\n", strings.Join(f.ActiveUsers, ", "))
	case f.Leaderboard != nil:
		table := r.table("Username", "Messages", "Last Active")
		for _, e := range f.Leaderboard {
			table.Append([]string{e.Username, strconv.Itoa(e.MessageCount), localTime(e.LastActive)})
		}
		table.Render()
	case f.Query != "":
		if len(f.Results) == 0 {
			fmt.Fprintf(r.out, "No message matches %q.\n", f.Query)
		}
		for _, h := range f.Results {
			fmt.Fprintf(r.out, "[%s] <%s>: %s\n", clock(h.Timestamp), h.Username, h.Content)
		}
	case strings.HasPrefix(f.Message, "Left room"):
		r.room = ""
	case strings.HasPrefix(f.Message, "Logging out"):
		r.room, r.username, r.token = "", "", ""
	}
}

func (r *Renderer) table(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

// clock shows the local time of day of a wire timestamp.
func clock(timestamp string) string {
	at, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return timestamp
	}
	return at.Local().Format(time.TimeOnly)
}

func localTime(timestamp string) string {
	at, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return timestamp
	}
	return at.Local().Format(time.DateTime)
}
