package protocol

import (
	"chat-rooms/errors"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CommandName string

const (
	CmdRegister    CommandName = "register"
	CmdLogin       CommandName = "login"
	CmdCreateRoom  CommandName = "create_room"
	CmdJoinRoom    CommandName = "join_room"
	CmdLeaveRoom   CommandName = "leave_room"
	CmdSendMessage CommandName = "send_message"
	CmdListRooms   CommandName = "list_rooms"
	CmdRoomStats   CommandName = "room_stats"
	CmdLeaderboard CommandName = "leaderboard"
	CmdSearch      CommandName = "search"
	CmdLogout      CommandName = "logout"
	CmdHelp        CommandName = "help"
)

// Command is one of the client requests below. The set is closed:
// Decode never returns any other type.
type Command interface {
	Name() CommandName
}

type Register struct {
	Username string `json:"username" validate:"max=50"`
	Password string `json:"password" validate:"max=72"`
}

// Login authenticates with a password, or with the token of a previous login.
type Login struct {
	Username string `json:"username,omitempty" validate:"max=50"`
	Password string `json:"password,omitempty" validate:"max=72"`
	Token    string `json:"token,omitempty"`
}

type CreateRoom struct {
	RoomName  string `json:"room_name" validate:"required,max=50"`
	IsPrivate bool   `json:"is_private"`
}

type JoinRoom struct {
	RoomName string `json:"room_name" validate:"required,max=50"`
}

type LeaveRoom struct{}

type SendMessage struct {
	Message string `json:"message" validate:"max=4096"`
}

type ListRooms struct{}

type RoomStats struct{}

type Leaderboard struct{}

type Search struct {
	Query string `json:"query" validate:"required,max=256"`
}

type Logout struct{}

type Help struct{}

func (Register) Name() CommandName    { return CmdRegister }
func (Login) Name() CommandName       { return CmdLogin }
func (CreateRoom) Name() CommandName  { return CmdCreateRoom }
func (JoinRoom) Name() CommandName    { return CmdJoinRoom }
func (LeaveRoom) Name() CommandName   { return CmdLeaveRoom }
func (SendMessage) Name() CommandName { return CmdSendMessage }
func (ListRooms) Name() CommandName   { return CmdListRooms }
func (RoomStats) Name() CommandName   { return CmdRoomStats }
func (Leaderboard) Name() CommandName { return CmdLeaderboard }
func (Search) Name() CommandName      { return CmdSearch }
func (Logout) Name() CommandName      { return CmdLogout }
func (Help) Name() CommandName        { return CmdHelp }

// IsAuthentication reports whether cmd may be sent before logging in.
func IsAuthentication(cmd Command) bool {
	switch cmd.(type) {
	case Register, Login, Help:
		return true
	default:
		return false
	}
}

var validate = newValidator()

// newValidator reports fields by their wire name rather than the Go field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type envelope struct {
	Command *string `json:"command"`
}

// Decode parses one frame into its command. Every failure is a *ProtocolError.
func Decode(frame []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, newProtocolError(errors.ErrMalformedFrame, frame)
	}
	if env.Command == nil {
		return nil, newProtocolError(fmt.Errorf("%w: missing command field", errors.ErrInvalidCommand), frame)
	}

	switch CommandName(*env.Command) {
	case CmdRegister:
		return decodeAs[Register](frame)
	case CmdLogin:
		return decodeAs[Login](frame)
	case CmdCreateRoom:
		return decodeAs[CreateRoom](frame)
	case CmdJoinRoom:
		return decodeAs[JoinRoom](frame)
	case CmdLeaveRoom:
		return LeaveRoom{}, nil
	case CmdSendMessage:
		return decodeAs[SendMessage](frame)
	case CmdListRooms:
		return ListRooms{}, nil
	case CmdRoomStats:
		return RoomStats{}, nil
	case CmdLeaderboard:
		return Leaderboard{}, nil
	case CmdSearch:
		return decodeAs[Search](frame)
	case CmdLogout:
		return Logout{}, nil
	case CmdHelp:
		return Help{}, nil
	default:
		return nil, newProtocolError(fmt.Errorf("%w: %q", errors.ErrUnknownCommand, *env.Command), frame)
	}
}

func decodeAs[T Command](frame []byte) (Command, error) {
	var cmd T
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return nil, newProtocolError(fmt.Errorf("%w: %s", errors.ErrInvalidCommand, describeJSONError(err)), frame)
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, newProtocolError(fmt.Errorf("%w: %s", errors.ErrInvalidCommand, describeValidation(err)), frame)
	}
	return cmd, nil
}

// EncodeCommand frames cmd with its "command" discriminator, as a client sends it.
func EncodeCommand(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["command"] = json.RawMessage(strconv.Quote(string(cmd.Name())))
	return Encode(fields)
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		return fmt.Sprintf("field %q must be a %s", typeErr.Field, typeErr.Type.Kind())
	}
	return err.Error()
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}
