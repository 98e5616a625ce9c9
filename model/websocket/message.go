package modelwebsocket

import "errors"

type Action string

const (
	SelectPlayer Action = "selectPlayer"
	SelectAction Action = "selectAction"
	Undo         Action = "undo"
	Redo         Action = "redo"
	Cancel       Action = "cancel"
	Refresh      Action = "refresh"
)

var ClientActions = []Action{
	SelectPlayer,
	SelectAction,
	Undo,
	Redo,
	Cancel,
	Refresh,
}

const (
	UpdateState Action = "updateState"
	Error       Action = "error"
)

var ServerActions = []Action{
	UpdateState,
	Error,
}

func ActionFromString(a string) (Action, error) {
	switch a {
	case string(SelectPlayer):
		return SelectPlayer, nil
	case string(SelectAction):
		return SelectAction, nil
	case string(Undo):
		return Undo, nil
	case string(Redo):
		return Redo, nil
	case string(Cancel):
		return Cancel, nil
	case string(Refresh):
		return Refresh, nil
	case string(UpdateState):
		return UpdateState, nil
	case string(Error):
		return Error, nil
	}
	return "", errors.New("unsupported action name")
}

func (s Action) String() string {
	switch s {
	case SelectPlayer:
		return string(SelectPlayer)
	case SelectAction:
		return string(SelectAction)
	case Undo:
		return string(Undo)
	case Redo:
		return string(Redo)
	case Cancel:
		return string(Cancel)
	case Refresh:
		return string(Refresh)
	case UpdateState:
		return string(UpdateState)
	case Error:
		return string(Error)
	}
	return "unknown"
}

type Message struct {
	Action  Action `json:"action"`
	Content string `json:"content,omitempty"`
}
