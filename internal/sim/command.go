package sim

import (
	"fmt"

	"github.com/roach88/cae/internal/event"
)

// Action is what a scripted command asks an entity to do.
type Action string

const (
	ActionMove   Action = "move"
	ActionAttack Action = "attack"
	ActionUse    Action = "use"
	ActionWait   Action = "wait"
)

// DefaultItem is used by "use" commands that name no item.
const DefaultItem = "potion"

// Command is one queued instruction for a scripted entity. Actor and
// Target are entity names.
type Command struct {
	Actor  string `json:"actor" yaml:"actor"`
	Action Action `json:"action" yaml:"action"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Item   string `json:"item,omitempty" yaml:"item,omitempty"`
}

// Validate checks the command's shape. Names are resolved against the
// world when the command is executed.
func (c Command) Validate() error {
	if c.Actor == "" {
		return fmt.Errorf("command has no actor")
	}
	switch c.Action {
	case ActionMove:
		if _, err := event.ParseDirection(c.Dir); err != nil {
			return fmt.Errorf("%s move: %w", c.Actor, err)
		}
	case ActionAttack:
		if c.Target == "" {
			return fmt.Errorf("%s attack: no target", c.Actor)
		}
	case ActionUse, ActionWait:
	default:
		return fmt.Errorf("%s: unknown action %q", c.Actor, c.Action)
	}
	return nil
}

func (c Command) String() string {
	switch c.Action {
	case ActionMove:
		return fmt.Sprintf("%s move %s", c.Actor, c.Dir)
	case ActionAttack:
		return fmt.Sprintf("%s attack %s", c.Actor, c.Target)
	case ActionUse:
		return fmt.Sprintf("%s use %s", c.Actor, c.item())
	}
	return fmt.Sprintf("%s %s", c.Actor, c.Action)
}

func (c Command) item() string {
	if c.Item == "" {
		return DefaultItem
	}
	return c.Item
}
