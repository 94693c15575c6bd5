package state

import (
	"errors"
	"fmt"
	"time"

	"ms-events/internal/models"
)

var (
	// ErrReadOnly is returned for mutations attempted in visitor mode
	ErrReadOnly = errors.New("read-only: visitor mode")
	// ErrPublishInFlight rejects a publish while another one is outstanding
	ErrPublishInFlight = errors.New("a publish is already in progress")
	ErrNotLoaded       = errors.New("state not loaded")
	ErrUnknownAction   = errors.New("unknown action")
)

type State struct {
	Mode            models.Mode
	Loaded          bool
	Events          []models.Event
	Assets          []models.Asset
	Settings        models.Settings
	Publishing      bool
	LastError       string
	LastPublishedAt time.Time
}

// Action is one typed transition
type Action interface {
	action()
}

type Loaded struct {
	Mode     models.Mode
	Events   []models.Event
	Assets   []models.Asset
	Settings models.Settings
}

// LoadFailed leaves the console loaded but empty
type LoadFailed struct {
	Err error
}

type EventSaved struct {
	Event models.Event
}

type EventDeleted struct {
	ID string
}

type AssetSaved struct {
	Asset models.Asset
}

type AssetDeleted struct {
	ID string
}

type SettingsSaved struct {
	Settings models.Settings
}

type PublishStarted struct{}

type PublishSucceeded struct {
	Events []models.Event
	At     time.Time
}

type PublishFailed struct {
	Err error
}

func (Loaded) action()           {}
func (LoadFailed) action()       {}
func (EventSaved) action()       {}
func (EventDeleted) action()     {}
func (AssetSaved) action()       {}
func (AssetDeleted) action()     {}
func (SettingsSaved) action()    {}
func (PublishStarted) action()   {}
func (PublishSucceeded) action() {}
func (PublishFailed) action()    {}

// Reduce applies one action. It never mutates s; slices in the result are fresh copies.
// A rejected action returns s unchanged together with the reason.
func Reduce(s State, a Action) (State, error) {
	switch act := a.(type) {
	case Loaded:
		return State{
			Mode:     act.Mode,
			Loaded:   true,
			Events:   models.CloneEvents(act.Events),
			Assets:   append([]models.Asset(nil), act.Assets...),
			Settings: act.Settings,
		}, nil

	case LoadFailed:
		next := State{
			Mode:     models.ModeOwner,
			Loaded:   true,
			Settings: models.DefaultSettings(),
		}
		if act.Err != nil {
			next.LastError = act.Err.Error()
		}
		return next, nil
	}

	if !s.Loaded {
		return s, ErrNotLoaded
	}
	if s.Mode == models.ModeVisitor {
		return s, ErrReadOnly
	}

	next := s
	switch act := a.(type) {
	case EventSaved:
		next.Events = models.UpsertEvent(s.Events, act.Event.Clone())

	case EventDeleted:
		next.Events = make([]models.Event, 0, len(s.Events))
		for _, ev := range s.Events {
			if ev.ID != act.ID {
				next.Events = append(next.Events, ev)
			}
		}

	case AssetSaved:
		next.Assets = upsertAsset(s.Assets, act.Asset)

	case AssetDeleted:
		next.Assets = make([]models.Asset, 0, len(s.Assets))
		for _, asset := range s.Assets {
			if asset.ID != act.ID {
				next.Assets = append(next.Assets, asset)
			}
		}

	case SettingsSaved:
		next.Settings = act.Settings

	case PublishStarted:
		if s.Publishing {
			return s, ErrPublishInFlight
		}
		next.Publishing = true
		next.LastError = ""

	case PublishSucceeded:
		next.Publishing = false
		next.LastError = ""
		next.LastPublishedAt = act.At
		if act.Events != nil {
			next.Events = models.CloneEvents(act.Events)
		}

	case PublishFailed:
		next.Publishing = false
		if act.Err != nil {
			next.LastError = act.Err.Error()
		}

	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	return next, nil
}

func upsertAsset(assets []models.Asset, asset models.Asset) []models.Asset {
	out := append([]models.Asset(nil), assets...)
	for i := range out {
		if out[i].ID == asset.ID {
			out[i] = asset
			return out
		}
	}
	return append(out, asset)
}
