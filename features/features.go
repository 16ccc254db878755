package features

import (
	"context"
	"fmt"

	"github.com/c360/playkit/errors"
	"github.com/c360/playkit/feature"
	"github.com/c360/playkit/target"
)

// Media is the target surface the reference features require: the event
// and property vocabulary of a media element. target.MediaElement
// implements it; production embedders wrap their media engine in it.
type Media interface {
	target.Emitter

	Paused() bool
	Ended() bool
	Seeking() bool
	CurrentTime() float64
	Duration() float64
	Volume() float64
	Muted() bool
	PlaybackRate() float64

	Play()
	Pause()
	SetCurrentTime(t float64)
	SetVolume(v float64)
	SetMuted(muted bool)
	SetPlaybackRate(rate float64)
}

// listen registers update on each event for the life of the attach scope
func listen(ctx context.Context, m Media, update func(), events ...string) {
	for _, event := range events {
		off := m.On(event, update)
		context.AfterFunc(ctx, off)
	}
}

func floatInput(request string, input any) (float64, error) {
	switch v := input.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, errors.WrapInvalid(fmt.Errorf("request '%s' wants a number, got %T", request, input),
		"Feature", "Handler", "input validation")
}

func boolInput(request string, input any) (bool, error) {
	v, ok := input.(bool)
	if !ok {
		return false, errors.WrapInvalid(fmt.Errorf("request '%s' wants a bool, got %T", request, input),
			"Feature", "Handler", "input validation")
	}
	return v, nil
}

// Playback covers the transport state: paused and ended, with play and
// pause requests.
func Playback() *feature.Feature[Media] {
	return feature.MustNew(feature.Config[Media]{
		Name: "playback",
		InitialState: feature.State{
			"paused": true,
			"ended":  false,
		},
		Snapshot: func(m Media) feature.State {
			return feature.State{
				"paused": m.Paused(),
				"ended":  m.Ended(),
			}
		},
		Subscribe: func(ctx context.Context, m Media, update func()) error {
			listen(ctx, m, update, target.EventPlay, target.EventPause, target.EventEnded)
			return nil
		},
		Requests: map[string]feature.Request[Media]{
			"play": {Handler: func(_ context.Context, rc feature.RequestContext[Media]) (any, error) {
				rc.Target.Play()
				return nil, nil
			}},
			"pause": {Handler: func(_ context.Context, rc feature.RequestContext[Media]) (any, error) {
				rc.Target.Pause()
				return nil, nil
			}},
			"togglePlay": {Handler: func(_ context.Context, rc feature.RequestContext[Media]) (any, error) {
				if rc.Target.Paused() {
					rc.Dispatch("play", nil)
				} else {
					rc.Dispatch("pause", nil)
				}
				return nil, nil
			}},
		},
	})
}

// MediaTime covers the timeline: currentTime, duration and the seeking
// flag. Seek requests share one dedup key, so a scrubbing gesture keeps
// only its latest seek in flight.
func MediaTime() *feature.Feature[Media] {
	return feature.MustNew(feature.Config[Media]{
		Name: "mediatime",
		InitialState: feature.State{
			"currentTime": 0.0,
			"duration":    0.0,
			"seeking":     false,
		},
		Snapshot: func(m Media) feature.State {
			return feature.State{
				"currentTime": m.CurrentTime(),
				"duration":    m.Duration(),
				"seeking":     m.Seeking(),
			}
		},
		Subscribe: func(ctx context.Context, m Media, update func()) error {
			listen(ctx, m, update,
				target.EventTimeUpdate, target.EventSeeking, target.EventSeeked,
				target.EventDurationChange)
			return nil
		},
		Requests: map[string]feature.Request[Media]{
			"seek": {
				Key: "seek",
				Handler: func(ctx context.Context, rc feature.RequestContext[Media]) (any, error) {
					secs, err := floatInput("seek", rc.Input)
					if err != nil {
						return nil, err
					}
					// A superseded seek must not land its position
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					rc.Target.SetCurrentTime(secs)
					return secs, nil
				},
			},
			"seekToStart": {
				Key: "seek",
				Handler: func(ctx context.Context, rc feature.RequestContext[Media]) (any, error) {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					rc.Target.SetCurrentTime(0)
					return 0.0, nil
				},
			},
		},
	})
}

// Volume covers volume and the muted flag
func Volume() *feature.Feature[Media] {
	return feature.MustNew(feature.Config[Media]{
		Name: "volume",
		InitialState: feature.State{
			"volume": 1.0,
			"muted":  false,
		},
		Snapshot: func(m Media) feature.State {
			return feature.State{
				"volume": m.Volume(),
				"muted":  m.Muted(),
			}
		},
		Subscribe: func(ctx context.Context, m Media, update func()) error {
			listen(ctx, m, update, target.EventVolumeChange)
			return nil
		},
		Requests: map[string]feature.Request[Media]{
			"setVolume": {Handler: func(_ context.Context, rc feature.RequestContext[Media]) (any, error) {
				v, err := floatInput("setVolume", rc.Input)
				if err != nil {
					return nil, err
				}
				rc.Target.SetVolume(v)
				return v, nil
			}},
			"setMuted": {Handler: func(_ context.Context, rc feature.RequestContext[Media]) (any, error) {
				muted, err := boolInput("setMuted", rc.Input)
				if err != nil {
					return nil, err
				}
				rc.Target.SetMuted(muted)
				return muted, nil
			}},
		},
	})
}

// PlaybackRate covers the playback speed multiplier
func PlaybackRate() *feature.Feature[Media] {
	return feature.MustNew(feature.Config[Media]{
		Name: "playbackrate",
		InitialState: feature.State{
			"playbackRate": 1.0,
		},
		Snapshot: func(m Media) feature.State {
			return feature.State{
				"playbackRate": m.PlaybackRate(),
			}
		},
		Subscribe: func(ctx context.Context, m Media, update func()) error {
			listen(ctx, m, update, target.EventRateChange)
			return nil
		},
		Requests: map[string]feature.Request[Media]{
			"setPlaybackRate": {Handler: func(_ context.Context, rc feature.RequestContext[Media]) (any, error) {
				rate, err := floatInput("setPlaybackRate", rc.Input)
				if err != nil {
					return nil, err
				}
				if rate <= 0 {
					return nil, errors.WrapInvalid(
						fmt.Errorf("playback rate %v is not positive", rate),
						"Feature", "Handler", "setPlaybackRate validation")
				}
				rc.Target.SetPlaybackRate(rate)
				return rate, nil
			}},
		},
	})
}

// All composes the full reference feature set
func All() (*feature.Feature[Media], error) {
	return feature.Combine(Playback(), MediaTime(), Volume(), PlaybackRate())
}
